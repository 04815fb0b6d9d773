package models

import "time"

const (
	DefaultModel  = "gpt-4o-mini"
	AdvancedModel = "gpt-4o"

	// Rough cost estimation per 1k tokens, in USD.
	CostPer1KInput  = 0.0001
	CostPer1KOutput = 0.0004

	NewPromptTitle = "New Untitled Prompt"
	FunPromptTitle = "A Fun Random Prompt"
)

var FunPrompts = []string{
	"Explain quantum physics to a 5-year-old using only emojis.",
	"Write a polite resignation letter from a cat to its owner.",
	"Describe the color blue to someone who has been blind their whole life.",
	"You are a medieval knight who has time-traveled to a modern Apple Store. Describe your experience.",
}

// InitialCategories is written on first run when no categories are stored.
func InitialCategories() []Category {
	return []Category{
		{ID: "cat_1", Name: "Creative Writing"},
		{ID: "cat_2", Name: "Coding"},
		{ID: "cat_3", Name: "Research"},
		{ID: "cat_4", Name: "Business"},
		{ID: "cat_1_1", Name: "Fiction", ParentID: Ptr("cat_1")},
		{ID: "cat_1_2", Name: "Poetry", ParentID: Ptr("cat_1")},
		{ID: "cat_2_1", Name: "React", ParentID: Ptr("cat_2")},
		{ID: "cat_2_2", Name: "Python", ParentID: Ptr("cat_2")},
	}
}

// InitialPrompts is written on first run when no prompts are stored.
func InitialPrompts(now time.Time) []Prompt {
	return []Prompt{
		{
			ID:         "p_1",
			Title:      "Story Outline for Sci-Fi Novel",
			Content:    "Write a chapter outline for a science fiction novel set on a water planet where humanity lives on giant floating cities. The protagonist is a diver who finds an ancient artifact.",
			CategoryID: Ptr("cat_1_1"),
			Tags:       []string{"sci-fi", "outline", "creative"},
			IsFavorite: true,
			CreatedAt:  now,
			UpdatedAt:  now,
			Metadata: PromptMetadata{
				Score:         Ptr(8),
				Tokens:        Ptr(45),
				EstimatedCost: Ptr(0.000045),
			},
		},
		{
			ID:         "p_2",
			Title:      "Python Data Processing Function",
			Content:    "Create a Python function using Pandas to clean a CSV dataset. It should remove null rows, normalize column names to snake_case, and fill missing integer values with the median.",
			CategoryID: Ptr("cat_2_2"),
			Tags:       []string{"python", "pandas", "coding"},
			IsFavorite: true,
			CreatedAt:  now.Add(-100 * time.Second),
			UpdatedAt:  now,
			Metadata: PromptMetadata{
				Score:         Ptr(9),
				Tokens:        Ptr(38),
				EstimatedCost: Ptr(0.000038),
			},
		},
	}
}
