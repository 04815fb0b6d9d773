package models

import "time"

// PromptMetadata holds AI-derived usage metrics. A nil field was never computed.
type PromptMetadata struct {
	Score         *int     `json:"score,omitempty"`
	Tokens        *int     `json:"tokens,omitempty"`
	EstimatedCost *float64 `json:"estimatedCost,omitempty"` // USD
	RuntimeMs     *int64   `json:"runtimeMs,omitempty"`
	ModelUsed     *string  `json:"modelUsed,omitempty"`
	Feedback      *string  `json:"feedback,omitempty"`
}

// Merge returns m with every non-nil field of patch copied over it.
func (m PromptMetadata) Merge(patch PromptMetadata) PromptMetadata {
	if patch.Score != nil {
		m.Score = Ptr(*patch.Score)
	}
	if patch.Tokens != nil {
		m.Tokens = Ptr(*patch.Tokens)
	}
	if patch.EstimatedCost != nil {
		m.EstimatedCost = Ptr(*patch.EstimatedCost)
	}
	if patch.RuntimeMs != nil {
		m.RuntimeMs = Ptr(*patch.RuntimeMs)
	}
	if patch.ModelUsed != nil {
		m.ModelUsed = Ptr(*patch.ModelUsed)
	}
	if patch.Feedback != nil {
		m.Feedback = Ptr(*patch.Feedback)
	}
	return m
}

// PromptVersion is a historical content snapshot. Nothing writes these yet.
type PromptVersion struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Prompt struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	CategoryID *string         `json:"categoryId"`
	Tags       []string        `json:"tags"`
	IsFavorite bool            `json:"isFavorite"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Metadata   PromptMetadata  `json:"metadata"`
	Versions   []PromptVersion `json:"versions,omitempty"`
}

// Clone returns a deep copy so callers never alias repository state.
func (p Prompt) Clone() Prompt {
	if p.CategoryID != nil {
		p.CategoryID = Ptr(*p.CategoryID)
	}
	p.Tags = append([]string(nil), p.Tags...)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Metadata = PromptMetadata{}.Merge(p.Metadata)
	p.Versions = append([]PromptVersion(nil), p.Versions...)
	return p
}

// InCategory reports whether the prompt is filed exactly under id.
func (p Prompt) InCategory(id string) bool {
	return p.CategoryID != nil && *p.CategoryID == id
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
