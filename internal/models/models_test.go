package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptMetadata_MergeIsAdditive(t *testing.T) {
	base := PromptMetadata{Score: Ptr(8)}

	merged := base.Merge(PromptMetadata{Tokens: Ptr(10)})

	require.NotNil(t, merged.Score)
	require.NotNil(t, merged.Tokens)
	assert.Equal(t, 8, *merged.Score)
	assert.Equal(t, 10, *merged.Tokens)
	assert.Nil(t, merged.Feedback)
	assert.Nil(t, merged.EstimatedCost)
}

func TestPromptMetadata_MergeOverwritesPresentFields(t *testing.T) {
	base := PromptMetadata{Score: Ptr(3), Feedback: Ptr("meh")}

	merged := base.Merge(PromptMetadata{Score: Ptr(9)})

	assert.Equal(t, 9, *merged.Score)
	assert.Equal(t, "meh", *merged.Feedback)
	assert.Equal(t, 3, *base.Score, "receiver must not be modified")
}

func TestPrompt_CloneDoesNotAlias(t *testing.T) {
	p := Prompt{ID: "p", CategoryID: Ptr("c"), Tags: []string{"a"}, Metadata: PromptMetadata{Tokens: Ptr(1)}}

	c := p.Clone()
	*c.CategoryID = "other"
	c.Tags[0] = "b"
	*c.Metadata.Tokens = 2

	assert.Equal(t, "c", *p.CategoryID)
	assert.Equal(t, "a", p.Tags[0])
	assert.Equal(t, 1, *p.Metadata.Tokens)
}

func TestParseAIActionType(t *testing.T) {
	tests := []struct {
		in      string
		want    AIActionType
		wantErr bool
	}{
		{"EVALUATE", ActionEvaluate, false},
		{"enhance", ActionEnhance, false},
		{"code-plan", ActionCodePlan, false},
		{" fun_prompt ", ActionFunPrompt, false},
		{"summarize", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAIActionType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitialCategoriesAreSeededWithParents(t *testing.T) {
	cats := InitialCategories()
	roots := 0
	for _, c := range cats {
		if c.IsRoot() {
			roots++
		}
	}
	assert.Len(t, cats, 8)
	assert.Equal(t, 4, roots)
}
