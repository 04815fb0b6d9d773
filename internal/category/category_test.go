package category

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/promptlab/internal/models"
	"github.com/xaenox/promptlab/internal/storage"
	"go.uber.org/zap"
)

func cat(id, parent string) models.Category {
	c := models.Category{ID: id, Name: "name-" + id}
	if parent != "" {
		c.ParentID = models.Ptr(parent)
	}
	return c
}

// flatten records every node with its parent id ("" for roots).
func flatten(nodes []*Node, parent string, out map[string]string, count *int) {
	for _, n := range nodes {
		*count++
		out[n.ID] = parent
		flatten(n.Children, n.ID, out, count)
	}
}

func TestBuildForest_MirrorsParentRelations(t *testing.T) {
	cats := models.InitialCategories()

	forest := BuildForest(cats)

	parents := make(map[string]string)
	count := 0
	flatten(forest, "", parents, &count)

	assert.Equal(t, len(cats), count, "every node appears exactly once")
	for _, c := range cats {
		want := ""
		if c.ParentID != nil {
			want = *c.ParentID
		}
		assert.Equal(t, want, parents[c.ID], "parent of %s", c.ID)
	}
	require.Len(t, forest, 4)
	assert.Equal(t, "cat_1", forest[0].ID)
}

func TestBuildForest_SiblingOrderFollowsInput(t *testing.T) {
	forest := BuildForest([]models.Category{cat("r", ""), cat("b", "r"), cat("a", "r"), cat("c", "r")})

	require.Len(t, forest, 1)
	var ids []string
	for _, ch := range forest[0].Children {
		ids = append(ids, ch.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestBuildForest_ChildBeforeParentInInput(t *testing.T) {
	forest := BuildForest([]models.Category{cat("child", "root"), cat("root", "")})

	require.Len(t, forest, 1)
	assert.Equal(t, "root", forest[0].ID)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "child", forest[0].Children[0].ID)
}

func TestBuildForest_DanglingParentIsRoot(t *testing.T) {
	forest := BuildForest([]models.Category{cat("a", "ghost"), cat("b", "")})

	require.Len(t, forest, 2)
	assert.Equal(t, "a", forest[0].ID)
	assert.Equal(t, "b", forest[1].ID)
}

func TestBuildForest_Empty(t *testing.T) {
	assert.Empty(t, BuildForest(nil))
}

func TestBuildForest_CyclicInputKeepsEveryNodeOnce(t *testing.T) {
	tests := []struct {
		name      string
		cats      []models.Category
		wantRoots []string
	}{
		{"self loop", []models.Category{cat("a", "a")}, []string{"a"}},
		{"two cycle", []models.Category{cat("a", "b"), cat("b", "a")}, []string{"a"}},
		{"tail into cycle", []models.Category{cat("x", "a"), cat("b", "a"), cat("a", "b")}, []string{"b"}},
		{"cycle beside tree", []models.Category{cat("r", ""), cat("k", "r"), cat("p", "q"), cat("q", "p")}, []string{"r", "p"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest := BuildForest(tt.cats)

			var roots []string
			for _, r := range forest {
				roots = append(roots, r.ID)
			}
			parents := make(map[string]string)
			count := 0
			flatten(forest, "", parents, &count)

			assert.Equal(t, tt.wantRoots, roots)
			assert.Equal(t, len(tt.cats), count)
			assert.Len(t, parents, len(tt.cats))
		})
	}
}

func newIndex(t *testing.T) (*Index, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	idx := NewIndex(store, zap.NewNop())
	require.NoError(t, idx.Load(context.Background()))
	return idx, store
}

func TestIndex_LoadSeedsOnFirstRun(t *testing.T) {
	idx, store := newIndex(t)

	assert.Len(t, idx.All(), len(models.InitialCategories()))

	var stored []models.Category
	require.NoError(t, storage.GetJSON(context.Background(), store, storage.KeyCategories, &stored))
	assert.Equal(t, models.InitialCategories(), stored)
}

func TestIndex_LoadKeepsStoredSet(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, storage.SetJSON(ctx, store, storage.KeyCategories, []models.Category{cat("only", "")}))

	idx := NewIndex(store, zap.NewNop())
	require.NoError(t, idx.Load(ctx))

	all := idx.All()
	require.Len(t, all, 1)
	assert.Equal(t, "only", all[0].ID)
}

func TestIndex_WalkIsDepthFirstInOrder(t *testing.T) {
	idx, _ := newIndex(t)

	var visited []string
	var depths []int
	idx.Walk(func(c models.Category, depth int) bool {
		visited = append(visited, c.ID)
		depths = append(depths, depth)
		return true
	})

	assert.Equal(t, []string{"cat_1", "cat_1_1", "cat_1_2", "cat_2", "cat_2_1", "cat_2_2", "cat_3", "cat_4"}, visited)
	assert.Equal(t, []int{0, 1, 1, 0, 1, 1, 0, 0}, depths)
}

func TestIndex_WalkStops(t *testing.T) {
	idx, _ := newIndex(t)

	n := 0
	idx.Walk(func(models.Category, int) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}

func TestIndex_AddPersists(t *testing.T) {
	ctx := context.Background()
	idx, store := newIndex(t)

	c, err := idx.Add(ctx, "  Django ", models.Ptr("cat_2_2"))
	require.NoError(t, err)
	assert.Equal(t, "Django", c.Name)
	assert.NotEmpty(t, c.ID)

	var stored []models.Category
	require.NoError(t, storage.GetJSON(ctx, store, storage.KeyCategories, &stored))
	assert.Len(t, stored, 9)
	assert.Equal(t, []string{c.ID}, idx.Descendants("cat_2_2"))
	assert.ElementsMatch(t, []string{"cat_2_1", "cat_2_2", c.ID}, idx.Descendants("cat_2"))
}

func TestIndex_AddRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	idx, _ := newIndex(t)

	_, err := idx.Add(ctx, " ", nil)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = idx.Add(ctx, "Orphan", models.Ptr("nope"))
	assert.ErrorIs(t, err, ErrUnknownParent)
}

func TestIndex_MoveRejectsCycles(t *testing.T) {
	ctx := context.Background()
	idx, _ := newIndex(t)

	assert.ErrorIs(t, idx.Move(ctx, "cat_1", models.Ptr("cat_1")), ErrCycle)
	assert.ErrorIs(t, idx.Move(ctx, "cat_1", models.Ptr("cat_1_2")), ErrCycle)
	assert.ErrorIs(t, idx.Move(ctx, "missing", nil), ErrNotFound)
	assert.ErrorIs(t, idx.Move(ctx, "cat_1", models.Ptr("missing")), ErrUnknownParent)

	c, ok := idx.Get("cat_1")
	require.True(t, ok)
	assert.Nil(t, c.ParentID, "rejected moves leave the tree unchanged")
}

func TestIndex_MoveReparents(t *testing.T) {
	ctx := context.Background()
	idx, _ := newIndex(t)

	require.NoError(t, idx.Move(ctx, "cat_2", models.Ptr("cat_3")))
	assert.ElementsMatch(t, []string{"cat_2", "cat_2_1", "cat_2_2"}, idx.Descendants("cat_3"))

	require.NoError(t, idx.Move(ctx, "cat_2", nil))
	assert.Empty(t, idx.Descendants("cat_3"))
	assert.Len(t, idx.Forest(), 4)
}
