package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xaenox/promptlab/internal/models"
	"github.com/xaenox/promptlab/internal/storage"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("category not found")
	ErrUnknownParent = errors.New("parent category does not exist")
	ErrCycle         = errors.New("category cannot be moved under itself or a descendant")
	ErrEmptyName     = errors.New("category name is required")
)

// Index owns the category set. Categories are kept in an arena in input order
// with an id -> child ids map rebuilt on every change.
type Index struct {
	mu       sync.RWMutex
	store    storage.Storage
	logger   *zap.Logger
	arena    []models.Category
	pos      map[string]int
	children map[string][]string
	roots    []string
}

func NewIndex(store storage.Storage, logger *zap.Logger) *Index {
	idx := &Index{store: store, logger: logger}
	idx.rebuild(nil)
	return idx
}

// Load reads the stored categories, seeding and persisting the initial set on
// first run.
func (x *Index) Load(ctx context.Context) error {
	var cats []models.Category
	err := storage.GetJSON(ctx, x.store, storage.KeyCategories, &cats)
	if errors.Is(err, storage.ErrNotFound) {
		cats = models.InitialCategories()
		if err := storage.SetJSON(ctx, x.store, storage.KeyCategories, cats); err != nil {
			return fmt.Errorf("error seeding categories: %w", err)
		}
		x.logger.Info("Seeded initial categories", zap.Int("count", len(cats)))
	} else if err != nil {
		return fmt.Errorf("error loading categories: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.rebuild(cats)
	return nil
}

func (x *Index) rebuild(cats []models.Category) {
	x.arena = cats
	x.pos = make(map[string]int, len(cats))
	for i, c := range cats {
		x.pos[c.ID] = i
	}
	x.children = make(map[string][]string, len(cats))
	x.roots = x.roots[:0]

	forest := BuildForest(cats)
	stack := make([]*Node, 0, len(cats))
	for _, r := range forest {
		x.roots = append(x.roots, r.ID)
		stack = append(stack, r)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ids := make([]string, 0, len(n.Children))
		for _, ch := range n.Children {
			ids = append(ids, ch.ID)
			stack = append(stack, ch)
		}
		x.children[n.ID] = ids
	}
}

// All returns the categories in stored order.
func (x *Index) All() []models.Category {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]models.Category, len(x.arena))
	copy(out, x.arena)
	return out
}

func (x *Index) Get(id string) (models.Category, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	i, ok := x.pos[id]
	if !ok {
		return models.Category{}, false
	}
	return x.arena[i], true
}

// Forest returns a freshly built tree of the current categories.
func (x *Index) Forest() []*Node {
	return BuildForest(x.All())
}

// Walk visits every category depth-first, roots and siblings in stored order.
// Returning false from fn stops the walk.
func (x *Index) Walk(fn func(c models.Category, depth int) bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	type frame struct {
		id    string
		depth int
	}
	stack := make([]frame, 0, len(x.arena))
	for i := len(x.roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{x.roots[i], 0})
	}
	visited := make(map[string]bool, len(x.arena))
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f.id] {
			continue
		}
		visited[f.id] = true
		if !fn(x.arena[x.pos[f.id]], f.depth) {
			return
		}
		kids := x.children[f.id]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{kids[i], f.depth + 1})
		}
	}
}

// Descendants returns the ids below id, breadth-first.
func (x *Index) Descendants(id string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.descendants(id)
}

func (x *Index) descendants(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	queue := append([]string(nil), x.children[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		out = append(out, next)
		queue = append(queue, x.children[next]...)
	}
	return out
}

// Add creates a category under parentID (nil for a root) and persists the set.
func (x *Index) Add(ctx context.Context, name string, parentID *string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, ErrEmptyName
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if parentID != nil {
		if _, ok := x.pos[*parentID]; !ok {
			return models.Category{}, ErrUnknownParent
		}
		parentID = models.Ptr(*parentID)
	}
	c := models.Category{ID: uuid.New().String(), Name: name, ParentID: parentID}
	next := append(append([]models.Category(nil), x.arena...), c)
	if err := x.persist(ctx, next); err != nil {
		return models.Category{}, err
	}
	x.logger.Info("Created category", zap.String("category_id", c.ID), zap.String("name", name))
	return c, nil
}

// Move re-parents id under parentID (nil for root). It rejects any move that
// would make a category its own ancestor.
func (x *Index) Move(ctx context.Context, id string, parentID *string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	i, ok := x.pos[id]
	if !ok {
		return ErrNotFound
	}
	if parentID != nil {
		if _, ok := x.pos[*parentID]; !ok {
			return ErrUnknownParent
		}
		if *parentID == id {
			return ErrCycle
		}
		for _, d := range x.descendants(id) {
			if d == *parentID {
				return ErrCycle
			}
		}
		parentID = models.Ptr(*parentID)
	}

	next := append([]models.Category(nil), x.arena...)
	next[i].ParentID = parentID
	return x.persist(ctx, next)
}

// persist writes next and swaps it in. Callers hold x.mu.
func (x *Index) persist(ctx context.Context, next []models.Category) error {
	if err := storage.SetJSON(ctx, x.store, storage.KeyCategories, next); err != nil {
		x.logger.Error("Failed to persist categories", zap.Error(err))
		return fmt.Errorf("error saving categories: %w", err)
	}
	x.rebuild(next)
	return nil
}
