package prompts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/promptlab/internal/models"
	"github.com/xaenox/promptlab/internal/storage"
	"go.uber.org/zap"
)

// Repository owns the authoritative prompt set. Every mutation rewrites the
// full set to storage before it returns.
type Repository struct {
	mu      sync.RWMutex
	store   storage.Storage
	logger  *zap.Logger
	now     func() time.Time
	prompts []models.Prompt
}

type Option func(*Repository)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func NewRepository(store storage.Storage, logger *zap.Logger, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads the stored prompts. On first run the initial set is seeded and
// written back; a stored empty list is kept as is.
func (r *Repository) Load(ctx context.Context) error {
	var loaded []models.Prompt
	err := storage.GetJSON(ctx, r.store, storage.KeyPrompts, &loaded)
	if errors.Is(err, storage.ErrNotFound) {
		loaded = models.InitialPrompts(r.now())
		if err := storage.SetJSON(ctx, r.store, storage.KeyPrompts, loaded); err != nil {
			return fmt.Errorf("error seeding prompts: %w", err)
		}
		r.logger.Info("Seeded initial prompts", zap.Int("count", len(loaded)))
	} else if err != nil {
		return fmt.Errorf("error loading prompts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = loaded
	return nil
}

// All returns copies of every prompt in repository order.
func (r *Repository) All() []models.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Prompt, len(r.prompts))
	for i, p := range r.prompts {
		out[i] = p.Clone()
	}
	return out
}

func (r *Repository) Get(id string) (models.Prompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.prompts[i].Clone(), true
	}
	return models.Prompt{}, false
}

func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prompts)
}

// Create prepends an empty prompt filed under categoryID (nil = uncategorized).
func (r *Repository) Create(ctx context.Context, categoryID *string) (models.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	p := models.Prompt{
		ID:        uuid.New().String(),
		Title:     models.NewPromptTitle,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if categoryID != nil {
		p.CategoryID = models.Ptr(*categoryID)
	}

	next := make([]models.Prompt, 0, len(r.prompts)+1)
	next = append(next, p)
	next = append(next, r.prompts...)
	if err := r.commit(ctx, next); err != nil {
		return models.Prompt{}, err
	}

	r.logger.Info("Created prompt", zap.String("prompt_id", p.ID))
	return p.Clone(), nil
}

// Update replaces title and content. An unknown id is a no-op reported by ok=false.
func (r *Repository) Update(ctx context.Context, id, title, content string) (p models.Prompt, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		r.logger.Debug("Update of unknown prompt ignored", zap.String("prompt_id", id))
		return models.Prompt{}, false, nil
	}

	next := r.copyAll()
	updated := next[i]
	updated.Title = title
	updated.Content = content
	updated.UpdatedAt = r.later(updated.UpdatedAt)
	next[i] = updated
	if err := r.commit(ctx, next); err != nil {
		return models.Prompt{}, false, err
	}
	return updated.Clone(), true, nil
}

// Delete removes id and reports whether it existed. Callers clear any
// selection pointing at it.
func (r *Repository) Delete(ctx context.Context, id string) (existed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false, nil
	}

	next := make([]models.Prompt, 0, len(r.prompts)-1)
	next = append(next, r.prompts[:i]...)
	next = append(next, r.prompts[i+1:]...)
	if err := r.commit(ctx, next); err != nil {
		return false, err
	}

	r.logger.Info("Deleted prompt", zap.String("prompt_id", id), zap.Int("remaining", len(next)))
	return true, nil
}

// ToggleFavorite flips IsFavorite. UpdatedAt is left alone.
func (r *Repository) ToggleFavorite(ctx context.Context, id string) (models.Prompt, bool, error) {
	return r.mutate(ctx, id, func(p *models.Prompt) {
		p.IsFavorite = !p.IsFavorite
	})
}

// MergeMetadata shallow-merges patch into the prompt's metadata. UpdatedAt is
// left alone and an unknown id is a no-op.
func (r *Repository) MergeMetadata(ctx context.Context, id string, patch models.PromptMetadata) (models.Prompt, bool, error) {
	return r.mutate(ctx, id, func(p *models.Prompt) {
		p.Metadata = p.Metadata.Merge(patch)
	})
}

func (r *Repository) mutate(ctx context.Context, id string, fn func(p *models.Prompt)) (models.Prompt, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Prompt{}, false, nil
	}

	next := r.copyAll()
	fn(&next[i])
	if err := r.commit(ctx, next); err != nil {
		return models.Prompt{}, false, err
	}
	return next[i].Clone(), true, nil
}

// commit writes next to storage and swaps it in. The in-memory set is only
// replaced once the write succeeded. Callers hold r.mu.
func (r *Repository) commit(ctx context.Context, next []models.Prompt) error {
	if err := storage.SetJSON(ctx, r.store, storage.KeyPrompts, next); err != nil {
		r.logger.Error("Failed to persist prompts", zap.Error(err), zap.Int("count", len(next)))
		return fmt.Errorf("error saving prompts: %w", err)
	}
	r.prompts = next
	return nil
}

func (r *Repository) copyAll() []models.Prompt {
	next := make([]models.Prompt, len(r.prompts))
	for i, p := range r.prompts {
		next[i] = p.Clone()
	}
	return next
}

func (r *Repository) indexOf(id string) int {
	for i := range r.prompts {
		if r.prompts[i].ID == id {
			return i
		}
	}
	return -1
}

// later returns now, nudged past prev when the clock has not advanced.
func (r *Repository) later(prev time.Time) time.Time {
	now := r.now()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}
