package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xaenox/promptlab/internal/category"
	"github.com/xaenox/promptlab/internal/models"
	"github.com/xaenox/promptlab/internal/orchestrator"
	"github.com/xaenox/promptlab/internal/prompts"
	"github.com/xaenox/promptlab/internal/search"
	"go.uber.org/zap"
)

var (
	ErrNoSession      = errors.New("no active session, please log in")
	ErrNoActivePrompt = errors.New("no prompt selected")
	ErrPromptNotFound = errors.New("prompt not found")
	ErrNoResult       = errors.New("no AI result to apply")
)

// Sessions is the part of the session gate the workspace depends on.
type Sessions interface {
	Current(ctx context.Context) (models.User, bool, error)
	Logout(ctx context.Context) error
}

// Editor is the working copy of the selected prompt.
type Editor struct {
	Title   string
	Content string
	Editing bool
}

// Result is the AI result panel.
type Result struct {
	Action models.AIActionType
	Text   string
}

// Workspace is one user's session over the prompt library: navigation,
// selection, the editor buffer and the AI result panel.
type Workspace struct {
	mu       sync.Mutex
	sessions Sessions
	repo     *prompts.Repository
	index    *category.Index
	orch     *orchestrator.Orchestrator
	logger   *zap.Logger

	user       *models.User
	nav        search.Criteria
	selectedID string
	editor     Editor
	result     *Result
}

func New(sessions Sessions, repo *prompts.Repository, index *category.Index, orch *orchestrator.Orchestrator, logger *zap.Logger) *Workspace {
	return &Workspace{
		sessions: sessions,
		repo:     repo,
		index:    index,
		orch:     orch,
		logger:   logger,
	}
}

// Open admits the current session, loads prompts and categories and selects
// the first prompt.
func (w *Workspace) Open(ctx context.Context) (models.User, error) {
	u, ok, err := w.sessions.Current(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("error reading session: %w", err)
	}
	if !ok {
		return models.User{}, ErrNoSession
	}
	if err := w.repo.Load(ctx); err != nil {
		return models.User{}, err
	}
	if err := w.index.Load(ctx); err != nil {
		return models.User{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.user = &u
	w.nav = search.Criteria{}
	w.clearSelection()
	if all := w.repo.All(); len(all) > 0 {
		w.selectLocked(all[0])
	}
	w.logger.Info("Workspace opened", zap.String("user_id", u.ID), zap.Int("prompts", len(w.repo.All())))
	return u, nil
}

// Close logs the user out and forgets all navigation state.
func (w *Workspace) Close(ctx context.Context) error {
	w.mu.Lock()
	w.user = nil
	w.nav = search.Criteria{}
	w.clearSelection()
	w.mu.Unlock()
	return w.sessions.Logout(ctx)
}

func (w *Workspace) User() (models.User, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.user == nil {
		return models.User{}, false
	}
	return *w.user, true
}

func (w *Workspace) gate() error {
	if w.user == nil {
		return ErrNoSession
	}
	return nil
}

// SelectCategory shows one category (nil for all prompts). It leaves
// favorites mode and clears the search.
func (w *Workspace) SelectCategory(id *string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.gate(); err != nil {
		return err
	}
	if id != nil {
		id = models.Ptr(*id)
	}
	w.nav = search.Criteria{CategoryID: id}
	return nil
}

func (w *Workspace) SelectFavorites() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.gate(); err != nil {
		return err
	}
	w.nav.Favorites = true
	w.nav.CategoryID = nil
	return nil
}

func (w *Workspace) SetSearch(query string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.gate(); err != nil {
		return err
	}
	w.nav.Query = query
	return nil
}

func (w *Workspace) Criteria() search.Criteria {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nav
}

// Visible returns the prompt list for the current navigation state.
func (w *Workspace) Visible() ([]models.Prompt, error) {
	w.mu.Lock()
	nav := w.nav
	err := w.gate()
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return search.Filter(w.repo.All(), nav), nil
}

func (w *Workspace) Select(id string) (models.Prompt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.gate(); err != nil {
		return models.Prompt{}, err
	}
	p, ok := w.repo.Get(id)
	if !ok {
		return models.Prompt{}, ErrPromptNotFound
	}
	w.selectLocked(p)
	return p, nil
}

// Active returns the selected prompt as stored.
func (w *Workspace) Active() (models.Prompt, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeLocked()
}

func (w *Workspace) activeLocked() (models.Prompt, bool) {
	if w.user == nil || w.selectedID == "" {
		return models.Prompt{}, false
	}
	return w.repo.Get(w.selectedID)
}

func (w *Workspace) selectLocked(p models.Prompt) {
	w.selectedID = p.ID
	w.editor = Editor{Title: p.Title, Content: p.Content}
	w.result = nil
}

func (w *Workspace) clearSelection() {
	w.selectedID = ""
	w.editor = Editor{}
	w.result = nil
}

func (w *Workspace) Editor() Editor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editor
}

// Edit replaces the editor buffer without saving it.
func (w *Workspace) Edit(title, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.activeLocked(); !ok {
		return ErrNoActivePrompt
	}
	w.editor = Editor{Title: title, Content: content, Editing: true}
	return nil
}

// Save writes the editor buffer to the selected prompt.
func (w *Workspace) Save(ctx context.Context) (models.Prompt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.activeLocked(); !ok {
		return models.Prompt{}, ErrNoActivePrompt
	}
	p, ok, err := w.repo.Update(ctx, w.selectedID, w.editor.Title, w.editor.Content)
	if err != nil {
		return models.Prompt{}, err
	}
	if !ok {
		return models.Prompt{}, ErrPromptNotFound
	}
	w.editor.Editing = false
	return p, nil
}

// CreatePrompt files a new prompt under the selected category, selects it
// and opens it for editing.
func (w *Workspace) CreatePrompt(ctx context.Context) (models.Prompt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.gate(); err != nil {
		return models.Prompt{}, err
	}
	p, err := w.repo.Create(ctx, w.nav.CategoryID)
	if err != nil {
		return models.Prompt{}, err
	}
	w.selectLocked(p)
	w.editor.Editing = true
	return p, nil
}

// DeletePrompt removes id. existed is false for an unknown id, which is a
// no-op. cleared reports that it was the active selection.
func (w *Workspace) DeletePrompt(ctx context.Context, id string) (existed, cleared bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.gate(); err != nil {
		return false, false, err
	}
	existed, err = w.repo.Delete(ctx, id)
	if err != nil {
		return false, false, err
	}
	if existed && w.selectedID == id {
		w.clearSelection()
		return true, true, nil
	}
	return existed, false, nil
}

func (w *Workspace) ToggleFavorite(ctx context.Context, id string) (models.Prompt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.gate(); err != nil {
		return models.Prompt{}, err
	}
	p, ok, err := w.repo.ToggleFavorite(ctx, id)
	if err != nil {
		return models.Prompt{}, err
	}
	if !ok {
		return models.Prompt{}, ErrPromptNotFound
	}
	return p, nil
}

// RunAction sends the selected prompt through action. The editor content is
// used when present, the stored content otherwise. The workspace lock is not
// held while the provider is working.
func (w *Workspace) RunAction(ctx context.Context, action models.AIActionType) (orchestrator.Outcome, error) {
	w.mu.Lock()
	p, ok := w.activeLocked()
	if !ok {
		w.mu.Unlock()
		return orchestrator.Outcome{}, ErrNoActivePrompt
	}
	content := w.editor.Content
	if content == "" {
		content = p.Content
	}
	w.result = nil
	w.mu.Unlock()

	outcome, err := w.orch.Invoke(ctx, orchestrator.Request{PromptID: p.ID, Action: action, Content: content})
	if err != nil {
		return outcome, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if outcome.Draft != nil {
		w.editor.Title = outcome.Draft.Title
		w.editor.Content = outcome.Draft.Content
		return outcome, nil
	}
	w.result = &Result{Action: outcome.Action, Text: outcome.ResultText}
	return outcome, nil
}

func (w *Workspace) Result() (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return Result{}, false
	}
	return *w.result, true
}

// ApplyResult copies the AI result text into the editor content.
func (w *Workspace) ApplyResult() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return ErrNoResult
	}
	w.editor.Content = w.result.Text
	return nil
}

// Stats returns the chart points for the selected prompt. Score is scaled
// to 100 so the bars share an axis.
func (w *Workspace) Stats() []models.ChartDataPoint {
	p, ok := w.Active()
	if !ok {
		return nil
	}
	md := p.Metadata
	var tokens, runtime, score float64
	if md.Tokens != nil {
		tokens = float64(*md.Tokens)
	}
	if md.RuntimeMs != nil {
		runtime = float64(*md.RuntimeMs)
	}
	if md.Score != nil {
		score = float64(*md.Score) * 10
	}
	return []models.ChartDataPoint{
		{Name: "Tokens", Value: tokens},
		{Name: "Runtime", Value: runtime},
		{Name: "Score", Value: score},
	}
}

func (w *Workspace) Categories() ([]*category.Node, error) {
	w.mu.Lock()
	err := w.gate()
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return w.index.Forest(), nil
}

// WalkCategories visits the category tree depth-first.
func (w *Workspace) WalkCategories(fn func(c models.Category, depth int) bool) error {
	w.mu.Lock()
	err := w.gate()
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.index.Walk(fn)
	return nil
}

func (w *Workspace) AddCategory(ctx context.Context, name string, parentID *string) (models.Category, error) {
	w.mu.Lock()
	err := w.gate()
	w.mu.Unlock()
	if err != nil {
		return models.Category{}, err
	}
	return w.index.Add(ctx, name, parentID)
}

func (w *Workspace) MoveCategory(ctx context.Context, id string, parentID *string) error {
	w.mu.Lock()
	err := w.gate()
	w.mu.Unlock()
	if err != nil {
		return err
	}
	return w.index.Move(ctx, id, parentID)
}
