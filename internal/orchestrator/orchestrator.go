package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/promptlab/internal/models"
	"github.com/xaenox/promptlab/internal/provider"
	"go.uber.org/zap"
)

var (
	ErrAlreadyInProgress = errors.New("an AI action is already in progress")
	ErrActionFailed      = errors.New("AI action failed")
	ErrUnknownAction     = errors.New("unknown AI action")
)

// FailureNotice is the user-visible message for any failed action.
const FailureNotice = "AI Operation failed."

type State int

const (
	Idle State = iota
	Loading
)

func (s State) String() string {
	if s == Loading {
		return "loading"
	}
	return "idle"
}

type Status int

const (
	Succeeded Status = iota + 1
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// MetadataWriter is the slice of the prompt repository the orchestrator needs.
type MetadataWriter interface {
	MergeMetadata(ctx context.Context, id string, patch models.PromptMetadata) (models.Prompt, bool, error)
}

type Request struct {
	PromptID string
	Action   models.AIActionType
	// Content is what EVALUATE, ENHANCE and CODE_PLAN send to the provider.
	Content string
}

// Draft replaces the editor's working title and content.
type Draft struct {
	Title   string
	Content string
}

type Outcome struct {
	Action models.AIActionType
	Status Status
	// ResultText is shown in the result panel. Empty for FUN_PROMPT.
	ResultText string
	// Draft is set only by FUN_PROMPT.
	Draft *Draft
	// Patch is the metadata merged into the target prompt.
	Patch *models.PromptMetadata
	// Applied is false when the target prompt no longer existed at merge time.
	Applied bool
	Notice  string
}

// Orchestrator runs one AI action at a time against the provider and writes
// derived metrics back into the target prompt.
type Orchestrator struct {
	provider    provider.Provider
	repo        MetadataWriter
	logger      *zap.Logger
	now         func() time.Time
	costPer1K   float64
	mu          sync.Mutex
	state       State
	lastOutcome *Outcome
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithCostPer1K overrides the USD input rate used for estimatedCost.
func WithCostPer1K(rate float64) Option {
	return func(o *Orchestrator) { o.costPer1K = rate }
}

func New(p provider.Provider, repo MetadataWriter, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:  p,
		repo:      repo,
		logger:    logger,
		now:       time.Now,
		costPer1K: models.CostPer1KInput,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Last returns the outcome of the most recent finished invocation.
func (o *Orchestrator) Last() (Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastOutcome == nil {
		return Outcome{}, false
	}
	return *o.lastOutcome, true
}

// EstimateCost prices tokens at rate USD per thousand.
func EstimateCost(tokens int, rate float64) float64 {
	return float64(tokens) / 1000 * rate
}

// Invoke dispatches req to the provider. A second call while one is loading
// is rejected with ErrAlreadyInProgress.
func (o *Orchestrator) Invoke(ctx context.Context, req Request) (Outcome, error) {
	if !req.Action.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if err := o.begin(); err != nil {
		return Outcome{}, err
	}

	logger := o.logger.With(zap.String("action", req.Action.String()), zap.String("prompt_id", req.PromptID))
	logger.Debug("AI action started")

	outcome, err := o.run(ctx, req)
	if err != nil {
		logger.Error("AI action failed", zap.Error(err))
		outcome = Outcome{Action: req.Action, Status: Failed, Notice: FailureNotice}
		err = fmt.Errorf("%w: %w", ErrActionFailed, err)
	} else {
		logger.Info("AI action succeeded", zap.Bool("applied", outcome.Applied))
	}

	o.finish(outcome)
	return outcome, err
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Loading {
		return ErrAlreadyInProgress
	}
	o.state = Loading
	return nil
}

func (o *Orchestrator) finish(outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Idle
	o.lastOutcome = &outcome
}

func (o *Orchestrator) run(ctx context.Context, req Request) (Outcome, error) {
	start := o.now()

	var (
		text   string
		tokens int
		model  string
		score  *int
		notes  *string
	)
	switch req.Action {
	case models.ActionFunPrompt:
		fun, err := o.provider.FunPrompt(ctx)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			Action: req.Action,
			Status: Succeeded,
			Draft:  &Draft{Title: models.FunPromptTitle, Content: fun},
		}, nil

	case models.ActionEvaluate:
		ev, err := o.provider.Evaluate(ctx, req.Content)
		if err != nil {
			return Outcome{}, err
		}
		text = fmt.Sprintf("Score: %d/10\n\nFeedback: %s", ev.Score, ev.Feedback)
		tokens, model = ev.Tokens, ev.Model
		// Scores outside 1..10, zero included, count as no score.
		if ev.Score >= 1 && ev.Score <= 10 {
			score, notes = models.Ptr(ev.Score), models.Ptr(ev.Feedback)
		}

	case models.ActionEnhance, models.ActionCodePlan:
		call := o.provider.Enhance
		if req.Action == models.ActionCodePlan {
			call = o.provider.CodePlan
		}
		gen, err := call(ctx, req.Content)
		if err != nil {
			return Outcome{}, err
		}
		text, tokens, model = gen.Text, gen.Tokens, gen.Model
	}

	elapsed := o.now().Sub(start)
	if tokens < 0 {
		tokens = 0
	}
	patch := models.PromptMetadata{
		Tokens:        models.Ptr(tokens),
		EstimatedCost: models.Ptr(EstimateCost(tokens, o.costPer1K)),
		RuntimeMs:     models.Ptr(max(elapsed.Round(time.Millisecond).Milliseconds(), 0)),
		Score:         score,
		Feedback:      notes,
	}
	if model != "" {
		patch.ModelUsed = models.Ptr(model)
	}

	_, applied, err := o.repo.MergeMetadata(ctx, req.PromptID, patch)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:     req.Action,
		Status:     Succeeded,
		ResultText: text,
		Patch:      &patch,
		Applied:    applied,
	}, nil
}
