// Package chat orchestrates one question/answer cycle: retrieve context,
// fit it to the token budget, generate, sanitize and persist. It also
// owns the questionnaire submission flow sharing the same session store.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/creastat/dialog"
	"github.com/creastat/dialog/budget"
	"github.com/creastat/dialog/history"
	"github.com/creastat/dialog/llm"
	"github.com/creastat/dialog/questionnaire"
	"github.com/creastat/dialog/retrieval"
	"github.com/creastat/dialog/session"
)

// Options are the orchestrator's tunables. Zero values fall back to the
// defaults the service was first deployed with.
type Options struct {
	// HistoryDepth is how many recent turns the prompt window includes.
	HistoryDepth int

	// OutputReserve is the token allowance reserved for generated output.
	OutputReserve int

	// SafetyBuffer absorbs estimator error and joining overhead.
	SafetyBuffer int

	// RetrievalLimit caps how many passages are requested per question.
	RetrievalLimit int

	// RetrievalTimeout and GenerationTimeout bound the external calls.
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration

	// SessionTTL is the sliding expiry for conversation and questionnaire
	// state.
	SessionTTL time.Duration

	// Guidance is auxiliary system-block text added to every prompt.
	Guidance string

	// Disclaimer is appended to every reply exactly once.
	Disclaimer string
}

func (o *Options) applyDefaults() {
	if o.HistoryDepth <= 0 {
		o.HistoryDepth = 6
	}
	if o.OutputReserve <= 0 {
		o.OutputReserve = 768
	}
	if o.SafetyBuffer <= 0 {
		o.SafetyBuffer = 50
	}
	if o.RetrievalLimit <= 0 {
		o.RetrievalLimit = 3
	}
	if o.RetrievalTimeout <= 0 {
		o.RetrievalTimeout = 10 * time.Second
	}
	if o.GenerationTimeout <= 0 {
		o.GenerationTimeout = 60 * time.Second
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 24 * time.Hour
	}
	if o.Disclaimer == "" {
		o.Disclaimer = DefaultDisclaimer
	}
}

// Service composes the collaborators for the ask and questionnaire flows.
// All collaborators are injected once at construction; there is no ambient
// global state.
type Service struct {
	store     session.Store
	history   *history.Manager
	retriever retrieval.Retriever
	generator llm.Generator
	allocator *budget.Allocator
	rulesets  questionnaire.RulesetProvider
	logger    *zap.Logger
	opts      Options
	estimate  dialog.Estimator
	now       func() time.Time
}

// NewService creates the orchestrator. The generator's token counter backs
// all estimation; the allocator's truncation knobs keep their defaults
// unless reconfigured via the returned service's Allocator.
func NewService(
	store session.Store,
	retriever retrieval.Retriever,
	generator llm.Generator,
	rulesets questionnaire.RulesetProvider,
	logger *zap.Logger,
	opts Options,
) *Service {
	opts.applyDefaults()
	estimate := dialog.Estimator(generator.TokenCount)
	return &Service{
		store:     store,
		history:   history.NewManager(store),
		retriever: retriever,
		generator: generator,
		allocator: budget.NewAllocator(estimate),
		rulesets:  rulesets,
		logger:    logger,
		opts:      opts,
		estimate:  estimate,
		now:       time.Now,
	}
}

// Allocator exposes the budget allocator for knob tuning at wiring time.
func (s *Service) Allocator() *budget.Allocator {
	return s.allocator
}

// Ask runs one question through the full pipeline and returns the
// sanitized reply. A reply that was successfully generated is always
// returned, even when persisting the turn afterwards fails.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", dialog.ErrValidation)
	}

	log := s.logger.With(zap.String("session_id", sessionID))

	rctx, cancel := context.WithTimeout(ctx, s.opts.RetrievalTimeout)
	passages, err := s.retriever.Retrieve(rctx, question, s.opts.RetrievalLimit)
	cancel()
	if err != nil {
		// gRPC backends report an expired deadline as a status error that
		// errors.Is cannot see, so the bounded context is checked as well.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: retrieval", dialog.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("retrieve context: %w", err)
	}

	turns, err := s.history.RecentWindow(ctx, sessionID, s.opts.HistoryDepth)
	if err != nil {
		return "", err
	}

	windowCapacity := s.generator.ContextWindowSize()
	skeleton := s.skeletonCost()

	// When the fixed cost alone overflows the window, drop the oldest turns
	// first: retry with the window trimmed to the token budget left after
	// everything else, then with no history at all.
	window := history.LastN(turns, s.opts.HistoryDepth)
	historyBudget := windowCapacity - s.opts.OutputReserve - s.opts.SafetyBuffer -
		skeleton - s.estimate(s.opts.Guidance) - s.estimate(question)

	var (
		alloc       budget.Allocation
		historyText string
	)
	for _, w := range [][]session.Turn{
		window,
		history.TrimToTokenLimit(window, s.estimate, historyBudget),
		nil,
	} {
		historyText = history.Format(w)
		alloc = s.allocator.Allocate(
			windowCapacity, s.opts.OutputReserve, s.opts.SafetyBuffer, skeleton,
			historyText, s.opts.Guidance, question, passages,
		)
		if !alloc.FixedCostOverflow {
			break
		}
		log.Warn("fixed prompt cost exceeds window, trimming history",
			zap.Int("history_turns", len(w)))
	}
	if alloc.FixedCostOverflow {
		return "", fmt.Errorf("%w: fixed prompt cost exceeds window capacity", dialog.ErrPromptTooLarge)
	}

	contextText := joinPassages(alloc.Passages)
	prompt := assemblePrompt(s.opts.Guidance, historyText, contextText, question)
	if err := s.allocator.Verify(prompt, windowCapacity, s.opts.OutputReserve, s.opts.SafetyBuffer); err != nil {
		return "", err
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	raw, err := s.generator.Generate(gctx, prompt)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: generation", dialog.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("generate reply: %w", err)
	}

	reply := Sanitize(raw, s.opts.Disclaimer)

	if err := s.history.Append(ctx, sessionID, session.Turn{
		Human:     question,
		Assistant: reply,
		At:        s.now(),
	}); err != nil {
		// The user-visible answer is never withheld for a logging concern.
		log.Warn("failed to persist turn", zap.Error(err))
	}

	log.Info("question answered",
		zap.Int("passages", len(alloc.Passages)),
		zap.Int("context_tokens", alloc.TokensUsed),
		zap.Bool("truncated", alloc.Truncated))

	return reply, nil
}

// SubmitQuestionnaire scores a submission, persists the result under the
// session, and clears prior dialogue context. The result must be durably
// stored; failure to clear history afterwards is logged but never fails
// the submission.
func (s *Service) SubmitQuestionnaire(ctx context.Context, sessionID string, ageMonths int, answers map[string][]questionnaire.Answer) (questionnaire.Result, error) {
	if ageMonths <= 0 {
		return questionnaire.Result{}, fmt.Errorf("%w: age_months must be positive", dialog.ErrValidation)
	}
	if len(answers) == 0 {
		return questionnaire.Result{}, fmt.Errorf("%w: no answers provided", dialog.ErrValidation)
	}

	ruleset, err := s.rulesets.RulesetForAge(ctx, ageMonths)
	if err != nil {
		return questionnaire.Result{}, err
	}

	result, err := questionnaire.Evaluate(ruleset, answers)
	if err != nil {
		return questionnaire.Result{}, err
	}
	result.SubmittedAt = s.now()

	blob, err := json.Marshal(result)
	if err != nil {
		return questionnaire.Result{}, fmt.Errorf("marshal result: %w", err)
	}
	if err := s.store.Set(ctx, session.ResultKey(sessionID), blob, s.opts.SessionTTL); err != nil {
		return questionnaire.Result{}, err
	}

	if err := s.history.Clear(ctx, sessionID); err != nil {
		s.logger.Warn("failed to clear history after questionnaire submission",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	return result, nil
}

// QuestionnaireResult returns the session's most recent stored result.
func (s *Service) QuestionnaireResult(ctx context.Context, sessionID string) (questionnaire.Result, error) {
	blob, ok, err := s.store.Get(ctx, session.ResultKey(sessionID))
	if err != nil {
		return questionnaire.Result{}, err
	}
	if !ok {
		return questionnaire.Result{}, fmt.Errorf("%w: no questionnaire result", dialog.ErrNotFound)
	}

	var result questionnaire.Result
	if err := json.Unmarshal(blob, &result); err != nil {
		return questionnaire.Result{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

// History returns the session's stored conversation log in order.
func (s *Service) History(ctx context.Context, sessionID string) ([]session.Turn, error) {
	return s.history.All(ctx, sessionID)
}

// ClearHistory removes the session's conversation log and, when requested,
// its questionnaire result as well.
func (s *Service) ClearHistory(ctx context.Context, sessionID string, alsoQuestionnaire bool) error {
	if err := s.history.Clear(ctx, sessionID); err != nil {
		return err
	}
	if alsoQuestionnaire {
		if _, err := s.store.Delete(ctx, session.ResultKey(sessionID)); err != nil {
			return err
		}
	}
	return nil
}

func joinPassages(passages []retrieval.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n")
}
