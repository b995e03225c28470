package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/creastat/dialog"
	"github.com/creastat/dialog/chat"
	"github.com/creastat/dialog/llm"
	"github.com/creastat/dialog/questionnaire"
	"github.com/creastat/dialog/retrieval"
	"github.com/creastat/dialog/session"
)

var testWeights = map[string]float64{"yes": 10, "sometimes": 5, "no": 0}

func testRulesets() questionnaire.RulesetProvider {
	return questionnaire.NewStaticProvider([]questionnaire.Ruleset{{
		AgeMonths: 18,
		Sections: []questionnaire.Rule{
			{Name: "communication", DisplayName: "Communication", Weights: testWeights, Cutoff: 20, Monitor: 35},
		},
	}})
}

func newMemoryStore(t *testing.T) session.Store {
	t.Helper()
	store, err := session.NewStore(session.StoreTypeMemory)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newService(t *testing.T, store session.Store, generator llm.Generator, opts chat.Options) *chat.Service {
	t.Helper()
	ret := &retrieval.Static{Passages: []retrieval.Passage{
		{Text: "Toddlers typically say their first words around twelve months.", Score: 0.9},
		{Text: "Pointing at objects is an early communication milestone.", Score: 0.8},
	}}
	return chat.NewService(store, ret, generator, testRulesets(), zap.NewNop(), opts)
}

func TestAsk_AnswersAndPersistsTurn(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	svc := newService(t, store, &llm.Mock{Reply: "around twelve months<|im_end|>trailing"}, chat.Options{})

	reply, err := svc.Ask(ctx, "s1", "when do toddlers talk?")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(reply, "Around twelve months"))
	assert.Contains(t, reply, chat.DefaultDisclaimer)
	assert.NotContains(t, reply, "trailing")

	turns, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "when do toddlers talk?", turns[0].Human)
	assert.Equal(t, reply, turns[0].Assistant)
}

func TestAsk_EmptyQuestionFailsValidation(t *testing.T) {
	svc := newService(t, newMemoryStore(t), &llm.Mock{}, chat.Options{})

	_, err := svc.Ask(context.Background(), "s1", "   ")
	assert.ErrorIs(t, err, dialog.ErrValidation)
}

func TestAsk_RetrievalTimeoutFromBackendStatusError(t *testing.T) {
	store := newMemoryStore(t)
	svc := chat.NewService(store, deadlineStatusRetriever{}, &llm.Mock{}, testRulesets(), zap.NewNop(), chat.Options{
		RetrievalTimeout: 10 * time.Millisecond,
	})

	_, err := svc.Ask(context.Background(), "s1", "a question")
	assert.ErrorIs(t, err, dialog.ErrUpstreamTimeout)
}

func TestAsk_GenerationTimeoutFromBackendStatusError(t *testing.T) {
	svc := newService(t, newMemoryStore(t), &deadlineStatusGenerator{}, chat.Options{
		GenerationTimeout: 10 * time.Millisecond,
	})

	_, err := svc.Ask(context.Background(), "s1", "a question")
	assert.ErrorIs(t, err, dialog.ErrUpstreamTimeout)
}

func TestAsk_GenerationTimeoutAbortsWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	svc := newService(t, store, &llm.Mock{Block: true}, chat.Options{
		GenerationTimeout: 20 * time.Millisecond,
	})

	_, err := svc.Ask(ctx, "s1", "a question")
	assert.ErrorIs(t, err, dialog.ErrUpstreamTimeout)

	turns, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns, "no partial turn may be persisted after a timeout")
}

func TestAsk_PersistenceFailureStillReturnsReply(t *testing.T) {
	store := &failingAppendStore{Store: newMemoryStore(t)}
	svc := newService(t, store, &llm.Mock{Reply: "a fine answer"}, chat.Options{})

	reply, err := svc.Ask(context.Background(), "s1", "a question")
	require.NoError(t, err)
	assert.Contains(t, reply, "A fine answer")
}

func TestAsk_OversizedQuestionFailsPromptTooLarge(t *testing.T) {
	svc := newService(t, newMemoryStore(t), &llm.Mock{Window: 500}, chat.Options{
		OutputReserve: 100,
		SafetyBuffer:  10,
	})

	// ~1000 tokens of question against a 500-token window: no amount of
	// history trimming can make this fit.
	question := strings.Repeat("why ", 1000)
	_, err := svc.Ask(context.Background(), "s1", question)
	assert.ErrorIs(t, err, dialog.ErrPromptTooLarge)
}

func TestAsk_OverflowDropsOldestTurnsBeforeGivingUp(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	gen := &recordingGenerator{Mock: llm.Mock{Window: 1000, Reply: "fits now"}}
	svc := newService(t, store, gen, chat.Options{
		OutputReserve: 100,
		SafetyBuffer:  50,
	})

	// Four turns of ~200 tokens each overflow a 1000-token window outright.
	// The retry must keep the newest turns and drop only the oldest.
	turns := []session.Turn{
		{Human: "earliest " + strings.Repeat("e", 391), Assistant: strings.Repeat("a", 400)},
		{Human: strings.Repeat("m", 400), Assistant: strings.Repeat("a", 400)},
		{Human: strings.Repeat("n", 400), Assistant: strings.Repeat("a", 400)},
		{Human: "latest " + strings.Repeat("l", 393), Assistant: strings.Repeat("a", 400)},
	}
	for _, turn := range turns {
		require.NoError(t, store.AppendTurn(ctx, "s1", turn))
	}

	reply, err := svc.Ask(ctx, "s1", "short question")
	require.NoError(t, err)
	assert.Contains(t, reply, "Fits now")

	assert.Contains(t, gen.prompt, "latest")
	assert.NotContains(t, gen.prompt, "earliest")
}

func TestSubmitQuestionnaire_ScoresPersistsAndClearsHistory(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(t)
	svc := newService(t, store, &llm.Mock{}, chat.Options{})

	_, err := svc.Ask(ctx, "s1", "an earlier question")
	require.NoError(t, err)

	answers := map[string][]questionnaire.Answer{
		"communication": {
			{QuestionID: 1, Label: "yes"},
			{QuestionID: 2, Label: "yes"},
			{QuestionID: 3, Label: "yes"},
		},
	}
	result, err := svc.SubmitQuestionnaire(ctx, "s1", 18, answers)
	require.NoError(t, err)

	require.Len(t, result.Sections, 1)
	assert.Equal(t, 30.0, result.Sections[0].Score)
	assert.Equal(t, questionnaire.StatusMonitor, result.Sections[0].Status)
	assert.False(t, result.SubmittedAt.IsZero())

	// A fresh submission invalidates prior dialogue context.
	turns, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	stored, err := svc.QuestionnaireResult(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, result.Sections[0].Score, stored.Sections[0].Score)
}

func TestSubmitQuestionnaire_Validation(t *testing.T) {
	svc := newService(t, newMemoryStore(t), &llm.Mock{}, chat.Options{})
	ctx := context.Background()

	_, err := svc.SubmitQuestionnaire(ctx, "s1", 0, map[string][]questionnaire.Answer{
		"communication": {{QuestionID: 1, Label: "yes"}},
	})
	assert.ErrorIs(t, err, dialog.ErrValidation)

	_, err = svc.SubmitQuestionnaire(ctx, "s1", 18, nil)
	assert.ErrorIs(t, err, dialog.ErrValidation)

	_, err = svc.SubmitQuestionnaire(ctx, "s1", 99, map[string][]questionnaire.Answer{
		"communication": {{QuestionID: 1, Label: "yes"}},
	})
	assert.ErrorIs(t, err, dialog.ErrNotFound)
}

func TestSubmitQuestionnaire_LaterSubmissionOverwrites(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMemoryStore(t), &llm.Mock{}, chat.Options{})

	first := map[string][]questionnaire.Answer{
		"communication": {{QuestionID: 1, Label: "yes"}},
	}
	_, err := svc.SubmitQuestionnaire(ctx, "s1", 18, first)
	require.NoError(t, err)

	second := map[string][]questionnaire.Answer{
		"communication": {{QuestionID: 1, Label: "no"}},
	}
	_, err = svc.SubmitQuestionnaire(ctx, "s1", 18, second)
	require.NoError(t, err)

	stored, err := svc.QuestionnaireResult(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.Sections[0].Score)
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, newMemoryStore(t), &llm.Mock{}, chat.Options{})

	_, err := svc.Ask(ctx, "s1", "a question")
	require.NoError(t, err)
	_, err = svc.SubmitQuestionnaire(ctx, "s1", 18, map[string][]questionnaire.Answer{
		"communication": {{QuestionID: 1, Label: "yes"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.ClearHistory(ctx, "s1", false))
	_, err = svc.QuestionnaireResult(ctx, "s1")
	require.NoError(t, err, "questionnaire result survives a history-only clear")

	require.NoError(t, svc.ClearHistory(ctx, "s1", true))
	_, err = svc.QuestionnaireResult(ctx, "s1")
	assert.ErrorIs(t, err, dialog.ErrNotFound)
}

func TestQuestionnaireResult_AbsentIsNotFound(t *testing.T) {
	svc := newService(t, newMemoryStore(t), &llm.Mock{}, chat.Options{})

	_, err := svc.QuestionnaireResult(context.Background(), "nobody")
	assert.ErrorIs(t, err, dialog.ErrNotFound)
}

// failingAppendStore delegates everything except AppendTurn.
type failingAppendStore struct {
	session.Store
}

func (s *failingAppendStore) AppendTurn(ctx context.Context, sessionID string, turn session.Turn) error {
	return fmt.Errorf("%w: append rejected", dialog.ErrStoreUnavailable)
}

// deadlineStatusRetriever mimics a gRPC backend: on an expired deadline it
// returns a flat status error instead of context.DeadlineExceeded.
type deadlineStatusRetriever struct{}

func (deadlineStatusRetriever) Retrieve(ctx context.Context, query string, limit int) ([]retrieval.Passage, error) {
	<-ctx.Done()
	return nil, errors.New("rpc error: code = DeadlineExceeded desc = context deadline exceeded")
}

// deadlineStatusGenerator does the same for the generation backend.
type deadlineStatusGenerator struct {
	llm.Mock
}

func (g *deadlineStatusGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", errors.New("rpc error: code = DeadlineExceeded desc = context deadline exceeded")
}

// recordingGenerator captures the assembled prompt handed to the backend.
type recordingGenerator struct {
	llm.Mock
	prompt string
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.Mock.Generate(ctx, prompt)
}
