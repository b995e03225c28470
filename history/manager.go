// Package history manages a session's conversation log: atomic pair
// appends, a bounded recent window, transcript formatting for prompt
// assembly, and clearing.
package history

import (
	"context"
	"strings"

	"github.com/creastat/dialog"
	"github.com/creastat/dialog/session"
)

// Placeholder is the transcript rendered for an empty log. It still costs
// tokens and the allocator counts it like any other text.
const Placeholder = "no prior conversation"

// Manager provides conversation-log operations on top of a session store.
type Manager struct {
	store session.Store
}

// NewManager creates a Manager backed by the given store.
func NewManager(store session.Store) *Manager {
	return &Manager{store: store}
}

// Append persists a complete human/assistant pair. The store's append
// primitive is a single atomic operation, so one half is never stored
// without the other.
func (m *Manager) Append(ctx context.Context, sessionID string, turn session.Turn) error {
	return m.store.AppendTurn(ctx, sessionID, turn)
}

// RecentWindow returns at most the last maxTurns turns in chronological
// order.
func (m *Manager) RecentWindow(ctx context.Context, sessionID string, maxTurns int) ([]session.Turn, error) {
	turns, err := m.store.ListTurns(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return LastN(turns, maxTurns), nil
}

// All returns the session's full stored log in chronological order.
func (m *Manager) All(ctx context.Context, sessionID string) ([]session.Turn, error) {
	return m.store.ListTurns(ctx, sessionID)
}

// Clear removes all turns for a session.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	_, err := m.store.ClearTurns(ctx, sessionID)
	return err
}

// Format renders turns as a labeled transcript of alternating
// "user:"/"assistant:" lines. An empty window renders the fixed
// placeholder.
func Format(turns []session.Turn) string {
	if len(turns) == 0 {
		return Placeholder
	}
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("user: ")
		b.WriteString(turn.Human)
		b.WriteString("\nassistant: ")
		b.WriteString(turn.Assistant)
	}
	return b.String()
}

// LastN returns at most the last n turns, chronological order preserved.
func LastN(turns []session.Turn, n int) []session.Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}

// TrimToTokenLimit drops the oldest turns until the window costs at most
// tokenLimit.
func TrimToTokenLimit(turns []session.Turn, estimate dialog.Estimator, tokenLimit int) []session.Turn {
	total := 0
	costs := make([]int, len(turns))
	for i, turn := range turns {
		costs[i] = estimate(turn.Human) + estimate(turn.Assistant)
		total += costs[i]
	}

	for total > tokenLimit && len(turns) > 0 {
		total -= costs[0]
		costs = costs[1:]
		turns = turns[1:]
	}
	return turns
}
