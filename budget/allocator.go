// Package budget computes the per-request context token budget and selects
// retrieved passages to fit it. Allocation is pure computation: inputs vary
// per call, so nothing here is cached across requests.
package budget

import (
	"fmt"

	"github.com/creastat/dialog"
	"github.com/creastat/dialog/retrieval"
)

// Defaults for the tunable knobs. The truncation floor and shrink step are
// configuration, not contract.
const (
	DefaultMinAvailable      = 100
	DefaultMinPassageTokens  = 25
	DefaultShrinkStepPercent = 10
)

// Allocator selects and truncates candidate passages against a fixed token
// window.
type Allocator struct {
	// Estimate measures token cost. Required.
	Estimate dialog.Estimator

	// MinAvailable floors the computed passage budget so a heavy fixed cost
	// never drives it negative.
	MinAvailable int

	// MinPassageTokens is the minimum-usefulness floor: a boundary passage
	// is truncated into the remaining budget only when at least this many
	// tokens remain.
	MinPassageTokens int

	// ShrinkStepPercent is the fraction of trailing characters removed per
	// refinement iteration when fitting a truncated prefix.
	ShrinkStepPercent int
}

// NewAllocator returns an Allocator with default knobs.
func NewAllocator(estimate dialog.Estimator) *Allocator {
	return &Allocator{
		Estimate:          estimate,
		MinAvailable:      DefaultMinAvailable,
		MinPassageTokens:  DefaultMinPassageTokens,
		ShrinkStepPercent: DefaultShrinkStepPercent,
	}
}

// Allocation is the result of one budget pass.
type Allocation struct {
	// Passages is the selection, in the order received. At most the last
	// entry is a truncated prefix.
	Passages []retrieval.Passage

	// TokensUsed is the total estimated cost of the selection.
	TokensUsed int

	// Available is the passage budget the selection was fitted to.
	Available int

	// FixedCostOverflow reports that the fixed prompt cost alone consumed
	// the window (raw budget went non-positive), signalling the caller that
	// history trimming is warranted before retrying.
	FixedCostOverflow bool

	// Truncated reports that the boundary passage was cut to a prefix.
	Truncated bool
}

// Allocate computes the remaining token allowance for retrieved passages and
// fills it greedily in the order the candidates were received. The passage
// that crosses the budget boundary is truncated to a fitting prefix when the
// remaining budget is at least MinPassageTokens; consumption stops after the
// first truncation.
func (a *Allocator) Allocate(windowCapacity, outputReserve, safetyBuffer, skeletonCost int, historyText, guidanceText, questionText string, candidates []retrieval.Passage) Allocation {
	fixedCost := skeletonCost + a.Estimate(historyText) + a.Estimate(guidanceText) + a.Estimate(questionText)

	raw := windowCapacity - outputReserve - safetyBuffer - fixedCost
	available := raw
	if available < a.MinAvailable {
		available = a.MinAvailable
	}

	alloc := Allocation{
		Available:         available,
		FixedCostOverflow: raw <= 0,
	}

	used := 0
	for _, p := range candidates {
		cost := a.Estimate(p.Text)
		if used+cost <= available {
			alloc.Passages = append(alloc.Passages, p)
			used += cost
			continue
		}

		remaining := available - used
		if remaining >= a.MinPassageTokens {
			prefix, prefixCost := a.shrinkToFit(p.Text, cost, remaining)
			if prefixCost > 0 {
				p.Text = prefix
				alloc.Passages = append(alloc.Passages, p)
				used += prefixCost
				alloc.Truncated = true
			}
		}
		break
	}

	alloc.TokensUsed = used
	return alloc
}

// shrinkToFit cuts text to a prefix whose cost is at most remaining tokens.
// The first cut scales the character length proportionally to the remaining
// budget; refinement then drops ShrinkStepPercent of trailing characters per
// iteration until the measured cost fits.
func (a *Allocator) shrinkToFit(text string, cost, remaining int) (string, int) {
	runes := []rune(text)
	cut := len(runes) * remaining / cost
	if cut > len(runes) {
		cut = len(runes)
	}
	prefix := runes[:cut]

	step := a.ShrinkStepPercent
	if step <= 0 {
		step = DefaultShrinkStepPercent
	}

	prefixCost := a.Estimate(string(prefix))
	for prefixCost > remaining && len(prefix) > 0 {
		drop := len(prefix) * step / 100
		if drop == 0 {
			drop = 1
		}
		prefix = prefix[:len(prefix)-drop]
		prefixCost = a.Estimate(string(prefix))
	}
	if len(prefix) == 0 {
		return "", 0
	}
	return string(prefix), prefixCost
}

// Verify re-checks a fully assembled prompt against the window. A prompt
// that still exceeds the limit fails with ErrPromptTooLarge rather than
// being truncated after the fact: cutting an assembled prompt risks
// corrupting its template markers.
func (a *Allocator) Verify(prompt string, windowCapacity, outputReserve, safetyBuffer int) error {
	limit := windowCapacity - outputReserve - safetyBuffer
	if got := a.Estimate(prompt); got > limit {
		return fmt.Errorf("%w: %d tokens over a limit of %d", dialog.ErrPromptTooLarge, got, limit)
	}
	return nil
}
