package questionnaire

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/creastat/dialog"
)

// RulesetProvider supplies the section rules for an age bucket. The item
// bank itself is externally maintained; this interface is its boundary.
type RulesetProvider interface {
	// RulesetForAge returns the ruleset for the given age in months, or
	// ErrNotFound when no ruleset covers that age.
	RulesetForAge(ctx context.Context, ageMonths int) (Ruleset, error)
}

// LoadRulesets parses a JSON-encoded list of rulesets.
func LoadRulesets(data []byte) ([]Ruleset, error) {
	var rulesets []Ruleset
	if err := json.Unmarshal(data, &rulesets); err != nil {
		return nil, fmt.Errorf("parse rulesets: %w", err)
	}
	for _, rs := range rulesets {
		if rs.AgeMonths <= 0 {
			return nil, fmt.Errorf("ruleset with missing age_months")
		}
		if len(rs.Sections) == 0 {
			return nil, fmt.Errorf("ruleset for age %d has no sections", rs.AgeMonths)
		}
	}
	return rulesets, nil
}

// LoadRulesetFile reads and parses a ruleset file.
func LoadRulesetFile(path string) ([]Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset file: %w", err)
	}
	return LoadRulesets(data)
}

// StaticProvider serves rulesets from memory, keyed by exact age in
// months. The item bank ships one ruleset per age bucket; mapping an
// arbitrary age onto a bucket is the caller's concern.
type StaticProvider struct {
	byAge map[int]Ruleset
}

// NewStaticProvider builds a provider over the given rulesets.
func NewStaticProvider(rulesets []Ruleset) *StaticProvider {
	byAge := make(map[int]Ruleset, len(rulesets))
	for _, rs := range rulesets {
		byAge[rs.AgeMonths] = rs
	}
	return &StaticProvider{byAge: byAge}
}

// RulesetForAge implements RulesetProvider.
func (p *StaticProvider) RulesetForAge(ctx context.Context, ageMonths int) (Ruleset, error) {
	rs, ok := p.byAge[ageMonths]
	if !ok {
		return Ruleset{}, fmt.Errorf("%w: no ruleset for age %d months", dialog.ErrNotFound, ageMonths)
	}
	return rs, nil
}
