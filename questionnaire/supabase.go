package questionnaire

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/creastat/dialog"
)

// SupabaseConfig holds connection configuration for the item bank.
type SupabaseConfig struct {
	URL      string
	APIKey   string
	Table    string        // defaults to "asq_sections"
	CacheTTL time.Duration // defaults to 5 minutes
}

// SupabaseProvider implements RulesetProvider against a Supabase table
// holding one row per section per age bucket. Rulesets change rarely, so
// lookups are cached with a short TTL.
type SupabaseProvider struct {
	client   *supabase.Client
	table    string
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[int]cachedRuleset
}

type cachedRuleset struct {
	ruleset   Ruleset
	expiresAt time.Time
}

// sectionRow mirrors the item bank schema. Position orders sections within
// an age bucket.
type sectionRow struct {
	AgeMonths   int                `json:"age_months"`
	Position    int                `json:"position"`
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Weights     map[string]float64 `json:"weights"`
	Cutoff      float64            `json:"cutoff"`
	Monitor     float64            `json:"monitor"`
	Rewrite     *Rewrite           `json:"rewrite"`
}

// NewSupabaseProvider creates a provider over the Supabase item bank.
func NewSupabaseProvider(cfg SupabaseConfig) (*SupabaseProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	if cfg.Table == "" {
		cfg.Table = "asq_sections"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseProvider{
		client:   client,
		table:    cfg.Table,
		cacheTTL: cfg.CacheTTL,
		cache:    make(map[int]cachedRuleset),
	}, nil
}

// RulesetForAge implements RulesetProvider.
func (p *SupabaseProvider) RulesetForAge(ctx context.Context, ageMonths int) (Ruleset, error) {
	if cached, ok := p.fromCache(ageMonths); ok {
		return cached, nil
	}

	var rows []sectionRow
	_, err := p.client.From(p.table).
		Select("*", "", false).
		Eq("age_months", strconv.Itoa(ageMonths)).
		ExecuteTo(&rows)
	if err != nil {
		return Ruleset{}, fmt.Errorf("failed to get ruleset for age %d: %w", ageMonths, err)
	}

	if len(rows) == 0 {
		return Ruleset{}, fmt.Errorf("%w: no ruleset for age %d months", dialog.ErrNotFound, ageMonths)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })

	ruleset := Ruleset{AgeMonths: ageMonths}
	for _, row := range rows {
		ruleset.Sections = append(ruleset.Sections, Rule{
			Name:        row.Name,
			DisplayName: row.DisplayName,
			Weights:     row.Weights,
			Cutoff:      row.Cutoff,
			Monitor:     row.Monitor,
			Rewrite:     row.Rewrite,
		})
	}

	p.addToCache(ageMonths, ruleset)
	return ruleset, nil
}

func (p *SupabaseProvider) fromCache(ageMonths int) (Ruleset, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.cache[ageMonths]
	if !ok || time.Now().After(entry.expiresAt) {
		return Ruleset{}, false
	}
	return entry.ruleset, true
}

func (p *SupabaseProvider) addToCache(ageMonths int, ruleset Ruleset) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache[ageMonths] = cachedRuleset{
		ruleset:   ruleset,
		expiresAt: time.Now().Add(p.cacheTTL),
	}
}

// Compile-time checks that both providers satisfy the interface.
var (
	_ RulesetProvider = (*StaticProvider)(nil)
	_ RulesetProvider = (*SupabaseProvider)(nil)
)
