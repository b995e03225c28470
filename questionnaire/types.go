// Package questionnaire scores a fixed-structure developmental
// questionnaire: conditional answer rewriting, weighted aggregation, and
// two-threshold classification per section.
package questionnaire

import "time"

// Status is the classification of one scored section.
type Status string

const (
	// StatusDelay marks a score below the section cutoff.
	StatusDelay Status = "clear delay"
	// StatusMonitor marks a score between cutoff and the monitoring
	// threshold, boundaries inclusive.
	StatusMonitor Status = "at-risk / monitor"
	// StatusTypical marks a score above the monitoring threshold.
	StatusTypical Status = "typical"
	// StatusNotApplicable marks a section with no normative data for the
	// requested age (both thresholds zero).
	StatusNotApplicable Status = "not applicable"
)

// Answer is one answered item: a question identifier and the chosen label.
type Answer struct {
	QuestionID int    `json:"id"`
	Label      string `json:"answer"`
}

// Rewrite is a section's conditional scoring rule: when the trigger
// question was answered with one of the trigger values, the target
// question's answer is force-set before scoring.
type Rewrite struct {
	TriggerQuestion int      `json:"trigger_question"`
	TriggerValues   []string `json:"trigger_values"`
	TargetQuestion  int      `json:"target_question"`
	SetValue        string   `json:"set_value"`
}

// Rule holds one section's scoring parameters.
type Rule struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Weights     map[string]float64 `json:"weights"`
	Cutoff      float64            `json:"cutoff"`
	Monitor     float64            `json:"monitor"`
	Rewrite     *Rewrite           `json:"rewrite,omitempty"`
}

// Ruleset is the full set of section rules for one age bucket.
type Ruleset struct {
	AgeMonths int    `json:"age_months"`
	Sections  []Rule `json:"sections"`
}

// SectionResult is one section's scored outcome, including the
// post-rewrite answer set.
type SectionResult struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Score       float64  `json:"total_score"`
	Status      Status   `json:"status"`
	Cutoff      float64  `json:"cutoff"`
	Monitor     float64  `json:"monitor"`
	Answers     []Answer `json:"updated_answers"`
}

// Result is a full scored submission. It is created whole on submission and
// overwritten whole by later submissions, never partially updated.
type Result struct {
	AgeMonths   int             `json:"age_months"`
	Sections    []SectionResult `json:"sections"`
	Concerns    []string        `json:"concerns,omitempty"`
	Summary     string          `json:"summary"`
	SubmittedAt time.Time       `json:"submitted_at"`
}
