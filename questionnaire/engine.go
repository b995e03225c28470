package questionnaire

import (
	"fmt"
	"strings"

	"github.com/creastat/dialog"
)

// ApplyRewrite applies a section's conditional rewrite rule to a copy of
// the answer set. It is a no-op when the section has no rule, the trigger
// question was not answered, or the target question is absent. Applying it
// twice yields the same result as once.
func ApplyRewrite(rule Rule, answers []Answer) []Answer {
	out := make([]Answer, len(answers))
	copy(out, answers)

	if rule.Rewrite == nil {
		return out
	}
	rw := rule.Rewrite

	triggered := false
	for _, a := range out {
		if a.QuestionID != rw.TriggerQuestion {
			continue
		}
		for _, v := range rw.TriggerValues {
			if a.Label == v {
				triggered = true
				break
			}
		}
		break
	}
	if !triggered {
		return out
	}

	for i := range out {
		if out[i].QuestionID == rw.TargetQuestion {
			out[i].Label = rw.SetValue
			break
		}
	}
	return out
}

// Score sums the weight of each answer's label. Unrecognized labels
// contribute zero, never an error.
func Score(weights map[string]float64, answers []Answer) float64 {
	total := 0.0
	for _, a := range answers {
		total += weights[a.Label]
	}
	return total
}

// Classify partitions a score into exactly one status. A score equal to
// the cutoff is at-risk, never clear delay; equal to the monitoring
// threshold it is at-risk, never typical. Sections with both thresholds at
// zero have no normative data and classify as not applicable.
func Classify(score, cutoff, monitor float64) Status {
	if cutoff == 0 && monitor == 0 {
		return StatusNotApplicable
	}
	switch {
	case score < cutoff:
		return StatusDelay
	case score <= monitor:
		return StatusMonitor
	default:
		return StatusTypical
	}
}

// Evaluate scores a full submission against a ruleset: per section it
// rewrites, scores and classifies, then aggregates a summary clause per
// section. Sections classified as clear delay or at-risk are surfaced as
// concerns for downstream advice generation.
//
// Answer keys that name no section in the ruleset fail validation; sections
// the submission leaves unanswered are skipped. A submission answering no
// known section at all is invalid.
func Evaluate(ruleset Ruleset, answers map[string][]Answer) (Result, error) {
	known := make(map[string]bool, len(ruleset.Sections))
	for _, rule := range ruleset.Sections {
		known[rule.Name] = true
	}
	for name := range answers {
		if !known[name] {
			return Result{}, fmt.Errorf("%w: unknown section %q", dialog.ErrValidation, name)
		}
	}

	result := Result{AgeMonths: ruleset.AgeMonths}
	var clauses []string

	for _, rule := range ruleset.Sections {
		sectionAnswers, ok := answers[rule.Name]
		if !ok || len(sectionAnswers) == 0 {
			continue
		}

		rewritten := ApplyRewrite(rule, sectionAnswers)
		score := Score(rule.Weights, rewritten)
		status := Classify(score, rule.Cutoff, rule.Monitor)

		result.Sections = append(result.Sections, SectionResult{
			Name:        rule.Name,
			DisplayName: rule.DisplayName,
			Score:       score,
			Status:      status,
			Cutoff:      rule.Cutoff,
			Monitor:     rule.Monitor,
			Answers:     rewritten,
		})

		clauses = append(clauses, fmt.Sprintf("%s: %s (score %g, cutoff %g, monitor %g)",
			rule.DisplayName, status, score, rule.Cutoff, rule.Monitor))

		if status == StatusDelay || status == StatusMonitor {
			result.Concerns = append(result.Concerns, rule.DisplayName)
		}
	}

	if len(result.Sections) == 0 {
		return Result{}, fmt.Errorf("%w: no answers for any section", dialog.ErrValidation)
	}

	result.Summary = strings.Join(clauses, "; ")
	return result, nil
}
