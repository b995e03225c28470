package dialog

// Estimator returns the number of generation-backend tokens a text would
// consume. The generation collaborator supplies the authoritative counter;
// EstimateTokens is the fallback when none is available.
type Estimator func(text string) int

// EstimateTokens estimates the token count for a text using a Unicode-aware
// heuristic: ASCII runs at ~4 characters per token, non-ASCII (CJK, Cyrillic,
// Arabic, emoji) at ~1 character per token, which is conservative for the
// Vietnamese-heavy corpora this service fronts.
func EstimateTokens(text string) int {
	weight := 0
	for _, r := range text {
		if r <= 127 {
			weight++
		} else {
			weight += 4
		}
	}
	return (weight + 3) / 4
}
