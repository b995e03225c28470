package session

import "time"

// Turn is one human/assistant exchange, the atomic unit of conversation
// history. A turn is only ever stored whole; no half of a pair is persisted
// on its own.
type Turn struct {
	Human     string    `json:"human"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"at"`
}

// Store entries are namespaced by purpose under the same session identifier,
// each namespace with its own TTL clock.
const (
	turnsKeyPrefix  = "turns:"
	resultKeyPrefix = "asq:"
)

// TurnsKey returns the store key holding a session's conversation log.
func TurnsKey(sessionID string) string {
	return turnsKeyPrefix + sessionID
}

// ResultKey returns the store key holding a session's most recent
// questionnaire result.
func ResultKey(sessionID string) string {
	return resultKeyPrefix + sessionID
}
