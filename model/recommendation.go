package model

// Recommendation is an ephemeral, scored suggestion linking a student's
// interests to an event. It denormalizes the matched event's identifying
// fields because recommendations are never persisted.
//
// Reason is generated by an external model and must be treated as untrusted
// display text.
type Recommendation struct {
	Title      string   `json:"title"`
	Reason     string   `json:"reason"`
	Date       string   `json:"date"`
	Department string   `json:"department"`
	Club       string   `json:"club"`
	Tags       []string `json:"tags"`
	Score      int      `json:"score"`
}
