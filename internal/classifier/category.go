// Package classifier provides email categorization: the Category value set
// shared by the whole pipeline and a deterministic keyword-based classifier
// used as the guaranteed-terminating fallback.
package classifier

import "strings"

// Category is the closed set of email classifications. No other value is
// ever persisted or returned to a caller.
type Category string

const (
	// Productive marks email that requires action or a response
	Productive Category = "Productive"
	// Unproductive marks cordial email that requires no action
	Unproductive Category = "Unproductive"
)

// Method identifies which stage of the pipeline produced a result
const (
	MethodRemote    = "remote"
	MethodRuleBased = "rule-based"
	MethodModel     = "model"
)

// Result is the outcome of one classification call. It is transient and
// owned by the request that produced it; a later call may re-derive a
// different result.
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Method     string   `json:"method"`
}

// Valid reports whether c is one of the two recognized categories.
func (c Category) Valid() bool {
	return c == Productive || c == Unproductive
}

// ParseCategory matches a free-form label against the closed category set.
// Matching trims whitespace and ignores case; anything else is rejected.
func ParseCategory(label string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "productive":
		return Productive, true
	case "unproductive":
		return Unproductive, true
	default:
		return "", false
	}
}
