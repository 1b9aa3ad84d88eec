package trace

import (
	"fmt"
	"strings"
)

// Level is how much of a run gets traced.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // ring buffer only, dumped when a run fails
	LevelPhase        // run and phases
	LevelDetail       // plus declarations and generator targets
	LevelDebug        // plus single type conversions
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected off|error|phase|detail|debug)", s)
}

// ShouldEmit reports whether scope is recorded at l. LevelError records the
// same scopes as LevelPhase; it differs only in where events are kept.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelError, LevelPhase:
		return scope <= ScopePhase
	case LevelDetail:
		return scope <= ScopeDecl
	case LevelDebug:
		return true
	default:
		return false
	}
}
