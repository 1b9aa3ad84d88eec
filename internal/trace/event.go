package trace

import "time"

type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope orders events from coarse to fine.
type Scope uint8

const (
	ScopeRun   Scope = iota + 1 // one CLI invocation
	ScopePhase                  // load, convert, merge, one generator target
	ScopeDecl                   // one declaration
	ScopeType                   // one type expression
)

func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopePhase:
		return "phase"
	case ScopeDecl:
		return "decl"
	case ScopeType:
		return "type"
	default:
		return "unknown"
	}
}

type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 at the root
	GID      uint64
	Name     string
	Detail   string
	Extra    map[string]string
}
