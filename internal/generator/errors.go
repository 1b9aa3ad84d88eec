package generator

import (
	"fmt"
	"strings"
)

// ProcessError reports a generator that could not be started or exited
// unsuccessfully. ExitCode is -1 when no exit status is available.
type ProcessError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("generator %q failed: %v", e.Command, e.Err)
	}
	msg := fmt.Sprintf("generator %q exited with status %d", e.Command, e.ExitCode)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// ProtocolError reports stdout that is not a valid Output document.
type ProtocolError struct {
	Command string
	Stdout  string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("generator %q broke the output protocol: %v", e.Command, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// UnsafePathError reports an output file that would land outside the root.
type UnsafePathError struct {
	Path string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("refusing to write %q outside the output directory", e.Path)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	return s
}
