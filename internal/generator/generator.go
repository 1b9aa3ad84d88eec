// Package generator drives language generators: external processes that read
// one Input document and answer with one Output document.
//
// An exchange is a single blocking round trip. There is no timeout and no
// retry; a generator that never exits hangs the caller.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/trace"
)

// Mode selects how the Input document reaches the generator.
type Mode uint8

const (
	// ModeStdin pipes the document into the process.
	ModeStdin Mode = iota
	// ModeArg appends the document as one extra command line argument.
	ModeArg
)

func (m Mode) String() string {
	switch m {
	case ModeStdin:
		return "stdin"
	case ModeArg:
		return "arg"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode accepts "stdin" (also "" and "pipe") and "arg".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stdin", "pipe":
		return ModeStdin, nil
	case "arg", "argument":
		return ModeArg, nil
	default:
		return 0, fmt.Errorf("unknown generator mode %q (want stdin or arg)", s)
	}
}

// Command describes the generator process.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env entries (KEY=VALUE) are appended to the inherited environment.
	Env  []string
	Mode Mode
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// State tracks an Invocation through its one exchange.
type State uint8

const (
	StateIdle State = iota
	StateSent
	StateAwaiting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateAwaiting:
		return "awaiting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// ErrReused is returned when Run is called on an Invocation that already ran.
var ErrReused = errors.New("generator: invocation already used")

// Invocation is one exchange with a generator. It is not reusable.
type Invocation struct {
	cmd Command
	// Stderr, when set, also receives the generator's stderr as it is
	// produced.
	Stderr io.Writer

	mu      sync.Mutex
	state   State
	claimed bool
}

func NewInvocation(cmd Command) *Invocation {
	return &Invocation{cmd: cmd}
}

func (inv *Invocation) Command() Command { return inv.cmd }

func (inv *Invocation) State() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

func (inv *Invocation) setState(s State) {
	inv.mu.Lock()
	inv.state = s
	inv.mu.Unlock()
}

// Run sends input to the generator, waits for it to exit and decodes its
// stdout. A non-zero exit yields *ProcessError, undecodable stdout yields
// *ProtocolError. The context is only consulted before the process starts.
func (inv *Invocation) Run(ctx context.Context, input schema.Input) (*schema.Output, error) {
	inv.mu.Lock()
	if inv.claimed {
		inv.mu.Unlock()
		return nil, ErrReused
	}
	inv.claimed = true
	inv.mu.Unlock()

	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "generate", trace.CurrentSpan(ctx).SpanID)
	span.WithExtra("command", inv.cmd.Name).WithExtra("mode", inv.cmd.Mode.String())

	out, err := inv.run(ctx, input)
	if err != nil {
		inv.setState(StateFailed)
		span.End("failed")
		return nil, err
	}
	inv.setState(StateDone)
	span.WithExtra("files", strconv.Itoa(len(out.Files)))
	span.End("")
	return out, nil
}

func (inv *Invocation) run(ctx context.Context, input schema.Input) (*schema.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	args := append([]string(nil), inv.cmd.Args...)
	if inv.cmd.Mode == ModeArg {
		args = append(args, string(payload))
	}
	// #nosec G204 -- the command comes from the project manifest
	cmd := exec.Command(inv.cmd.Name, args...)
	cmd.Dir = inv.cmd.Dir
	if len(inv.cmd.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if inv.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, inv.Stderr)
	} else {
		cmd.Stderr = &stderr
	}

	var stdin io.WriteCloser
	if inv.cmd.Mode == ModeStdin {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}
	if err := cmd.Start(); err != nil {
		return nil, &ProcessError{Command: inv.cmd.String(), ExitCode: -1, Err: err}
	}

	if stdin != nil {
		// A generator may exit without reading its input; the exit status
		// decides the outcome, so write errors are only kept as a fallback.
		_, werr := stdin.Write(payload)
		cerr := stdin.Close()
		if werr == nil {
			werr = cerr
		}
		err = werr
	}
	inv.setState(StateSent)

	inv.setState(StateAwaiting)
	if waitErr := cmd.Wait(); waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &ProcessError{
			Command:  inv.cmd.String(),
			ExitCode: code,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      waitErr,
		}
	}
	if err != nil && stdout.Len() == 0 {
		return nil, fmt.Errorf("send input to %s: %w", inv.cmd.Name, err)
	}

	var out schema.Output
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, &ProtocolError{Command: inv.cmd.String(), Stdout: stdout.String(), Err: err}
	}
	return &out, nil
}

// Run is a convenience for a single exchange.
func Run(ctx context.Context, cmd Command, input schema.Input) (*schema.Output, error) {
	return NewInvocation(cmd).Run(ctx, input)
}
