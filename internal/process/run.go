// Package process runs external collaborator commands with a bounded timeout.
// Arguments are passed as a vector, never through a shell.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a command outlives its timeout
var ErrTimeout = errors.New("command timed out")

// Output is what a finished command printed
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Combined returns stdout followed by stderr, trimmed
func (o Output) Combined() string {
	return strings.TrimSpace(string(o.Stdout) + string(o.Stderr))
}

// Command describes an external program and its fixed leading arguments
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Run executes c with extra appended to its arguments. A non-zero exit is
// returned as an error together with whatever the command printed.
func Run(ctx context.Context, timeout time.Duration, c Command, extra ...string) (Output, error) {
	if c.Path == "" {
		return Output{}, errors.New("no command configured")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := make([]string, 0, len(c.Args)+len(extra))
	args = append(args, c.Args...)
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	// Children of a killed command must not keep the pipes open past the deadline
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if timeout > 0 {
			return out, fmt.Errorf("%s: %w after %s", c.Path, ErrTimeout, timeout)
		}
		return out, fmt.Errorf("%s: %w: %w", c.Path, ErrTimeout, ctx.Err())
	}
	if err != nil {
		return out, fmt.Errorf("%s: %w", c.Path, err)
	}
	return out, nil
}
