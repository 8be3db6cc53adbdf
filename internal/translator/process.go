package translator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radiograb/internal/process"
	"github.com/radiograb/pkg/logger"
	"github.com/radiograb/pkg/ratelimit"
)

// Process runs an external parser with the schedule text as its last
// argument and reads one JSON result from its stdout.
type Process struct {
	command process.Command
	timeout time.Duration
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// NewProcess creates a process-backed translator
func NewProcess(command process.Command, timeout time.Duration, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Process {
	return &Process{
		command: command,
		timeout: timeout,
		limiter: limiter,
		log:     log.WithComponent("translator"),
	}
}

// Translate implements Translator. The timeout covers the rate limit wait
// as well as the run.
func (p *Process) Translate(ctx context.Context, scheduleText string) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, ratelimit.LimiterTranslator); err != nil {
			if errors.Is(err, ratelimit.ErrDeadline) {
				p.log.Warn().Err(err).Dur("timeout", p.timeout).Msg("Schedule parser queue longer than timeout")
				return nil, fmt.Errorf("%w after %s waiting for rate limit", ErrTimeout, p.timeout)
			}
			return nil, fmt.Errorf("rate limit error: %w", err)
		}
	}

	out, runErr := process.Run(ctx, 0, p.command, scheduleText)
	if errors.Is(runErr, process.ErrTimeout) {
		p.log.Warn().Dur("timeout", p.timeout).Msg("Schedule parser timed out")
		return nil, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
	}

	// Nothing on stdout and a failed run: the parser never got to look at the input
	if runErr != nil && len(bytes.TrimSpace(out.Stdout)) == 0 {
		p.log.Warn().
			Err(runErr).
			Str("output", out.Combined()).
			Msg("Schedule parser could not run")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, runErr)
	}

	// A parser that rejects its input may still print a result with an error field
	result, err := Parse(out.Stdout)
	if err != nil {
		p.log.Debug().
			Err(err).
			AnErr("run_error", runErr).
			Str("output", out.Combined()).
			Msg("Schedule parser returned no usable result")
		return nil, err
	}
	if runErr != nil {
		p.log.Warn().Err(runErr).Msg("Schedule parser exited with error but printed a result")
	}
	return result, nil
}

var _ Translator = (*Process)(nil)
