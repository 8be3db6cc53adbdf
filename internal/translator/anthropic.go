package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radiograb/internal/ai"
	"github.com/radiograb/pkg/logger"
	"github.com/radiograb/pkg/ratelimit"
)

// Completer is the part of ai.Client the translator needs
type Completer interface {
	CompleteWithJSON(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Anthropic asks Claude for the cron expression
type Anthropic struct {
	client  Completer
	timeout time.Duration
	log     *logger.Logger
}

// NewAnthropic creates a Claude-backed translator
func NewAnthropic(client Completer, timeout time.Duration, log *logger.Logger) *Anthropic {
	return &Anthropic{
		client:  client,
		timeout: timeout,
		log:     log.WithComponent("translator"),
	}
}

// Translate implements Translator
func (a *Anthropic) Translate(ctx context.Context, scheduleText string) (*Result, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	response, err := a.client.CompleteWithJSON(ctx,
		ai.ScheduleTranslationSystemPrompt,
		fmt.Sprintf(ai.ScheduleTranslationUserPrompt, scheduleText),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ratelimit.ErrDeadline) ||
			errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, a.timeout)
		}
		return nil, err
	}

	result, err := Parse([]byte(response))
	if err != nil {
		a.log.Error().
			Err(err).
			Str("response", response).
			Msg("Failed to parse schedule translation")
		return nil, err
	}
	return result, nil
}

var _ Translator = (*Anthropic)(nil)
