package translator

import (
	"fmt"

	"github.com/radiograb/internal/ai"
	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/process"
	"github.com/radiograb/pkg/logger"
	"github.com/radiograb/pkg/ratelimit"
)

// New builds the translator cfg selects
func New(cfg config.TranslatorConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) (Translator, error) {
	switch cfg.Mode {
	case config.ModeProcess:
		return NewProcess(process.Command{Path: cfg.Command, Args: cfg.Args}, cfg.Timeout, limiter, log), nil
	case config.ModeAnthropic:
		if limiter == nil {
			limiter = ratelimit.NewDefaultLimiter(cfg.RequestsPerMinute)
		}
		return NewAnthropic(ai.NewClient(cfg.Anthropic, limiter, log), cfg.Timeout, log), nil
	default:
		return nil, fmt.Errorf("unsupported translator mode %q", cfg.Mode)
	}
}
