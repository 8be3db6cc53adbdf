package propagation

import (
	"fmt"

	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/pipeline"
	"github.com/radiograb/internal/process"
	"github.com/radiograb/pkg/logger"
)

// New builds the collaborators cfg selects. A collaborator in mode "none"
// comes back nil. local serves the scheduler in "inprocess" mode.
func New(cfg config.PropagationConfig, local pipeline.Scheduler, log *logger.Logger) (pipeline.TTLManager, pipeline.Scheduler, error) {
	var publisher *Publisher
	amqpPublisher := func() *Publisher {
		if publisher == nil {
			publisher = NewPublisher(cfg.AMQP.URL, nil, log)
		}
		return publisher
	}

	var ttl pipeline.TTLManager
	switch cfg.TTL.Mode {
	case config.ModeProcess:
		ttl = NewProcessTTL(process.Command{Path: cfg.TTL.Command, Args: cfg.TTL.Args}, log)
	case config.ModeAMQP:
		ttl = NewAMQPTTL(amqpPublisher(), cfg.AMQP.TTLQueue)
	case config.ModeNone:
	default:
		return nil, nil, fmt.Errorf("unsupported ttl mode %q", cfg.TTL.Mode)
	}

	var scheduler pipeline.Scheduler
	switch cfg.Scheduler.Mode {
	case config.ModeProcess:
		scheduler = NewProcessScheduler(process.Command{Path: cfg.Scheduler.Command, Args: cfg.Scheduler.Args}, log)
	case config.ModeAMQP:
		scheduler = NewAMQPScheduler(amqpPublisher(), cfg.AMQP.SchedulerQueue)
	case config.ModeInProcess:
		if local == nil {
			return nil, nil, fmt.Errorf("scheduler mode %q needs a local scheduler", cfg.Scheduler.Mode)
		}
		scheduler = local
	case config.ModeNone:
	default:
		return nil, nil, fmt.Errorf("unsupported scheduler mode %q", cfg.Scheduler.Mode)
	}

	return ttl, scheduler, nil
}
