package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/pkg/logger"
)

// Collaborator names as they appear in logs and metrics
const (
	CollaboratorTTL       = "ttl_manager"
	CollaboratorScheduler = "scheduler"
)

// DefaultPropagationTimeout bounds each downstream call when none is configured
const DefaultPropagationTimeout = 30 * time.Second

// TTLManager applies a show's retention policy to its recordings
type TTLManager interface {
	UpdateShowTTL(ctx context.Context, showID uint, retentionDays int, ttlType models.TTLType) error
}

// Scheduler re-reads a show's schedule and replaces its recording job
type Scheduler interface {
	RescheduleShow(ctx context.Context, showID uint) error
}

// Propagator notifies downstream systems after a commit. It never fails the
// run: every problem comes back as a *PropagationError and is logged.
type Propagator struct {
	ttl       TTLManager
	scheduler Scheduler
	timeout   time.Duration
	log       *logger.Logger
}

// NewPropagator creates a propagator. A nil collaborator is skipped.
func NewPropagator(ttl TTLManager, scheduler Scheduler, timeout time.Duration, log *logger.Logger) *Propagator {
	if timeout <= 0 {
		timeout = DefaultPropagationTimeout
	}
	return &Propagator{
		ttl:       ttl,
		scheduler: scheduler,
		timeout:   timeout,
		log:       log.WithComponent("propagator"),
	}
}

// Propagate tells the TTL manager and then the scheduler about show. The
// calls are independent; a failure in one does not skip the other.
func (p *Propagator) Propagate(ctx context.Context, show *models.Show) []*PropagationError {
	var failures []*PropagationError

	if p.ttl != nil {
		err := p.call(ctx, CollaboratorTTL, func(ctx context.Context) error {
			return p.ttl.UpdateShowTTL(ctx, show.ID, show.RetentionDays, show.DefaultTTLType)
		})
		if err != nil {
			failures = append(failures, p.failed(CollaboratorTTL, show.ID, err))
		}
	}

	if p.scheduler != nil {
		err := p.call(ctx, CollaboratorScheduler, func(ctx context.Context) error {
			return p.scheduler.RescheduleShow(ctx, show.ID)
		})
		if err != nil {
			failures = append(failures, p.failed(CollaboratorScheduler, show.ID, err))
		}
	}

	return failures
}

// call runs fn with its own deadline, detached from the caller's cancellation
func (p *Propagator) call(ctx context.Context, name string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("no answer within %s: %w", p.timeout, err)
		}
		return err
	case <-callCtx.Done():
		return fmt.Errorf("no answer within %s: %w", p.timeout, callCtx.Err())
	}
}

func (p *Propagator) failed(name string, showID uint, err error) *PropagationError {
	p.log.WithShowID(showID).
		WithCollaborator(name).
		Warn().
		Err(err).
		Msg("Downstream update failed; show saved but not propagated")
	return &PropagationError{Collaborator: name, ShowID: showID, Err: err}
}
