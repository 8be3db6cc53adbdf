// Package pipeline runs a show create or edit submission through
// validation, schedule translation, conflict checking, commit and
// downstream propagation.
package pipeline

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/storage"
	"github.com/radiograb/internal/translator"
	"github.com/radiograb/pkg/logger"
)

// State is a pipeline stage
type State string

const (
	StateValidating       State = "validating"
	StateTranslating      State = "translating"
	StateConflictChecking State = "conflict_checking"
	StateCommitting       State = "committing"
	StatePropagating      State = "propagating"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Mode distinguishes a create from an edit
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Result is the outcome of one run. Success, ID and Errors are what the
// caller sees; the rest is for logging, metrics and tests.
type Result struct {
	Success bool     `json:"success"`
	ID      uint     `json:"id,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	RunID       string              `json:"-"`
	Mode        Mode                `json:"-"`
	State       State               `json:"-"`
	FailedIn    State               `json:"-"`
	Failure     StageError          `json:"-"`
	Show        *models.Show        `json:"-"`
	Propagation []*PropagationError `json:"-"`
	Trace       []State             `json:"-"`
}

// Observer is told about finished runs. Metrics implement it.
type Observer interface {
	RunFinished(res *Result)
	PropagationFailed(collaborator string)
}

// ShowLoader fetches the show an edit replaces
type ShowLoader interface {
	GetShowByID(ctx context.Context, id uint) (*models.Show, error)
}

// Repository is the slice of the store the pipeline needs
type Repository interface {
	StationLookup
	ShowLoader
	ShowFinder
	ShowWriter
}

// Dependencies wires an Orchestrator. TTLManager, Scheduler and Observer may be nil.
type Dependencies struct {
	Repository         Repository
	Translator         translator.Translator
	TTLManager         TTLManager
	Scheduler          Scheduler
	PropagationTimeout time.Duration
	Observer           Observer
	Log                *logger.Logger
}

// Orchestrator drives one submission through every stage in order
type Orchestrator struct {
	shows      ShowLoader
	validator  *Validator
	translator translator.Translator
	conflicts  *ConflictChecker
	committer  *Committer
	propagator *Propagator
	observer   Observer
	log        *logger.Logger
}

// New creates an orchestrator
func New(deps Dependencies) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		shows:      deps.Repository,
		validator:  NewValidator(deps.Repository),
		translator: deps.Translator,
		conflicts:  NewConflictChecker(deps.Repository),
		committer:  NewCommitter(deps.Repository),
		propagator: NewPropagator(deps.TTLManager, deps.Scheduler, deps.PropagationTimeout, log),
		observer:   deps.Observer,
		log:        log.WithComponent("pipeline"),
	}
}

// Create runs a new-show submission
func (o *Orchestrator) Create(ctx context.Context, form url.Values) *Result {
	return o.run(ctx, ModeCreate, 0, form)
}

// Edit runs a submission that replaces show showID
func (o *Orchestrator) Edit(ctx context.Context, showID uint, form url.Values) *Result {
	if showID == 0 {
		res := &Result{RunID: uuid.NewString(), Mode: ModeEdit}
		res.advance(StateValidating)
		o.fail(res, o.log, &ValidationError{Fields: []string{"Show ID is required"}})
		return res
	}
	return o.run(ctx, ModeEdit, showID, form)
}

func (o *Orchestrator) run(ctx context.Context, mode Mode, showID uint, form url.Values) *Result {
	res := &Result{RunID: uuid.NewString(), Mode: mode}
	log := o.log.WithRunID(res.RunID)
	if showID != 0 {
		log = log.WithShowID(showID)
	}
	log.Info().Str("mode", string(mode)).Msg("Show submission received")

	res.advance(StateValidating)
	if mode == ModeEdit {
		if err := o.exists(ctx, showID); err != nil {
			o.fail(res, log, err)
			return res
		}
	}
	draft, err := o.validator.Validate(ctx, form)
	if err != nil {
		o.fail(res, log, err)
		return res
	}

	res.advance(StateTranslating)
	schedule, err := o.translate(ctx, log, draft.ScheduleText)
	if err != nil {
		o.fail(res, log, err)
		return res
	}

	res.advance(StateConflictChecking)
	if err := o.conflicts.Check(ctx, draft, showID); err != nil {
		o.fail(res, log, err)
		return res
	}

	res.advance(StateCommitting)
	show, err := o.committer.Commit(ctx, showID, draft, schedule)
	if err != nil {
		o.fail(res, log, err)
		return res
	}
	res.Show = show
	res.ID = show.ID
	log = log.WithShowID(show.ID)
	log.Info().
		Uint("station_id", show.StationID).
		Str("cron", show.ScheduleCron).
		Msg("Show saved")

	res.advance(StatePropagating)
	res.Propagation = o.propagator.Propagate(ctx, show)
	if o.observer != nil {
		for _, pe := range res.Propagation {
			o.observer.PropagationFailed(pe.Collaborator)
		}
	}

	res.advance(StateDone)
	res.Success = true
	log.Info().
		Int("propagation_failures", len(res.Propagation)).
		Msg("Show submission complete")
	o.finish(res)
	return res
}

// exists stops an edit of a missing show before any collaborator is called.
// The committer still maps a row deleted after this check to the same message.
func (o *Orchestrator) exists(ctx context.Context, showID uint) error {
	_, err := o.shows.GetShowByID(ctx, showID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return &PersistenceError{Message: "Show not found", Err: err}
	default:
		return databaseError(err)
	}
}

func (o *Orchestrator) translate(ctx context.Context, log *logger.Logger, text string) (*translator.Result, error) {
	schedule, err := o.translator.Translate(ctx, text)
	if err == nil {
		return schedule, nil
	}

	log.Debug().Err(err).Str("schedule_text", text).Msg("Schedule translation failed")

	var reported *translator.ReportedError
	switch {
	case errors.As(err, &reported) && reported.Message != "":
		return nil, &TranslationError{Reason: reported.Message, Err: err}
	case errors.Is(err, translator.ErrTimeout):
		return nil, &TranslationError{Reason: "Schedule translation timed out", Err: err}
	case errors.Is(err, translator.ErrUnavailable):
		return nil, &TranslationError{Reason: "Schedule translator is unavailable", Err: err}
	default:
		return nil, &TranslationError{Reason: "Invalid schedule format", Err: err}
	}
}

func (o *Orchestrator) fail(res *Result, log *logger.Logger, err error) {
	var stageErr StageError
	if !errors.As(err, &stageErr) {
		stageErr = databaseError(err)
	}
	res.FailedIn = res.State
	res.Failure = stageErr
	res.Errors = stageErr.Messages()
	res.advance(StateFailed)

	log.Warn().
		Str("stage", string(res.FailedIn)).
		Str("kind", string(stageErr.Kind())).
		Strs("errors", res.Errors).
		Msg("Show submission rejected")
	o.finish(res)
}

func (o *Orchestrator) finish(res *Result) {
	if o.observer != nil {
		o.observer.RunFinished(res)
	}
}

func (r *Result) advance(next State) {
	r.State = next
	r.Trace = append(r.Trace, next)
}
