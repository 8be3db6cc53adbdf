// Package recorder keeps one cron job per active show and fires the
// recording tool when a show goes on air.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/storage"
	"github.com/radiograb/pkg/logger"
)

// ShowSource is the slice of the store the scheduler reads
type ShowSource interface {
	GetShowByID(ctx context.Context, id uint) (*models.Show, error)
	ListShows(ctx context.Context, filter storage.ShowFilter) ([]*models.Show, error)
}

// RecordFunc captures one airing of show
type RecordFunc func(ctx context.Context, show *models.Show) error

// Observer is told about every fired recording
type Observer interface {
	RecordingStarted(err error)
}

type entry struct {
	id   cron.EntryID
	spec string
}

// Scheduler maps shows to cron entries
type Scheduler struct {
	cron     *cron.Cron
	shows    ShowSource
	record   RecordFunc
	observer Observer
	log      *logger.Logger

	mu      sync.Mutex
	entries map[uint]entry
}

// New creates a scheduler. observer may be nil.
func New(shows ShowSource, record RecordFunc, observer Observer, log *logger.Logger) *Scheduler {
	log = log.WithComponent("recorder")
	cl := cronLogger{log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		shows:    shows,
		record:   record,
		observer: observer,
		log:      log,
		entries:  make(map[uint]entry),
	}
}

// Sync makes the cron table match the active shows in the store. Unchanged
// entries are kept so their next run is not disturbed.
func (s *Scheduler) Sync(ctx context.Context) error {
	active := true
	shows, err := s.shows.ListShows(ctx, storage.ShowFilter{Active: &active})
	if err != nil {
		return fmt.Errorf("list active shows: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uint]bool, len(shows))
	for _, show := range shows {
		seen[show.ID] = true
		if err := s.upsert(show); err != nil {
			s.log.WithShowID(show.ID).Warn().Err(err).Str("cron", show.ScheduleCron).Msg("Skipping show with unusable schedule")
		}
	}
	for id := range s.entries {
		if !seen[id] {
			s.remove(id)
		}
	}
	return nil
}

// RescheduleShow reloads one show. Missing or inactive shows lose their job.
func (s *Scheduler) RescheduleShow(ctx context.Context, showID uint) error {
	show, err := s.shows.GetShowByID(ctx, showID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load show %d: %w", showID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if show == nil || !show.Active {
		s.remove(showID)
		return nil
	}
	return s.upsert(show)
}

// upsert requires s.mu
func (s *Scheduler) upsert(show *models.Show) error {
	if current, ok := s.entries[show.ID]; ok {
		if current.spec == show.ScheduleCron {
			return nil
		}
		s.remove(show.ID)
	}

	snapshot := *show
	id, err := s.cron.AddFunc(show.ScheduleCron, func() { s.fire(&snapshot) })
	if err != nil {
		return err
	}
	s.entries[show.ID] = entry{id: id, spec: show.ScheduleCron}
	s.log.WithShowID(show.ID).Info().
		Str("name", show.Name).
		Str("cron", show.ScheduleCron).
		Time("next_run", s.cron.Entry(id).Next).
		Msg("Recording scheduled")
	return nil
}

// remove requires s.mu
func (s *Scheduler) remove(showID uint) {
	current, ok := s.entries[showID]
	if !ok {
		return
	}
	s.cron.Remove(current.id)
	delete(s.entries, showID)
	s.log.WithShowID(showID).Info().Msg("Recording unscheduled")
}

func (s *Scheduler) fire(show *models.Show) {
	// Allow the tool some slack past the scheduled end to finalize the file
	budget := time.Duration(show.DurationMinutes)*time.Minute + 5*time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	log := s.log.WithShowID(show.ID)
	log.Info().Str("name", show.Name).Int("duration_minutes", show.DurationMinutes).Msg("Recording started")

	err := s.record(ctx, show)
	if s.observer != nil {
		s.observer.RecordingStarted(err)
	}
	if err != nil {
		log.Error().Err(err).Msg("Recording failed")
		return
	}
	log.Info().Msg("Recording finished")
}

// NextRun returns when show showID records next
func (s *Scheduler) NextRun(showID uint) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[showID]
	if !ok {
		return time.Time{}, false
	}
	e := s.cron.Entry(current.id)
	return e.Next, e.Valid()
}

// Len returns the number of scheduled shows
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run syncs, starts the cron loop and re-syncs every interval until ctx ends
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if err := s.Sync(ctx); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Int("shows", s.Len()).Dur("resync_interval", interval).Msg("Recorder started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			stopped := s.cron.Stop()
			<-stopped.Done()
			s.log.Info().Msg("Recorder stopped")
			return nil
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.log.Error().Err(err).Msg("Resync failed")
			}
		}
	}
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
