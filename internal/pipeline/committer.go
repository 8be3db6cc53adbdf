package pipeline

import (
	"context"
	"errors"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/storage"
	"github.com/radiograb/internal/translator"
)

// ShowWriter persists shows
type ShowWriter interface {
	CreateShow(ctx context.Context, show *models.Show) error
	UpdateShow(ctx context.Context, show *models.Show) error
}

// Committer writes a validated, translated draft as one atomic store operation
type Committer struct {
	shows ShowWriter
}

// NewCommitter creates a committer
func NewCommitter(shows ShowWriter) *Committer {
	return &Committer{shows: shows}
}

// Commit inserts a new show when editingID is 0, otherwise rewrites every
// mutable field of that show. A unique-index violation becomes a
// *ConflictError; everything else a *PersistenceError.
func (c *Committer) Commit(ctx context.Context, editingID uint, draft *Draft, schedule *translator.Result) (*models.Show, error) {
	show := ShowFromDraft(draft, schedule)
	show.ID = editingID

	var err error
	if editingID == 0 {
		err = c.shows.CreateShow(ctx, show)
	} else {
		err = c.shows.UpdateShow(ctx, show)
	}

	switch {
	case err == nil:
		return show, nil
	case errors.Is(err, storage.ErrDuplicateShow):
		return nil, &ConflictError{StationID: draft.StationID, Name: draft.Name, Err: err}
	case editingID != 0 && errors.Is(err, storage.ErrNotFound):
		return nil, &PersistenceError{Message: "Show not found", Err: err}
	default:
		return nil, databaseError(err)
	}
}

// ShowFromDraft builds the record to persist. Empty optional text is stored
// as NULL, and the schedule description falls back to what was submitted.
func ShowFromDraft(draft *Draft, schedule *translator.Result) *models.Show {
	description := schedule.Description
	if description == "" {
		description = draft.ScheduleText
	}
	return &models.Show{
		StationID:           draft.StationID,
		Name:                draft.Name,
		Description:         models.NullableString(draft.Description),
		Host:                models.NullableString(draft.Host),
		Genre:               models.NullableString(draft.Genre),
		ImageURL:            models.NullableString(draft.ImageURL),
		ScheduleDescription: description,
		ScheduleCron:        schedule.Cron,
		DurationMinutes:     draft.DurationMinutes,
		Active:              draft.Active,
		RetentionDays:       draft.RetentionDays,
		DefaultTTLType:      draft.TTLType,
		StreamOnly:          draft.StreamOnly,
		ContentType:         draft.ContentType,
		IsSyndicated:        draft.IsSyndicated,
		AutoImported:        draft.AutoImported,
	}
}
