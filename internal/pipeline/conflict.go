package pipeline

import (
	"context"
	"errors"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/storage"
)

// ShowFinder looks up a show by its natural key
type ShowFinder interface {
	FindShowByStationAndName(ctx context.Context, stationID uint, name string, excludeID uint) (*models.Show, error)
}

// ConflictChecker rejects a draft whose (station, name) pair is already taken
// by a different show. It is advisory; the store's unique index decides races.
type ConflictChecker struct {
	shows ShowFinder
}

// NewConflictChecker creates a conflict checker
func NewConflictChecker(shows ShowFinder) *ConflictChecker {
	return &ConflictChecker{shows: shows}
}

// Check returns nil, a *ConflictError, or a *PersistenceError. editingID is
// the show being edited, or 0 on create.
func (c *ConflictChecker) Check(ctx context.Context, draft *Draft, editingID uint) error {
	existing, err := c.shows.FindShowByStationAndName(ctx, draft.StationID, draft.Name, editingID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return databaseError(err)
	}
	return &ConflictError{
		StationID:  draft.StationID,
		Name:       existing.Name,
		ExistingID: existing.ID,
	}
}
