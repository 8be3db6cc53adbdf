package storage

import (
	"context"
	"errors"

	"github.com/radiograb/internal/models"
)

// ErrNotFound is returned when a station or show does not exist
var ErrNotFound = errors.New("record not found")

// ErrDuplicateShow is returned when a write would give two shows the same
// (station, name) pair. The store's unique index is the authority for it.
var ErrDuplicateShow = errors.New("show with this name already exists for this station")

// Repository defines the interface for data persistence.
// All queries are parameterized; no caller text is interpolated into SQL.
type Repository interface {
	// Station operations
	CreateStation(ctx context.Context, station *models.Station) error
	GetStationByID(ctx context.Context, id uint) (*models.Station, error)
	ListStations(ctx context.Context, filter StationFilter) ([]*models.Station, error)

	// Show operations
	CreateShow(ctx context.Context, show *models.Show) error
	GetShowByID(ctx context.Context, id uint) (*models.Show, error)
	// FindShowByStationAndName returns the show holding (stationID, name),
	// ignoring excludeID (0 excludes nothing). ErrNotFound if none.
	FindShowByStationAndName(ctx context.Context, stationID uint, name string, excludeID uint) (*models.Show, error)
	ListShows(ctx context.Context, filter ShowFilter) ([]*models.Show, error)
	// UpdateShow rewrites every mutable column of show.ID in one transaction.
	UpdateShow(ctx context.Context, show *models.Show) error

	// Maintenance
	Close() error
	Migrate() error
}

// StationFilter defines filtering options for stations
type StationFilter struct {
	ActiveOnly bool
}

// ShowFilter defines filtering options for shows
type ShowFilter struct {
	StationID *uint
	Active    *bool
	Limit     int
	Offset    int
}

// DefaultShowFilter returns a filter with sensible defaults
func DefaultShowFilter() ShowFilter {
	return ShowFilter{
		Limit: 100,
	}
}
