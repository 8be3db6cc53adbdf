package gormstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/storage"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedStation(t *testing.T, repo *Repository, name string) *models.Station {
	t.Helper()
	st := &models.Station{Name: name, CallLetters: "WXYZ"}
	require.NoError(t, repo.CreateStation(context.Background(), st))
	return st
}

func newShow(stationID uint, name string) *models.Show {
	return &models.Show{
		StationID:           stationID,
		Name:                name,
		ScheduleDescription: "weekdays at 8:00 AM",
		ScheduleCron:        "0 8 * * 1-5",
		DurationMinutes:     60,
		Active:              true,
		RetentionDays:       30,
		DefaultTTLType:      models.TTLTypeDays,
		ContentType:         models.ContentTypeUnknown,
	}
}

func TestRepository_Stations(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	active := seedStation(t, repo, "KEXP")
	inactive := &models.Station{Name: "Archive FM", Status: models.StationStatusInactive}
	require.NoError(t, repo.CreateStation(ctx, inactive))

	got, err := repo.GetStationByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "KEXP", got.Name)
	assert.True(t, got.IsActive())

	_, err = repo.GetStationByID(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := repo.ListStations(ctx, storage.StationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := repo.ListStations(ctx, storage.StationFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, active.ID, onlyActive[0].ID)
}

func TestRepository_CreateAndGetShow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	st := seedStation(t, repo, "KEXP")

	show := newShow(st.ID, "Morning Show")
	show.Host = models.NullableString("Jo")
	require.NoError(t, repo.CreateShow(ctx, show))
	require.NotZero(t, show.ID)

	got, err := repo.GetShowByID(ctx, show.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning Show", got.Name)
	assert.Equal(t, "0 8 * * 1-5", got.ScheduleCron)
	assert.Equal(t, "Jo", models.StringValue(got.Host))
	assert.Nil(t, got.Genre)
	require.NotNil(t, got.Station)
	assert.Equal(t, "KEXP", got.Station.Name)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.GetShowByID(ctx, 4242)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepository_CreateShow_InactivePersists(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	st := seedStation(t, repo, "KEXP")

	show := newShow(st.ID, "Overnight")
	show.Active = false
	require.NoError(t, repo.CreateShow(ctx, show))

	got, err := repo.GetShowByID(ctx, show.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestRepository_UniqueStationName(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	st := seedStation(t, repo, "KEXP")
	other := seedStation(t, repo, "WFMU")

	require.NoError(t, repo.CreateShow(ctx, newShow(st.ID, "Morning Show")))

	err := repo.CreateShow(ctx, newShow(st.ID, "Morning Show"))
	assert.ErrorIs(t, err, storage.ErrDuplicateShow)

	// same name on another station is fine
	require.NoError(t, repo.CreateShow(ctx, newShow(other.ID, "Morning Show")))
}

func TestRepository_ConcurrentCreateOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	st := seedStation(t, repo, "KEXP")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.CreateShow(ctx, newShow(st.ID, "Drive Time"))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrDuplicateShow):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
}

func TestRepository_FindShowByStationAndName(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	st := seedStation(t, repo, "KEXP")

	show := newShow(st.ID, "Jazz Hour")
	require.NoError(t, repo.CreateShow(ctx, show))

	found, err := repo.FindShowByStationAndName(ctx, st.ID, "Jazz Hour", 0)
	require.NoError(t, err)
	assert.Equal(t, show.ID, found.ID)

	_, err = repo.FindShowByStationAndName(ctx, st.ID, "Jazz Hour", show.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.FindShowByStationAndName(ctx, st.ID, "jazz hour'; DROP TABLE shows; --", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepository_UpdateShow_RewritesAllFields(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	st := seedStation(t, repo, "KEXP")

	show := newShow(st.ID, "Morning Show")
	show.Genre = models.NullableString("news")
	show.StreamOnly = true
	require.NoError(t, repo.CreateShow(ctx, show))
	created, err := repo.GetShowByID(ctx, show.ID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	replacement := &models.Show{
		ID:                  show.ID,
		StationID:           st.ID,
		Name:                "Evening Show",
		ScheduleDescription: "daily at 6:00 PM",
		ScheduleCron:        "0 18 * * *",
		DurationMinutes:     120,
		Active:              false,
		RetentionDays:       90,
		DefaultTTLType:      models.TTLTypeWeeks,
		StreamOnly:          false,
		ContentType:         models.ContentTypeTalk,
	}
	require.NoError(t, repo.UpdateShow(ctx, replacement))

	got, err := repo.GetShowByID(ctx, show.ID)
	require.NoError(t, err)
	assert.Equal(t, "Evening Show", got.Name)
	assert.Equal(t, "0 18 * * *", got.ScheduleCron)
	assert.Equal(t, 120, got.DurationMinutes)
	assert.False(t, got.Active)
	assert.False(t, got.StreamOnly)
	assert.Nil(t, got.Genre, "cleared optional field must be written as NULL")
	assert.Equal(t, models.TTLTypeWeeks, got.DefaultTTLType)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt))
}

func TestRepository_UpdateShow_Errors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	st := seedStation(t, repo, "KEXP")

	a := newShow(st.ID, "A")
	b := newShow(st.ID, "B")
	require.NoError(t, repo.CreateShow(ctx, a))
	require.NoError(t, repo.CreateShow(ctx, b))

	missing := newShow(st.ID, "Ghost")
	missing.ID = 777
	assert.ErrorIs(t, repo.UpdateShow(ctx, missing), storage.ErrNotFound)

	clash := newShow(st.ID, "B")
	clash.ID = a.ID
	clash.ScheduleCron = "0 0 * * *"
	assert.ErrorIs(t, repo.UpdateShow(ctx, clash), storage.ErrDuplicateShow)

	// the failed update left A untouched
	got, err := repo.GetShowByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, "0 8 * * 1-5", got.ScheduleCron)
}

func TestRepository_ListShows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	st := seedStation(t, repo, "KEXP")
	other := seedStation(t, repo, "WFMU")

	inactive := newShow(st.ID, "B Side")
	inactive.Active = false
	require.NoError(t, repo.CreateShow(ctx, newShow(st.ID, "A Side")))
	require.NoError(t, repo.CreateShow(ctx, inactive))
	require.NoError(t, repo.CreateShow(ctx, newShow(other.ID, "C Side")))

	all, err := repo.ListShows(ctx, storage.DefaultShowFilter())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A Side", all[0].Name)

	active := true
	filtered, err := repo.ListShows(ctx, storage.ShowFilter{StationID: &st.ID, Active: &active})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "A Side", filtered[0].Name)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(config.DatabaseConfig{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
