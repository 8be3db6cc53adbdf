package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/storage"
	"github.com/radiograb/internal/translator"
)

// memRepo is an in-memory store that enforces the (station, name) key the
// way the real one does and counts every call.
type memRepo struct {
	mu       sync.Mutex
	stations map[uint]*models.Station
	shows    map[uint]*models.Show
	nextID   uint

	stationErr error
	getErr     error
	findErr    error
	writeErr   error

	stationLookups int
	gets           int
	finds          int
	creates        int
	updates        int
}

func newMemRepo(stations ...*models.Station) *memRepo {
	r := &memRepo{
		stations: make(map[uint]*models.Station),
		shows:    make(map[uint]*models.Show),
	}
	for _, s := range stations {
		r.stations[s.ID] = s
	}
	return r
}

func (r *memRepo) GetStationByID(_ context.Context, id uint) (*models.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stationLookups++
	if r.stationErr != nil {
		return nil, r.stationErr
	}
	s, ok := r.stations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s, nil
}

func (r *memRepo) GetShowByID(_ context.Context, id uint) (*models.Show, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.shows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) FindShowByStationAndName(_ context.Context, stationID uint, name string, excludeID uint) (*models.Show, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	if s := r.holder(stationID, name, excludeID); s != nil {
		cp := *s
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

func (r *memRepo) CreateShow(_ context.Context, show *models.Show) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.writeErr != nil {
		return r.writeErr
	}
	if r.holder(show.StationID, show.Name, 0) != nil {
		return storage.ErrDuplicateShow
	}
	r.nextID++
	show.ID = r.nextID
	show.CreatedAt = time.Now()
	show.UpdatedAt = show.CreatedAt
	cp := *show
	r.shows[show.ID] = &cp
	return nil
}

func (r *memRepo) UpdateShow(_ context.Context, show *models.Show) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	if r.writeErr != nil {
		return r.writeErr
	}
	old, ok := r.shows[show.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if r.holder(show.StationID, show.Name, show.ID) != nil {
		return storage.ErrDuplicateShow
	}
	show.CreatedAt = old.CreatedAt
	show.UpdatedAt = time.Now()
	cp := *show
	r.shows[show.ID] = &cp
	return nil
}

func (r *memRepo) holder(stationID uint, name string, excludeID uint) *models.Show {
	for _, s := range r.shows {
		if s.ID != excludeID && s.StationID == stationID && s.Name == name {
			return s
		}
	}
	return nil
}

func (r *memRepo) show(id uint) *models.Show {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shows[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (r *memRepo) seed(show *models.Show) *models.Show {
	if err := r.CreateShow(context.Background(), show); err != nil {
		panic(err)
	}
	r.creates = 0
	return show
}

func (r *memRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates + r.updates
}

// fakeTranslator answers from a table keyed by the trimmed schedule text
type fakeTranslator struct {
	mu      sync.Mutex
	answers map[string]*translator.Result
	err     error
	calls   []string
}

func (f *fakeTranslator) Translate(_ context.Context, text string) (*translator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.answers[strings.TrimSpace(text)]; ok {
		cp := *res
		return &cp, nil
	}
	return nil, translator.ErrInvalidFormat
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type ttlCall struct {
	ShowID        uint
	RetentionDays int
	TTLType       models.TTLType
}

// fakeTTL records calls. When block is set it waits for its context to end.
type fakeTTL struct {
	mu     sync.Mutex
	calls  []ttlCall
	err    error
	block  bool
	panics bool
	ctxErr error
}

func (f *fakeTTL) UpdateShowTTL(ctx context.Context, showID uint, retentionDays int, ttlType models.TTLType) error {
	f.mu.Lock()
	f.calls = append(f.calls, ttlCall{showID, retentionDays, ttlType})
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	if f.panics {
		panic("ttl manager exploded")
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeTTL) recorded() []ttlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ttlCall(nil), f.calls...)
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []uint
	err   error
}

func (f *fakeScheduler) RescheduleShow(_ context.Context, showID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, showID)
	return f.err
}

func (f *fakeScheduler) recorded() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.calls...)
}

type fakeObserver struct {
	mu       sync.Mutex
	runs     []*Result
	failures []string
}

func (f *fakeObserver) RunFinished(res *Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, res)
}

func (f *fakeObserver) PropagationFailed(collaborator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, collaborator)
}
