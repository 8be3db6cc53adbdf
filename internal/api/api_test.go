package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/metrics"
	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/pipeline"
	"github.com/radiograb/internal/storage/gormstore"
	"github.com/radiograb/internal/translator"
	"github.com/radiograb/pkg/logger"
)

type stubTranslator map[string]string

func (s stubTranslator) Translate(_ context.Context, text string) (*translator.Result, error) {
	cron, ok := s[text]
	if !ok {
		return nil, &translator.ReportedError{Message: "No time found in schedule"}
	}
	return &translator.Result{Cron: cron, Description: text}, nil
}

type recordingScheduler struct{ ids []uint }

func (r *recordingScheduler) RescheduleShow(_ context.Context, id uint) error {
	r.ids = append(r.ids, id)
	return nil
}

type testServer struct {
	handler   http.Handler
	repo      *gormstore.Repository
	station   *models.Station
	scheduler *recordingScheduler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo, err := gormstore.New(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { _ = repo.Close() })

	station := &models.Station{Name: "WXYZ", CallLetters: "WXYZ"}
	require.NoError(t, repo.CreateStation(context.Background(), station))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sched := &recordingScheduler{}
	orch := pipeline.New(pipeline.Dependencies{
		Repository: repo,
		Translator: stubTranslator{
			"Weekdays at 8 AM": "0 8 * * 1-5",
			"Sundays at 7 PM":  "0 19 * * 0",
		},
		Scheduler: sched,
		Observer:  m,
		Log:       logger.Nop(),
	})

	return &testServer{
		handler:   NewRouter(repo, orch, logger.Nop(), Options{Metrics: m, Gatherer: reg}),
		repo:      repo,
		station:   station,
		scheduler: sched,
	}
}

func (s *testServer) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	return s.do(t, http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode())
}

func (s *testServer) showForm(name string) url.Values {
	return url.Values{
		"name":             {name},
		"station_id":       {fmt.Sprint(s.station.ID)},
		"schedule_text":    {"Weekdays at 8 AM"},
		"duration_minutes": {"120"},
		"retention_days":   {"30"},
		"default_ttl_type": {"days"},
		"active":           {"on"},
	}
}

type resultBody struct {
	Success bool     `json:"success"`
	ID      uint     `json:"id"`
	Errors  []string `json:"errors"`
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) resultBody {
	t.Helper()
	var out resultBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestCreateShow_Form(t *testing.T) {
	s := newTestServer(t)

	rr := s.postForm(t, "/shows", s.showForm("Morning Show"))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decodeResult(t, rr)
	assert.True(t, res.Success)
	require.NotZero(t, res.ID)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []uint{res.ID}, s.scheduler.ids)

	show, err := s.repo.GetShowByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 8 * * 1-5", show.ScheduleCron)
	assert.True(t, show.Active)
}

func TestCreateShow_JSON(t *testing.T) {
	s := newTestServer(t)
	body := fmt.Sprintf(`{
		"name": "Jazz Hour",
		"station_id": %d,
		"schedule_text": "Sundays at 7 PM",
		"duration_minutes": 60,
		"default_ttl_type": "indefinite",
		"retention_days": null,
		"active": true,
		"stream_only": false,
		"genre": "Jazz"
	}`, s.station.ID)

	rr := s.do(t, http.MethodPost, "/shows", "application/json; charset=utf-8", body)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	res := decodeResult(t, rr)
	show, err := s.repo.GetShowByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "0 19 * * 0", show.ScheduleCron)
	assert.Equal(t, models.TTLTypeIndefinite, show.DefaultTTLType)
	assert.True(t, show.Active)
	assert.False(t, show.StreamOnly)
	assert.Equal(t, "Jazz", models.StringValue(show.Genre))
}

func TestCreateShow_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(url.Values)
		wantStatus int
		wantError  string
	}{
		{
			name:       "validation",
			mutate:     func(f url.Values) { f.Set("duration_minutes", "1441") },
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Duration must be between 1 and 1440 minutes",
		},
		{
			name:       "unknown station",
			mutate:     func(f url.Values) { f.Set("station_id", "999") },
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Selected station does not exist",
		},
		{
			name:       "untranslatable schedule",
			mutate:     func(f url.Values) { f.Set("schedule_text", "sometimes") },
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Could not parse schedule: No time found in schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			form := s.showForm("Morning Show")
			tt.mutate(form)

			rr := s.postForm(t, "/shows", form)

			assert.Equal(t, tt.wantStatus, rr.Code)
			res := decodeResult(t, rr)
			assert.False(t, res.Success)
			assert.Equal(t, []string{tt.wantError}, res.Errors)
			assert.Empty(t, s.scheduler.ids)
		})
	}
}

func TestCreateShow_Conflict(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.postForm(t, "/shows", s.showForm("Morning Show")).Code)

	rr := s.postForm(t, "/shows", s.showForm("Morning Show"))

	assert.Equal(t, http.StatusConflict, rr.Code)
	res := decodeResult(t, rr)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "A show with this name already exists for this station")
}

func TestCreateShow_BadJSON(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/shows", "application/json", `{"name": ["a", "b"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/shows", "application/json", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEditShow(t *testing.T) {
	s := newTestServer(t)
	created := decodeResult(t, s.postForm(t, "/shows", s.showForm("Morning Show")))

	form := s.showForm("Morning Drive")
	form.Set("schedule_text", "Sundays at 7 PM")
	rr := s.do(t, http.MethodPut, fmt.Sprintf("/shows/%d", created.ID), "application/x-www-form-urlencoded", form.Encode())

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decodeResult(t, rr)
	assert.Equal(t, created.ID, res.ID)

	show, err := s.repo.GetShowByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Morning Drive", show.Name)
	assert.Equal(t, "0 19 * * 0", show.ScheduleCron)
}

func TestEditShow_NotFound(t *testing.T) {
	s := newTestServer(t)

	rr := s.postForm(t, "/shows/404", s.showForm("Ghost"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, []string{"Show not found"}, decodeResult(t, rr).Errors)
}

func TestEditShow_InvalidID(t *testing.T) {
	s := newTestServer(t)

	rr := s.postForm(t, "/shows/abc", s.showForm("Ghost"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetShow(t *testing.T) {
	s := newTestServer(t)
	created := decodeResult(t, s.postForm(t, "/shows", s.showForm("Morning Show")))

	rr := s.do(t, http.MethodGet, fmt.Sprintf("/shows/%d", created.ID), "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var show models.Show
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &show))
	assert.Equal(t, "Morning Show", show.Name)
	assert.Nil(t, show.Host)

	rr = s.do(t, http.MethodGet, "/shows/999", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Show not found"}`, rr.Body.String())
}

func TestListShows(t *testing.T) {
	s := newTestServer(t)
	s.postForm(t, "/shows", s.showForm("Morning Show"))
	inactive := s.showForm("Late Night")
	inactive.Del("active")
	s.postForm(t, "/shows", inactive)

	var all []models.Show
	rr := s.do(t, http.MethodGet, "/shows", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	var active []models.Show
	rr = s.do(t, http.MethodGet, fmt.Sprintf("/shows?station_id=%d&active=1", s.station.ID), "", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, "Morning Show", active[0].Name)

	rr = s.do(t, http.MethodGet, "/shows?station_id=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListStations(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/stations", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var stations []models.Station
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stations))
	require.Len(t, stations, 1)
	assert.Equal(t, "WXYZ", stations[0].Name)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.postForm(t, "/shows", s.showForm("Morning Show"))

	rr := s.do(t, http.MethodGet, "/metrics", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `radiograb_pipeline_runs_total{mode="create",outcome="success"} 1`)
	assert.Contains(t, rr.Body.String(), `radiograb_http_requests_total{method="POST",path="/shows",status="201"} 1`)
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, http.StatusCreated, resultStatus(&pipeline.Result{Success: true}, http.StatusCreated))
	assert.Equal(t, http.StatusInternalServerError, resultStatus(&pipeline.Result{
		Failure: &pipeline.PersistenceError{Message: "Database error: disk full"},
	}, http.StatusOK))
}
