package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/radiograb/internal/pipeline"
	"github.com/radiograb/internal/storage"
	"github.com/radiograb/pkg/logger"
)

// errMessageInternal is the generic message for 500 responses
const errMessageInternal = "internal server error"

// Handler serves shows and stations
type Handler struct {
	Catalog  Catalog
	Pipeline Submitter
	Log      *logger.Logger
}

// ErrorResponse defines standard error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

//
// ==========================
// Stations
// ==========================
//

func (h *Handler) ListStations(w http.ResponseWriter, r *http.Request) {
	filter := storage.StationFilter{ActiveOnly: truthy(r.URL.Query().Get("active"))}

	stations, err := h.Catalog.ListStations(r.Context(), filter)
	if err != nil {
		h.Log.Error().Err(err).Msg("List stations failed")
		jsonError(w, errMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

//
// ==========================
// Shows
// ==========================
//

func (h *Handler) ListShows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.DefaultShowFilter()

	if v := q.Get("station_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			jsonError(w, "invalid station_id", http.StatusBadRequest)
			return
		}
		stationID := uint(id)
		filter.StationID = &stationID
	}
	if v := q.Get("active"); v != "" {
		active := truthy(v)
		filter.Active = &active
	}
	if l := q.Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			filter.Limit = val
		}
	}
	if o := q.Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil && val >= 0 {
			filter.Offset = val
		}
	}

	shows, err := h.Catalog.ListShows(r.Context(), filter)
	if err != nil {
		h.Log.Error().Err(err).Msg("List shows failed")
		jsonError(w, errMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, shows)
}

func (h *Handler) GetShow(w http.ResponseWriter, r *http.Request) {
	id, ok := showID(w, r)
	if !ok {
		return
	}

	show, err := h.Catalog.GetShowByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "Show not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Uint("show_id", id).Msg("Get show failed")
		jsonError(w, errMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, show)
}

func (h *Handler) CreateShow(w http.ResponseWriter, r *http.Request) {
	form, err := readSubmission(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.Pipeline.Create(r.Context(), form)
	writeJSON(w, resultStatus(res, http.StatusCreated), res)
}

func (h *Handler) EditShow(w http.ResponseWriter, r *http.Request) {
	id, ok := showID(w, r)
	if !ok {
		return
	}
	form, err := readSubmission(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.Pipeline.Edit(r.Context(), id, form)
	writeJSON(w, resultStatus(res, http.StatusOK), res)
}

// resultStatus maps a pipeline outcome onto an HTTP status
func resultStatus(res *pipeline.Result, ok int) int {
	if res.Success {
		return ok
	}
	if res.Failure == nil {
		return http.StatusInternalServerError
	}
	switch res.Failure.Kind() {
	case pipeline.KindValidation, pipeline.KindTranslation:
		return http.StatusUnprocessableEntity
	case pipeline.KindConflict:
		return http.StatusConflict
	}
	if errors.Is(res.Failure, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func showID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		jsonError(w, "invalid show id", http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}

// readSubmission accepts a urlencoded or multipart form, or a flat JSON object
func readSubmission(r *http.Request) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		return formFromJSON(r)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(DefaultMaxBodyBytes); err != nil {
			return nil, fmt.Errorf("invalid form: %w", err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form: %w", err)
		}
	}
	return r.PostForm, nil
}

// formFromJSON flattens a JSON object into form fields. Booleans become
// "1"/"0" so checkbox fields keep their meaning; null drops the field.
func formFromJSON(r *http.Request) (url.Values, error) {
	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.New("invalid JSON")
	}

	form := url.Values{}
	for key, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			form.Set(key, val)
		case json.Number:
			form.Set(key, val.String())
		case bool:
			if val {
				form.Set(key, "1")
			} else {
				form.Set(key, "0")
			}
		default:
			return nil, fmt.Errorf("field %q must be a string, number or boolean", key)
		}
	}
	return form, nil
}

func truthy(v string) bool {
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
