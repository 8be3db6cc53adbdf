package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/storage"
)

// Form field names accepted by the pipeline
const (
	FieldName            = "name"
	FieldStationID       = "station_id"
	FieldDescription     = "description"
	FieldHost            = "host"
	FieldGenre           = "genre"
	FieldImageURL        = "image_url"
	FieldScheduleText    = "schedule_text"
	FieldDurationMinutes = "duration_minutes"
	FieldActive          = "active"
	FieldRetentionDays   = "retention_days"
	FieldTTLType         = "default_ttl_type"
	FieldStreamOnly      = "stream_only"
	FieldContentType     = "content_type"
	FieldIsSyndicated    = "is_syndicated"
	FieldAutoImported    = "auto_imported"
)

// Draft is a coerced, validated submission. Nothing in it has been
// persisted or translated yet.
type Draft struct {
	Name            string             `validate:"required,max=255"`
	StationID       uint               `validate:"required"`
	Description     string             `validate:"-"`
	Host            string             `validate:"max=255"`
	Genre           string             `validate:"max=255"`
	ImageURL        string             `validate:"omitempty,url,max=2048"`
	ScheduleText    string             `validate:"required"`
	DurationMinutes int                `validate:"min=1,max=1440"`
	Active          bool               `validate:"-"`
	RetentionDays   int                `validate:"min=1,max=3650"`
	TTLType         models.TTLType     `validate:"oneof=days weeks months indefinite"`
	StreamOnly      bool               `validate:"-"`
	ContentType     models.ContentType `validate:"oneof=music talk mixed unknown"`
	IsSyndicated    bool               `validate:"-"`
	AutoImported    bool               `validate:"-"`
}

// Messages are reported in this order, one per failing field
var fieldRules = []struct {
	field string
	tag   string // empty matches any tag
	msg   string
}{
	{"Name", "required", "Show name is required"},
	{"Name", "", "Show name must be 255 characters or fewer"},
	{"StationID", "", "Station selection is required"},
	{"ScheduleText", "", "Schedule is required"},
	{"DurationMinutes", "", "Duration must be between 1 and 1440 minutes"},
	{"RetentionDays", "", "Retention period must be between 1 and 3650 days"},
	{"TTLType", "", "Invalid TTL type"},
	{"ContentType", "", "Invalid content type"},
	{"ImageURL", "", "Image URL must be a valid URL"},
	{"Host", "", "Host must be 255 characters or fewer"},
	{"Genre", "", "Genre must be 255 characters or fewer"},
}

const msgStationMissing = "Selected station does not exist"

// StationLookup resolves a station id
type StationLookup interface {
	GetStationByID(ctx context.Context, id uint) (*models.Station, error)
}

// Validator checks a raw submission and produces a Draft
type Validator struct {
	stations StationLookup
	validate *validator.Validate
}

// NewValidator creates a validator that checks station existence against stations
func NewValidator(stations StationLookup) *Validator {
	return &Validator{
		stations: stations,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate coerces form into a Draft and checks it. Every failing rule is
// reported in one *ValidationError. A station lookup that fails for any
// reason other than not-found yields a *PersistenceError.
func (v *Validator) Validate(ctx context.Context, form url.Values) (*Draft, error) {
	draft := DraftFromForm(form)

	failed := make(map[string]string)
	if err := v.validate.StructCtx(ctx, draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, &ValidationError{Fields: []string{err.Error()}}
		}
		for _, fe := range fieldErrs {
			failed[fe.StructField()] = fe.Tag()
		}
	}

	// Retention does not apply to shows that are kept forever
	if draft.TTLType == models.TTLTypeIndefinite {
		if _, bad := failed["RetentionDays"]; bad {
			delete(failed, "RetentionDays")
			draft.RetentionDays = models.DefaultRetentionDays
		}
	}

	stationMissing := false
	if _, bad := failed["StationID"]; !bad {
		if _, err := v.stations.GetStationByID(ctx, draft.StationID); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, databaseError(err)
			}
			stationMissing = true
		}
	}

	var msgs []string
	seen := make(map[string]bool)
	for _, rule := range fieldRules {
		tag, bad := failed[rule.field]
		if bad && !seen[rule.field] && (rule.tag == "" || rule.tag == tag) {
			msgs = append(msgs, rule.msg)
			seen[rule.field] = true
		}
		if rule.field == "StationID" && stationMissing {
			msgs = append(msgs, msgStationMissing)
		}
	}
	if len(msgs) > 0 {
		return nil, &ValidationError{Fields: msgs}
	}
	return draft, nil
}

// DraftFromForm applies the submission coercion rules: strings are trimmed,
// unparseable numbers become 0, absent numbers and enums take their
// defaults, and a checkbox is on when its key is present.
func DraftFromForm(form url.Values) *Draft {
	return &Draft{
		Name:            text(form, FieldName),
		StationID:       uint(max(intField(form, FieldStationID, 0), 0)),
		Description:     text(form, FieldDescription),
		Host:            text(form, FieldHost),
		Genre:           text(form, FieldGenre),
		ImageURL:        text(form, FieldImageURL),
		ScheduleText:    text(form, FieldScheduleText),
		DurationMinutes: intField(form, FieldDurationMinutes, models.DefaultDurationMinutes),
		Active:          checkbox(form, FieldActive),
		RetentionDays:   intField(form, FieldRetentionDays, models.DefaultRetentionDays),
		TTLType:         models.TTLType(textOr(form, FieldTTLType, string(models.TTLTypeDays))),
		StreamOnly:      checkbox(form, FieldStreamOnly),
		ContentType:     models.ContentType(textOr(form, FieldContentType, string(models.ContentTypeUnknown))),
		IsSyndicated:    checkbox(form, FieldIsSyndicated),
		AutoImported:    checkbox(form, FieldAutoImported),
	}
}

func text(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

func textOr(form url.Values, key, def string) string {
	if !form.Has(key) {
		return def
	}
	return text(form, key)
}

func intField(form url.Values, key string, def int) int {
	if !form.Has(key) {
		return def
	}
	n, err := strconv.Atoi(text(form, key))
	if err != nil {
		return 0
	}
	return n
}

// checkbox is on when present, unless a non-browser client sent an explicit false
func checkbox(form url.Values, key string) bool {
	if !form.Has(key) {
		return false
	}
	switch strings.ToLower(text(form, key)) {
	case "0", "false", "off", "no":
		return false
	}
	return true
}

// Form renders a show back into submission fields, the way an edit form is prefilled
func Form(show *models.Show) url.Values {
	form := url.Values{}
	form.Set(FieldName, show.Name)
	form.Set(FieldStationID, strconv.FormatUint(uint64(show.StationID), 10))
	form.Set(FieldDescription, models.StringValue(show.Description))
	form.Set(FieldHost, models.StringValue(show.Host))
	form.Set(FieldGenre, models.StringValue(show.Genre))
	form.Set(FieldImageURL, models.StringValue(show.ImageURL))
	form.Set(FieldScheduleText, show.ScheduleDescription)
	form.Set(FieldDurationMinutes, strconv.Itoa(show.DurationMinutes))
	form.Set(FieldRetentionDays, strconv.Itoa(show.RetentionDays))
	form.Set(FieldTTLType, string(show.DefaultTTLType))
	form.Set(FieldContentType, string(show.ContentType))
	setCheckbox(form, FieldActive, show.Active)
	setCheckbox(form, FieldStreamOnly, show.StreamOnly)
	setCheckbox(form, FieldIsSyndicated, show.IsSyndicated)
	setCheckbox(form, FieldAutoImported, show.AutoImported)
	return form
}

func setCheckbox(form url.Values, key string, on bool) {
	if on {
		form.Set(key, "1")
	}
}
