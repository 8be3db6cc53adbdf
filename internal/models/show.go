package models

import (
	"time"
)

// TTLType is the unit a show's retention period is expressed in
type TTLType string

const (
	TTLTypeDays       TTLType = "days"
	TTLTypeWeeks      TTLType = "weeks"
	TTLTypeMonths     TTLType = "months"
	TTLTypeIndefinite TTLType = "indefinite"
)

// Valid reports whether t is one of the known TTL types
func (t TTLType) Valid() bool {
	switch t {
	case TTLTypeDays, TTLTypeWeeks, TTLTypeMonths, TTLTypeIndefinite:
		return true
	}
	return false
}

// ContentType classifies what a show broadcasts; drives download policy
type ContentType string

const (
	ContentTypeMusic   ContentType = "music"
	ContentTypeTalk    ContentType = "talk"
	ContentTypeMixed   ContentType = "mixed"
	ContentTypeUnknown ContentType = "unknown"
)

// Valid reports whether c is one of the known content types
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeMusic, ContentTypeTalk, ContentTypeMixed, ContentTypeUnknown:
		return true
	}
	return false
}

// Show bounds
const (
	MinDurationMinutes = 1
	MaxDurationMinutes = 1440
	MinRetentionDays   = 1
	MaxRetentionDays   = 3650

	DefaultDurationMinutes = 60
	DefaultRetentionDays   = 30
)

// Show represents a recurring radio show recording job.
// (StationID, Name) is unique; the store enforces it with idx_shows_station_name.
type Show struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	StationID           uint        `gorm:"not null;uniqueIndex:idx_shows_station_name" json:"station_id"`
	Station             *Station    `gorm:"foreignKey:StationID" json:"station,omitempty"`
	Name                string      `gorm:"size:255;not null;uniqueIndex:idx_shows_station_name" json:"name"`
	Description         *string     `gorm:"type:text" json:"description"`
	Host                *string     `gorm:"size:255" json:"host"`
	Genre               *string     `gorm:"size:255" json:"genre"`
	ImageURL            *string     `gorm:"size:2048" json:"image_url"`
	ScheduleDescription string      `gorm:"type:text" json:"schedule_description"`
	ScheduleCron        string      `gorm:"size:255;not null" json:"schedule_cron"`
	DurationMinutes     int         `gorm:"not null" json:"duration_minutes"`
	Active              bool        `gorm:"not null" json:"active"`
	RetentionDays       int         `gorm:"not null" json:"retention_days"`
	DefaultTTLType      TTLType     `gorm:"size:16;not null" json:"default_ttl_type"`
	StreamOnly          bool        `gorm:"not null" json:"stream_only"`
	ContentType         ContentType `gorm:"size:16;not null" json:"content_type"`
	IsSyndicated        bool        `gorm:"not null" json:"is_syndicated"`
	AutoImported        bool        `gorm:"not null" json:"auto_imported"`
	CreatedAt           time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// RetainsForever returns true if recordings of this show never expire
func (s *Show) RetainsForever() bool {
	return s.DefaultTTLType == TTLTypeIndefinite
}

// StringValue dereferences an optional column, returning "" for NULL
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NullableString maps "" to NULL
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
