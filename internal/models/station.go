package models

import (
	"time"
)

// StationStatus represents whether a station is offered for new shows
type StationStatus string

const (
	StationStatusActive   StationStatus = "active"
	StationStatusInactive StationStatus = "inactive"
)

// Station is a radio station shows are recorded from.
// The show pipeline only checks that a station exists; it never mutates one.
type Station struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"size:255;not null" json:"name"`
	CallLetters string        `gorm:"size:16" json:"call_letters"`
	WebsiteURL  string        `gorm:"size:2048" json:"website_url"`
	StreamURL   string        `gorm:"size:2048" json:"stream_url"`
	Status      StationStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive returns true if the station is listed for new shows
func (s *Station) IsActive() bool {
	return s.Status == StationStatusActive
}
