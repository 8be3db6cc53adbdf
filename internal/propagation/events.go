package propagation

import (
	"time"

	"github.com/radiograb/internal/models"
)

// ShowTTLUpdated is published when a show's retention policy may have changed
type ShowTTLUpdated struct {
	ShowID        uint           `json:"show_id"`
	RetentionDays int            `json:"retention_days"`
	TTLType       models.TTLType `json:"ttl_type"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// ShowScheduleUpdated is published when a show must be rescheduled
type ShowScheduleUpdated struct {
	ShowID     uint      `json:"show_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
