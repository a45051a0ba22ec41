package weights

import "time"

// Entry es un punto del historial users/{uid}/weights/{id}.
type Entry struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"ownerUserId"`
	Weight      float64   `json:"weight"` // kg
	RecordedAt  time.Time `json:"recordedAt"`
}

const (
	DefaultListLimit = 30
	MaxListLimit     = 365
)
