package domain

import (
	"encoding/json"
	"time"
)

// Record is the append-only persistence schema from spec.md §6:
// {id, t_detected, kind, payload_json}.
type Record struct {
	ID          string          `json:"id"`
	TDetected   time.Time       `json:"t_detected"`
	Kind        Kind            `json:"kind"`
	PayloadJSON json.RawMessage `json:"payload_json"`
}
