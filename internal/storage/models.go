/*
Package storage provides data models for the run store.
*/
package storage

import "time"

// RunRecord summarizes one pipeline run.
type RunRecord struct {
	// RunID is the unique identifier for this run (UUID).
	RunID string `json:"run_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Input is the path of the event file.
	Input string `json:"input"`

	// ConfigHash identifies the configuration used.
	ConfigHash string `json:"config_hash"`

	// Events is the number of events kept after validation.
	Events int `json:"events"`

	// Dropped is the number of malformed events skipped.
	Dropped int `json:"dropped"`

	// Suits is the number of suits produced.
	Suits int `json:"suits"`

	// Status is "ok" or "insufficient_evidence".
	Status string `json:"status"`

	// Degraded indicates the interpreter failed and fallbacks were used.
	Degraded bool `json:"degraded"`
}

// SuitRecord is one suit of a run, with its full JSON payload.
type SuitRecord struct {
	RunID   string  `json:"run_id"`
	SuitID  int     `json:"suit_id"`
	Label   string  `json:"label"`
	Mass    float64 `json:"mass"`
	Payload []byte  `json:"-"`
}
