package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/khanglvm/history-suits/internal/storage"
)

// Recorder persists finished runs. storage.Storage satisfies it.
type Recorder interface {
	RecordRun(run storage.RunRecord, suits []storage.SuitRecord) error
}

// Record stores res with its suits as JSON payloads.
func Record(rec Recorder, res *Result, input, configHash string, startedAt time.Time) error {
	run := storage.RunRecord{
		RunID:      res.RunID,
		StartedAt:  startedAt,
		Input:      input,
		ConfigHash: configHash,
		Events:     res.Stats.Events,
		Dropped:    res.Stats.Dropped,
		Suits:      len(res.Suits),
		Status:     res.Status,
		Degraded:   res.Degraded,
	}

	records := make([]storage.SuitRecord, 0, len(res.Suits))
	for _, s := range res.Suits {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to encode suit %d: %w", s.ID, err)
		}
		records = append(records, storage.SuitRecord{
			RunID:   res.RunID,
			SuitID:  s.ID,
			Label:   s.Label,
			Mass:    s.Mass,
			Payload: payload,
		})
	}
	return rec.RecordRun(run, records)
}
