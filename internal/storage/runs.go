package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RecordRun stores a run summary and its suits in one transaction.
func (s *SQLiteStorage) RecordRun(run RunRecord, suits []SuitRecord) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	degraded := 0
	if run.Degraded {
		degraded = 1
	}
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO runs (run_id, started_at, input, config_hash, events, dropped, suits, status, degraded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Input,
		run.ConfigHash,
		run.Events,
		run.Dropped,
		run.Suits,
		run.Status,
		degraded,
	); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for _, suit := range suits {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO run_suits (run_id, suit_id, label, mass, payload)
			VALUES (?, ?, ?, ?, ?)
		`, run.RunID, suit.SuitID, suit.Label, suit.Mass, suit.Payload); err != nil {
			return fmt.Errorf("failed to record suit %d: %w", suit.SuitID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) ListRuns(limit int) ([]RunRecord, error) {
	if !s.enabled || s.db == nil {
		return []RunRecord{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT run_id, started_at, input, config_hash, events, dropped, suits, status, degraded
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var started string
		var degraded int
		if err := rows.Scan(&run.RunID, &started, &run.Input, &run.ConfigHash,
			&run.Events, &run.Dropped, &run.Suits, &run.Status, &degraded); err != nil {
			s.logger.Warn("failed to scan run row", zap.Error(err))
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			run.StartedAt = t
		}
		run.Degraded = degraded == 1
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunSuits returns the suits of a run ordered by suit id.
func (s *SQLiteStorage) GetRunSuits(runID string) ([]SuitRecord, error) {
	if !s.enabled || s.db == nil {
		return []SuitRecord{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT run_id, suit_id, label, mass, payload
		FROM run_suits
		WHERE run_id = ?
		ORDER BY suit_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query suits: %w", err)
	}
	defer rows.Close()

	var suits []SuitRecord
	for rows.Next() {
		var suit SuitRecord
		if err := rows.Scan(&suit.RunID, &suit.SuitID, &suit.Label, &suit.Mass, &suit.Payload); err != nil {
			s.logger.Warn("failed to scan suit row", zap.Error(err))
			continue
		}
		suits = append(suits, suit)
	}
	return suits, rows.Err()
}

// GetInterpretation returns a cached payload for key.
func (s *SQLiteStorage) GetInterpretation(key string) ([]byte, bool, error) {
	if !s.enabled || s.db == nil {
		return nil, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM interpretation_cache WHERE cache_key = ?", key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	return payload, true, nil
}

// SaveInterpretation stores payload under key.
func (s *SQLiteStorage) SaveInterpretation(key, model string, payload []byte) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO interpretation_cache (cache_key, model, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, key, model, payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.logger.Warn("failed to cache interpretation", zap.Error(err))
	}
	return nil
}

// Cleanup removes runs and cache entries older than retention.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)

	if _, err := s.db.Exec("DELETE FROM run_suits WHERE run_id IN (SELECT run_id FROM runs WHERE started_at < ?)", cutoff); err != nil {
		s.logger.Warn("failed to cleanup run_suits", zap.Error(err))
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE started_at < ?", cutoff); err != nil {
		s.logger.Warn("failed to cleanup runs", zap.Error(err))
	}
	if _, err := s.db.Exec("DELETE FROM interpretation_cache WHERE created_at < ?", cutoff); err != nil {
		s.logger.Warn("failed to cleanup interpretation_cache", zap.Error(err))
	}

	// Vacuum to reclaim space
	if _, err := s.db.Exec("VACUUM"); err != nil {
		s.logger.Warn("failed to vacuum database", zap.Error(err))
	}

	return nil
}
