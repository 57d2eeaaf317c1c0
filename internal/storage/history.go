package storage

import (
	"fmt"
	"time"
)

// --- Enhancement history ---

func (s *Store) SaveEnhancement(e Enhancement) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	status := e.Status
	if status == "" {
		status = StatusSucceeded
	}
	_, err := s.db.Exec(`
		INSERT INTO enhancements (id, created_at, model, prompt_id, input_chars, output_chars, duration_ms, status, error_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, createdAt.UTC().Format(timeLayout), e.Model, e.PromptID,
		e.InputChars, e.OutputChars, e.Duration.Milliseconds(), status, e.ErrorKind,
	)
	return err
}

// RecentEnhancements returns up to limit history rows, newest first.
func (s *Store) RecentEnhancements(limit int) ([]Enhancement, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, model, prompt_id, input_chars, output_chars, duration_ms, status, error_kind
		FROM enhancements ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Enhancement
	for rows.Next() {
		var e Enhancement
		var createdAt string
		var durationMS int64
		if err := rows.Scan(&e.ID, &createdAt, &e.Model, &e.PromptID, &e.InputChars, &e.OutputChars, &durationMS, &e.Status, &e.ErrorKind); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		e.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, e)
	}
	return results, rows.Err()
}

func (s *Store) EnhancementStats() (EnhancementStats, error) {
	var st EnhancementStats
	var avgMS float64
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN status = 'succeeded' THEN duration_ms END), 0)
		FROM enhancements`,
	).Scan(&st.Total, &st.Succeeded, &st.Failed, &avgMS)
	if err != nil {
		return EnhancementStats{}, err
	}
	st.AvgDuration = time.Duration(avgMS * float64(time.Millisecond))
	return st, nil
}
