package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// --- Custom prompts ---

// InsertCustomPrompt stores a new custom prompt. A clash on id or label
// yields ErrDuplicate.
func (s *Store) InsertCustomPrompt(p CustomPrompt) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO custom_prompts (id, label, body, capture_clipboard, capture_selection, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Label, p.Body, p.CaptureClipboard, p.CaptureSelection,
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("custom prompt %q: %w", p.Label, ErrDuplicate)
	}
	return err
}

func (s *Store) GetCustomPrompt(id string) (CustomPrompt, error) {
	row := s.db.QueryRow(`
		SELECT id, label, body, capture_clipboard, capture_selection, created_at
		FROM custom_prompts WHERE id = ?`, id,
	)
	p, err := scanCustomPrompt(row)
	if err == sql.ErrNoRows {
		return CustomPrompt{}, ErrNotFound
	}
	return p, err
}

// ListCustomPrompts returns all custom prompts, oldest first.
func (s *Store) ListCustomPrompts() ([]CustomPrompt, error) {
	rows, err := s.db.Query(`
		SELECT id, label, body, capture_clipboard, capture_selection, created_at
		FROM custom_prompts ORDER BY created_at ASC, rowid ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CustomPrompt
	for rows.Next() {
		p, err := scanCustomPrompt(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// DeleteCustomPrompt removes the prompt with the given id, or returns
// ErrNotFound.
func (s *Store) DeleteCustomPrompt(id string) error {
	res, err := s.db.Exec(`DELETE FROM custom_prompts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomPrompt(sc scanner) (CustomPrompt, error) {
	var p CustomPrompt
	var createdAt string
	if err := sc.Scan(&p.ID, &p.Label, &p.Body, &p.CaptureClipboard, &p.CaptureSelection, &createdAt); err != nil {
		return CustomPrompt{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return CustomPrompt{}, fmt.Errorf("parsing created_at: %w", err)
	}
	p.CreatedAt = t
	return p, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
