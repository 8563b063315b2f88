package storage

import (
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) SaveExchange(e Exchange) error {
	_, err := s.db.Exec(`
		INSERT INTO exchanges (id, session_id, created_at, user_text, reply, backend, fallback, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.CreatedAt.UTC().Format(time.RFC3339), e.UserText, e.Reply,
		e.Backend, e.Fallback, e.Error, e.Duration.Milliseconds(),
	)
	return err
}

func (s *Store) GetExchange(id string) (Exchange, error) {
	row := s.db.QueryRow(`
		SELECT id, session_id, created_at, user_text, reply, backend, fallback, error, duration_ms
		FROM exchanges WHERE id = ?`, id)
	e, err := scanExchange(row)
	if err == sql.ErrNoRows {
		return Exchange{}, ErrNotFound
	}
	return e, err
}

// ExchangeFilter narrows ListExchanges. Zero values match everything.
type ExchangeFilter struct {
	SessionID    string
	FallbackOnly bool
	Limit        int
}

// ListExchanges returns exchanges newest first.
func (s *Store) ListExchanges(f ExchangeFilter) ([]Exchange, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, session_id, created_at, user_text, reply, backend, fallback, error, duration_ms
		FROM exchanges WHERE 1 = 1`
	var args []any
	if f.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	if f.FallbackOnly {
		query += ` AND fallback = 1`
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Exchange
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// ExchangeStats summarises the audit log.
type ExchangeStats struct {
	Total     int
	Fallbacks int
}

func (s *Store) ExchangeStats() (ExchangeStats, error) {
	var st ExchangeStats
	var fallbacks sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), SUM(fallback) FROM exchanges`).Scan(&st.Total, &fallbacks)
	if err != nil {
		return ExchangeStats{}, err
	}
	st.Fallbacks = int(fallbacks.Int64)
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExchange(r rowScanner) (Exchange, error) {
	var e Exchange
	var createdAt string
	var durationMS int64
	if err := r.Scan(&e.ID, &e.SessionID, &createdAt, &e.UserText, &e.Reply, &e.Backend, &e.Fallback, &e.Error, &durationMS); err != nil {
		return Exchange{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Exchange{}, fmt.Errorf("parsing created_at: %w", err)
	}
	e.CreatedAt = t
	e.Duration = time.Duration(durationMS) * time.Millisecond
	return e, nil
}
