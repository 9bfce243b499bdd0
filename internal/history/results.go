package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShayCichocki/provekit/pkg/models"
)

// Entry is one stored verification result.
type Entry struct {
	ID                 string    `json:"id" yaml:"id"`
	Source             string    `json:"source,omitempty" yaml:"source,omitempty"`
	RecordedAt         time.Time `json:"recorded_at" yaml:"recorded_at"`
	models.ProofResult `yaml:",inline"`
}

// ProverStats summarises stored results for one prover.
type ProverStats struct {
	Prover        models.ProverKind          `json:"prover" yaml:"prover"`
	Total         int                        `json:"total" yaml:"total"`
	ByStatus      map[models.ProofStatus]int `json:"by_status" yaml:"by_status"`
	AvgDurationMs int64                      `json:"avg_duration_ms" yaml:"avg_duration_ms"`
}

type sourceKey struct{}

// WithSource labels results recorded under ctx with the proof's origin,
// usually a file path.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	s, _ := ctx.Value(sourceKey{}).(string)
	return s
}

// Record stores result. It satisfies client.Recorder.
func (db *DB) Record(ctx context.Context, result *models.ProofResult) error {
	if result == nil {
		return errors.New("record: nil result")
	}

	id := uuid.NewString()
	db.mu.Lock()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO results (id, prover, status, message, output, output_truncated, duration_ms, recorded_at, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, result.Prover.String(), result.Status.String(), result.Message, result.ProverOutput,
		result.OutputTruncated, result.DurationMs, formatTime(db.now()), sourceFrom(ctx))
	db.mu.Unlock()
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	db.logger.Debug("recorded result", zap.String("id", id), zap.Stringer("prover", result.Prover))
	return nil
}

// Filter narrows Recent.
type Filter struct {
	Prover *models.ProverKind
	Status *models.ProofStatus
}

// Recent returns up to limit entries, newest first. A non-positive limit
// means 20.
func (db *DB) Recent(ctx context.Context, limit int, filter Filter) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, prover, status, message, output, output_truncated, duration_ms, recorded_at, source
		FROM results WHERE 1=1`
	var args []any
	if filter.Prover != nil {
		query += " AND prover = ?"
		args = append(args, filter.Prover.String())
	}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, filter.Status.String())
	}
	query += " ORDER BY recorded_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Get returns the entry with id, or sql.ErrNoRows.
func (db *DB) Get(ctx context.Context, id string) (*Entry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, prover, status, message, output, output_truncated, duration_ms, recorded_at, source
		FROM results WHERE id = ?
	`, id)
	return scanEntry(row)
}

// Stats aggregates stored results per prover, in prover order.
func (db *DB) Stats(ctx context.Context) ([]ProverStats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT prover, status, COUNT(*), COALESCE(SUM(duration_ms), 0)
		FROM results GROUP BY prover, status
	`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var (
		byKind    [models.ProverKindCount]*ProverStats
		durations [models.ProverKindCount]int64
	)
	for rows.Next() {
		var (
			proverName, statusName string
			count                  int
			totalMs                int64
		)
		if err := rows.Scan(&proverName, &statusName, &count, &totalMs); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		kind, err := models.ParseProverKind(proverName)
		if err != nil {
			continue
		}
		var status models.ProofStatus
		if err := status.UnmarshalText([]byte(statusName)); err != nil {
			status = models.StatusUnknown
		}

		s := byKind[kind]
		if s == nil {
			s = &ProverStats{Prover: kind, ByStatus: make(map[models.ProofStatus]int)}
			byKind[kind] = s
		}
		s.Total += count
		s.ByStatus[status] += count
		durations[kind] += totalMs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []ProverStats
	for kind, s := range byKind {
		if s == nil {
			continue
		}
		s.AvgDurationMs = durations[kind] / int64(s.Total)
		out = append(out, *s)
	}
	return out, nil
}

// Purge deletes results recorded more than olderThan ago and returns how
// many were removed.
func (db *DB) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(db.now().Add(-olderThan))

	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.ExecContext(ctx, "DELETE FROM results WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge results: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e                      Entry
		proverName, statusName string
		recordedAt             string
	)
	err := s.Scan(&e.ID, &proverName, &statusName, &e.Message, &e.ProverOutput,
		&e.OutputTruncated, &e.DurationMs, &recordedAt, &e.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan result: %w", err)
	}

	if e.Prover, err = models.ParseProverKind(proverName); err != nil {
		return nil, fmt.Errorf("result %s: %w", e.ID, err)
	}
	if err := e.Status.UnmarshalText([]byte(statusName)); err != nil {
		return nil, fmt.Errorf("result %s: %w", e.ID, err)
	}
	if e.RecordedAt, err = parseTime(recordedAt); err != nil {
		return nil, fmt.Errorf("result %s: parse recorded_at: %w", e.ID, err)
	}
	return &e, nil
}
