package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/weave/internal/opt"
)

// Run records one compile of a fragment.
type Run struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Fragment    string    `json:"fragment"`
	Fingerprint string    `json:"fingerprint"`
	Lanes       int       `json:"lanes"`
	ArtifactKey string    `json:"artifact_key"`
	CacheHit    bool      `json:"cache_hit"`
	Stats       opt.Stats `json:"stats"`
	StartedAt   time.Time `json:"started_at"`
}

// RecordRun inserts r. An empty ID is filled from the run ID generator
// and StartedAt from the store clock. Seq is assigned by the database.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: recording an existing
// ID returns the stored row and inserted=false.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, bool, error) {
	if r.ID == "" {
		r.ID = s.ids.Generate()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = s.now()
	}
	statsJSON, err := marshalStats(r.Stats)
	if err != nil {
		return Run{}, false, fmt.Errorf("record run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, false, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, fragment, fingerprint, lanes, artifact_key, cache_hit, stats, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.Fragment,
		r.Fingerprint,
		r.Lanes,
		r.ArtifactKey,
		r.CacheHit,
		statsJSON,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, false, fmt.Errorf("record run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Run{}, false, fmt.Errorf("record run: rows affected: %w", err)
	}

	stored, err := scanRun(tx.QueryRowContext(ctx, runColumns+` WHERE id = ?`, r.ID))
	if err != nil {
		return Run{}, false, fmt.Errorf("record run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, false, fmt.Errorf("record run: commit: %w", err)
	}
	return stored, n > 0, nil
}

const runColumns = `
	SELECT seq, id, fragment, fingerprint, lanes, artifact_key, cache_hit, stats, started_at
	FROM runs`

// ReadRun returns the run with the given ID, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, runColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

// ReadRuns returns the most recent runs, oldest first. An empty fragment
// selects every fragment; limit <= 0 means no limit.
func (s *Store) ReadRuns(ctx context.Context, fragment string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (`+runColumns+`
			WHERE ? = '' OR fragment = ?
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, fragment, fragment, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// CacheHitRate returns the fraction of recorded runs served from the
// artifact cache, and the number of runs considered.
func (s *Store) CacheHitRate(ctx context.Context) (float64, int64, error) {
	var total, hits int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(cache_hit), 0) FROM runs`).Scan(&total, &hits)
	if err != nil {
		return 0, 0, fmt.Errorf("cache hit rate: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(hits) / float64(total), total, nil
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var statsJSON, started string
	if err := row.Scan(&r.Seq, &r.ID, &r.Fragment, &r.Fingerprint, &r.Lanes, &r.ArtifactKey, &r.CacheHit, &statsJSON, &started); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	stats, err := unmarshalStats(statsJSON)
	if err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", r.ID, err)
	}
	r.Stats = stats
	t, err := parseTimestamp(started)
	if err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", r.ID, err)
	}
	r.StartedAt = t
	return r, nil
}
