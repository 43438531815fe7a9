package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/roach88/weave/internal/ir"
)

// Artifact is the emitted text for one fragment at one lane count.
type Artifact struct {
	Key              string    `json:"key"`
	Fingerprint      string    `json:"fingerprint"`
	Lanes            int       `json:"lanes"`
	Fragment         string    `json:"fragment"`
	Decls            string    `json:"-"`
	Body             string    `json:"-"`
	GeneratorVersion string    `json:"generator_version"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewArtifact fills in the key and generator version for emitted text.
func NewArtifact(fragment, fingerprint string, lanes int, decls, body string) Artifact {
	return Artifact{
		Key:              ir.ArtifactKey(fingerprint, lanes),
		Fingerprint:      fingerprint,
		Lanes:            lanes,
		Fragment:         fragment,
		Decls:            decls,
		Body:             body,
		GeneratorVersion: ir.GeneratorVersion,
	}
}

// PutArtifact stores a. Uses ON CONFLICT(key) DO NOTHING: the key is
// content-addressed, so an existing row already holds the same text.
// CreatedAt is taken from the store clock when zero.
func (s *Store) PutArtifact(ctx context.Context, a Artifact) (inserted bool, err error) {
	if a.Key == "" {
		return false, fmt.Errorf("put artifact: empty key")
	}
	created := s.timestamp()
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts
		(key, fingerprint, lanes, fragment, decls, body, generator_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`,
		a.Key,
		a.Fingerprint,
		a.Lanes,
		a.Fragment,
		a.Decls,
		a.Body,
		a.GeneratorVersion,
		created,
	)
	if err != nil {
		return false, fmt.Errorf("put artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put artifact: rows affected: %w", err)
	}
	return n > 0, nil
}

// GetArtifact returns the artifact stored under key, or ErrNotFound.
func (s *Store) GetArtifact(ctx context.Context, key string) (Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, fingerprint, lanes, fragment, decls, body, generator_version, created_at
		FROM artifacts
		WHERE key = ?
	`, key)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, fmt.Errorf("artifact %s: %w", key, ErrNotFound)
	}
	return a, err
}

// LookupArtifact returns the artifact for a fingerprint and lane count
// under the current generator version.
func (s *Store) LookupArtifact(ctx context.Context, fingerprint string, lanes int) (Artifact, error) {
	return s.GetArtifact(ctx, ir.ArtifactKey(fingerprint, lanes))
}

// ListArtifacts returns every artifact ordered by fragment name, lane
// count and key.
func (s *Store) ListArtifacts(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, fingerprint, lanes, fragment, decls, body, generator_version, created_at
		FROM artifacts
		ORDER BY fragment COLLATE BINARY ASC, lanes ASC, key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// PruneArtifacts deletes artifacts emitted by generator versions older
// than keep and returns how many were deleted. Artifacts whose version
// does not parse are deleted too; newer versions are kept.
func (s *Store) PruneArtifacts(ctx context.Context, keep string) (int64, error) {
	floor, err := semver.NewVersion(keep)
	if err != nil {
		return 0, fmt.Errorf("prune artifacts: keep version %q: %w", keep, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT generator_version FROM artifacts`)
	if err != nil {
		return 0, fmt.Errorf("prune artifacts: %w", err)
	}
	var stale []string
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return 0, fmt.Errorf("prune artifacts: scan version: %w", err)
		}
		v, err := semver.NewVersion(version)
		if err != nil || v.LessThan(floor) {
			stale = append(stale, version)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("prune artifacts: %w", err)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("prune artifacts: %w", err)
	}

	var total int64
	for _, version := range stale {
		res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE generator_version = ?`, version)
		if err != nil {
			return total, fmt.Errorf("prune artifacts: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("prune artifacts: rows affected: %w", err)
		}
		total += n
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var a Artifact
	var created string
	if err := row.Scan(&a.Key, &a.Fingerprint, &a.Lanes, &a.Fragment, &a.Decls, &a.Body, &a.GeneratorVersion, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artifact{}, err
		}
		return Artifact{}, fmt.Errorf("scan artifact: %w", err)
	}
	t, err := parseTimestamp(created)
	if err != nil {
		return Artifact{}, fmt.Errorf("scan artifact: %w", err)
	}
	a.CreatedAt = t
	return a, nil
}
