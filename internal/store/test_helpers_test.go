package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/weave/internal/opt"
	"github.com/roach88/weave/internal/testutil"
)

// createTestStore opens a fresh store in a temp dir with a deterministic
// clock and a sequence of fixed run IDs.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	clock := testutil.NewDeterministicClock()
	all := append([]Option{WithClock(clock.Now)}, opts...)
	s, err := Open(path, all...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestArtifact creates an artifact with minimal emitted text.
func createTestArtifact(fragment, fingerprint string, lanes int) Artifact {
	return NewArtifact(fragment, fingerprint, lanes, "int x;\n", "{\n}\n")
}

// createTestRun creates a run for an artifact.
func createTestRun(id string, a Artifact, hit bool) Run {
	return Run{
		ID:          id,
		Fragment:    a.Fragment,
		Fingerprint: a.Fingerprint,
		Lanes:       a.Lanes,
		ArtifactKey: a.Key,
		CacheHit:    hit,
		Stats:       opt.Stats{NormalRounds: 2, FinalRounds: 1, BlocksBefore: 5, BlocksAfter: 3, Removed: 2, Folds: 2},
	}
}
