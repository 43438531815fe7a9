package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weave/internal/store"
)

// seedCache compiles the loop fragment twice for two lanes and once for
// four, leaving two artifacts and three runs (one cache hit).
func seedCache(t *testing.T) string {
	t.Helper()
	path := writeFragment(t, "loop.yaml", loopYAML)
	db := filepath.Join(t.TempDir(), "weave.db")
	for _, lanes := range []string{"2", "2", "4"} {
		_, err := execute(t, "compile", path, "--lanes", lanes, "--cache", db)
		require.NoError(t, err)
	}
	return db
}

func TestCache_List(t *testing.T) {
	db := seedCache(t)

	out, err := execute(t, "--format", "json", "cache", "list", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data []ArtifactSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Data[0].Lanes)
	assert.Equal(t, 4, resp.Data[1].Lanes)
	assert.Equal(t, "loop", resp.Data[0].Fragment)
	assert.Positive(t, resp.Data[0].Size)
}

func TestCache_Runs(t *testing.T) {
	db := seedCache(t)

	out, err := execute(t, "--format", "json", "cache", "runs", "--db", db)
	require.NoError(t, err)
	var resp struct {
		Data []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)
	assert.False(t, resp.Data[0].CacheHit)
	assert.True(t, resp.Data[1].CacheHit)
	assert.Equal(t, 4, resp.Data[2].Lanes)
	assert.Equal(t, 3, resp.Data[0].Stats.BlocksBefore)

	out, err = execute(t, "cache", "runs", "--db", db, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[3] ")
	assert.Contains(t, out, "lanes=4  emitted  3 -> 2 block(s)")
	assert.NotContains(t, out, "[1] ")

	out, err = execute(t, "cache", "runs", "--db", db, "--fragment", "probe")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestCache_Stats(t *testing.T) {
	db := seedCache(t)

	out, err := execute(t, "cache", "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Artifacts: 2\n")
	assert.Contains(t, out, "Runs: 3\n")
	assert.Contains(t, out, "Hit rate: 33.3%")
}

func TestCache_Prune(t *testing.T) {
	db := seedCache(t)

	out, err := execute(t, "cache", "prune", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Pruned 0 artifact(s)")

	out, err = execute(t, "cache", "prune", "--db", db, "--keep", "99.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Pruned 2 artifact(s) older than generator 99.0.0")

	out, err = execute(t, "cache", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No cached artifacts.")
}

func TestCache_MissingDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "none.db")

	out, err := execute(t, "cache", "list", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")

	_, err = execute(t, "cache", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}
