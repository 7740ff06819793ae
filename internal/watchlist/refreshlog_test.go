package watchlist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshLog_AppendAndLast(t *testing.T) {
	log := NewRefreshLog(filepath.Join(t.TempDir(), "logs"))

	first := time.Date(2026, 8, 18, 6, 0, 0, 0, time.UTC)
	second := time.Date(2026, 8, 19, 6, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append("ofac_sdn", first))
	require.NoError(t, log.Append("ofac_sdn", second))

	assert.Equal(t, "2026-08-19T06:00:00Z", log.Last("ofac_sdn"))

	got, ok := log.LastTime("ofac_sdn")
	require.True(t, ok)
	assert.Equal(t, second, got)

	// each source keeps its own file
	assert.Empty(t, log.Last("uk"))
}

func TestRefreshLog_MissingAndUnparseable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log := NewRefreshLog(dir)

	_, ok := log.LastTime("never")
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_refresh.log"), []byte("not a timestamp\n"), 0o644))
	assert.Equal(t, "not a timestamp", log.Last("bad"))
	_, ok = log.LastTime("bad")
	assert.False(t, ok)
}

func TestRefreshLog_SkipsBlankTrailingLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log := NewRefreshLog(dir)
	require.NoError(t, log.Append("eu", time.Date(2026, 8, 19, 6, 0, 0, 0, time.UTC)))

	// the file ends with a newline; Last must skip past it
	assert.Equal(t, "2026-08-19T06:00:00Z", log.Last("eu"))
}
