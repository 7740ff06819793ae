package watchlist

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// RefreshLog records when each source was last downloaded successfully.
// Every successful download appends one RFC 3339 UTC line to
// <dir>/<source>_refresh.log; the files are append-only.
type RefreshLog struct {
	dir string
}

// NewRefreshLog creates a refresh log rooted at dir.
func NewRefreshLog(dir string) *RefreshLog {
	return &RefreshLog{dir: dir}
}

func (l *RefreshLog) path(source string) string {
	return filepath.Join(l.dir, source+"_refresh.log")
}

// Append records a successful download at the given instant.
func (l *RefreshLog) Append(source string, at time.Time) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return eris.Wrap(err, "watchlist: create log dir")
	}
	f, err := os.OpenFile(l.path(source), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "watchlist: open refresh log for %s", source)
	}
	defer f.Close() //nolint:errcheck
	if _, err := f.WriteString(at.UTC().Format(time.RFC3339) + "\n"); err != nil {
		return eris.Wrapf(err, "watchlist: append refresh log for %s", source)
	}
	return nil
}

// Last returns the most recent non-blank line for a source, or "" when the
// source has never been refreshed.
func (l *RefreshLog) Last(source string) string {
	data, err := os.ReadFile(l.path(source))
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}

// LastTime parses the most recent entry. ok is false when the log is
// missing, empty or unparseable.
func (l *RefreshLog) LastTime(source string) (time.Time, bool) {
	s := l.Last(source)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
