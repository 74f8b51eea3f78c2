package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"swing-trader/internal/errors"
)

// Freshness is the staleness verdict for a snapshot directory.
type Freshness struct {
	SnapshotAt time.Time
	Age        time.Duration
	Stale      bool
}

// ReadManifest loads the manifest from a snapshot directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// CheckFreshness reads the manifest under dir and compares its snapshot
// time against the staleness budget. A stale snapshot returns both the
// verdict and ErrSnapshotStale so callers can branch or bubble up.
func CheckFreshness(dir string, staleAfter time.Duration, now time.Time) (*Freshness, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	at, err := time.Parse(time.RFC3339, m.SnapshotISO)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot_iso %q: %w", m.SnapshotISO, err)
	}

	f := &Freshness{
		SnapshotAt: at,
		Age:        now.Sub(at),
	}
	if f.Age > staleAfter {
		f.Stale = true
		return f, errors.ErrSnapshotStale
	}
	return f, nil
}
