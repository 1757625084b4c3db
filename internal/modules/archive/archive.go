package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/spreadscan/internal/modules/scan"
)

// Uploader copies an encoded snapshot to remote storage.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

// Archive writes snapshots under a local directory and mirrors them to an Uploader when set.
type Archive struct {
	dir      string
	uploader Uploader
	log      zerolog.Logger
}

// New creates an archive rooted at dir. uploader may be nil.
func New(dir string, uploader Uploader, log zerolog.Logger) *Archive {
	return &Archive{
		dir:      dir,
		uploader: uploader,
		log:      log.With().Str("component", "archive").Logger(),
	}
}

// ObjectKey returns the remote key of a run, e.g. "scans/cl-calendars/<run id>.msgpack".
func ObjectKey(name, runID string) string {
	return fmt.Sprintf("scans/%s/%s.msgpack", name, runID)
}

// Store encodes the result and writes it to <dir>/<name>-<runID>.msgpack, then uploads it.
// It returns the local path.
func (a *Archive) Store(ctx context.Context, res *scan.Result) (string, error) {
	if res.RunID == "" {
		return "", fmt.Errorf("cannot archive scan %s without a run id", res.Name)
	}

	body, err := msgpack.Marshal(NewSnapshot(res))
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := filepath.Join(a.dir, fmt.Sprintf("%s-%s.msgpack", res.Name, res.RunID))
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	if a.uploader != nil {
		key := ObjectKey(res.Name, res.RunID)
		if err := a.uploader.Upload(ctx, key, body); err != nil {
			return path, fmt.Errorf("failed to upload snapshot %s: %w", key, err)
		}
		a.log.Debug().Str("key", key).Msg("Uploaded snapshot")
	}

	a.log.Info().
		Str("scan", res.Name).
		Str("run_id", res.RunID).
		Int("matches", len(res.Matches)).
		Str("path", path).
		Msg("Archived scan result")

	return path, nil
}

// List returns the local snapshot paths of a scan in file name order.
// An empty name lists every snapshot.
func (a *Archive) List(name string) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".msgpack" {
			continue
		}
		if name != "" && !strings.HasPrefix(e.Name(), name+"-") {
			continue
		}
		out = append(out, filepath.Join(a.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Latest loads the most recently started snapshot of a scan. It returns nil when the
// scan has no snapshots.
func (a *Archive) Latest(name string) (*Snapshot, error) {
	paths, err := a.List(name)
	if err != nil {
		return nil, err
	}

	var latest *Snapshot
	for _, path := range paths {
		snap, err := Load(path)
		if err != nil {
			a.log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable snapshot")
			continue
		}
		if snap.Name != name {
			continue
		}
		if latest == nil || snap.StartedAt.After(latest.StartedAt) {
			latest = snap
		}
	}
	return latest, nil
}

// MinSnapshotsToKeep is the number of newest snapshots per scan that Prune never removes.
const MinSnapshotsToKeep = 3

// Prune deletes local snapshots last written before cutoff, keeping the newest
// MinSnapshotsToKeep of each scan regardless of age. It returns the number deleted.
func (a *Archive) Prune(cutoff time.Time) (int, error) {
	paths, err := a.List("")
	if err != nil {
		return 0, err
	}

	type entry struct {
		path    string
		modTime time.Time
	}
	byScan := make(map[string][]entry)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		name := scanName(filepath.Base(path))
		byScan[name] = append(byScan[name], entry{path: path, modTime: info.ModTime()})
	}

	deleted := 0
	for name, entries := range byScan {
		sort.Slice(entries, func(i, j int) bool { return entries[i].modTime.After(entries[j].modTime) })

		for i, e := range entries {
			if i < MinSnapshotsToKeep || !e.modTime.Before(cutoff) {
				continue
			}
			if err := os.Remove(e.path); err != nil {
				a.log.Error().Err(err).Str("path", e.path).Msg("Failed to delete old snapshot")
				continue
			}
			a.log.Debug().Str("scan", name).Str("path", e.path).Msg("Deleted old snapshot")
			deleted++
		}
	}

	a.log.Info().Int("deleted", deleted).Time("cutoff", cutoff).Msg("Archive pruned")
	return deleted, nil
}

// scanName strips the "-<run id>.msgpack" suffix from a snapshot file name.
func scanName(base string) string {
	base = strings.TrimSuffix(base, ".msgpack")
	// run ids are 36-character uuids
	if i := len(base) - 37; i > 0 && base[i] == '-' {
		return base[:i]
	}
	return base
}

// Load decodes a snapshot file.
func Load(path string) (*Snapshot, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}
