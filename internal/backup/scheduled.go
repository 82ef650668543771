package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	snapshotPrefix = "mediastack-backup-"
	snapshotSuffix = ".db"

	// DefaultSnapshotInterval is how often a new database snapshot is
	// taken when the operator has not configured one.
	DefaultSnapshotInterval = 24 * time.Hour

	// DefaultSnapshotKeep bounds the rolling snapshot set.
	DefaultSnapshotKeep = 10
)

// Snapshotter writes rolling copies of the database file. The worker ticks
// every minute; RunIfDue decides whether a snapshot is actually taken.
type Snapshotter struct {
	db       *sql.DB
	dir      string
	interval time.Duration
	keep     int
	logger   zerolog.Logger
}

// NewSnapshotter creates a snapshotter writing into dir.
func NewSnapshotter(db *sql.DB, dir string, interval time.Duration, keep int, logger zerolog.Logger) *Snapshotter {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	if keep <= 0 {
		keep = DefaultSnapshotKeep
	}
	return &Snapshotter{
		db:       db,
		dir:      dir,
		interval: interval,
		keep:     keep,
		logger:   logger.With().Str("component", "backup").Logger(),
	}
}

// RunIfDue takes a snapshot when the newest existing one is older than the
// configured interval, then prunes the set.
func (s *Snapshotter) RunIfDue(ctx context.Context) error {
	newest, err := s.newestSnapshot()
	if err != nil {
		return err
	}
	if !newest.IsZero() && time.Since(newest) < s.interval {
		return nil
	}
	return s.Run(ctx)
}

// Run unconditionally takes a snapshot and prunes old ones. VACUUM INTO
// produces a consistent single-file copy without blocking writers.
func (s *Snapshotter) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	name := snapshotPrefix + time.Now().UTC().Format("2006-01-02T15-04-05Z") + snapshotSuffix
	target := filepath.Join(s.dir, name)
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		return fmt.Errorf("database snapshot: %w", err)
	}
	s.logger.Info().Str("file", name).Msg("Database snapshot written")

	return s.prune()
}

// List returns existing snapshot file names, newest first.
func (s *Snapshotter) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		names = append(names, name)
	}
	// Timestamps in the name sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// newestSnapshot returns the timestamp of the most recent snapshot, zero
// when none exist.
func (s *Snapshotter) newestSnapshot() (time.Time, error) {
	names, err := s.List()
	if err != nil || len(names) == 0 {
		return time.Time{}, err
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(names[0], snapshotPrefix), snapshotSuffix)
	t, err := time.Parse("2006-01-02T15-04-05Z", stamp)
	if err != nil {
		// Unparseable names only force an extra snapshot.
		return time.Time{}, nil
	}
	return t, nil
}

func (s *Snapshotter) prune() error {
	names, err := s.List()
	if err != nil {
		return err
	}
	for _, name := range names[min(len(names), s.keep):] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Failed to prune snapshot")
		}
	}
	return nil
}
