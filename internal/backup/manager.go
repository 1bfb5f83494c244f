package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ksred/tradeplan/internal/trace"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// ErrSourceMissing is returned when the database to snapshot does not exist.
var ErrSourceMissing = errors.New("database file not found")

const (
	filePrefix   = "data_backup_"
	timestampFmt = "20060102_150405"
	copyExt      = ".db3"
	archiveExt   = ".zip"
)

// Snapshot is a verified copy of the database taken before a mutation.
type Snapshot struct {
	CopyPath    string `json:"copy_path"`
	ArchivePath string `json:"archive_path"`
	Size        int64  `json:"size"`
	CRC32       uint32 `json:"crc32"`
	// MirrorURL is set when the archive was also uploaded.
	MirrorURL string `json:"mirror_url,omitempty"`
}

// Cleanup removes the unzipped copy and keeps the archive. Call it once the
// run the snapshot protects has succeeded.
func (s *Snapshot) Cleanup() error {
	if s == nil || s.CopyPath == "" {
		return nil
	}
	if err := os.Remove(s.CopyPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove backup copy: %w", err)
	}
	return nil
}

// Manager takes snapshots of one database file.
type Manager struct {
	source string
	dir    string
	mirror Mirror
	runID  string
	now    func() time.Time
}

type Option func(*Manager)

// WithMirror uploads every verified archive through m.
func WithMirror(m Mirror) Option {
	return func(mgr *Manager) { mgr.mirror = m }
}

// WithRunID records id in the archive comment.
func WithRunID(id string) Option {
	return func(mgr *Manager) { mgr.runID = id }
}

// WithClock replaces time.Now for artifact names.
func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

func NewManager(source, dir string, opts ...Option) *Manager {
	m := &Manager{source: source, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create copies the database to <dir>/data_backup_<timestamp>.db3, zips it
// next to the copy and verifies the zip. On any failure both artifacts are
// removed. A mirror failure is logged and does not fail the snapshot.
func (m *Manager) Create(ctx context.Context) (snap *Snapshot, err error) {
	ctx, span := trace.StartSpan(ctx, "backup.Create", attribute.String("source", m.source))
	defer func() { trace.End(span, err) }()

	logger := log.With().Str("service", "backup").Str("source", m.source).Logger()

	info, err := os.Stat(m.source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, m.source)
		}
		return nil, fmt.Errorf("stat %s: %w", m.source, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceMissing, m.source)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	base := filePrefix + m.now().Format(timestampFmt)
	copyPath := filepath.Join(m.dir, base+copyExt)
	archivePath := filepath.Join(m.dir, base+archiveExt)
	if _, statErr := os.Stat(archivePath); statErr == nil {
		return nil, fmt.Errorf("backup %s already exists", archivePath)
	}

	defer func() {
		if err != nil {
			os.Remove(copyPath)
			os.Remove(archivePath)
		}
	}()

	snap = &Snapshot{CopyPath: copyPath, ArchivePath: archivePath}
	if snap.Size, snap.CRC32, err = copyFile(m.source, snap.CopyPath); err != nil {
		return nil, fmt.Errorf("copy database: %w", err)
	}

	comment := ""
	if m.runID != "" {
		comment = "run " + m.runID
	}
	if err = writeArchive(snap.CopyPath, snap.ArchivePath, comment); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}
	if err = verifyArchive(snap.ArchivePath, filepath.Base(snap.CopyPath), snap.Size, snap.CRC32); err != nil {
		return nil, fmt.Errorf("verify archive: %w", err)
	}

	logger.Info().
		Str("archive", snap.ArchivePath).
		Int64("bytes", snap.Size).
		Msg("snapshot verified")

	if m.mirror != nil {
		url, mirrorErr := m.mirror.Upload(ctx, snap.ArchivePath)
		if mirrorErr != nil {
			logger.Warn().Err(mirrorErr).Msg("archive not mirrored, local snapshot kept")
		} else {
			snap.MirrorURL = url
			logger.Info().Str("url", url).Msg("archive mirrored")
		}
	}
	return snap, nil
}

// IsArchive reports whether name looks like an archive this package wrote.
func IsArchive(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, archiveExt)
}
