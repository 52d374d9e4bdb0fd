// Package reportstore persists rendered reports next to a DuckDB index and
// guarantees that no two index entries share a storage path.
package reportstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/bigsql/pgadmin4/internal/constants"
	"github.com/bigsql/pgadmin4/internal/database"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/render"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/safe"
	"github.com/bigsql/pgadmin4/internal/session"
)

// StoredReport is an index entry.
type StoredReport = database.SavedReport

// lockStripes bounds the per-name allocation locks.
const lockStripes = 64

// Store writes report artifacts into one directory and indexes them.
type Store struct {
	db       *database.Database
	dir      string
	renderer render.Renderer
	logger   zerolog.Logger
	now      func() time.Time
	maxRead  int64

	locks [lockStripes]sync.Mutex
	// commits is held shared by Save from file creation to index commit and
	// exclusively by Sweep, so Sweep never sees a written but unindexed file.
	commits sync.RWMutex

	// written runs after the artifact is on disk and before the index commit.
	written func(path string)
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for path timestamps and created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxReadSize bounds Read.
func WithMaxReadSize(n int64) Option {
	return func(s *Store) { s.maxRead = n }
}

// New creates the artifact directory if needed.
func New(db *database.Database, dir string, renderer render.Renderer, logger zerolog.Logger, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, pgerrors.E(pgerrors.KindStorage, "reportstore.New", fmt.Errorf("failed to create report directory: %w", err))
	}
	s := &Store{
		db:       db,
		dir:      dir,
		renderer: renderer,
		logger:   logger.With().Str("component", "report_store").Logger(),
		now:      time.Now,
		maxRead:  constants.MaxReportSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir is the artifact directory.
func (s *Store) Dir() string { return s.dir }

// SaveRequest carries everything Save records about a run.
type SaveRequest struct {
	Report          *report.Report
	Config          session.ReportConfig
	DatabaseName    string
	IsDirect        bool
	DurationSeconds float64
}

// Save renders req.Report and registers it. The artifact path is derived
// from the report name and the current minute; taken paths get the next
// free suffix. The file write and the index insert succeed or fail together.
func (s *Store) Save(ctx context.Context, req SaveRequest) (*StoredReport, error) {
	const op = "reportstore.Save"
	if req.Report == nil {
		return nil, pgerrors.Errorf(pgerrors.KindStorage, op, "no report to save")
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, req.Report, render.Meta{
		Config:       req.Config,
		DatabaseName: req.DatabaseName,
		IsDirect:     req.IsDirect,
		GeneratedAt:  s.now(),
	}); err != nil {
		return nil, pgerrors.E(pgerrors.KindStorage, op, err)
	}
	data := buf.Bytes()

	s.commits.RLock()
	defer s.commits.RUnlock()

	mu := s.lockFor(req.Config.Name)
	mu.Lock()
	defer mu.Unlock()

	createdAt := s.now().UTC().Truncate(time.Microsecond)
	base := baseName(req.Config.Name, createdAt)

	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.dir, fileName(base, n, s.renderer.Extension()))
		taken, err := s.pathTaken(ctx, path)
		if err != nil {
			return nil, pgerrors.E(pgerrors.KindStorage, op, err)
		}
		if taken {
			continue
		}

		entry := &StoredReport{
			Name:            req.Config.Name,
			IsDirect:        req.IsDirect,
			DatabaseName:    req.DatabaseName,
			CreatedAt:       createdAt,
			DurationSeconds: req.DurationSeconds,
			StoragePath:     path,
			Format:          s.renderer.Format(),
			SizeBytes:       int64(len(data)),
			Checksum:        checksum(data),
		}
		err = s.commit(ctx, entry, data)
		if errors.Is(err, fs.ErrExist) {
			// Another writer created the file after our check.
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Str("path", path).Str("name", entry.Name).Msg("Failed to save report")
			return nil, pgerrors.E(pgerrors.KindStorage, op, err)
		}

		s.logger.Info().
			Int64("report_id", entry.ID).
			Str("path", path).
			Str("name", entry.Name).
			Msg("Report saved")
		return entry, nil
	}
}

func (s *Store) pathTaken(ctx context.Context, path string) (bool, error) {
	indexed, err := s.db.PathExists(ctx, path)
	if err != nil || indexed {
		return indexed, err
	}
	_, err = os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
}

// commit writes data to a new file at entry.StoragePath and inserts entry in
// one transaction. Any failure removes the file and rolls the index back.
func (s *Store) commit(ctx context.Context, entry *StoredReport, data []byte) (err error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer pgerrors.DeferRollback(s.logger, tx)

	entry.ID, err = s.db.NextReportID(ctx, tx)
	if err != nil {
		return err
	}

	f, err := safe.CreateExclusive(entry.StoragePath, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			pgerrors.RemoveFile(s.logger, entry.StoragePath)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report file: %w", err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync report file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if s.written != nil {
		s.written(entry.StoragePath)
	}

	if err = s.db.InsertSavedReportTx(ctx, tx, entry); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report index: %w", err)
	}
	return nil
}

// List returns index entries newest first.
func (s *Store) List(ctx context.Context, filter database.ReportFilter) ([]*StoredReport, error) {
	reports, err := s.db.ListSavedReports(ctx, filter)
	if err != nil {
		return nil, pgerrors.E(pgerrors.KindStorage, "reportstore.List", err)
	}
	return reports, nil
}

// Get returns one index entry.
func (s *Store) Get(ctx context.Context, id int64) (*StoredReport, error) {
	r, err := s.db.GetSavedReport(ctx, id)
	if err != nil {
		return nil, classify("reportstore.Get", err)
	}
	return r, nil
}

// Read returns the artifact bytes of report id. A missing entry or a missing
// file is NotFound.
func (s *Store) Read(ctx context.Context, id int64) ([]byte, *StoredReport, error) {
	const op = "reportstore.Read"
	r, err := s.db.GetSavedReport(ctx, id)
	if err != nil {
		return nil, nil, classify(op, err)
	}

	data, err := safe.ReadFile(r.StoragePath, s.maxRead)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, r, pgerrors.Errorf(pgerrors.KindNotFound, op, "report file %s is missing", r.StoragePath)
	}
	if err != nil {
		return nil, r, pgerrors.E(pgerrors.KindStorage, op, err)
	}
	return data, r, nil
}

// Delete removes the index entry and then the file. If the file cannot be
// removed the entry stays deleted and the orphaned file is reported; Sweep
// cleans it up later.
func (s *Store) Delete(ctx context.Context, id int64) error {
	const op = "reportstore.Delete"
	r, err := s.db.GetSavedReport(ctx, id)
	if err != nil {
		return classify(op, err)
	}

	deleted, err := s.db.DeleteSavedReport(ctx, id)
	if err != nil {
		return pgerrors.E(pgerrors.KindStorage, op, err)
	}
	if !deleted {
		return pgerrors.Errorf(pgerrors.KindNotFound, op, "report %d not found", id)
	}

	if err := os.Remove(r.StoragePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Int64("report_id", id).Str("path", r.StoragePath).Msg("Report file was already gone")
			return nil
		}
		s.logger.Error().Err(err).Int64("report_id", id).Str("path", r.StoragePath).Msg("Report file left orphaned")
		return pgerrors.E(pgerrors.KindStorage, op, fmt.Errorf("index entry removed but file %s remains: %w", r.StoragePath, err))
	}

	s.logger.Info().Int64("report_id", id).Str("path", r.StoragePath).Msg("Report deleted")
	return nil
}

// Sweep removes artifact files in the store directory that no index entry
// references and returns their paths. With dryRun nothing is removed.
func (s *Store) Sweep(ctx context.Context, dryRun bool) ([]string, error) {
	const op = "reportstore.Sweep"

	s.commits.Lock()
	defer s.commits.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, pgerrors.E(pgerrors.KindStorage, op, err)
	}

	var orphans []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !isArtifactName(e.Name()) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		indexed, err := s.db.PathExists(ctx, path)
		if err != nil {
			return orphans, pgerrors.E(pgerrors.KindStorage, op, err)
		}
		if indexed {
			continue
		}
		orphans = append(orphans, path)
		if !dryRun {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return orphans, pgerrors.E(pgerrors.KindStorage, op, err)
			}
		}
	}
	return orphans, nil
}

func (s *Store) lockFor(name string) *sync.Mutex {
	return &s.locks[xxh3.HashString(name)%lockStripes]
}

func checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// classify keeps NotFound from the index and wraps anything else as Storage.
func classify(op string, err error) error {
	if pgerrors.KindOf(err) == pgerrors.KindNotFound {
		return err
	}
	return pgerrors.E(pgerrors.KindStorage, op, err)
}
