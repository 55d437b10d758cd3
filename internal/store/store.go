// Package store keeps ingested folded-stack reports in a local DuckDB
// database for querying: frame names are interned in a dictionary table and
// stacks stored as integer arrays, so repeated paths across reports stay
// compact and hot-path queries stay cheap.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/countprof/countprof/internal/duckdb"
	"github.com/countprof/countprof/internal/errors"
	"github.com/countprof/countprof/internal/report"
	"github.com/countprof/countprof/internal/safe"
)

// Store is a handle to the report database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger

	// Frame dictionary cache: frame_name -> frame_id.
	frameDictCache map[string]int64
	nextFrameID    int64
}

// ReportSummary describes one ingested report.
type ReportSummary struct {
	ReportID     string
	Source       string
	IngestedAt   time.Time
	TotalSamples uint64
	Paths        int
}

// PathCount is one aggregated call path with its sample count.
type PathCount struct {
	Frames []string
	Count  uint64
}

// Path joins the frames with the folded separator.
func (p PathCount) Path() string { return strings.Join(p.Frames, ";") }

// Open opens (creating if needed) the report database at path. An empty path
// opens an in-memory database.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open report database: %w", err)
	}

	s := &Store{
		db:             db,
		logger:         logger.With().Str("component", "store").Logger(),
		frameDictCache: make(map[string]int64),
		nextFrameID:    1,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := s.loadFrameDictionary(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load frame dictionary: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
		-- Frame dictionary shared across all reports.
		CREATE TABLE IF NOT EXISTS report_frame_dictionary (
			frame_id   BIGINT PRIMARY KEY,
			frame_name TEXT UNIQUE NOT NULL
		);

		-- One row per ingested report file.
		CREATE TABLE IF NOT EXISTS reports (
			report_id     TEXT PRIMARY KEY,
			source        TEXT      NOT NULL,
			ingested_at   TIMESTAMP NOT NULL,
			total_samples BIGINT    NOT NULL,
			paths         INTEGER   NOT NULL
		);

		-- Folded lines with integer-encoded stacks.
		CREATE TABLE IF NOT EXISTS report_samples (
			report_id       TEXT     NOT NULL,
			stack_hash      TEXT     NOT NULL, -- dedup within a report
			stack_frame_ids BIGINT[] NOT NULL,
			sample_count    BIGINT   NOT NULL,
			PRIMARY KEY (report_id, stack_hash)
		);
		CREATE INDEX IF NOT EXISTS idx_report_samples_report
			ON report_samples (report_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) loadFrameDictionary() error {
	rows, err := s.db.Query(`SELECT frame_id, frame_name FROM report_frame_dictionary`)
	if err != nil {
		return fmt.Errorf("query frame dictionary: %w", err)
	}
	defer errors.DeferClose(s.logger, rows, "close frame dictionary rows")

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan frame dictionary row: %w", err)
		}
		s.frameDictCache[name] = id
		if id >= s.nextFrameID {
			s.nextFrameID = id + 1
		}
	}
	return rows.Err()
}

// encodeFrames maps frame names to dictionary IDs, inserting unseen frames
// inside the caller's transaction.
func (s *Store) encodeFrames(ctx context.Context, tx *sql.Tx, frames []string) ([]int64, error) {
	ids := make([]int64, len(frames))
	for i, name := range frames {
		if id, ok := s.frameDictCache[name]; ok {
			ids[i] = id
			continue
		}
		id := s.nextFrameID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_frame_dictionary (frame_id, frame_name) VALUES (?, ?)`,
			id, name,
		); err != nil {
			return nil, fmt.Errorf("insert frame %q: %w", name, err)
		}
		s.nextFrameID++
		s.frameDictCache[name] = id
		ids[i] = id
	}
	return ids, nil
}

// stackHash computes a dedup hash over the encoded stack.
func stackHash(frameIDs []int64) string {
	h := xxh3.New()
	var buf [8]byte
	for _, id := range frameIDs {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// IngestFolded parses a folded-stack report and stores it as a new report
// row plus its samples, all in one transaction. Duplicate paths within one
// report merge by summing counts.
func (s *Store) IngestFolded(ctx context.Context, source string, r io.Reader) (ReportSummary, error) {
	entries, err := report.ParseFolded(r)
	if err != nil {
		return ReportSummary{}, fmt.Errorf("parse report %s: %w", source, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ReportSummary{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer errors.DeferRollback(s.logger, tx)

	summary := ReportSummary{
		ReportID:   uuid.NewString(),
		Source:     source,
		IngestedAt: time.Now().UTC().Truncate(time.Microsecond),
		Paths:      len(entries),
	}

	for _, e := range entries {
		ids, err := s.encodeFrames(ctx, tx, e.Frames)
		if err != nil {
			return ReportSummary{}, err
		}
		count, _ := safe.Uint64ToInt64(e.Count)
		frameIDsStr := duckdb.Int64ArrayToString(ids)

		// #nosec G202 - frameIDsStr is a formatted integer array, not user input.
		query := `
			INSERT INTO report_samples (report_id, stack_hash, stack_frame_ids, sample_count)
			VALUES (?, ?, ` + frameIDsStr + `, ?)
			ON CONFLICT (report_id, stack_hash)
			DO UPDATE SET sample_count = report_samples.sample_count + EXCLUDED.sample_count
		`
		if _, err := tx.ExecContext(ctx, query, summary.ReportID, stackHash(ids), count); err != nil {
			return ReportSummary{}, fmt.Errorf("store sample: %w", err)
		}
		summary.TotalSamples += e.Count
	}

	total, _ := safe.Uint64ToInt64(summary.TotalSamples)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reports (report_id, source, ingested_at, total_samples, paths) VALUES (?, ?, ?, ?, ?)`,
		summary.ReportID, summary.Source, summary.IngestedAt, total, summary.Paths,
	); err != nil {
		return ReportSummary{}, fmt.Errorf("store report row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ReportSummary{}, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info().
		Str("report_id", summary.ReportID).
		Str("source", source).
		Uint64("samples", summary.TotalSamples).
		Int("paths", summary.Paths).
		Msg("report ingested")
	return summary, nil
}

// ListReports returns ingested reports, newest first.
func (s *Store) ListReports(ctx context.Context) ([]ReportSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_id, source, ingested_at, total_samples, paths
		FROM reports ORDER BY ingested_at DESC, report_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer errors.DeferClose(s.logger, rows, "close report rows")

	var out []ReportSummary
	for rows.Next() {
		var r ReportSummary
		var total int64
		if err := rows.Scan(&r.ReportID, &r.Source, &r.IngestedAt, &total, &r.Paths); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		r.TotalSamples, _ = safe.Int64ToUint64(total)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopPaths returns the hottest call paths by sample count. An empty reportID
// aggregates across all ingested reports (summing counts for identical
// stacks).
func (s *Store) TopPaths(ctx context.Context, reportID string, limit int) ([]PathCount, error) {
	if limit < 1 {
		limit = 10
	}

	query := `
		SELECT stack_frame_ids, SUM(sample_count) AS total
		FROM report_samples
	`
	args := []interface{}{}
	if reportID != "" {
		query += ` WHERE report_id = ?`
		args = append(args, reportID)
	}
	query += `
		GROUP BY stack_frame_ids
		HAVING SUM(sample_count) > 0
		ORDER BY total DESC, stack_frame_ids
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top paths: %w", err)
	}
	defer errors.DeferClose(s.logger, rows, "close top path rows")

	names, err := s.frameNamesByID(ctx)
	if err != nil {
		return nil, err
	}

	var out []PathCount
	for rows.Next() {
		var rawIDs interface{}
		var total int64
		if err := rows.Scan(&rawIDs, &total); err != nil {
			return nil, fmt.Errorf("scan top path row: %w", err)
		}
		ids, err := duckdb.ToInt64Array(rawIDs)
		if err != nil {
			return nil, fmt.Errorf("decode stack frame ids: %w", err)
		}

		pc := PathCount{Frames: make([]string, len(ids))}
		pc.Count, _ = safe.Int64ToUint64(total)
		for i, id := range ids {
			name, ok := names[id]
			if !ok {
				return nil, fmt.Errorf("frame id %d missing from dictionary", id)
			}
			pc.Frames[i] = name
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (s *Store) frameNamesByID(ctx context.Context) (map[int64]string, error) {
	names := make(map[int64]string, len(s.frameDictCache))
	for name, id := range s.frameDictCache {
		names[id] = name
	}
	if len(names) > 0 {
		return names, nil
	}

	// Cache can be cold when another process wrote the database.
	rows, err := s.db.QueryContext(ctx, `SELECT frame_id, frame_name FROM report_frame_dictionary`)
	if err != nil {
		return nil, fmt.Errorf("query frame dictionary: %w", err)
	}
	defer errors.DeferClose(s.logger, rows, "close frame dictionary rows")
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan frame dictionary row: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
