package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitemirror/internal/model"
)

// FileName is the database file inside the data directory.
const FileName = "sitemirror.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// CrawlDB stores mirror runs and their outcomes.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and the file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions creates the database on demand and enables WAL.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ReadOnlyOptions opens an existing database without creating it.
func ReadOnlyOptions() Options {
	return Options{EnableWAL: true}
}

// Open opens sitemirror.db in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no run history at %s: mirror a site first", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; batch mode saves runs from several goroutines
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := cdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		sitemap_url TEXT NOT NULL DEFAULT '',
		sitemap_warning TEXT NOT NULL DEFAULT '',
		seed_count INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		success_pages INTEGER NOT NULL DEFAULT 0,
		failed_pages INTEGER NOT NULL DEFAULT 0,
		success_assets INTEGER NOT NULL DEFAULT 0,
		failed_assets INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_base_url ON runs(base_url);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		result TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		bytes INTEGER NOT NULL DEFAULT 0,
		digest TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		fetched_at TEXT NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_url ON outcomes(url);
	`
	_, err := cdb.db.ExecContext(ctx, schema)
	return err
}

// RunRecord is the stored metadata of one run, without its outcomes.
type RunRecord struct {
	ID             int64
	BaseURL        string
	SitemapURL     string
	SitemapWarning string
	SeedCount      int
	StartedAt      time.Time
	FinishedAt     time.Time
	Interrupted    bool
	Counts         model.Counts
}

// SaveRun stores summary and all its outcomes in one transaction and
// returns the new run ID.
func (cdb *CrawlDB) SaveRun(ctx context.Context, summary model.Summary) (id int64, err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	c := summary.Counts
	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (base_url, sitemap_url, sitemap_warning, seed_count, started_at, finished_at,
		interrupted, success_pages, failed_pages, success_assets, failed_assets)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.BaseURL,
		summary.SitemapURL,
		summary.SitemapWarning,
		summary.SeedCount,
		formatTimestamp(summary.StartedAt),
		formatTimestamp(summary.FinishedAt),
		boolToInt(summary.Interrupted),
		c.SuccessPages, c.FailedPages, c.SuccessAssets, c.FailedAssets,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO outcomes (run_id, url, kind, result, status_code, content_type, path, bytes,
		digest, error, fetched_at, duration_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range summary.Outcomes {
		if _, err = stmt.ExecContext(ctx,
			id,
			o.URL,
			o.Kind.String(),
			o.Result.String(),
			o.StatusCode,
			o.ContentType,
			o.Path,
			o.Bytes,
			o.Digest,
			o.Error,
			formatTimestamp(o.FetchedAt),
			int64(o.Duration),
		); err != nil {
			return 0, fmt.Errorf("failed to insert outcome %s: %w", o.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const runColumns = `id, base_url, sitemap_url, sitemap_warning, seed_count, started_at, finished_at,
	interrupted, success_pages, failed_pages, success_assets, failed_assets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		r                 RunRecord
		started, finished string
	)
	err := row.Scan(
		&r.ID, &r.BaseURL, &r.SitemapURL, &r.SitemapWarning, &r.SeedCount,
		&started, &finished, &r.Interrupted,
		&r.Counts.SuccessPages, &r.Counts.FailedPages, &r.Counts.SuccessAssets, &r.Counts.FailedAssets,
	)
	if err != nil {
		return RunRecord{}, err
	}
	r.StartedAt = parseTimestamp(started)
	r.FinishedAt = parseTimestamp(finished)
	return r, nil
}

// GetRun returns the metadata of one run.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (RunRecord, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to get run %d: %w", id, err)
	}
	return r, nil
}

// ListRuns returns the runs of baseURL, newest first. An empty baseURL
// lists every site. limit <= 0 means no limit.
func (cdb *CrawlDB) ListRuns(ctx context.Context, baseURL string, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := make([]any, 0, 2)
	if baseURL != "" {
		query += " AND base_url = ?"
		args = append(args, baseURL)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// SiteStats summarizes the history of one base URL.
type SiteStats struct {
	BaseURL   string
	Runs      int
	LastRun   time.Time
	LastRunID int64
}

// ListSites returns every mirrored base URL in alphabetical order.
func (cdb *CrawlDB) ListSites(ctx context.Context) ([]SiteStats, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT g.base_url, g.runs, g.last_id, r.started_at
	FROM (SELECT base_url, COUNT(*) AS runs, MAX(id) AS last_id FROM runs GROUP BY base_url) g
	JOIN runs r ON r.id = g.last_id
	ORDER BY g.base_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]SiteStats, 0)
	for rows.Next() {
		var (
			s       SiteStats
			started string
		)
		if err := rows.Scan(&s.BaseURL, &s.Runs, &s.LastRunID, &started); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		s.LastRun = parseTimestamp(started)
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// GetRunOutcomes returns the outcomes of a run in the order they were recorded.
func (cdb *CrawlDB) GetRunOutcomes(ctx context.Context, runID int64) ([]model.Outcome, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, kind, result, status_code, content_type, path, bytes, digest, error, fetched_at, duration_ns
	FROM outcomes
	WHERE run_id = ?
	ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes of run %d: %w", runID, err)
	}
	defer rows.Close()

	outcomes := make([]model.Outcome, 0)
	for rows.Next() {
		var (
			o                     model.Outcome
			kind, result, fetched string
			duration              int64
		)
		if err := rows.Scan(&o.URL, &kind, &result, &o.StatusCode, &o.ContentType, &o.Path,
			&o.Bytes, &o.Digest, &o.Error, &fetched, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		if err := o.Kind.UnmarshalText([]byte(kind)); err != nil {
			return nil, fmt.Errorf("outcome %s: %w", o.URL, err)
		}
		if err := o.Result.UnmarshalText([]byte(result)); err != nil {
			return nil, fmt.Errorf("outcome %s: %w", o.URL, err)
		}
		o.FetchedAt = parseTimestamp(fetched)
		o.Duration = time.Duration(duration)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// LoadSummary rebuilds the full summary of a stored run.
func (cdb *CrawlDB) LoadSummary(ctx context.Context, runID int64) (model.Summary, error) {
	run, err := cdb.GetRun(ctx, runID)
	if err != nil {
		return model.Summary{}, err
	}
	outcomes, err := cdb.GetRunOutcomes(ctx, runID)
	if err != nil {
		return model.Summary{}, err
	}

	report := model.NewReport(run.BaseURL)
	for _, o := range outcomes {
		report.Record(o)
	}
	summary := report.Summary()
	summary.SitemapURL = run.SitemapURL
	summary.SitemapWarning = run.SitemapWarning
	summary.SeedCount = run.SeedCount
	summary.StartedAt = run.StartedAt
	summary.FinishedAt = run.FinishedAt
	summary.Interrupted = run.Interrupted
	return summary, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats are tried in order by parseTimestamp.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time for empty or unknown formats.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
