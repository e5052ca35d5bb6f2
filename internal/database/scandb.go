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

	"github.com/nao1215/pixelscan/internal/model"
	"github.com/nao1215/pixelscan/internal/registry"
)

// FileName is the name of the database file inside the data directory.
const FileName = "pixelscan.db"

// ErrNotTerminal is returned by SaveResult for a pending or running result.
var ErrNotTerminal = errors.New("only terminal scan results can be saved")

// ScanDB is the scan history store.
type ScanDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database in dbDir.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scan first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return sdb, nil
}

// Path returns the database file path.
func (sdb *ScanDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

func (sdb *ScanDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		site TEXT NOT NULL,
		status TEXT NOT NULL,
		score INTEGER,
		risk_level TEXT,
		gdpr_count INTEGER DEFAULT 0,
		ccpa_count INTEGER DEFAULT 0,
		error_kind TEXT,
		error_message TEXT,
		attempts INTEGER DEFAULT 0,
		started_at TEXT,
		completed_at TEXT,
		duration_ms INTEGER DEFAULT 0,
		content_hash TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scans_url ON scans(url);
	CREATE INDEX IF NOT EXISTS idx_scans_site ON scans(site);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		domain TEXT NOT NULL,
		source_url TEXT,
		method TEXT,
		category TEXT,
		company TEXT,
		risk_level TEXT,
		gdpr INTEGER DEFAULT 0,
		ccpa INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_detections_scan ON detections(scan_id);
	CREATE INDEX IF NOT EXISTS idx_detections_domain ON detections(domain);

	CREATE TABLE IF NOT EXISTS tracking_ids (
		scan_id INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (scan_id, type, value)
	);

	CREATE INDEX IF NOT EXISTS idx_tracking_ids_value ON tracking_ids(value);
	`
	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// ScanRecord is one stored scan.
type ScanRecord struct {
	ID     int64            `json:"id"`
	URL    string           `json:"url"`
	Site   string           `json:"site"`
	Status model.ScanStatus `json:"status"`

	// Score and RiskLevel are meaningful only when HasAssessment is true.
	HasAssessment bool            `json:"has_assessment"`
	Score         int             `json:"score"`
	RiskLevel     model.RiskLevel `json:"risk_level"`
	GDPRCount     int             `json:"gdpr_count"`
	CCPACount     int             `json:"ccpa_count"`

	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Attempts     int    `json:"attempts"`

	StartedAt   time.Time     `json:"started_at,omitzero"`
	CompletedAt time.Time     `json:"completed_at,omitzero"`
	Duration    time.Duration `json:"duration"`
	ContentHash string        `json:"content_hash,omitempty"`

	// Detections and TrackingIDs are filled by GetScan and LatestScans only.
	Detections  []model.TrackerDetection `json:"detections,omitempty"`
	TrackingIDs []model.TrackingID       `json:"tracking_ids,omitempty"`
}

// SaveResult stores a terminal result and its detections and returns the
// new scan ID.
func (sdb *ScanDB) SaveResult(ctx context.Context, r *model.ScanResult) (int64, error) {
	if !r.Status.IsTerminal() {
		return 0, fmt.Errorf("%w: %s is %s", ErrNotTerminal, r.URL, r.Status)
	}

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var score sql.NullInt64
	var risk sql.NullString
	var gdpr, ccpa int
	if r.Assessment != nil {
		score = sql.NullInt64{Int64: int64(r.Assessment.Score), Valid: true}
		risk = sql.NullString{String: r.Assessment.RiskLevel.String(), Valid: true}
		gdpr, ccpa = r.Assessment.GDPRCount, r.Assessment.CCPACount
	}
	var errKind, errMsg sql.NullString
	if r.Error != nil {
		errKind = sql.NullString{String: r.Error.Kind.String(), Valid: true}
		errMsg = sql.NullString{String: r.Error.Message, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
	INSERT INTO scans (url, site, status, score, risk_level, gdpr_count, ccpa_count,
		error_kind, error_message, attempts, started_at, completed_at, duration_ms, content_hash)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.URL,
		siteOf(r),
		r.Status.String(),
		score,
		risk,
		gdpr,
		ccpa,
		errKind,
		errMsg,
		r.Attempts,
		formatTimestamp(r.StartedAt),
		formatTimestamp(r.CompletedAt),
		r.Duration.Milliseconds(),
		r.ContentHash,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read scan id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO detections (scan_id, kind, domain, source_url, method, category, company, risk_level, gdpr, ccpa)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare detection insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range r.Detections {
		if _, err := stmt.ExecContext(ctx,
			id,
			d.Kind.String(),
			d.Domain,
			d.SourceURL,
			d.Method,
			d.Category,
			d.Company,
			d.RiskLevel.String(),
			d.GDPRRelevant,
			d.CCPARelevant,
		); err != nil {
			return 0, fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	for _, tid := range r.TrackingIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO tracking_ids (scan_id, type, value) VALUES (?, ?, ?)",
			id, tid.Type, tid.Value,
		); err != nil {
			return 0, fmt.Errorf("failed to insert tracking id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan: %w", err)
	}
	return id, nil
}

// URLSummary is one entry of ListURLs.
type URLSummary struct {
	URL       string    `json:"url"`
	Site      string    `json:"site"`
	Scans     int       `json:"scans"`
	LastScore int       `json:"last_score"`
	HasScore  bool      `json:"has_score"`
	LastScan  time.Time `json:"last_scan"`
}

// ListURLs returns every scanned URL with its scan count and the score of
// its most recent scan, sorted by URL.
func (sdb *ScanDB) ListURLs(ctx context.Context) ([]URLSummary, error) {
	query := `
	SELECT s.url, s.site, c.n, s.score, s.completed_at
	FROM scans s
	JOIN (SELECT url, COUNT(*) AS n, MAX(id) AS last_id FROM scans GROUP BY url) c
		ON s.id = c.last_id
	ORDER BY s.url
	`
	rows, err := sdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var out []URLSummary
	for rows.Next() {
		var u URLSummary
		var score sql.NullInt64
		var completed sql.NullString
		if err := rows.Scan(&u.URL, &u.Site, &u.Scans, &score, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan url summary: %w", err)
		}
		u.HasScore = score.Valid
		u.LastScore = int(score.Int64)
		u.LastScan = parseTimestamp(completed.String)
		out = append(out, u)
	}
	return out, rows.Err()
}

const scanColumns = `id, url, site, status, score, risk_level, gdpr_count, ccpa_count,
	error_kind, error_message, attempts, started_at, completed_at, duration_ms, content_hash`

// History returns the scans of url, newest first, without detections.
func (sdb *ScanDB) History(ctx context.Context, url string) ([]*ScanRecord, error) {
	rows, err := sdb.db.QueryContext(ctx,
		"SELECT "+scanColumns+" FROM scans WHERE url = ? ORDER BY id DESC", url)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var out []*ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetScan returns the scan with the given ID and its detections, or nil
// when it does not exist.
func (sdb *ScanDB) GetScan(ctx context.Context, id int64) (*ScanRecord, error) {
	row := sdb.db.QueryRowContext(ctx, "SELECT "+scanColumns+" FROM scans WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := sdb.loadDetections(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// LatestScans returns up to limit completed scans of url, newest first,
// with their detections.
func (sdb *ScanDB) LatestScans(ctx context.Context, url string, limit int) ([]*ScanRecord, error) {
	rows, err := sdb.db.QueryContext(ctx,
		"SELECT "+scanColumns+" FROM scans WHERE url = ? AND status = ? ORDER BY id DESC LIMIT ?",
		url, model.StatusCompleted.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scans: %w", err)
	}

	var out []*ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read latest scans: %w", err)
	}
	// The single connection must be free before loading detections.
	_ = rows.Close()

	for _, rec := range out {
		if err := sdb.loadDetections(ctx, rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (sdb *ScanDB) loadDetections(ctx context.Context, rec *ScanRecord) error {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT kind, domain, source_url, method, category, company, risk_level, gdpr, ccpa
	FROM detections WHERE scan_id = ? ORDER BY id
	`, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to get detections: %w", err)
	}
	defer rows.Close()

	rec.Detections = make([]model.TrackerDetection, 0)
	for rows.Next() {
		var d model.TrackerDetection
		var kind, risk string
		var source, method, category, company sql.NullString
		if err := rows.Scan(&kind, &d.Domain, &source, &method, &category, &company, &risk, &d.GDPRRelevant, &d.CCPARelevant); err != nil {
			return fmt.Errorf("failed to scan detection: %w", err)
		}
		d.Kind, _ = model.ParseTrackerKind(kind)   //nolint:errcheck // written by SaveResult
		d.RiskLevel, _ = model.ParseRiskLevel(risk) //nolint:errcheck // written by SaveResult
		d.SourceURL = source.String
		d.Method = method.String
		d.Category = category.String
		d.Company = company.String
		rec.Detections = append(rec.Detections, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read detections: %w", err)
	}
	_ = rows.Close()

	return sdb.loadTrackingIDs(ctx, rec)
}

func (sdb *ScanDB) loadTrackingIDs(ctx context.Context, rec *ScanRecord) error {
	rows, err := sdb.db.QueryContext(ctx,
		"SELECT type, value FROM tracking_ids WHERE scan_id = ? ORDER BY type, value", rec.ID)
	if err != nil {
		return fmt.Errorf("failed to get tracking ids: %w", err)
	}
	defer rows.Close()

	rec.TrackingIDs = nil
	for rows.Next() {
		var tid model.TrackingID
		if err := rows.Scan(&tid.Type, &tid.Value); err != nil {
			return fmt.Errorf("failed to scan tracking id: %w", err)
		}
		rec.TrackingIDs = append(rec.TrackingIDs, tid)
	}
	return rows.Err()
}

// SitesWithTrackingID returns the distinct sites whose scans contained
// the tracking ID value, sorted. Sites sharing an ID report to the same
// tracking account.
func (sdb *ScanDB) SitesWithTrackingID(ctx context.Context, value string) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx, `
	SELECT DISTINCT s.site FROM tracking_ids t
	JOIN scans s ON s.id = t.scan_id
	WHERE t.value = ?
	ORDER BY s.site
	`, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking id: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*ScanRecord, error) {
	var rec ScanRecord
	var status string
	var score sql.NullInt64
	var risk, errKind, errMsg, started, completed, hash sql.NullString
	var durationMS int64

	err := row.Scan(
		&rec.ID,
		&rec.URL,
		&rec.Site,
		&status,
		&score,
		&risk,
		&rec.GDPRCount,
		&rec.CCPACount,
		&errKind,
		&errMsg,
		&rec.Attempts,
		&started,
		&completed,
		&durationMS,
		&hash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Status, _ = model.ParseScanStatus(status) //nolint:errcheck // written by SaveResult
	if score.Valid {
		rec.HasAssessment = true
		rec.Score = int(score.Int64)
		rec.RiskLevel, _ = model.ParseRiskLevel(risk.String) //nolint:errcheck // written by SaveResult
	}
	rec.ErrorKind = errKind.String
	rec.ErrorMessage = errMsg.String
	rec.StartedAt = parseTimestamp(started.String)
	rec.CompletedAt = parseTimestamp(completed.String)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.ContentHash = hash.String
	return &rec, nil
}

// Result rebuilds a ScanResult from the record. Categories and
// recommendations are not stored and come back empty.
func (rec *ScanRecord) Result() *model.ScanResult {
	r := &model.ScanResult{
		URL:         rec.URL,
		Status:      rec.Status,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
		Duration:    rec.Duration,
		Detections:  append(make([]model.TrackerDetection, 0, len(rec.Detections)), rec.Detections...),
		Attempts:    rec.Attempts,
		ContentHash: rec.ContentHash,
		TrackingIDs: append([]model.TrackingID(nil), rec.TrackingIDs...),
	}
	if rec.HasAssessment {
		r.Assessment = &model.PrivacyAssessment{
			Score:     rec.Score,
			RiskLevel: rec.RiskLevel,
			GDPRCount: rec.GDPRCount,
			CCPACount: rec.CCPACount,
		}
	}
	if rec.ErrorMessage != "" {
		var kind model.ErrorKind
		_ = kind.UnmarshalText([]byte(rec.ErrorKind)) //nolint:errcheck // never fails
		r.Error = &model.ScanError{Kind: kind, Message: rec.ErrorMessage, Attempts: rec.Attempts}
	}
	return r
}

func siteOf(r *model.ScanResult) string {
	host := r.Host()
	if host == "" {
		return r.URL
	}
	return registry.RegistrableDomain(host)
}

const timestampLayout = time.RFC3339Nano

func formatTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timestampLayout), Valid: true}
}

// timestampFormats contains the timestamp formats accepted when reading.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time for an empty or unrecognized value.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
