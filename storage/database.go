// Package storage provides data persistence using SQLite for the link
// checker. It keeps the full history of link checks, per-day run counters,
// and session cookies so a later run can skip the login flow.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/linkurl/linkurl/logger"
	"github.com/linkurl/linkurl/report"
	"github.com/linkurl/linkurl/rules"
)

// Database wraps SQLite database operations
type Database struct {
	db     *sql.DB
	logger *logger.Logger
}

// SessionCookie represents a stored browser cookie
type SessionCookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Expires  int64  `json:"expires"`
	HTTPOnly bool   `json:"http_only"`
	Secure   bool   `json:"secure"`
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string, log *logger.Logger) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	database := &Database{
		db:     db,
		logger: log.WithModule("storage"),
	}

	if err := database.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	database.logger.Info("Database initialized")
	return database, nil
}

// initSchema creates the database tables if they don't exist
func (d *Database) initSchema() error {
	schema := `
	-- Link check results
	CREATE TABLE IF NOT EXISTS link_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link TEXT NOT NULL,
		line_num INTEGER,
		outcome TEXT NOT NULL,
		evidence TEXT,
		final_url TEXT,
		confidence TEXT,
		error TEXT,
		account TEXT,
		checked_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-day counters
	CREATE TABLE IF NOT EXISTS daily_stats (
		date TEXT PRIMARY KEY,
		processed INTEGER DEFAULT 0,
		working INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		rate_limited INTEGER DEFAULT 0,
		errors INTEGER DEFAULT 0
	);

	-- Session cookies
	CREATE TABLE IF NOT EXISTS session_cookies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		domain TEXT,
		path TEXT,
		expires INTEGER,
		http_only BOOLEAN,
		secure BOOLEAN,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_link_results_link ON link_results(link);
	CREATE INDEX IF NOT EXISTS idx_link_results_outcome ON link_results(outcome);
	CREATE INDEX IF NOT EXISTS idx_link_results_checked_at ON link_results(checked_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// ==============================================================================
// Link Result Operations
// ==============================================================================

// SaveResult stores one link check record and bumps the daily counters.
func (d *Database) SaveResult(r *report.Record) (int64, error) {
	query := `
		INSERT INTO link_results (link, line_num, outcome, evidence, final_url, confidence, error, account, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	checkedAt := r.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}

	result, err := d.db.Exec(query,
		r.Link, r.LineNum, string(r.Outcome), r.Evidence, r.FinalURL,
		r.Confidence, r.Error, r.Account, checkedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save link result: %w", err)
	}

	id, _ := result.LastInsertId()
	d.logger.WithFields(map[string]interface{}{
		"link":    r.Link,
		"outcome": string(r.Outcome),
	}).Debug("Link result saved")

	d.bumpDailyStats(r)

	return id, nil
}

// LastOutcome returns the most recent outcome recorded for a link, or an
// empty string when the link was never checked.
func (d *Database) LastOutcome(link string) (string, error) {
	query := `SELECT outcome FROM link_results WHERE link = ? ORDER BY checked_at DESC LIMIT 1`

	var outcome string
	err := d.db.QueryRow(query, link).Scan(&outcome)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last outcome: %w", err)
	}

	return outcome, nil
}

// ResultsByOutcome returns all records carrying the given outcome.
func (d *Database) ResultsByOutcome(outcome string) ([]*report.Record, error) {
	query := `
		SELECT link, line_num, outcome, evidence, final_url, confidence, error, account, checked_at
		FROM link_results WHERE outcome = ?
		ORDER BY checked_at DESC
	`

	rows, err := d.db.Query(query, outcome)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*report.Record
	for rows.Next() {
		r := &report.Record{}
		var out string
		err := rows.Scan(&r.Link, &r.LineNum, &out, &r.Evidence, &r.FinalURL,
			&r.Confidence, &r.Error, &r.Account, &r.CheckedAt)
		if err != nil {
			return nil, err
		}
		r.Outcome = rules.Outcome(out)
		records = append(records, r)
	}

	return records, rows.Err()
}

// TodayStats returns today's counters.
func (d *Database) TodayStats() (*report.Stats, error) {
	today := time.Now().Format("2006-01-02")
	query := `SELECT processed, working, failed, rate_limited, errors FROM daily_stats WHERE date = ?`

	stats := &report.Stats{}
	err := d.db.QueryRow(query, today).Scan(
		&stats.Processed, &stats.Working, &stats.Failed, &stats.RateLimited, &stats.Errors,
	)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// bumpDailyStats increments today's counters for one record.
func (d *Database) bumpDailyStats(r *report.Record) {
	today := time.Now().Format("2006-01-02")
	d.db.Exec(`INSERT OR IGNORE INTO daily_stats (date) VALUES (?)`, today)

	column := "failed"
	switch r.Outcome {
	case rules.OutcomeValid:
		column = "working"
	case rules.OutcomeRateLimited:
		column = "rate_limited"
	case rules.OutcomeError:
		column = "errors"
	}

	d.db.Exec(`UPDATE daily_stats SET processed = processed + 1 WHERE date = ?`, today)
	d.db.Exec(fmt.Sprintf(`UPDATE daily_stats SET %s = %s + 1 WHERE date = ?`, column, column), today)
}

// ==============================================================================
// Cookie/Session Operations
// ==============================================================================

// SaveCookies saves session cookies, replacing any stored set
func (d *Database) SaveCookies(cookies []*SessionCookie) error {
	d.db.Exec("DELETE FROM session_cookies")

	query := `INSERT INTO session_cookies (name, value, domain, path, expires, http_only, secure) VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, cookie := range cookies {
		_, err := d.db.Exec(query, cookie.Name, cookie.Value, cookie.Domain, cookie.Path, cookie.Expires, cookie.HTTPOnly, cookie.Secure)
		if err != nil {
			return fmt.Errorf("failed to save cookie: %w", err)
		}
	}

	d.logger.Infof("Saved %d session cookies", len(cookies))
	return nil
}

// LoadCookies loads session cookies
func (d *Database) LoadCookies() ([]*SessionCookie, error) {
	query := `SELECT name, value, domain, path, expires, http_only, secure FROM session_cookies`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cookies []*SessionCookie
	for rows.Next() {
		cookie := &SessionCookie{}
		err := rows.Scan(&cookie.Name, &cookie.Value, &cookie.Domain, &cookie.Path, &cookie.Expires, &cookie.HTTPOnly, &cookie.Secure)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, cookie)
	}

	d.logger.Infof("Loaded %d session cookies", len(cookies))
	return cookies, rows.Err()
}

// SaveCookiesToFile saves cookies to a JSON file
func (d *Database) SaveCookiesToFile(cookies []*SessionCookie, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0600)
}

// LoadCookiesFromFile loads cookies from a JSON file
func (d *Database) LoadCookiesFromFile(filePath string) ([]*SessionCookie, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cookies []*SessionCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, err
	}

	return cookies, nil
}
