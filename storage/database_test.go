// Package storage - Tests for database operations
package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/linkurl/linkurl/logger"
	"github.com/linkurl/linkurl/report"
	"github.com/linkurl/linkurl/rules"
)

func testDatabase(t *testing.T) *Database {
	t.Helper()
	log, _ := logger.New(logger.Config{Level: "error"})
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"), log)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndQueryResult(t *testing.T) {
	db := testDatabase(t)

	record := &report.Record{
		Link:       "https://www.linkedin.com/premium/redeem/abc",
		LineNum:    3,
		Outcome:    rules.OutcomeValid,
		Evidence:   "free trial",
		FinalURL:   "https://www.linkedin.com/premium/redeem/abc",
		Confidence: rules.ConfidenceHigh,
		CheckedAt:  time.Now(),
	}

	id, err := db.SaveResult(record)
	if err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero result ID")
	}

	outcome, err := db.LastOutcome(record.Link)
	if err != nil {
		t.Fatalf("LastOutcome failed: %v", err)
	}
	if outcome != string(rules.OutcomeValid) {
		t.Errorf("Expected WORKING outcome, got %s", outcome)
	}
}

func TestLastOutcomeUnknownLink(t *testing.T) {
	db := testDatabase(t)

	outcome, err := db.LastOutcome("https://example.com/never-checked")
	if err != nil {
		t.Fatalf("LastOutcome failed: %v", err)
	}
	if outcome != "" {
		t.Errorf("Expected empty outcome for unchecked link, got %s", outcome)
	}
}

func TestResultsByOutcome(t *testing.T) {
	db := testDatabase(t)

	records := []*report.Record{
		{Link: "https://a.example/1", Outcome: rules.OutcomeValid, CheckedAt: time.Now()},
		{Link: "https://a.example/2", Outcome: rules.OutcomeInvalid, CheckedAt: time.Now()},
		{Link: "https://a.example/3", Outcome: rules.OutcomeValid, CheckedAt: time.Now()},
	}
	for _, r := range records {
		if _, err := db.SaveResult(r); err != nil {
			t.Fatalf("SaveResult failed: %v", err)
		}
	}

	working, err := db.ResultsByOutcome(string(rules.OutcomeValid))
	if err != nil {
		t.Fatalf("ResultsByOutcome failed: %v", err)
	}
	if len(working) != 2 {
		t.Errorf("Expected 2 working results, got %d", len(working))
	}
}

func TestTodayStats(t *testing.T) {
	db := testDatabase(t)

	outcomes := []rules.Outcome{
		rules.OutcomeValid,
		rules.OutcomeInvalid,
		rules.OutcomeRateLimited,
		rules.OutcomeError,
	}
	for i, o := range outcomes {
		r := &report.Record{Link: "https://a.example/x", LineNum: i + 1, Outcome: o, CheckedAt: time.Now()}
		if _, err := db.SaveResult(r); err != nil {
			t.Fatalf("SaveResult failed: %v", err)
		}
	}

	stats, err := db.TodayStats()
	if err != nil {
		t.Fatalf("TodayStats failed: %v", err)
	}
	if stats.Processed != 4 {
		t.Errorf("Expected 4 processed, got %d", stats.Processed)
	}
	if stats.Working != 1 {
		t.Errorf("Expected 1 working, got %d", stats.Working)
	}
	if stats.RateLimited != 1 {
		t.Errorf("Expected 1 rate limited, got %d", stats.RateLimited)
	}
	if stats.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", stats.Errors)
	}
}

func TestCookiePersistence(t *testing.T) {
	db := testDatabase(t)

	cookies := []*SessionCookie{
		{Name: "li_at", Value: "token-value", Domain: ".linkedin.com", Path: "/", Expires: time.Now().Add(24 * time.Hour).Unix(), HTTPOnly: true, Secure: true},
		{Name: "JSESSIONID", Value: "session-value", Domain: ".linkedin.com", Path: "/"},
	}

	if err := db.SaveCookies(cookies); err != nil {
		t.Fatalf("SaveCookies failed: %v", err)
	}

	loaded, err := db.LoadCookies()
	if err != nil {
		t.Fatalf("LoadCookies failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 cookies, got %d", len(loaded))
	}
	if loaded[0].Name != "li_at" || loaded[0].Value != "token-value" {
		t.Errorf("Cookie round-trip mismatch: %+v", loaded[0])
	}

	// Saving again replaces the stored set
	if err := db.SaveCookies(cookies[:1]); err != nil {
		t.Fatalf("SaveCookies failed: %v", err)
	}
	loaded, _ = db.LoadCookies()
	if len(loaded) != 1 {
		t.Errorf("Expected stored set to be replaced, got %d cookies", len(loaded))
	}
}

func TestCookieFileRoundTrip(t *testing.T) {
	db := testDatabase(t)
	path := filepath.Join(t.TempDir(), "cookies", "session.json")

	cookies := []*SessionCookie{
		{Name: "li_at", Value: "token-value", Domain: ".linkedin.com"},
	}

	if err := db.SaveCookiesToFile(cookies, path); err != nil {
		t.Fatalf("SaveCookiesToFile failed: %v", err)
	}

	loaded, err := db.LoadCookiesFromFile(path)
	if err != nil {
		t.Fatalf("LoadCookiesFromFile failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "li_at" {
		t.Errorf("Cookie file round-trip mismatch: %+v", loaded)
	}
}

func TestLoadCookiesFromMissingFile(t *testing.T) {
	db := testDatabase(t)

	loaded, err := db.LoadCookiesFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Missing cookie file should not error: %v", err)
	}
	if loaded != nil {
		t.Errorf("Expected nil cookies for missing file, got %v", loaded)
	}
}
