// Package report - Tests for the results writer
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linkurl/linkurl/logger"
	"github.com/linkurl/linkurl/rules"
)

func testRecords() []*Record {
	now := time.Now()
	return []*Record{
		{Link: "https://www.linkedin.com/premium/redeem/a", LineNum: 1, Outcome: rules.OutcomeValid, Evidence: "free trial", Confidence: rules.ConfidenceHigh, CheckedAt: now},
		{Link: "https://www.linkedin.com/premium/redeem/b", LineNum: 2, Outcome: rules.OutcomeInvalid, Evidence: "link has expired", CheckedAt: now},
		{Link: "https://www.linkedin.com/premium/redeem/c", LineNum: 3, Outcome: rules.OutcomeRateLimited, Evidence: "captcha", CheckedAt: now},
		{Link: "https://www.linkedin.com/premium/redeem/d", LineNum: 4, Outcome: rules.OutcomeError, Error: "page load timeout", CheckedAt: now},
	}
}

func TestStatsCount(t *testing.T) {
	stats := &Stats{}
	for _, r := range testRecords() {
		stats.Count(r)
	}

	if stats.Processed != 4 {
		t.Errorf("Expected 4 processed, got %d", stats.Processed)
	}
	if stats.Working != 1 {
		t.Errorf("Expected 1 working, got %d", stats.Working)
	}
	if stats.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", stats.Failed)
	}
	if stats.RateLimited != 1 {
		t.Errorf("Expected 1 rate limited, got %d", stats.RateLimited)
	}
	if stats.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", stats.Errors)
	}
}

func TestSaveWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	log, _ := logger.New(logger.Config{Level: "error"})
	w := NewWriter(dir, log)

	records := testRecords()
	stats := &Stats{}
	for _, r := range records {
		stats.Count(r)
	}

	written, err := w.Save(records, stats)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if len(written) != 2 {
		t.Fatalf("Expected 2 files written, got %d", len(written))
	}

	// Working links file holds only the WORKING link
	data, err := os.ReadFile(written[0])
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "https://www.linkedin.com/premium/redeem/a") {
		t.Error("Working links file should contain the working link")
	}
	if strings.Contains(content, "/premium/redeem/b") {
		t.Error("Working links file should not contain failed links")
	}

	// Detailed JSON carries every record and correct metadata
	data, err = os.ReadFile(written[1])
	if err != nil {
		t.Fatal(err)
	}
	var doc detailedReport
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Detailed report is not valid JSON: %v", err)
	}
	if len(doc.Results) != 4 {
		t.Errorf("Expected 4 records in detailed report, got %d", len(doc.Results))
	}
	if doc.Metadata.Working != 1 {
		t.Errorf("Expected 1 working in metadata, got %d", doc.Metadata.Working)
	}
}

func TestSaveWithNoWorkingLinks(t *testing.T) {
	dir := t.TempDir()
	log, _ := logger.New(logger.Config{Level: "error"})
	w := NewWriter(dir, log)

	records := []*Record{
		{Link: "https://example.com/x", Outcome: rules.OutcomeUnknown, CheckedAt: time.Now()},
	}
	stats := &Stats{}
	stats.Count(records[0])

	written, err := w.Save(records, stats)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Only the detailed report should be written
	if len(written) != 1 {
		t.Fatalf("Expected 1 file written, got %d", len(written))
	}
	if filepath.Ext(written[0]) != ".json" {
		t.Errorf("Expected JSON report, got %s", written[0])
	}
}

func TestSaveCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "results")
	log, _ := logger.New(logger.Config{Level: "error"})
	w := NewWriter(dir, log)

	if _, err := w.Save(testRecords(), &Stats{}); err != nil {
		t.Fatalf("Save should create the output directory: %v", err)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Output directory should exist: %v", err)
	}
}
