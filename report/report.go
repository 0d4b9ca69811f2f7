// Package report defines the per-link result record and writes run outputs:
// a plain list of working links and a detailed JSON report, both timestamped
// into the configured output directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/linkurl/linkurl/logger"
	"github.com/linkurl/linkurl/rules"
)

// Record is the persisted outcome of one link check. Every input link yields
// exactly one Record; none are silently dropped.
type Record struct {
	Link       string        `json:"link"`
	LineNum    int           `json:"line_num"`
	Outcome    rules.Outcome `json:"outcome"`
	Evidence   string        `json:"evidence,omitempty"`
	FinalURL   string        `json:"final_url,omitempty"`
	Confidence string        `json:"confidence,omitempty"`
	Error      string        `json:"error,omitempty"`
	Account    string        `json:"account,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// Stats aggregates a run.
type Stats struct {
	Processed   int `json:"processed"`
	Working     int `json:"working"`
	Failed      int `json:"failed"`
	RateLimited int `json:"rate_limited"`
	Errors      int `json:"errors"`
}

// Count adds one record to the tally.
func (s *Stats) Count(r *Record) {
	s.Processed++
	switch r.Outcome {
	case rules.OutcomeValid:
		s.Working++
	case rules.OutcomeRateLimited:
		s.RateLimited++
	case rules.OutcomeError:
		s.Errors++
	default:
		s.Failed++
	}
}

// Writer persists run results to the output directory.
type Writer struct {
	outputDir string
	logger    *logger.Logger
}

// NewWriter creates a results writer rooted at outputDir.
func NewWriter(outputDir string, log *logger.Logger) *Writer {
	return &Writer{
		outputDir: outputDir,
		logger:    log.WithModule("report"),
	}
}

// detailedReport is the JSON document layout.
type detailedReport struct {
	Metadata struct {
		Timestamp   string `json:"timestamp"`
		Processed   int    `json:"total_processed"`
		Working     int    `json:"working_found"`
		Failed      int    `json:"failed"`
		RateLimited int    `json:"rate_limited"`
		Errors      int    `json:"errors"`
	} `json:"metadata"`
	Results []*Record `json:"results"`
}

// Save writes the working-links list and the detailed JSON report. It returns
// the paths written so callers can surface them to the user.
func (w *Writer) Save(records []*Record, stats *Stats) ([]string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	var written []string

	var working []*Record
	for _, r := range records {
		if r.Outcome == rules.OutcomeValid {
			working = append(working, r)
		}
	}

	if len(working) > 0 {
		path := filepath.Join(w.outputDir, fmt.Sprintf("working_links_%s.txt", timestamp))
		if err := w.saveWorkingLinks(path, working); err != nil {
			return written, err
		}
		written = append(written, path)
		w.logger.Infof("Saved %d working links to %s", len(working), path)
	}

	path := filepath.Join(w.outputDir, fmt.Sprintf("detailed_results_%s.json", timestamp))
	if err := w.saveDetailed(path, timestamp, records, stats); err != nil {
		return written, err
	}
	written = append(written, path)
	w.logger.Infof("Saved detailed results to %s", path)

	return written, nil
}

func (w *Writer) saveWorkingLinks(path string, working []*Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create working links file: %w", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "# Working LinkedIn Premium Trial Links")
	fmt.Fprintf(f, "# Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	for _, r := range working {
		fmt.Fprintln(f, r.Link)
	}

	return nil
}

func (w *Writer) saveDetailed(path, timestamp string, records []*Record, stats *Stats) error {
	doc := detailedReport{Results: records}
	doc.Metadata.Timestamp = timestamp
	doc.Metadata.Processed = stats.Processed
	doc.Metadata.Working = stats.Working
	doc.Metadata.Failed = stats.Failed
	doc.Metadata.RateLimited = stats.RateLimited
	doc.Metadata.Errors = stats.Errors

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	return nil
}
