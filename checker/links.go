package checker

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Link is one URL read from the input file, with its 1-based line number for
// error reporting.
type Link struct {
	URL     string
	LineNum int
}

// urlPattern extracts the first URL embedded in a line. Input files are often
// pasted from chats, so lines may carry prose around the link.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ReadLinks reads the input file and returns the links to check. Blank lines
// and lines starting with # are skipped; every other line must contain a URL.
func ReadLinks(path string) ([]Link, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var links []Link
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		url := urlPattern.FindString(line)
		if url == "" {
			return nil, fmt.Errorf("line %d: no URL found in %q", lineNum, line)
		}

		links = append(links, Link{URL: url, LineNum: lineNum})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	return links, nil
}
