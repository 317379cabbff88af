// Package ctm reads and writes time-marked conversation files as produced by
// ali-to-phones --ctm-output and nbest-to-ctm.
//
// Each line is "<utterance> <channel> <start> <duration> <token> [<confidence>]".
package ctm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"kaldialign/internal/fileutil"
)

// ErrMalformed indicates a CTM line that could not be parsed.
var ErrMalformed = errors.New("malformed ctm line")

// Entry is one CTM record.
type Entry struct {
	Utterance  string
	Channel    string
	Start      float64
	Duration   float64
	Token      string
	Confidence string

	// original text of the numeric fields, written back unchanged
	startText    string
	durationText string
}

// End returns Start+Duration.
func (e Entry) End() float64 {
	return e.Start + e.Duration
}

// Parse reads all entries from r. Blank lines are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 || len(fields) > 6 {
			return nil, fmt.Errorf("%w at line %d: expected 5 or 6 fields, got %d", ErrMalformed, lineNum, len(fields))
		}
		start, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || start < 0 {
			return nil, fmt.Errorf("%w at line %d: invalid start %q", ErrMalformed, lineNum, fields[2])
		}
		duration, err := strconv.ParseFloat(fields[3], 64)
		if err != nil || duration < 0 {
			return nil, fmt.Errorf("%w at line %d: invalid duration %q", ErrMalformed, lineNum, fields[3])
		}
		entry := Entry{
			Utterance:    fields[0],
			Channel:      fields[1],
			Start:        start,
			Duration:     duration,
			Token:        fields[4],
			startText:    fields[2],
			durationText: fields[3],
		}
		if len(fields) == 6 {
			entry.Confidence = fields[5]
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadFile parses the CTM file at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Write renders entries in CTM format.
func Write(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		channel := e.Channel
		if channel == "" {
			channel = "1"
		}
		line := e.Utterance + " " + channel + " " + numberText(e.startText, e.Start) + " " + numberText(e.durationText, e.Duration) + " " + e.Token
		if e.Confidence != "" {
			line += " " + e.Confidence
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile atomically replaces path with entries.
func WriteFile(path string, entries []Entry) error {
	return fileutil.WriteFileAtomic(path, 0o644, func(w *bufio.Writer) error {
		return Write(w, entries)
	})
}

// GroupByUtterance splits entries per utterance, each group sorted by start time.
func GroupByUtterance(entries []Entry) map[string][]Entry {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[e.Utterance] = append(groups[e.Utterance], e)
	}
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Start < group[j].Start })
	}
	return groups
}

func numberText(original string, value float64) string {
	if original != "" {
		if parsed, err := strconv.ParseFloat(original, 64); err == nil && parsed == value {
			return original
		}
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
