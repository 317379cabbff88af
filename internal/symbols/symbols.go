// Package symbols loads Kaldi symbol tables (phones.txt, words.txt) and maps
// the integer IDs in CTM files back to their labels.
package symbols

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"kaldialign/internal/ctm"
)

// ErrUnknownSymbol indicates a CTM token with no entry in the symbol table.
var ErrUnknownSymbol = errors.New("unknown symbol id")

// Table maps integer IDs to symbols.
type Table struct {
	byID map[int]string
}

// Parse reads "<symbol> <id>" lines.
func Parse(r io.Reader) (*Table, error) {
	table := &Table{byID: make(map[int]string)}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"<symbol> <id>\", got %d fields", lineNum, len(fields))
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid id %q", lineNum, fields[1])
		}
		if prev, ok := table.byID[id]; ok && prev != fields[0] {
			return nil, fmt.Errorf("line %d: id %d assigned to both %q and %q", lineNum, id, prev, fields[0])
		}
		table.byID[id] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// Load reads the symbol table at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	table, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Len returns the number of symbols.
func (t *Table) Len() int { return len(t.byID) }

// Lookup returns the symbol for id.
func (t *Table) Lookup(id int) (string, bool) {
	symbol, ok := t.byID[id]
	return symbol, ok
}

// Relabel replaces each entry's integer token with its symbol. mapLabel, when
// non-nil, post-processes every symbol.
func (t *Table) Relabel(entries []ctm.Entry, mapLabel func(string) string) ([]ctm.Entry, error) {
	out := make([]ctm.Entry, len(entries))
	for i, entry := range entries {
		id, err := strconv.Atoi(entry.Token)
		if err != nil {
			return nil, fmt.Errorf("%w: token %q of %s is not an integer id", ErrUnknownSymbol, entry.Token, entry.Utterance)
		}
		symbol, ok := t.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d (utterance %s)", ErrUnknownSymbol, id, entry.Utterance)
		}
		if mapLabel != nil {
			symbol = mapLabel(symbol)
		}
		entry.Token = symbol
		out[i] = entry
	}
	return out, nil
}

// StripPosition removes a Kaldi word-position suffix (_B, _E, _I, _S) from a phone label.
func StripPosition(phone string) string {
	if len(phone) > 2 && phone[len(phone)-2] == '_' {
		switch phone[len(phone)-1] {
		case 'B', 'E', 'I', 'S':
			return phone[:len(phone)-2]
		}
	}
	return phone
}

// ConvertFile rewrites the CTM at ctmPath in place, replacing IDs with
// symbols from table. It returns the number of converted entries. Nothing is
// written when any ID is unknown.
func ConvertFile(ctmPath string, table *Table, mapLabel func(string) string) (int, error) {
	entries, err := ctm.ReadFile(ctmPath)
	if err != nil {
		return 0, err
	}
	relabeled, err := table.Relabel(entries, mapLabel)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ctmPath, err)
	}
	if err := ctm.WriteFile(ctmPath, relabeled); err != nil {
		return 0, err
	}
	return len(relabeled), nil
}

// ConvertPhones converts a phone-level CTM using phones.txt, optionally
// stripping word-position suffixes.
func ConvertPhones(ctmPath, phonesPath string, stripPositions bool) (int, error) {
	table, err := Load(phonesPath)
	if err != nil {
		return 0, err
	}
	var mapLabel func(string) string
	if stripPositions {
		mapLabel = StripPosition
	}
	return ConvertFile(ctmPath, table, mapLabel)
}

// ConvertWords converts a word-level CTM using words.txt.
func ConvertWords(ctmPath, wordsPath string) (int, error) {
	table, err := Load(wordsPath)
	if err != nil {
		return 0, err
	}
	return ConvertFile(ctmPath, table, nil)
}
