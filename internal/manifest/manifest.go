// Package manifest builds the Kaldi audio manifest (wav.scp, utt2spk,
// spk2utt) for a directory of WAV files.
//
// Every file is its own utterance and its own speaker. Utterance IDs are the
// file base names, NFC-normalised with whitespace replaced by underscores,
// and all files are sorted in byte order as Kaldi's C-locale tools expect.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"kaldialign/internal/fileutil"
	"kaldialign/internal/kaldi"
)

var (
	// ErrNoAudio indicates the audio directory holds no .wav files.
	ErrNoAudio = errors.New("no .wav files found")
	// ErrDuplicateUtterance indicates two files normalise to the same utterance ID.
	ErrDuplicateUtterance = errors.New("duplicate utterance id")
	// ErrUnsupportedPath indicates a path Kaldi's table readers would split.
	ErrUnsupportedPath = errors.New("path contains whitespace")
)

// Utterance is one audio file in the manifest.
type Utterance struct {
	ID      string
	Speaker string
	Path    string
}

// Manifest is the ordered set of utterances for one run.
type Manifest struct {
	Utterances []Utterance
	index      map[string]int
}

// UtteranceID derives the utterance ID from a file name.
func UtteranceID(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = norm.NFC.String(base)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, base)
}

// Scan lists the .wav files directly inside wavDir (extension matched
// case-insensitively) and builds the manifest from them.
func Scan(wavDir string) (*Manifest, error) {
	abs, err := filepath.Abs(wavDir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", wavDir, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	var utterances []Utterance
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		path := filepath.Join(abs, entry.Name())
		if strings.ContainsFunc(path, unicode.IsSpace) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedPath, path)
		}
		id := UtteranceID(entry.Name())
		utterances = append(utterances, Utterance{ID: id, Speaker: id, Path: path})
	}
	if len(utterances) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAudio, abs)
	}
	return New(utterances)
}

// New sorts utterances by ID and rejects duplicates.
func New(utterances []Utterance) (*Manifest, error) {
	sorted := append([]Utterance(nil), utterances...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	index := make(map[string]int, len(sorted))
	for i, utt := range sorted {
		if utt.ID == "" {
			return nil, fmt.Errorf("empty utterance id for %s", utt.Path)
		}
		if prev, ok := index[utt.ID]; ok {
			return nil, fmt.Errorf("%w %q: %s and %s", ErrDuplicateUtterance, utt.ID, sorted[prev].Path, utt.Path)
		}
		index[utt.ID] = i
	}
	return &Manifest{Utterances: sorted, index: index}, nil
}

// Len returns the number of utterances.
func (m *Manifest) Len() int { return len(m.Utterances) }

// IDs returns utterance IDs in manifest order.
func (m *Manifest) IDs() []string {
	ids := make([]string, len(m.Utterances))
	for i, utt := range m.Utterances {
		ids[i] = utt.ID
	}
	return ids
}

// Lookup returns the utterance with the given ID.
func (m *Manifest) Lookup(id string) (Utterance, bool) {
	i, ok := m.index[id]
	if !ok {
		return Utterance{}, false
	}
	return m.Utterances[i], true
}

// Write creates wav.scp, utt2spk and spk2utt in the data directory,
// overwriting previous copies.
func (m *Manifest) Write(data kaldi.DataDir) error {
	var wavSCP, utt2spk []string
	speakers := map[string][]string{}
	for _, utt := range m.Utterances {
		wavSCP = append(wavSCP, utt.ID+" "+utt.Path)
		utt2spk = append(utt2spk, utt.ID+" "+utt.Speaker)
		speakers[utt.Speaker] = append(speakers[utt.Speaker], utt.ID)
	}
	spkIDs := make([]string, 0, len(speakers))
	for spk := range speakers {
		spkIDs = append(spkIDs, spk)
	}
	sort.Strings(spkIDs)
	spk2utt := make([]string, 0, len(spkIDs))
	for _, spk := range spkIDs {
		spk2utt = append(spk2utt, spk+" "+strings.Join(speakers[spk], " "))
	}

	for _, file := range []struct {
		name  string
		lines []string
	}{
		{kaldi.WavSCP, wavSCP},
		{kaldi.Utt2Spk, utt2spk},
		{kaldi.Spk2Utt, spk2utt},
	} {
		if err := fileutil.WriteLinesAtomic(data.Path(file.name), file.lines); err != nil {
			return fmt.Errorf("write %s: %w", file.name, err)
		}
	}
	return nil
}

// Load reads wav.scp (and utt2spk when present) from a data directory.
func Load(data kaldi.DataDir) (*Manifest, error) {
	wavSCP, err := readTable(data.Path(kaldi.WavSCP))
	if err != nil {
		return nil, err
	}
	speakers := map[string]string{}
	if fileutil.FileExists(data.Path(kaldi.Utt2Spk)) {
		rows, err := readTable(data.Path(kaldi.Utt2Spk))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			speakers[row[0]] = row[1]
		}
	}
	utterances := make([]Utterance, 0, len(wavSCP))
	for _, row := range wavSCP {
		spk := speakers[row[0]]
		if spk == "" {
			spk = row[0]
		}
		utterances = append(utterances, Utterance{ID: row[0], Speaker: spk, Path: row[1]})
	}
	if len(utterances) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoAudio, data.Path(kaldi.WavSCP))
	}
	return New(utterances)
}

// readTable parses "<key> <value>" lines; the value is the rest of the line.
func readTable(path string) ([][2]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows [][2]string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			return nil, fmt.Errorf("%s:%d: expected \"<key> <value>\"", path, lineNum)
		}
		rows = append(rows, [2]string{key, value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
