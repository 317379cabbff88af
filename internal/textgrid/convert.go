package textgrid

import (
	"bufio"
	"errors"
	"fmt"
	"sort"

	"kaldialign/internal/ctm"
	"kaldialign/internal/fileutil"
	"kaldialign/internal/kaldi"
	"kaldialign/internal/manifest"
	"kaldialign/internal/wavinfo"
)

// ErrUnknownUtterance indicates a CTM entry for an utterance missing from the manifest.
var ErrUnknownUtterance = errors.New("ctm references unknown utterance")

// Convert writes <data>/tg/<utt>.TextGrid for every utterance in m from the
// label-converted word and phone CTMs. Utterances without CTM entries still
// get a grid of empty intervals. It returns the paths written, in manifest order.
func Convert(m *manifest.Manifest, data kaldi.DataDir) ([]string, error) {
	words, err := ctm.ReadFile(data.Path(kaldi.WordCTM))
	if err != nil {
		return nil, err
	}
	phones, err := ctm.ReadFile(data.Path(kaldi.PhoneCTM))
	if err != nil {
		return nil, err
	}
	wordsByUtt := ctm.GroupByUtterance(words)
	phonesByUtt := ctm.GroupByUtterance(phones)
	if err := checkUtterances(m, wordsByUtt, phonesByUtt); err != nil {
		return nil, err
	}

	paths := make([]string, 0, m.Len())
	for _, utt := range m.Utterances {
		duration, err := wavinfo.Duration(utt.Path)
		if err != nil {
			return paths, fmt.Errorf("read duration of %s: %w", utt.ID, err)
		}
		grid := New(duration, wordsByUtt[utt.ID], phonesByUtt[utt.ID])
		path := data.Path(kaldi.TextGridDir + "/" + utt.ID + ".TextGrid")
		err = fileutil.WriteFileAtomic(path, 0o644, func(w *bufio.Writer) error {
			_, err := grid.WriteTo(w)
			return err
		})
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func checkUtterances(m *manifest.Manifest, groups ...map[string][]ctm.Entry) error {
	var unknown []string
	seen := map[string]struct{}{}
	for _, group := range groups {
		for id := range group {
			if _, ok := m.Lookup(id); ok {
				continue
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				unknown = append(unknown, id)
			}
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: %v", ErrUnknownUtterance, unknown)
}
