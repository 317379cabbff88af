package kaldi

import "strings"

// TranscriptLine reports whether a decoder output line belongs in the
// transcript file. The decoder prints its hypotheses on stderr between LOG
// diagnostics; everything on stderr that is not a LOG line is kept verbatim.
func TranscriptLine(line Line) (string, bool) {
	if line.Stream != Stderr {
		return "", false
	}
	if strings.HasPrefix(line.Text, "LOG") {
		return "", false
	}
	return line.Text, true
}
