// Package textgrid renders word and phone CTMs as Praat TextGrid files.
package textgrid

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"kaldialign/internal/ctm"
)

// Tier names, in the order they appear in every grid.
const (
	WordTier  = "words"
	PhoneTier = "phones"
)

// minXMax keeps grids for silent or empty audio valid; Praat rejects xmax <= xmin.
const minXMax = 0.01

// Interval is a labelled time span. Gaps carry an empty Text.
type Interval struct {
	XMin float64
	XMax float64
	Text string
}

// Tier is a named interval tier covering [0, xmax].
type Tier struct {
	Name      string
	Intervals []Interval
}

// Grid is a TextGrid with interval tiers sharing one time domain.
type Grid struct {
	XMax  float64
	Tiers []Tier
}

// BuildTier converts CTM entries into contiguous intervals covering [0, xmax].
// Gaps become empty intervals and an entry starting before the previous one
// ended is clipped to start at that end.
func BuildTier(name string, entries []ctm.Entry, xmax float64) Tier {
	sorted := append([]ctm.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	tier := Tier{Name: name}
	cursor := 0.0
	for _, e := range sorted {
		start := round(math.Max(e.Start, cursor))
		end := round(math.Min(e.End(), xmax))
		if end <= start {
			continue
		}
		if start > cursor {
			tier.Intervals = append(tier.Intervals, Interval{XMin: cursor, XMax: start})
		}
		tier.Intervals = append(tier.Intervals, Interval{XMin: start, XMax: end, Text: e.Token})
		cursor = end
	}
	if cursor < xmax {
		tier.Intervals = append(tier.Intervals, Interval{XMin: cursor, XMax: xmax})
	}
	return tier
}

// New builds the words and phones tiers for one utterance. The grid spans the
// longer of the audio duration and the last CTM end time.
func New(duration float64, words, phones []ctm.Entry) Grid {
	xmax := duration
	for _, group := range [][]ctm.Entry{words, phones} {
		for _, e := range group {
			xmax = math.Max(xmax, e.End())
		}
	}
	xmax = math.Max(round(xmax), minXMax)
	return Grid{
		XMax: xmax,
		Tiers: []Tier{
			BuildTier(WordTier, words, xmax),
			BuildTier(PhoneTier, phones, xmax),
		},
	}
}

// WriteTo renders the grid in Praat's long text format.
func (g Grid) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	line := func(indent int, format string, args ...any) {
		written, _ := fmt.Fprintf(bw, "%s"+format+"\n", append([]any{strings.Repeat("    ", indent)}, args...)...)
		n += int64(written)
	}

	line(0, `File type = "ooTextFile"`)
	line(0, `Object class = "TextGrid"`)
	line(0, "")
	line(0, "xmin = 0 ")
	line(0, "xmax = %s ", formatTime(g.XMax))
	line(0, "tiers? <exists> ")
	line(0, "size = %d ", len(g.Tiers))
	line(0, "item []: ")
	for i, tier := range g.Tiers {
		line(1, "item [%d]:", i+1)
		line(2, `class = "IntervalTier" `)
		line(2, "name = %s ", quote(tier.Name))
		line(2, "xmin = 0 ")
		line(2, "xmax = %s ", formatTime(g.XMax))
		line(2, "intervals: size = %d ", len(tier.Intervals))
		for j, iv := range tier.Intervals {
			line(2, "intervals [%d]:", j+1)
			line(3, "xmin = %s ", formatTime(iv.XMin))
			line(3, "xmax = %s ", formatTime(iv.XMax))
			line(3, "text = %s ", quote(iv.Text))
		}
	}
	return n, bw.Flush()
}

// quote renders a Praat string literal; embedded quotes are doubled.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatTime(v float64) string {
	return strconv.FormatFloat(round(v), 'f', -1, 64)
}

// round trims float noise from summed CTM times to microseconds.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
