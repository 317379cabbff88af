package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	clockLayout     = "15:04:05"
	dateClockLayout = "2006-01-02 15:04:05"
)

// formatTimestamp renders console header times. Runs rarely cross midnight, so
// the date is only shown for records from another day.
func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	local := ts.Local()
	y, m, d := local.Date()
	ny, nm, nd := time.Now().Date()
	if y == ny && m == nm && d == nd {
		return local.Format(clockLayout)
	}
	return local.Format(dateClockLayout)
}

// attrString renders v unquoted, for the component/run/stage header fields.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		return fmt.Sprint(v.Any())
	}
	return formatValue(v)
}

// formatValue renders v for a "key: value" line. Strings that are blank or
// contain spaces, '=' or quotes are quoted so Kaldi paths and decoder output
// stay unambiguous.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		d := v.Duration()
		if d >= time.Millisecond {
			d = d.Round(time.Millisecond)
		}
		return d.String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return quoteIfNeeded(v.String())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

// formatDurationHuman is the info-level rendering of stage and run durations.
func formatDurationHuman(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	default:
		return d.Round(time.Second).String()
	}
}
