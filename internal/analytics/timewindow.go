package analytics

import (
	"time"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
)

type RangeKind string

const (
	RangeToday RangeKind = "today"
	RangeMonth RangeKind = "month"
	RangeYear  RangeKind = "year"
)

// maxOffsetMinutes is the legal bound of UTC offsets (14 hours).
const maxOffsetMinutes = 14 * 60

// ParseRangeKind maps a query token to a range kind. Unknown tokens default
// to today rather than rejecting, since analytics is best-effort reporting.
func ParseRangeKind(s string) RangeKind {
	switch RangeKind(s) {
	case RangeMonth:
		return RangeMonth
	case RangeYear:
		return RangeYear
	default:
		return RangeToday
	}
}

// ClampOffset bounds a client UTC-offset in minutes to [-840, 840].
func ClampOffset(minutes int) int {
	if minutes < -maxOffsetMinutes {
		return -maxOffsetMinutes
	}
	if minutes > maxOffsetMinutes {
		return maxOffsetMinutes
	}
	return minutes
}

// ComputeRange returns the half-open UTC interval [start, end) covering the
// client's local today, month, or year at the instant now. offsetMinutes
// follows the JavaScript getTimezoneOffset sign convention: 300 means UTC-5.
//
// The boundary is found by shifting now into a local-as-UTC frame
// (subtracting the offset), reading calendar fields there, reconstructing
// the period start in that frame, and shifting back. The end boundary uses
// the next day/month/year field rather than a fixed duration, so variable
// month lengths come out right.
func ComputeRange(kind RangeKind, offsetMinutes int, now time.Time) domain.TimeRange {
	off := time.Duration(ClampOffset(offsetMinutes)) * time.Minute
	shifted := now.UTC().Add(-off)
	year, month, day := shifted.Date()

	var start, end time.Time
	switch kind {
	case RangeYear:
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	case RangeMonth:
		start = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	default:
		start = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		end = time.Date(year, month, day+1, 0, 0, 0, 0, time.UTC)
	}

	return domain.TimeRange{
		StartISO: formatISO(start.Add(off)),
		EndISO:   formatISO(end.Add(off)),
	}
}

func formatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseISO accepts ISO-8601 UTC timestamps with or without fractional
// seconds. The zero time and false are returned for anything else.
func parseISO(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
