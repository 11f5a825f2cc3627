// Package timerange turns user supplied date markers into a query interval.
package timerange

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultLead is added to now when no end date is given, to allow for source latency.
	DefaultLead = 3 * time.Hour
	// DefaultSpan is subtracted from the end when no start date is given.
	DefaultSpan = 12 * time.Hour
	// SkewMargin is subtracted from the start when a delta is given with extra margin.
	SkewMargin = 30 * time.Minute

	frostLayout = "2006-01-02T15:04:00.000Z"
)

// layouts accepted by Parse, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"20060102T150405Z0700",
	"20060102T1504Z0700",
	"20060102T150405",
	"20060102T1504",
	"20060102T15",
	"20060102",
	"2006010215",
	"200601021504",
	"2006-01-02-15:04",
	"2006-01-02-15",
	"2006.01.02-15:04",
	"2006.01.02-15",
	"2006.01.02",
	"2006-01-02",
	"2006-1-2",
}

// DateParseError reports a date marker that matches none of the accepted layouts.
type DateParseError struct {
	Input string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unable to parse date %q", e.Input)
}

// InvalidRangeError reports a resolved interval whose start is not before its end.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range: start %s is not before end %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// Parse reads a date marker. Times without a zone are taken as UTC.
func Parse(s string) (time.Time, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return time.Time{}, &DateParseError{Input: s}
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, in, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &DateParseError{Input: s}
}

// Input holds the optional markers from the command line. Empty strings mean unset.
type Input struct {
	Start string
	End   string
	// Delta, when non-zero, places the start this far before the end.
	Delta time.Duration
	// ExtraMargin subtracts SkewMargin from a delta-derived start.
	ExtraMargin bool
}

// Interval is a resolved query window; Start is strictly before End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Resolve applies the defaulting rules to in, relative to now.
func Resolve(in Input, now time.Time) (Interval, error) {
	end := now.UTC().Add(DefaultLead)
	if in.End != "" {
		t, err := Parse(in.End)
		if err != nil {
			return Interval{}, err
		}
		end = t
	}

	start := end.Add(-DefaultSpan)
	if in.Start != "" {
		t, err := Parse(in.Start)
		if err != nil {
			return Interval{}, err
		}
		start = t
	}

	if in.Delta != 0 {
		start = end.Add(-in.Delta)
		if in.ExtraMargin {
			start = start.Add(-SkewMargin)
		}
	}

	if !start.Before(end) {
		return Interval{}, &InvalidRangeError{Start: start, End: end}
	}
	return Interval{Start: start, End: end}, nil
}

// FrostString renders the interval the way the observation API expects it.
func (i Interval) FrostString() string {
	return i.Start.UTC().Format(frostLayout) + "/" + i.End.UTC().Format(frostLayout)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
