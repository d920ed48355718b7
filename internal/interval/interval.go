// Package interval provides pure sorted-interval arithmetic over half-open
// time spans. It performs no I/O; callers supply fully resolved instants.
package interval

import (
	"sort"
	"time"
)

// Span is a half-open time range [Start, End). A Span with End not after
// Start is empty.
type Span struct {
	Start time.Time
	End   time.Time
}

// IsEmpty reports whether the span covers no time.
func (s Span) IsEmpty() bool {
	return !s.End.After(s.Start)
}

// Duration returns the span length.
func (s Span) Duration() time.Duration {
	if s.IsEmpty() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// Overlaps reports whether two half-open spans share any instant.
func (s Span) Overlaps(other Span) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// Merge sorts the given spans by start and coalesces overlapping or
// adjacent ones: two spans merge when the next start is not after the
// running merged end. Empty spans are discarded. The input is not mutated.
func Merge(spans []Span) []Span {
	work := make([]Span, 0, len(spans))
	for _, s := range spans {
		if !s.IsEmpty() {
			work = append(work, s)
		}
	}
	if len(work) == 0 {
		return nil
	}

	sort.Slice(work, func(i, j int) bool {
		return work[i].Start.Before(work[j].Start)
	})

	merged := []Span{work[0]}
	for _, s := range work[1:] {
		last := &merged[len(merged)-1]
		if !s.Start.After(last.End) {
			if s.End.After(last.End) {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Gaps walks an already-merged busy list left to right inside bounds and
// returns every free span of at least minDuration: before the first busy
// span, between consecutive busy spans, and after the last. Busy spans are
// clipped to bounds; shorter gaps are dropped entirely.
func Gaps(bounds Span, busy []Span, minDuration time.Duration) []Span {
	if bounds.IsEmpty() {
		return nil
	}

	var gaps []Span
	cursor := bounds.Start
	for _, b := range busy {
		if !b.End.After(bounds.Start) || !b.Start.Before(bounds.End) {
			continue
		}
		start := b.Start
		if start.Before(bounds.Start) {
			start = bounds.Start
		}
		if start.After(cursor) {
			gaps = appendGap(gaps, Span{Start: cursor, End: start}, minDuration)
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(bounds.End) {
		gaps = appendGap(gaps, Span{Start: cursor, End: bounds.End}, minDuration)
	}
	return gaps
}

func appendGap(gaps []Span, gap Span, minDuration time.Duration) []Span {
	if gap.Duration() < minDuration {
		return gaps
	}
	return append(gaps, gap)
}
