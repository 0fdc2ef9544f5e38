package types

import (
	"errors"
	"fmt"
	"time"
)

// TemporalInterval represents the date range during which a norm is in
// force. Either bound may be absent; an interval with OpenEnded set has no
// upper bound regardless of any stored End. An interval with neither bound
// and OpenEnded unset is undefined and overlaps nothing.
//
// Intervals are immutable value types: operations return new intervals.
type TemporalInterval struct {
	Start     *time.Time   `json:"start_date,omitempty"`
	End       *time.Time   `json:"end_date,omitempty"`
	Type      IntervalType `json:"interval_type,omitempty"`
	OpenEnded bool         `json:"is_open_ended"`
	Uncertain bool         `json:"uncertainty_flag"`
}

// ErrOpenEndedWithEnd is returned when an interval declares itself
// open-ended while also carrying a concrete end date. OpenEnded is
// authoritative, so the combination is rejected rather than guessed at.
var ErrOpenEndedWithEnd = errors.New("interval cannot be open-ended and carry an end date")

// NewInterval constructs a validated interval. Open-ended intervals must not
// carry an end date.
func NewInterval(start, end *time.Time, openEnded bool) (TemporalInterval, error) {
	if openEnded && end != nil {
		return TemporalInterval{}, ErrOpenEndedWithEnd
	}
	return TemporalInterval{Start: start, End: end, Type: IntervalClosed, OpenEnded: openEnded}, nil
}

// BoundedInterval constructs a closed interval over [start, end].
func BoundedInterval(start, end time.Time) TemporalInterval {
	return TemporalInterval{Start: &start, End: &end, Type: IntervalClosed}
}

// OpenInterval constructs an open-ended interval beginning at start.
func OpenInterval(start time.Time) TemporalInterval {
	return TemporalInterval{Start: &start, Type: IntervalClosed, OpenEnded: true}
}

// UndefinedInterval constructs the undefined interval, which overlaps
// nothing. Used to degrade malformed temporal input without failing a batch.
func UndefinedInterval() TemporalInterval {
	return TemporalInterval{Type: IntervalClosed, Uncertain: true}
}

// IsUndefined reports whether the interval has no bounds and is not
// open-ended.
func (i TemporalInterval) IsUndefined() bool {
	return i.Start == nil && i.End == nil && !i.OpenEnded
}

// upperBound returns the effective end of the interval. OpenEnded is
// authoritative: a stale End on an open-ended interval is ignored.
func (i TemporalInterval) upperBound() *time.Time {
	if i.OpenEnded {
		return nil
	}
	return i.End
}

// Overlaps reports whether two intervals share at least one date.
//
// Missing dates resolve conservatively: when a bound needed for the
// comparison is absent on an open-ended side, the intervals are treated as
// overlapping, because a missed conflict is worse than a spurious one. Only
// a bounded interval with a missing bound (the undefined case) refuses to
// overlap.
func (i TemporalInterval) Overlaps(other TemporalInterval) bool {
	iEnd := i.upperBound()
	oEnd := other.upperBound()

	if i.OpenEnded && other.OpenEnded {
		// Two unbounded intervals overlap once both have begun.
		return i.Start != nil && other.Start != nil
	}

	if i.OpenEnded {
		if i.Start == nil || oEnd == nil {
			return true
		}
		return !i.Start.After(*oEnd)
	}

	if other.OpenEnded {
		if other.Start == nil || iEnd == nil {
			return true
		}
		return !other.Start.After(*iEnd)
	}

	// Both bounded: every bound is required.
	if i.Start == nil || iEnd == nil || other.Start == nil || oEnd == nil {
		return false
	}
	return !i.Start.After(*oEnd) && !other.Start.After(*iEnd)
}

// Intersection returns the interval common to both, or nil if they do not
// overlap.
func (i TemporalInterval) Intersection(other TemporalInterval) *TemporalInterval {
	if !i.Overlaps(other) {
		return nil
	}

	if i.OpenEnded && other.OpenEnded {
		return &TemporalInterval{
			Start:     laterDate(i.Start, other.Start),
			Type:      IntervalClosed,
			OpenEnded: true,
		}
	}

	if i.OpenEnded {
		start := other.Start
		if i.Start != nil && other.Start != nil {
			start = laterDate(i.Start, other.Start)
		}
		return &TemporalInterval{Start: start, End: other.upperBound(), Type: IntervalClosed}
	}

	if other.OpenEnded {
		start := i.Start
		if i.Start != nil && other.Start != nil {
			start = laterDate(i.Start, other.Start)
		}
		return &TemporalInterval{Start: start, End: i.upperBound(), Type: IntervalClosed}
	}

	// Both bounded; Overlaps guarantees all four bounds are present.
	return &TemporalInterval{
		Start: laterDate(i.Start, other.Start),
		End:   earlierDate(i.End, other.End),
		Type:  IntervalClosed,
	}
}

// Union returns the single interval covering both inputs when they overlap
// or are adjacent (gap of at most one day). Disjoint intervals have no
// single-interval union and yield nil.
func (i TemporalInterval) Union(other TemporalInterval) *TemporalInterval {
	if !i.Overlaps(other) {
		if u := adjacentUnion(i, other); u != nil {
			return u
		}
		return adjacentUnion(other, i)
	}

	if i.OpenEnded || other.OpenEnded {
		var start *time.Time
		if i.Start != nil && other.Start != nil {
			start = earlierDate(i.Start, other.Start)
		} else if i.Start != nil {
			start = i.Start
		} else {
			start = other.Start
		}
		return &TemporalInterval{Start: start, Type: IntervalClosed, OpenEnded: true}
	}

	if i.Start == nil || i.End == nil || other.Start == nil || other.End == nil {
		return nil
	}
	return &TemporalInterval{
		Start: earlierDate(i.Start, other.Start),
		End:   laterDate(i.End, other.End),
		Type:  IntervalClosed,
	}
}

// adjacentUnion joins first into second when second begins no more than one
// day after first ends.
func adjacentUnion(first, second TemporalInterval) *TemporalInterval {
	fEnd := first.upperBound()
	if fEnd == nil || second.Start == nil {
		return nil
	}
	gap := second.Start.Sub(*fEnd)
	if gap < 0 || gap > 24*time.Hour {
		return nil
	}
	return &TemporalInterval{
		Start:     first.Start,
		End:       second.upperBound(),
		Type:      IntervalClosed,
		OpenEnded: second.OpenEnded,
	}
}

// ContainsDate reports whether d falls within the interval.
func (i TemporalInterval) ContainsDate(d time.Time) bool {
	if i.OpenEnded {
		if i.Start == nil {
			return true
		}
		return !d.Before(*i.Start)
	}
	if i.Start == nil || i.End == nil {
		return false
	}
	return !d.Before(*i.Start) && !d.After(*i.End)
}

// DurationDays returns the interval length in days, or nil for open-ended
// or partially unbounded intervals.
func (i TemporalInterval) DurationDays() *int {
	if i.OpenEnded || i.Start == nil || i.End == nil {
		return nil
	}
	days := int(i.End.Sub(*i.Start).Hours() / 24)
	return &days
}

// SplitByDate partitions the interval at d. The split date itself belongs
// to the after half. Either half may be nil when d falls outside the
// interval or coincides with a bound.
func (i TemporalInterval) SplitByDate(d time.Time) (before, after *TemporalInterval) {
	if !i.ContainsDate(d) {
		if i.Start != nil && d.Before(*i.Start) {
			return nil, &i
		}
		return &i, nil
	}

	if i.Start != nil && d.After(*i.Start) {
		splitAt := d
		before = &TemporalInterval{Start: i.Start, End: &splitAt, Type: IntervalHalfOpenRight}
	}

	if i.OpenEnded {
		splitAt := d
		after = &TemporalInterval{Start: &splitAt, Type: IntervalClosed, OpenEnded: true}
	} else if i.End != nil && d.Before(*i.End) {
		splitAt := d
		after = &TemporalInterval{Start: &splitAt, End: i.End, Type: IntervalHalfOpenLeft}
	}

	return before, after
}

// String renders the interval for descriptions and explanations.
func (i TemporalInterval) String() string {
	if i.OpenEnded {
		return fmt.Sprintf("[%s -> ongoing]", formatDate(i.Start))
	}
	return fmt.Sprintf("[%s to %s]", formatDate(i.Start), formatDate(i.End))
}

func formatDate(d *time.Time) string {
	if d == nil {
		return "?"
	}
	return d.Format("2006-01-02")
}

func laterDate(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.After(*b) {
		return a
	}
	return b
}

func earlierDate(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Before(*b) {
		return a
	}
	return b
}
