package value

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Interval is a closed interval [Start, Stop]. A positive Step restricts the
// interval to Start + k*Step.
type Interval struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
	Step  float64 `json:"step,omitempty"`
}

// Span returns a continuous interval.
func Span(start, stop float64) Interval {
	return Interval{Start: start, Stop: stop}
}

// Stepped returns a discrete interval.
func Stepped(start, stop, step float64) Interval {
	return Interval{Start: start, Stop: stop, Step: step}
}

// Point returns a single-value interval.
func Point(v float64) Interval {
	return Interval{Start: v, Stop: v}
}

// Contains reports whether v lies in the interval. Stepped intervals accept
// values within a millionth of a step of the grid. NaN lies in no interval.
func (iv Interval) Contains(v float64) bool {
	if !(v >= iv.Start && v <= iv.Stop) {
		return false
	}
	if iv.Step <= 0 {
		return true
	}
	k := (v - iv.Start) / iv.Step
	return math.Abs(k-math.Round(k)) < 1e-6
}

// clip returns the nearest value of the interval to v. NaN maps to Start.
func (iv Interval) clip(v float64) float64 {
	if math.IsNaN(v) {
		return iv.Start
	}
	v = math.Max(iv.Start, math.Min(iv.Stop, v))
	if iv.Step <= 0 {
		return v
	}
	k := math.Round((v - iv.Start) / iv.Step)
	v = iv.Start + k*iv.Step
	if v > iv.Stop {
		if v-iv.Stop > iv.Step*1e-6 {
			return v - iv.Step
		}
		return iv.Stop
	}
	return v
}

// Range is an ordered set of disjoint closed intervals.
type Range []Interval

// ErrEmptyRange is returned when a range has no intervals.
var ErrEmptyRange = errors.New("range has no intervals")

// NewRange sorts the intervals by start and rejects overlapping or inverted
// ones.
func NewRange(ivs ...Interval) (Range, error) {
	if len(ivs) == 0 {
		return nil, ErrEmptyRange
	}
	r := slices.Clone(ivs)
	slices.SortFunc(r, func(a, b Interval) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	for i, iv := range r {
		if iv.Stop < iv.Start {
			return nil, fmt.Errorf("interval %d inverted: [%g, %g]", i, iv.Start, iv.Stop)
		}
		if iv.Step < 0 {
			return nil, fmt.Errorf("interval %d has negative step %g", i, iv.Step)
		}
		if i > 0 && iv.Start <= r[i-1].Stop {
			return nil, fmt.Errorf("interval %d overlaps interval %d", i, i-1)
		}
	}
	return r, nil
}

// MustRange is like NewRange but panics on error.
// Use for package-level declarations with constant bounds.
func MustRange(ivs ...Interval) Range {
	r, err := NewRange(ivs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Start returns the lowest value of the range.
func (r Range) Start() float64 { return r[0].Start }

// Stop returns the highest value of the range.
func (r Range) Stop() float64 { return r[len(r)-1].Stop }

// Contains reports whether v lies in any interval.
func (r Range) Contains(v float64) bool {
	for _, iv := range r {
		if iv.Contains(v) {
			return true
		}
	}
	return false
}

// Clip returns the value of the range nearest to v. Ties between two
// intervals go to the lower one. NaN maps to Start and infinities to the
// matching end.
func (r Range) Clip(v float64) float64 {
	switch {
	case math.IsNaN(v), math.IsInf(v, -1):
		return r.Start()
	case math.IsInf(v, 1):
		return r[len(r)-1].clip(v)
	}
	best := r[0].clip(v)
	for _, iv := range r[1:] {
		c := iv.clip(v)
		if math.Abs(c-v) < math.Abs(best-v) {
			best = c
		}
	}
	return best
}

// String renders the range as a union of intervals.
func (r Range) String() string {
	parts := make([]string, len(r))
	for i, iv := range r {
		if iv.Step > 0 {
			parts[i] = fmt.Sprintf("[%s, %s; %s]", FormatFloat(iv.Start), FormatFloat(iv.Stop), FormatFloat(iv.Step))
		} else {
			parts[i] = fmt.Sprintf("[%s, %s]", FormatFloat(iv.Start), FormatFloat(iv.Stop))
		}
	}
	return strings.Join(parts, " U ")
}

// Options is a fixed, ordered set of permitted string values.
type Options []string

// Contains reports whether s is one of the options.
func (o Options) Contains(s string) bool {
	return slices.Contains(o, s)
}
