/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pause

import (
	"fmt"
	"sort"
	"time"
)

// Policy answers whether an instant falls inside any configured pause
// window and where production resumes. It is a pure function over
// absolute instants; the windows are immutable after construction.
type Policy struct {
	windows []Window
}

// NewPolicy validates the windows and builds a policy. Overlapping or
// malformed windows are a configuration error and must abort startup.
func NewPolicy(windows []Window) (*Policy, error) {
	if err := ValidateWindows(windows); err != nil {
		return nil, err
	}
	ws := make([]Window, len(windows))
	copy(ws, windows)
	return &Policy{windows: ws}, nil
}

// Windows returns the configured windows.
func (p *Policy) Windows() []Window {
	out := make([]Window, len(p.windows))
	copy(out, p.windows)
	return out
}

// IsPaused reports whether t falls inside any pause window. Window
// starts are inclusive and ends exclusive, so the exact instant a
// window opens is already paused.
func (p *Policy) IsPaused(t time.Time) bool {
	_, _, ok := p.covering(t)
	return ok
}

// NextUnpaused returns the smallest instant >= t for which IsPaused is
// false. If t itself is clear it is returned unchanged. Abutting
// windows are chased in sequence; validation guarantees the windows do
// not cover the entire week, so the chase terminates.
func (p *Policy) NextUnpaused(t time.Time) time.Time {
	for i := 0; i <= len(p.windows); i++ {
		_, end, ok := p.covering(t)
		if !ok {
			return t
		}
		t = end
	}
	return t
}

// covering finds the window containing t and the absolute instant that
// window ends. Validation forbids overlap, so at most one window can
// match.
func (p *Policy) covering(t time.Time) (Window, time.Time, bool) {
	for _, w := range p.windows {
		zt := t.In(w.zone())
		// Start of the civil week (Sunday 00:00) in the window's zone.
		weekStart := time.Date(zt.Year(), zt.Month(), zt.Day()-int(zt.Weekday()), 0, 0, 0, 0, w.zone())
		elapsed := zt.Sub(weekStart)
		start, end := w.span()
		if elapsed >= start && elapsed < end {
			return w, weekStart.Add(end), true
		}
		// Wrapped windows also cover the head of the week.
		if end > week && elapsed < end-week {
			return w, weekStart.Add(end - week), true
		}
	}
	return Window{}, time.Time{}, false
}

// ValidateWindows rejects malformed windows, overlapping windows, and
// window sets that pause the entire week.
func ValidateWindows(windows []Window) error {
	type interval struct {
		start, end time.Duration
		w          Window
	}
	var intervals []interval

	for _, w := range windows {
		if w.Start < 0 || w.Start >= day || w.End < 0 || w.End >= day {
			return fmt.Errorf("pause window %s: time of day out of range", w)
		}
		if w.StartDay < time.Sunday || w.StartDay > time.Saturday ||
			w.EndDay < time.Sunday || w.EndDay > time.Saturday {
			return fmt.Errorf("pause window %s: invalid weekday", w)
		}
		if w.Offset < -maxOffsetSeconds || w.Offset > maxOffsetSeconds {
			return fmt.Errorf("pause window %s: utc offset out of range", w)
		}
		if w.StartDay == w.EndDay && w.Start == w.End {
			return fmt.Errorf("pause window %s: start and end coincide", w)
		}

		// Normalize to UTC week offsets so windows declared in
		// different zones compare in one frame. Subtracting the offset
		// can push the start below zero or past the week end; reduce it
		// back into [0, week) before splitting.
		start, end := w.span()
		start -= time.Duration(w.Offset) * time.Second
		end -= time.Duration(w.Offset) * time.Second
		for start < 0 {
			start += week
			end += week
		}
		for start >= week {
			start -= week
			end -= week
		}
		if end > week {
			// Split the wrapped tail back to the head of the week.
			intervals = append(intervals, interval{start: 0, end: end - week, w: w})
			end = week
		}
		intervals = append(intervals, interval{start: start, end: end, w: w})
	}

	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })

	var covered time.Duration
	for i, iv := range intervals {
		covered += iv.end - iv.start
		if i == 0 {
			continue
		}
		prev := intervals[i-1]
		if iv.start < prev.end {
			return fmt.Errorf("pause windows overlap: %s and %s", prev.w, iv.w)
		}
	}
	if covered >= week {
		return fmt.Errorf("pause windows cover the entire week; production could never resume")
	}
	return nil
}
