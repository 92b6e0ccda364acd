/*
Copyright (C) 2026 BlessChain Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pause evaluates recurring weekly pause windows during which
// no block may be produced. Windows are civil-calendar rules (weekday +
// time-of-day) pinned to a fixed UTC offset, so evaluation never
// depends on the host timezone database or daylight-saving shifts.
package pause

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day

	// Offsets beyond UTC±14:00 do not exist in any civil calendar.
	maxOffsetSeconds = 14 * 60 * 60
)

// Window is one recurring weekly pause interval. Start is inclusive,
// end is exclusive. A window whose end precedes its start wraps across
// the week boundary (e.g. Saturday 22:00 to Sunday 02:00 is fine, and
// so is Sunday 23:00 to Monday 01:00).
type Window struct {
	StartDay time.Weekday
	Start    time.Duration // time of day, 0 <= Start < 24h
	EndDay   time.Weekday
	End      time.Duration // time of day, 0 <= End < 24h
	Offset   int           // seconds east of UTC
}

// span returns the window as offsets from the start of its civil week
// (Sunday 00:00 local to the window's offset). The end offset may
// exceed one week when the window wraps.
func (w Window) span() (start, end time.Duration) {
	start = time.Duration(w.StartDay)*day + w.Start
	end = time.Duration(w.EndDay)*day + w.End
	if end <= start {
		end += week
	}
	return start, end
}

// zone returns the fixed-offset location the window is evaluated in.
func (w Window) zone() *time.Location {
	return time.FixedZone(formatOffset(w.Offset), w.Offset)
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s - %s %s %s",
		w.StartDay, formatTimeOfDay(w.Start), w.EndDay, formatTimeOfDay(w.End), formatOffset(w.Offset))
}

// ParseWindow builds a Window from textual weekday, time-of-day, and
// UTC offset fields, the form they take in a chain spec file.
func ParseWindow(startDay, startTime, endDay, endTime, offset string) (Window, error) {
	var w Window
	var err error
	if w.StartDay, err = ParseWeekday(startDay); err != nil {
		return Window{}, err
	}
	if w.Start, err = ParseTimeOfDay(startTime); err != nil {
		return Window{}, err
	}
	if w.EndDay, err = ParseWeekday(endDay); err != nil {
		return Window{}, err
	}
	if w.End, err = ParseTimeOfDay(endTime); err != nil {
		return Window{}, err
	}
	if w.Offset, err = ParseOffset(offset); err != nil {
		return Window{}, err
	}
	return w, nil
}

// ParseWeekday parses a full English weekday name, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// ParseTimeOfDay parses "15:04" or "15:04:05" into a duration since
// midnight. "24:00" is accepted as the exclusive end of a day and maps
// to 00:00 of the following weekday, which callers express by naming
// the next day instead; here it is rejected to keep windows canonical.
func ParseTimeOfDay(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		nums[i] = n
	}
	if nums[0] > 23 || nums[1] > 59 || nums[2] > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return time.Duration(nums[0])*time.Hour +
		time.Duration(nums[1])*time.Minute +
		time.Duration(nums[2])*time.Second, nil
}

// ParseOffset parses a UTC offset of the form "+02:00", "-05:30", "Z",
// or "UTC" into seconds east of UTC.
func ParseOffset(s string) (int, error) {
	if s == "" || strings.EqualFold(s, "Z") || strings.EqualFold(s, "UTC") {
		return 0, nil
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("invalid utc offset %q", s)
	}
	parts := strings.Split(s[1:], ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid utc offset %q", s)
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hh < 0 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid utc offset %q", s)
	}
	secs := sign * (hh*3600 + mm*60)
	if secs < -maxOffsetSeconds || secs > maxOffsetSeconds {
		return 0, fmt.Errorf("utc offset %q out of range", s)
	}
	return secs, nil
}

func formatOffset(secs int) string {
	if secs == 0 {
		return "UTC"
	}
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

func formatTimeOfDay(d time.Duration) string {
	secs := int(d / time.Second)
	if secs%60 == 0 {
		return fmt.Sprintf("%02d:%02d", secs/3600, (secs%3600)/60)
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
