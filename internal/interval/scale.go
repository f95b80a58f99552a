// Package interval maps the push schedule control's slider positions to real
// minute intervals. Useful push periods span 1 minute to 3 days, so the
// control uses an uneven step scale instead of a linear one; positions between
// marks are not valid inputs.
package interval

import "fmt"

// Mark is one stop on the schedule scale.
type Mark struct {
	Position    int
	RealMinutes int
	Label       string
	ShortLabel  string
}

var marks = []Mark{
	{Position: 0, RealMinutes: 1, Label: "1m", ShortLabel: "1m"},
	{Position: 5, RealMinutes: 3, Label: "3m", ShortLabel: "3m"},
	{Position: 10, RealMinutes: 5, Label: "5m", ShortLabel: "5m"},
	{Position: 15, RealMinutes: 10, Label: "10m", ShortLabel: "10m"},
	{Position: 25, RealMinutes: 30, Label: "30 mins", ShortLabel: "30m"},
	{Position: 35, RealMinutes: 60, Label: "1 hr", ShortLabel: "1h"},
	{Position: 45, RealMinutes: 2 * 60, Label: "2 hrs", ShortLabel: "2h"},
	{Position: 55, RealMinutes: 3 * 60, Label: "3 hrs", ShortLabel: "3h"},
	{Position: 65, RealMinutes: 5 * 60, Label: "5 hrs", ShortLabel: "5h"},
	{Position: 80, RealMinutes: 24 * 60, Label: "1 day", ShortLabel: "1d"},
	{Position: 90, RealMinutes: 2 * 24 * 60, Label: "2 days", ShortLabel: "2d"},
	{Position: 100, RealMinutes: 3 * 24 * 60, Label: "3 days", ShortLabel: "3d"},
}

// Marks returns the full scale in ascending position order. The slice is a
// copy; callers may not mutate the scale.
func Marks() []Mark {
	out := make([]Mark, len(marks))
	copy(out, marks)
	return out
}

// PositionFor returns the scale position for a real minute interval. ok is
// false when minutes is not one of the allowed values.
func PositionFor(minutes int) (int, bool) {
	for _, mark := range marks {
		if mark.RealMinutes == minutes {
			return mark.Position, true
		}
	}
	return 0, false
}

// RealFor returns the minute interval at a scale position. ok is false for
// positions between marks; the control only emits mark positions.
func RealFor(position int) (int, bool) {
	for _, mark := range marks {
		if mark.Position == position {
			return mark.RealMinutes, true
		}
	}
	return 0, false
}

// LabelFor returns the long display label at a scale position.
func LabelFor(position int) (string, bool) {
	for _, mark := range marks {
		if mark.Position == position {
			return mark.Label, true
		}
	}
	return "", false
}

// ShortLabelFor returns the compact display label at a scale position.
func ShortLabelFor(position int) (string, bool) {
	for _, mark := range marks {
		if mark.Position == position {
			return mark.ShortLabel, true
		}
	}
	return "", false
}

// Next returns the minute interval one mark above minutes, clamped to the top
// of the scale.
func Next(minutes int) int {
	for index, mark := range marks {
		if mark.RealMinutes == minutes {
			if index+1 < len(marks) {
				return marks[index+1].RealMinutes
			}
			return mark.RealMinutes
		}
	}
	return marks[0].RealMinutes
}

// Prev returns the minute interval one mark below minutes, clamped to the
// bottom of the scale.
func Prev(minutes int) int {
	for index, mark := range marks {
		if mark.RealMinutes == minutes {
			if index > 0 {
				return marks[index-1].RealMinutes
			}
			return mark.RealMinutes
		}
	}
	return marks[0].RealMinutes
}

// Format renders a minute interval using its single largest whole unit:
// days when the interval reaches a day, else hours when it reaches an hour,
// else minutes. 1500 minutes renders as "1 day", never "1 day 1 hour".
func Format(minutes int) string {
	if days := minutes / 1440; days > 0 {
		return fmt.Sprintf("%d day%s", days, plural(days))
	}
	if hours := minutes / 60; hours > 0 {
		return fmt.Sprintf("%d hour%s", hours, plural(hours))
	}
	return fmt.Sprintf("%d minute%s", minutes, plural(minutes))
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
