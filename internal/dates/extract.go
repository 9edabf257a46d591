// Package dates extracts due dates from free text, typically a todo
// title the user is still typing ("take out trash tomorrow at 2pm").
//
// Extraction runs an ordered list of pattern rules over the whole text.
// Rules are not mutually exclusive: every rule that matches is applied
// in sequence, and each handler receives the result produced so far, so
// a later rule can override an earlier one (an explicit "dec 5" beats a
// "today" that also appears in the text) or refine it (a trailing
// "at 2pm" sets the time on whichever date a prior rule produced).
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// handler computes a date from a regex match. prior is the result of
// earlier rules in the same pass, or nil if none matched yet. Returning
// nil leaves the prior result untouched (used when captured groups turn
// out to be out of range, e.g. "feb 30").
type handler func(match []string, prior *time.Time, now time.Time) *time.Time

type rule struct {
	re    *regexp.Regexp
	apply handler
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const monthAbbrevs = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`
const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

// rules are evaluated in order; order is load-bearing (see package doc).
var rules = []rule{
	{
		re:    regexp.MustCompile(`(?i)\b(?:today|tonight)\b`),
		apply: relativeDays(0),
	},
	{
		re:    regexp.MustCompile(`(?i)\btomorrow\b`),
		apply: relativeDays(1),
	},
	{
		re:    regexp.MustCompile(`(?i)\b(?:the )?day after tomorrow\b`),
		apply: relativeDays(2),
	},
	{
		re:    regexp.MustCompile(`(?i)\bnext week\b`),
		apply: relativeDays(7),
	},
	{
		re: regexp.MustCompile(`(?i)\bnext month\b`),
		apply: func(_ []string, _ *time.Time, now time.Time) *time.Time {
			d := now.AddDate(0, 1, 0)
			return &d
		},
	},
	// "dec 11", "dec 11 2pm", "dec 11 14:30"
	{
		re:    regexp.MustCompile(`(?i)\b(` + monthAbbrevs + `)\s+(\d{1,2})(?:\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?)?\b`),
		apply: monthDayTime,
	},
	// "22nd of june", "11 december"
	{
		re:    regexp.MustCompile(`(?i)\b(\d{1,2})(?:th|st|nd|rd)?\s+(?:of\s+)?(` + monthNames + `)\b`),
		apply: dayOfMonth,
	},
	// "june 22", "june 22nd, 2025"
	{
		re:    regexp.MustCompile(`(?i)\b(` + monthNames + `)\s+(\d{1,2})(?:th|st|nd|rd)?(?:,?\s+(\d{4}))?\b`),
		apply: monthDayYear,
	},
	// "6/22", "6/22/25", "22/6/2025". First number <= 12 is read as the
	// month (US convention, inherited; silently misreads e.g. 06/07).
	{
		re:    regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`),
		apply: slashDate,
	},
	// Standalone time of day, refining whatever date matched above (or
	// today's date if none). Three shapes, each unambiguous on its own:
	// an at/by marker, a HH:MM clock, or an am/pm suffix. A bare number
	// is never read as a time, so the "5" in "dec 5 at 2pm" cannot
	// shadow the real "at 2pm".
	{
		re:    regexp.MustCompile(`(?i)\b(?:at|by)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`),
		apply: timeOfDay,
	},
	{
		re:    regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`),
		apply: timeOfDay,
	},
	{
		re: regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`),
		apply: func(m []string, prior *time.Time, now time.Time) *time.Time {
			return timeOfDay([]string{m[0], m[1], "", m[2]}, prior, now)
		},
	},
}

// Extract locates a date/time expression in text relative to now and
// returns the concrete moment it denotes. ok is false when the text
// contains nothing date-like. The function is pure: same text and same
// now always produce the same result.
func Extract(text string, now time.Time) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}

	var result *time.Time
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if d := r.apply(m, result, now); d != nil {
			result = d
		}
	}

	if result == nil {
		return time.Time{}, false
	}
	return *result, true
}

func relativeDays(n int) handler {
	return func(_ []string, _ *time.Time, now time.Time) *time.Time {
		d := now.AddDate(0, 0, n)
		return &d
	}
}

func monthDayTime(m []string, _ *time.Time, now time.Time) *time.Time {
	month := months[strings.ToLower(m[1])]
	day, _ := strconv.Atoi(m[2])

	year := inferYear(month, day, now)
	if !validDay(day, month, year) {
		return nil
	}

	hour, minute := 0, 0
	if m[3] != "" {
		h, _ := strconv.Atoi(m[3])
		if m[4] != "" {
			minute, _ = strconv.Atoi(m[4])
		}
		hour = to24Hour(h, m[5])
		if hour > 23 || minute > 59 {
			return nil
		}
	}

	d := time.Date(year, month, day, hour, minute, 0, 0, now.Location())
	return &d
}

func dayOfMonth(m []string, _ *time.Time, now time.Time) *time.Time {
	day, _ := strconv.Atoi(m[1])
	month := months[strings.ToLower(m[2])[:3]]

	year := inferYear(month, day, now)
	if !validDay(day, month, year) {
		return nil
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return &d
}

func monthDayYear(m []string, _ *time.Time, now time.Time) *time.Time {
	month := months[strings.ToLower(m[1])[:3]]
	day, _ := strconv.Atoi(m[2])

	var year int
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	} else {
		year = inferYear(month, day, now)
	}
	if !validDay(day, month, year) {
		return nil
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return &d
}

func slashDate(m []string, _ *time.Time, now time.Time) *time.Time {
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])

	var month time.Month
	var day int
	if first <= 12 {
		month, day = time.Month(first), second
	} else {
		month, day = time.Month(second), first
	}
	if month < time.January || month > time.December {
		return nil
	}

	var year int
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
	} else {
		year = inferYear(month, day, now)
	}
	if !validDay(day, month, year) {
		return nil
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return &d
}

// timeOfDay overwrites the hour and minute on the date established by
// earlier rules, or on now's date when no date rule matched.
func timeOfDay(m []string, prior *time.Time, now time.Time) *time.Time {
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	hour = to24Hour(hour, m[3])
	if hour > 23 || minute > 59 {
		return nil
	}

	base := now
	if prior != nil {
		base = *prior
	}
	d := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, base.Location())
	return &d
}

// inferYear applies the year-roll rule: with no explicit year, a
// month/day that has already passed this year (compared by month, then
// day) means next year.
func inferYear(month time.Month, day int, now time.Time) int {
	year := now.Year()
	if month < now.Month() || (month == now.Month() && day < now.Day()) {
		year++
	}
	return year
}

func validDay(day int, month time.Month, year int) bool {
	if day < 1 {
		return false
	}
	// Day zero of the next month is the last day of this one.
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return day <= last
}

func to24Hour(hour int, meridiem string) int {
	switch strings.ToLower(meridiem) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}
