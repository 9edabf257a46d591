package dates

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.Local)
}

func TestExtract(t *testing.T) {
	// Monday morning, mid-June.
	now := date(2024, time.June, 10, 8, 0, 0)

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"today", "pay rent today", now},
		{"tonight", "call mom tonight", now},
		{"tomorrow inherits time of day", "buy milk tomorrow", date(2024, time.June, 11, 8, 0, 0)},
		{"day after tomorrow", "review PR day after tomorrow", date(2024, time.June, 12, 8, 0, 0)},
		{"day after tomorrow with article", "the day after tomorrow", date(2024, time.June, 12, 8, 0, 0)},
		{"next week", "plan sprint next week", date(2024, time.June, 17, 8, 0, 0)},
		{"next month", "renew domain next month", date(2024, time.July, 10, 8, 0, 0)},

		{"month day", "ship release dec 11", date(2024, time.December, 11, 0, 0, 0)},
		{"month day with pm time", "standup dec 11 2pm", date(2024, time.December, 11, 14, 0, 0)},
		{"month day with clock time", "standup dec 11 14:30", date(2024, time.December, 11, 14, 30, 0)},
		{"month day trailing at-time", "submit report dec 5 at 2pm", date(2024, time.December, 5, 14, 0, 0)},
		{"full month name", "party december 24", date(2024, time.December, 24, 0, 0, 0)},
		{"ordinal day of month", "taxes due 22nd of june", date(2024, time.June, 22, 0, 0, 0)},
		{"day before month", "taxes due 22 june", date(2024, time.June, 22, 0, 0, 0)},
		{"explicit year", "conference june 22, 2026", date(2026, time.June, 22, 0, 0, 0)},
		{"explicit year no roll", "archive jan 5 2023", date(2023, time.January, 5, 0, 0, 0)},

		{"slash month first", "dentist 6/22", date(2024, time.June, 22, 0, 0, 0)},
		{"slash day first when over twelve", "flight 22/6", date(2024, time.June, 22, 0, 0, 0)},
		{"slash two digit year", "renewal 6/22/25", date(2025, time.June, 22, 0, 0, 0)},
		{"slash four digit year", "renewal 6/22/2025", date(2025, time.June, 22, 0, 0, 0)},

		{"time only uses today", "gym at 6pm", date(2024, time.June, 10, 18, 0, 0)},
		{"by clock time", "submit by 14:30", date(2024, time.June, 10, 14, 30, 0)},
		{"meridiem only", "lunch 12pm", date(2024, time.June, 10, 12, 0, 0)},
		{"midnight", "batch job 12am", date(2024, time.June, 10, 0, 0, 0)},

		{"explicit date overrides relative", "today, but really dec 5", date(2024, time.December, 5, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.text, now)
			if !ok {
				t.Fatalf("Extract(%q) found nothing, want %v", tt.text, tt.want)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtract_NothingFound(t *testing.T) {
	now := date(2024, time.June, 10, 8, 0, 0)

	tests := []struct {
		name string
		text string
	}{
		{"plain text", "buy milk"},
		{"empty", ""},
		{"bare number", "chapter 7 review"},
		{"day overflow", "feb 30"},
		{"day overflow full month", "party february 31"},
		{"zero day", "jan 0"},
		{"invalid slash month", "13/13"},
		{"hour out of range", "at 25pm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Extract(tt.text, now); ok {
				t.Errorf("Extract(%q) = %v, want no match", tt.text, got)
			}
		})
	}
}

func TestExtract_YearRoll(t *testing.T) {
	// Spec scenario: "dec 5" before December stays this year, after
	// December 5 rolls to next year.
	early := date(2024, time.June, 10, 0, 0, 0)
	late := date(2024, time.December, 10, 0, 0, 0)

	got, ok := Extract("submit report dec 5 at 2pm", early)
	if !ok || !got.Equal(date(2024, time.December, 5, 14, 0, 0)) {
		t.Errorf("before cutoff = %v (ok=%v), want 2024-12-05T14:00", got, ok)
	}

	got, ok = Extract("submit report dec 5 at 2pm", late)
	if !ok || !got.Equal(date(2025, time.December, 5, 14, 0, 0)) {
		t.Errorf("after cutoff = %v (ok=%v), want 2025-12-05T14:00", got, ok)
	}

	// Same day does not roll.
	got, ok = Extract("dec 10", late)
	if !ok || !got.Equal(date(2024, time.December, 10, 0, 0, 0)) {
		t.Errorf("same day = %v (ok=%v), want 2024-12-10", got, ok)
	}

	// Leap day only parses in a year where it exists: from 2024 the
	// roll target for a passed feb 29 is 2025, which has no feb 29.
	afterLeap := date(2024, time.March, 1, 0, 0, 0)
	if got, ok := Extract("feb 29", afterLeap); ok {
		t.Errorf("feb 29 rolled into non-leap year = %v, want no match", got)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	now := date(2024, time.June, 10, 8, 0, 0)
	texts := []string{"buy milk tomorrow", "dec 11 2pm", "nothing here", "gym at 6pm"}

	for _, text := range texts {
		first, okFirst := Extract(text, now)
		for i := 0; i < 10; i++ {
			got, ok := Extract(text, now)
			if ok != okFirst || (ok && !got.Equal(first)) {
				t.Errorf("Extract(%q) not deterministic: %v/%v then %v/%v", text, first, okFirst, got, ok)
			}
		}
	}
}
