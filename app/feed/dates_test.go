package feed

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
	}{
		{"Mon, 03 Jul 2023 10:00:00 +0000", time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)},
		{"Mon, 3 Jul 2023 10:00:00 +0000", time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)},
		{"2023-07-03T10:00:00Z", time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)},
		{"2023-07-03T12:00:00+02:00", time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)},
		{"2023-07-03 10:00:00", time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)},
		{"2023-07-03", time.Date(2023, 7, 3, 0, 0, 0, 0, time.UTC)},
		{"04/08/2025", time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)},
		{"04-08-2025 15:30:00", time.Date(2025, 8, 4, 15, 30, 0, 0, time.UTC)},
		{" 2023-07-03T10:00:00Z ", time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got := ParseDate(tt.input)
		if got == nil {
			t.Errorf("ParseDate(%q) = nil, want %v", tt.input, tt.expected)
			continue
		}
		if !got.Equal(tt.expected) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.input, *got, tt.expected)
		}
	}
}

func TestParseDateFallsBackToDateparse(t *testing.T) {
	got := ParseDate("July 3, 2023")
	if got == nil {
		t.Fatal("Expected dateparse to handle a long-form date")
	}
	if got.Year() != 2023 || got.Month() != time.July || got.Day() != 3 {
		t.Errorf("Expected 2023-07-03, got %v", *got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "not a date"} {
		if got := ParseDate(input); got != nil {
			t.Errorf("ParseDate(%q) = %v, want nil", input, *got)
		}
	}
}
