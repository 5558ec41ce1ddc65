package duration

import "testing"

func TestParseHours(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1h 30m", 1.5},
		{"2h", 2},
		{"45m", 0.75},
		{"", 1},
		{"soon", 1},
		{"1H 30M", 1.5},
		{"0h 15m", 0.25},
		{"2h15m", 2.25},
		{"  3h  ", 3},
	}
	for _, tt := range tests {
		if got := ParseHours(tt.in); got != tt.want {
			t.Errorf("ParseHours(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1h 30m"},
		{2, "2h"},
		{0.75, "45m"},
		{0, "0m"},
		{2.25, "2h 15m"},
	}
	for _, tt := range tests {
		if got := FormatHours(tt.in); got != tt.want {
			t.Errorf("FormatHours(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"1h 30m", "2h", "45m"} {
		if got := FormatHours(ParseHours(s)); got != s {
			t.Errorf("round trip %q = %q", s, got)
		}
	}
}
