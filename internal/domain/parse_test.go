package domain

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
	}{
		{"yes", StatusYes},
		{" Yes ", StatusYes},
		{"NO", StatusNo},
		{"yes but later", StatusYesLater},
		{"Yes Later", StatusYesLater},
	}
	for _, c := range cases {
		got, err := ParseStatus(c.in)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseStatus_Invalid(t *testing.T) {
	if _, err := ParseStatus("maybe"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("20:30")
	if err != nil {
		t.Fatalf("ParseClock: %v", err)
	}
	if h != 20 || m != 30 {
		t.Fatalf("got %d:%d, want 20:30", h, m)
	}
	for _, bad := range []string{"25:00", "20:61", "20", "a:b"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Fatalf("ParseClock(%q): want error", bad)
		}
	}
}

func TestValidatePollTime(t *testing.T) {
	if err := ValidatePollTime(0, 0); err != nil {
		t.Fatalf("00:00 should be valid: %v", err)
	}
	if err := ValidatePollTime(24, 0); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("want ErrInvalidTime, got %v", err)
	}
}
