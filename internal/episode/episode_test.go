package episode

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in         string
		start, end int
	}{
		{"10", 10, 10},
		{"  7 ", 7, 7},
		{"1-5", 1, 5},
		{"5-1", 1, 5},
		{" 3 - 9 ", 3, 9},
		{"4-4", 4, 4},
		{"007", 7, 7},
		{"0", 0, 0},
		{" 00 ", 0, 0},
		{"0-5", 0, 5},
		{"5-0", 0, 5},
	}
	for _, tc := range cases {
		r, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if r.Start != tc.start || r.End != tc.end {
			t.Fatalf("Parse(%q) = %+v, want %d-%d", tc.in, r, tc.start, tc.end)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "-5", "1-", "-", "1-2-3", "Ep1", "1.5", "+4", "99999999999999999999"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Parse(%q) err = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestParseTagged(t *testing.T) {
	r, err := ParseTagged("Ep1")
	if err != nil || r != (Range{1, 1}) {
		t.Fatalf("Ep1 = %+v, %v", r, err)
	}
	r, err = ParseTagged("Ep10-1")
	if err != nil || r != (Range{1, 10}) {
		t.Fatalf("Ep10-1 = %+v, %v", r, err)
	}
	r, err = ParseTagged("Ep0")
	if err != nil || r != (Range{0, 0}) {
		t.Fatalf("Ep0 = %+v, %v", r, err)
	}
	for _, in := range []string{"ep1", "EP1", "1", "Ep", "Ep1-", "Ep1-Ep5", "Ep 1"} {
		if _, err := ParseTagged(in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseTagged(%q) err = %v", in, err)
		}
	}
}

func TestRangeHelpers(t *testing.T) {
	outer := Range{1, 50}
	if !outer.Contains(Range{1, 5}) || !outer.Contains(Range{50, 50}) {
		t.Fatal("expected containment")
	}
	if outer.Contains(Range{40, 60}) {
		t.Fatal("partial overlap must not be contained")
	}
	if outer.Span() != 50 || !(Range{3, 3}).Single() {
		t.Fatal("span/single mismatch")
	}
	if s := (Range{1, 10}).String(); s != "Ep1-Ep10" {
		t.Fatalf("String = %s", s)
	}
	if _, err := New(0, 3); !errors.Is(err, ErrInvalidInput) {
		t.Fatal("zero bound must be rejected")
	}
}
