package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"12.50", "12.5", true},
		{"12,50", "12.5", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"$1,250.50", "1250.5", true},
		{"$1,250", "1250", true},
		{"1,250,000", "1250000", true},
		{"-1,250", "-1250", true},
		{"0,125", "0.125", true},
		{"1,2500", "1.25", true},
		{"1,25,000", "", false},
		{"-3", "-3", true},
		{"+4", "4", true},
		{".5", "0.5", true},
		{"0", "0", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"-", "", false},
		{"12a", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestParseLenient(t *testing.T) {
	if got := ParseLenient("nope"); !got.IsZero() {
		t.Fatalf("expected zero fallback, got %s", got)
	}
	if got := ParseLenient("3"); got.String() != "3" {
		t.Fatalf("expected 3, got %s", got)
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"350.25", "$350.25"},
		{"37.5", "$37.50"},
		{"0", "$0.00"},
		{"-5", "-$5.00"},
		{"1.005", "$1.01"},
		{"-0.001", "$0.00"},
	}
	for _, tc := range cases {
		got := FormatCurrency("$", decimal.RequireFromString(tc.in))
		if got != tc.out {
			t.Fatalf("%s expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

func TestCentsRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("350.255")
	cents := ToCents(d)
	if cents != 35026 {
		t.Fatalf("expected 35026, got %d", cents)
	}
	if got := FromCents(cents).String(); got != "350.26" {
		t.Fatalf("expected 350.26, got %s", got)
	}
}
