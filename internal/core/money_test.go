package core

import (
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
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{".5", "0.5", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("1250.5"), "USD"); got != "1250.50 USD" {
		t.Fatalf("unexpected format: %q", got)
	}
	if got := FormatAmount(decimal.NewFromInt(3), ""); got != "3.00" {
		t.Fatalf("unexpected format: %q", got)
	}
}

func TestParseAmountBound(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"0", "0", true},
		{"0,00", "0", true},
		{"10,5", "10.5", true},
		{"-1", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmountBound(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
