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
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.004", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestCentsRoundTrip(t *testing.T) {
	cases := []struct {
		amount string
		cents  int64
	}{
		{"0.01", 1},
		{"12.34", 1234},
		{"12.345", 1235},
		{"1000", 100000},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.amount)
		if got := ToCents(d); got != tc.cents {
			t.Errorf("ToCents(%s) = %d, want %d", tc.amount, got, tc.cents)
		}
		if got := FromCents(tc.cents); !got.Equal(RoundAmount(d)) {
			t.Errorf("FromCents(%d) = %s, want %s", tc.cents, got, RoundAmount(d))
		}
	}
}

func TestSumAmounts(t *testing.T) {
	got := SumAmounts(decimal.RequireFromString("0.10"), decimal.RequireFromString("0.20"))
	if !got.Equal(decimal.RequireFromString("0.30")) {
		t.Fatalf("SumAmounts = %s, want 0.30", got)
	}
	if !SumAmounts().IsZero() {
		t.Fatalf("empty sum should be zero")
	}
}
