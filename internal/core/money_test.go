package core

import "testing"

func TestMoneyFormat(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{99, "0.99"},
		{100, "1.00"},
		{123456, "1,234.56"},
		{100000, "1,000.00"},
		{123456789, "1,234,567.89"},
		{-123456, "-1,234.56"},
		{-5, "-0.05"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Format(); got != tc.want {
			t.Errorf("Format(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyDollars(t *testing.T) {
	if got := (Money{Cents: 12345}).Dollars(); got != 123.45 {
		t.Errorf("Dollars() = %v, want 123.45", got)
	}
	if got := (Money{Cents: -50}).Dollars(); got != -0.5 {
		t.Errorf("Dollars() = %v, want -0.5", got)
	}
}
