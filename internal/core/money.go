// Package core implements the analytics transformation layer: classifying
// marketplace transactions as buys or sells, folding them into per-product
// statistics and daily demand buckets, and producing the filtered, ordered
// views the presentation consumes.
//
// Everything in this package is a pure function over immutable inputs.
// Money crosses the package boundary as integer cents; division by 100 for
// display happens exactly once, at the edge.
package core

import (
	"strconv"
	"strings"
)

// Money is an amount in integer cents. Arithmetic stays in cents so
// comparator logic and display formatting agree on the unit.
type Money struct {
	Cents int64
}

// Dollars returns the display-dollar value. Use cents for calculations.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// Format renders the amount with two decimals and thousands separators,
// e.g. Money{123456789}.Format() == "1,234,567.89".
func (m Money) Format() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	// Insert a separator before every group of three trailing digits.
	lead := len(whole) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(whole[:lead])
	for i := lead; i < len(whole); i += 3 {
		b.WriteByte(',')
		b.WriteString(whole[i : i+3])
	}

	rem := cents % 100
	b.WriteByte('.')
	if rem < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(rem, 10))
	return b.String()
}
