// Package core provides money parsing and handling utilities.
//
// Amounts are whole numbers of the smallest currency unit. Two entry points
// exist: ParseAmount is strict and used for user input, CoerceAmount is lenient
// and used when reading stored data that may have been written by older
// clients.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts user input into Money.
//
// Grouping separators (commas, underscores, spaces) are accepted and ignored.
// Signs, decimal points and anything that is not a digit are rejected, as is
// zero.
//
// Examples:
//
//	ParseAmount("12000")  -> 12000, nil
//	ParseAmount("12,000") -> 12000, nil
//	ParseAmount("-5")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	digits := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, r)
		case r == ',' || r == '_' || r == ' ':
			// grouping
		default:
			return Money{}, ErrInvalidAmount
		}
	}
	if len(digits) == 0 {
		return Money{}, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil || v <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Units: v}, nil
}

// CoerceAmount turns a stored amount of unknown shape into Money.
// Anything that is not a finite, non-negative number becomes zero so that a
// single bad record cannot break an aggregate. Fractions are truncated.
func CoerceAmount(v any) Money {
	switch n := v.(type) {
	case nil:
		return Money{}
	case int:
		return nonNegative(int64(n))
	case int32:
		return nonNegative(int64(n))
	case int64:
		return nonNegative(n)
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return nonNegative(i)
		}
		if f, err := n.Float64(); err == nil {
			return fromFloat(f)
		}
		return Money{}
	case []byte:
		return coerceString(string(n))
	case string:
		return coerceString(n)
	case Money:
		return nonNegative(n.Units)
	default:
		return Money{}
	}
}

func coerceString(s string) Money {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return nonNegative(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromFloat(f)
	}
	return Money{}
}

func fromFloat(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return Money{}
	}
	return Money{Units: int64(f)}
}

func nonNegative(v int64) Money {
	if v < 0 {
		return Money{}
	}
	return Money{Units: v}
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Units: m.Units + o.Units}
}

// Sub returns m minus o; the result may be negative (e.g. a balance).
func (m Money) Sub(o Money) Money {
	return Money{Units: m.Units - o.Units}
}
