// Package transform normalizes raw query payloads into typed records.
package transform

import (
	"strconv"
	"strings"
	"time"

	"github.com/dbsmedya/statsync/internal/pxweb"
)

// Coercer converts a raw cell string into a typed value. Implementations are
// best-effort: a value that cannot be coerced is returned unchanged, never
// rejected.
type Coercer interface {
	Coerce(raw string) interface{}
}

// NumericCoercer parses cells as float64, falling back to the original string.
type NumericCoercer struct{}

func (NumericCoercer) Coerce(raw string) interface{} {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// TimeCoercer normalizes the source's date encodings to time.Time:
//
//   - "YYYYMmm" month notation maps to the last calendar day of that month
//   - a bare year maps to December 31 of that year
//   - otherwise a few common date layouts are attempted
//
// Anything else passes through unchanged.
type TimeCoercer struct{}

var genericDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01",
}

func (TimeCoercer) Coerce(raw string) interface{} {
	if t, ok := parseMonthNotation(raw); ok {
		return t
	}
	if year, err := strconv.Atoi(raw); err == nil {
		return endOfMonth(year, time.December)
	}
	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return raw
}

// parseMonthNotation parses the "YYYYMmm" encoding (e.g. "2023M02").
func parseMonthNotation(raw string) (time.Time, bool) {
	parts := strings.SplitN(raw, "M", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	return endOfMonth(year, time.Month(month)), true
}

// endOfMonth returns midnight on the last calendar day of the month.
// Day zero of the following month normalizes backwards.
func endOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

// IdentityCoercer returns cells unchanged. It is the explicit fallback for
// columns exempted from coercion.
type IdentityCoercer struct{}

func (IdentityCoercer) Coerce(raw string) interface{} {
	return raw
}

// coercerFor selects the coercion strategy for a column by its declared type
// tag. Time-tagged columns get date normalization; configured text columns
// keep their values; everything else is opportunistically numeric.
func coercerFor(col pxweb.Column, normName string, isText func(string) bool) Coercer {
	if col.Type == pxweb.ColumnTypeTime {
		return TimeCoercer{}
	}
	if isText != nil && isText(normName) {
		return IdentityCoercer{}
	}
	return NumericCoercer{}
}
