// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package models

import (
	"errors"
	"fmt"
	"time"
)

// MonthLayout is the text form of a Month.
const MonthLayout = "2006-01"

// ErrInvalidDateRange is returned when a range ends before it starts.
var ErrInvalidDateRange = errors.New("date range end is before start")

// Month is a calendar month. It is the unit of the remote archive layout:
// one object per location per month.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth returns the month containing t (in UTC).
func NewMonth(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return NewMonth(t), nil
}

// String returns "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether m is unset.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start returns the first instant of the month in UTC.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month in UTC.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// Next returns the following month.
func (m Month) Next() Month {
	return NewMonth(m.End())
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// DateRange is an inclusive range of months.
type DateRange struct {
	Start Month `json:"start"`
	End   Month `json:"end"`
}

// ParseDateRange parses inclusive "YYYY-MM" bounds and validates them.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseMonth(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseMonth(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("end: %w", err)
	}
	r := DateRange{Start: s, End: e}
	return r, r.Validate()
}

// Validate checks that both bounds are set and Start <= End.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("date range requires both start and end months")
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, r.Start, r.End)
	}
	return nil
}

// Months enumerates every month in the range, inclusive, in order.
// An invalid range yields nil.
func (r DateRange) Months() []Month {
	if r.Validate() != nil {
		return nil
	}
	var months []Month
	for m := r.Start; !r.End.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// Len returns the number of months in the range.
func (r DateRange) Len() int {
	if r.Validate() != nil {
		return 0
	}
	return (r.End.Year-r.Start.Year)*12 + int(r.End.Month) - int(r.Start.Month) + 1
}

// String returns "YYYY-MM..YYYY-MM".
func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}
