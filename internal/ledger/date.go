package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/tinoosan/finance/internal/errs"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar day without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized date for y-m-d (e.g. Feb 30 becomes Mar 1/2).
func NewDate(y int, m time.Month, d int) Date {
	return DateOf(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date { return NewDate(d.Year, d.Month, d.Day+n) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	p, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// DateRange is a closed, inclusive interval of calendar dates.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Validate requires both ends and Start <= End.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errs.Invalid("period", "start and end are required", errs.ErrInvalidRange)
	}
	if r.Start.After(r.End) {
		return errs.Invalid("period", "start must not be after end", errs.ErrInvalidRange)
	}
	return nil
}

// Overlaps reports whether r and o share at least one day: s <= e' && s' <= e.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Compare(o.End) <= 0 && o.Start.Compare(r.End) <= 0
}

// Contains reports whether d lies in r.
func (r DateRange) Contains(d Date) bool {
	return r.Start.Compare(d) <= 0 && d.Compare(r.End) <= 0
}

// Days returns the number of calendar days in r.
func (r DateRange) Days() int {
	if r.Start.After(r.End) {
		return 0
	}
	return int(r.End.In(time.UTC).Sub(r.Start.In(time.UTC)).Hours()/24) + 1
}

// Bounds converts r to the half-open instant range [Start 00:00, End+1 00:00) in loc.
func (r DateRange) Bounds(loc *time.Location) (from, to time.Time) {
	return r.Start.In(loc), r.End.AddDays(1).In(loc)
}

func (r DateRange) String() string { return r.Start.String() + ".." + r.End.String() }
