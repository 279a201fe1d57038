package v1

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
)

// resolveRange turns either start_date/end_date or a named range into a
// closed DateRange. Named ranges end today (in loc) and include it:
//
//	7d, 30d       the last 7 / 30 days
//	3m, 6m, 1y    the last 3 / 6 / 12 months, counted back from tomorrow
//	ytd           January 1st through today
//	this_month    the 1st of the current month through today
//	last_month    the whole previous calendar month
func resolveRange(q url.Values, now time.Time, loc *time.Location) (ledger.DateRange, error) {
	name := strings.ToLower(strings.TrimSpace(q.Get("range")))
	start, end := q.Get("start_date"), q.Get("end_date")
	if name == "" {
		if start == "" || end == "" {
			return ledger.DateRange{}, errs.Invalid("range", "start_date and end_date or range are required", errs.ErrInvalidRange)
		}
		var (
			r   ledger.DateRange
			err error
		)
		if r.Start, err = ledger.ParseDate(start); err != nil {
			return ledger.DateRange{}, errs.Invalid("start_date", err.Error(), errs.ErrInvalidRange)
		}
		if r.End, err = ledger.ParseDate(end); err != nil {
			return ledger.DateRange{}, errs.Invalid("end_date", err.Error(), errs.ErrInvalidRange)
		}
		return r, r.Validate()
	}
	if start != "" || end != "" {
		return ledger.DateRange{}, errs.Invalid("range", "range cannot be combined with start_date/end_date", errs.ErrInvalidRange)
	}
	today := ledger.DateOf(now.In(loc))
	y, m := today.Year, today.Month
	tomorrow := today.AddDays(1)
	// Same day-of-month n months back, clamped to the end of shorter months.
	monthsBack := func(n int) ledger.Date {
		first := ledger.NewDate(tomorrow.Year, tomorrow.Month-time.Month(n), 1)
		last := ledger.NewDate(first.Year, first.Month+1, 0).Day
		return ledger.NewDate(first.Year, first.Month, min(tomorrow.Day, last))
	}
	switch name {
	case "7d":
		return ledger.DateRange{Start: today.AddDays(-6), End: today}, nil
	case "30d":
		return ledger.DateRange{Start: today.AddDays(-29), End: today}, nil
	case "3m":
		return ledger.DateRange{Start: monthsBack(3), End: today}, nil
	case "6m":
		return ledger.DateRange{Start: monthsBack(6), End: today}, nil
	case "1y":
		return ledger.DateRange{Start: monthsBack(12), End: today}, nil
	case "ytd":
		return ledger.DateRange{Start: ledger.NewDate(y, time.January, 1), End: today}, nil
	case "this_month":
		return ledger.DateRange{Start: ledger.NewDate(y, m, 1), End: today}, nil
	case "last_month":
		return ledger.DateRange{Start: ledger.NewDate(y, m-1, 1), End: ledger.NewDate(y, m, 0)}, nil
	}
	return ledger.DateRange{}, errs.Invalid("range", fmt.Sprintf("unknown range %q", name), errs.ErrInvalidRange)
}
