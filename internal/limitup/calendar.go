// Package limitup maps trading dates to the instruments that hit the
// limit-up condition, and resolves the per-date target set the batch
// pipeline decodes.
package limitup

import (
	"time"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

// LookbackDays is how far Targets scans backward for the most recent prior
// date with a non-empty entry.
const LookbackDays = 7

const dateLayout = "20060102"

// Calendar maps trading dates (YYYYMMDD) to the set of instruments that
// hit limit-up that day. Built once at the start of batch processing and
// read-only thereafter, so it is safe to share across date workers.
type Calendar map[string]map[string]struct{}

// FromEvents groups event-list rows into a Calendar.
func FromEvents(events []*domain.LimitUpEvent) Calendar {
	cal := make(Calendar)
	for _, e := range events {
		if e.Date == "" || e.StockID == "" {
			continue
		}
		set, ok := cal[e.Date]
		if !ok {
			set = make(map[string]struct{})
			cal[e.Date] = set
		}
		set[e.StockID] = struct{}{}
	}
	return cal
}

// Targets resolves the instrument set to decode for a date: the date's own
// entry unioned with the first non-empty entry found scanning back 1 to
// LookbackDays calendar days. The scan stops at the first hit; with no hit
// within the window the lookback contributes nothing.
//
// The result is a fresh set; mutating it never touches the Calendar.
func (c Calendar) Targets(date string) map[string]struct{} {
	targets := make(map[string]struct{})
	for id := range c[date] {
		targets[id] = struct{}{}
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return targets
	}

	for back := 1; back <= LookbackDays; back++ {
		prev := day.AddDate(0, 0, -back).Format(dateLayout)
		if set, ok := c[prev]; ok && len(set) > 0 {
			for id := range set {
				targets[id] = struct{}{}
			}
			break
		}
	}
	return targets
}

// Dates returns every date with a non-empty entry. Order is unspecified.
func (c Calendar) Dates() []string {
	dates := make([]string, 0, len(c))
	for d, set := range c {
		if len(set) > 0 {
			dates = append(dates, d)
		}
	}
	return dates
}
