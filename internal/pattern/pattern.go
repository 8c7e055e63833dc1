// Package pattern injects rule-based recurring events (staff commutes,
// a weekly sensor fault) on top of the random fill.
package pattern

import (
	"time"

	"github.com/gyaneshwarpardhi/pacsim/internal/reference"
)

const (
	commuteIDPrefix = "EVT-C"
	faultIDPrefix   = "EVT-F"
)

// Names of the two pattern kinds, used as metric labels.
const (
	KindCommute = "commute"
	KindFault   = "fault"
)

// Days lists the local midnights of every calendar day from first to last,
// both inclusive.
func Days(first, last time.Time, loc *time.Location) []time.Time {
	first = first.In(loc)
	last = last.In(loc)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	stop := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)

	var out []time.Time
	for !day.After(stop) {
		out = append(out, day)
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func isWeekday(day time.Time) bool {
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func findDoor(doors []reference.Door, match func(reference.Door) bool) (reference.Door, bool) {
	for _, d := range doors {
		if match(d) {
			return d, true
		}
	}
	return reference.Door{}, false
}
