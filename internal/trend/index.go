// Package trend builds temporal indexes and ranked views over alarm
// aggregates. Buckets are keyed by calendar day, week, and month so the
// dashboard can answer "how many firings in this window" without
// re-reading source rows.
package trend

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// Point is one daily chart sample.
type Point struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Index holds firing counts bucketed three ways. Range queries and chart
// series are served from the daily bucket only; weekly and monthly exist
// for direct lookup and summary views.
type Index struct {
	Daily   map[string]int `json:"daily"`
	Weekly  map[string]int `json:"weekly"`
	Monthly map[string]int `json:"monthly"`
}

func NewIndex() *Index {
	return &Index{
		Daily:   make(map[string]int),
		Weekly:  make(map[string]int),
		Monthly: make(map[string]int),
	}
}

// Add records count firings at t in all three buckets.
func (ix *Index) Add(t time.Time, count int) {
	ix.Daily[DayKey(t)] += count
	ix.Weekly[WeekKey(t)] += count
	ix.Monthly[MonthKey(t)] += count
}

// DayKey formats t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// WeekKey formats t as YYYY-W<NN>. The week number is the long-standing
// approximation ceil((days since Jan 1 + weekday of Jan 1 + 1) / 7),
// with fractional days from the time of day. It disagrees with ISO 8601
// around year boundaries; existing stored keys depend on it, so it must
// not be replaced with time.ISOWeek.
func WeekKey(t time.Time) string {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	days := t.Sub(jan1).Hours() / 24
	week := int(math.Ceil((days + float64(jan1.Weekday()) + 1) / 7))
	return fmt.Sprintf("%d-W%02d", t.Year(), week)
}

// Total sums the daily bucket. Rows without a parseable date never enter
// the index, so this can be lower than the aggregate trigger count.
func (ix *Index) Total() int {
	total := 0
	for _, c := range ix.Daily {
		total += c
	}
	return total
}

// TotalInRange sums daily buckets inside [start, end], both bounds
// inclusive and either bound nil for open. Bounds are compared at
// calendar-day granularity.
func (ix *Index) TotalInRange(start, end *time.Time) int {
	total := 0
	for key, c := range ix.Daily {
		if inRange(key, start, end) {
			total += c
		}
	}
	return total
}

// Series returns the daily samples inside [start, end] in ascending date
// order. Day keys sort correctly as strings.
func (ix *Index) Series(start, end *time.Time) []Point {
	points := make([]Point, 0, len(ix.Daily))
	for key, c := range ix.Daily {
		if inRange(key, start, end) {
			points = append(points, Point{Date: key, Count: c})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// Merge folds other's buckets into ix.
func (ix *Index) Merge(other *Index) {
	for k, c := range other.Daily {
		ix.Daily[k] += c
	}
	for k, c := range other.Weekly {
		ix.Weekly[k] += c
	}
	for k, c := range other.Monthly {
		ix.Monthly[k] += c
	}
}

func inRange(dayKey string, start, end *time.Time) bool {
	day, err := time.ParseInLocation(dayLayout, dayKey, time.Local)
	if err != nil {
		return false
	}
	if start != nil && day.Before(dayStart(*start)) {
		return false
	}
	if end != nil && day.After(dayStart(*end)) {
		return false
	}
	return true
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
