package db

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"hermannm.dev/wrap"
)

// Layout of bucket labels. Every backend formats buckets as wall-clock time in the requested
// timezone with this layout, so labels sort chronologically as strings.
const BucketLabelLayout = "2006-01-02 15:04:05"

// Upper bound on buckets in one time series, to stop e.g. minute buckets over years.
const MaxBuckets = 50000

// Truncates t to the start of its bucket, as observed in the given location. Day, month and
// year buckets start at the first instant of their calendar date, which is later than midnight
// where clocks skip past it.
func TruncateToUnit(t time.Time, unit DateUnit, location *time.Location) (time.Time, error) {
	t = t.In(location)

	switch unit {
	case DateUnitMinute:
		return truncateWallClock(t, time.Minute), nil
	case DateUnitHour:
		return truncateWallClock(t, time.Hour), nil
	case DateUnitDay, DateUnitMonth, DateUnitYear:
		return startOfDate(calendarBucket(t, unit), location), nil
	default:
		return time.Time{}, wrap.Errorf(ErrInvalidUnit, "unit value %d", unit)
	}
}

// Truncates in wall-clock time at the instant's own offset, which keeps zones with
// non-whole-hour offsets aligned.
func truncateWallClock(t time.Time, step time.Duration) time.Time {
	_, offsetSeconds := t.Zone()
	offset := time.Duration(offsetSeconds) * time.Second
	return t.Add(offset).Truncate(step).Add(-offset).In(t.Location())
}

// The calendar date starting t's bucket, as midnight UTC. Calendar dates are stepped in UTC,
// where every date has a midnight.
func calendarBucket(t time.Time, unit DateUnit) time.Time {
	year, month, day := t.Date()

	switch unit {
	case DateUnitMonth:
		day = 1
	case DateUnitYear:
		month, day = time.January, 1
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func nextCalendarBucket(date time.Time, unit DateUnit) time.Time {
	switch unit {
	case DateUnitDay:
		return date.AddDate(0, 0, 1)
	case DateUnitMonth:
		return date.AddDate(0, 1, 0)
	default:
		return date.AddDate(1, 0, 0)
	}
}

// First instant of the given calendar date in location. time.Date resolves a skipped midnight
// to the day before, so in that case the date starts where the skipping zone transition ends.
func startOfDate(date time.Time, location *time.Location) time.Time {
	year, month, day := date.Date()

	start := time.Date(year, month, day, 0, 0, 0, 0, location)
	if startYear, startMonth, startDay := start.Date(); startYear == year &&
		startMonth == month &&
		startDay == day {
		return start
	}

	if _, zoneEnd := start.ZoneBounds(); !zoneEnd.IsZero() {
		return zoneEnd.In(location)
	}
	return start
}

// Returns the label of every bucket overlapping [StartDate, EndDate), ascending. Expects
// normalized filters.
func BucketLabels(filters Filters) ([]string, error) {
	if !filters.StartDate.Before(filters.EndDate) {
		return nil, nil
	}

	location, err := filters.Location()
	if err != nil {
		return nil, err
	}

	switch filters.Unit {
	case DateUnitMinute:
		return wallClockLabels(filters, location, time.Minute)
	case DateUnitHour:
		return wallClockLabels(filters, location, time.Hour)
	case DateUnitDay, DateUnitMonth, DateUnitYear:
		return calendarLabels(filters, location)
	default:
		return nil, wrap.Errorf(ErrInvalidUnit, "unit value %d", filters.Unit)
	}
}

func wallClockLabels(
	filters Filters,
	location *time.Location,
	step time.Duration,
) ([]string, error) {
	bucket := truncateWallClock(filters.StartDate.In(location), step)

	var labels []string
	for bucket.Before(filters.EndDate) {
		label := bucket.Format(BucketLabelLayout)
		// Wall-clock labels repeat when clocks are turned back.
		if len(labels) == 0 || labels[len(labels)-1] != label {
			labels = append(labels, label)
		}
		if len(labels) > MaxBuckets {
			return nil, tooManyBuckets(filters.Unit)
		}

		next := truncateWallClock(bucket.Add(step), step)
		if !next.After(bucket) {
			return nil, fmt.Errorf("bucket after %s did not advance", bucket.Format(time.RFC3339))
		}
		bucket = next
	}

	return labels, nil
}

// Labels are the calendar dates at midnight, as the databases format them, even where the
// date's first instant is later than midnight.
func calendarLabels(filters Filters, location *time.Location) ([]string, error) {
	date := calendarBucket(filters.StartDate.In(location), filters.Unit)

	var labels []string
	for startOfDate(date, location).Before(filters.EndDate) {
		labels = append(labels, date.Format(BucketLabelLayout))
		if len(labels) > MaxBuckets {
			return nil, tooManyBuckets(filters.Unit)
		}

		date = nextCalendarBucket(date, filters.Unit)
	}

	return labels, nil
}

func tooManyBuckets(unit DateUnit) error {
	return wrap.Errorf(
		ErrTooManyBuckets,
		"range spans more than %d buckets of unit '%s'",
		MaxBuckets,
		unit,
	)
}

// Adds an empty row for every label missing from rows, and sorts the result by label.
func fillBuckets[Row any](
	rows []Row,
	labels []string,
	labelOf func(Row) string,
	emptyRow func(label string) Row,
) []Row {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[labelOf(row)] = struct{}{}
	}

	filled := make([]Row, 0, len(labels))
	filled = append(filled, rows...)
	for _, label := range labels {
		if _, ok := seen[label]; !ok {
			filled = append(filled, emptyRow(label))
		}
	}

	slices.SortStableFunc(filled, func(a Row, b Row) int {
		return cmp.Compare(labelOf(a), labelOf(b))
	})

	return filled
}

func fillAggregateStats(stats []AggregateStat, labels []string) []AggregateStat {
	return fillBuckets(
		stats,
		labels,
		func(stat AggregateStat) string { return stat.X },
		func(label string) AggregateStat { return AggregateStat{X: label} },
	)
}

func fillClickCounts(counts []ClickCount, labels []string) []ClickCount {
	return fillBuckets(
		counts,
		labels,
		func(count ClickCount) string { return count.T },
		func(label string) ClickCount { return ClickCount{X: ClickCountLabel, T: label} },
	)
}
