package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hermannm.dev/webanalytics/db"
	"hermannm.dev/wrap"
)

// Parses filters from query parameters:
//   - 'startAt', 'endAt': required, Unix milliseconds
//   - 'unit', 'timezone', 'eventType': optional
//   - one parameter per dimension name (e.g. 'url', 'country'), with an optional
//     '<dimension>Operator' parameter (eq/neq/c)
func parseFilters(req *http.Request) (db.Filters, error) {
	query := req.URL.Query()
	var filters db.Filters

	startDate, err := parseUnixMilli(query.Get("startAt"), "startAt")
	if err != nil {
		return db.Filters{}, err
	}
	endDate, err := parseUnixMilli(query.Get("endAt"), "endAt")
	if err != nil {
		return db.Filters{}, err
	}
	filters.StartDate = startDate
	filters.EndDate = endDate

	if unit := query.Get("unit"); unit != "" {
		if filters.Unit, err = db.ParseDateUnit(unit); err != nil {
			return db.Filters{}, err
		}
	}

	filters.Timezone = query.Get("timezone")

	if eventType := query.Get("eventType"); eventType != "" {
		if filters.EventType, err = db.ParseEventType(eventType); err != nil {
			return db.Filters{}, err
		}
	}

	for _, dimension := range db.Dimensions {
		value := query.Get(dimension.String())
		if value == "" {
			continue
		}

		filter := db.DimensionFilter{Dimension: dimension, Value: value}

		if operator := query.Get(dimension.String() + "Operator"); operator != "" {
			if filter.Operator, err = db.ParseOperator(operator); err != nil {
				return db.Filters{}, wrap.Errorf(err, "invalid operator for '%s'", dimension)
			}
		}

		filters.Dimensions = append(filters.Dimensions, filter)
	}

	return filters, nil
}

func parseUnixMilli(value string, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing '%s' query parameter", name)
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, wrap.Errorf(err, "invalid '%s' query parameter", name)
	}

	return time.UnixMilli(millis).UTC(), nil
}

// Returns nil if neither 'limit' nor 'offset' is given.
func parsePagination(req *http.Request) (*db.Pagination, error) {
	query := req.URL.Query()
	limit, offset := query.Get("limit"), query.Get("offset")
	if limit == "" && offset == "" {
		return nil, nil
	}

	var pagination db.Pagination
	var err error

	if limit != "" {
		if pagination.Limit, err = strconv.Atoi(limit); err != nil {
			return nil, wrap.Error(err, "invalid 'limit' query parameter")
		}
	}
	if offset != "" {
		if pagination.Offset, err = strconv.Atoi(offset); err != nil {
			return nil, wrap.Error(err, "invalid 'offset' query parameter")
		}
	}

	return &pagination, nil
}

func parseComparePeriod(req *http.Request, filters db.Filters) (db.Period, error) {
	query := req.URL.Query()

	mode, err := db.ParseCompareMode(query.Get("compare"))
	if err != nil {
		return db.Period{}, err
	}

	var custom *db.Period
	if mode == db.CompareModeCustom {
		startDate, err := parseUnixMilli(query.Get("compareStartAt"), "compareStartAt")
		if err != nil {
			return db.Period{}, err
		}
		endDate, err := parseUnixMilli(query.Get("compareEndAt"), "compareEndAt")
		if err != nil {
			return db.Period{}, err
		}
		custom = &db.Period{StartDate: startDate, EndDate: endDate}
	}

	return db.PreviousPeriod(mode, filters.StartDate, filters.EndDate, custom)
}
