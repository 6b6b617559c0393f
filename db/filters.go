package db

import (
	"time"

	"github.com/google/uuid"
	"hermannm.dev/wrap"
)

const DefaultTimezone = "UTC"

// Restricts, groups and buckets the events an operation runs over. Filters are treated as
// immutable once passed to an operation: methods return modified copies.
type Filters struct {
	// Inclusive.
	StartDate time.Time `json:"startDate"`
	// Exclusive.
	EndDate time.Time `json:"endDate"`
	// IANA zone name used for bucketing. Defaults to DefaultTimezone.
	Timezone string `json:"timezone,omitempty"`
	// Defaults to DefaultDateUnit.
	Unit DateUnit `json:"unit,omitempty"`
	// Zero value means events of all types.
	EventType  EventType         `json:"eventType,omitempty"`
	Dimensions []DimensionFilter `json:"dimensions,omitempty"`
}

type DimensionFilter struct {
	Dimension Dimension `json:"dimension"`
	Operator  Operator  `json:"operator,omitempty"`
	Value     string    `json:"value"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func ParseWebsiteID(websiteID string) (uuid.UUID, error) {
	id, err := uuid.Parse(websiteID)
	if err != nil {
		return uuid.UUID{}, wrap.Errorf(ErrInvalidWebsiteID, "'%s' is not a valid UUID", websiteID)
	}

	return id, nil
}

// Fills in defaults and validates the filters. The returned copy shares no memory with the
// receiver.
func (filters Filters) Normalized() (Filters, error) {
	if filters.Timezone == "" {
		filters.Timezone = DefaultTimezone
	}
	if filters.Unit == 0 {
		filters.Unit = DefaultDateUnit
	}

	if !filters.Unit.IsValid() {
		return Filters{}, wrap.Errorf(ErrInvalidUnit, "unit value %d", filters.Unit)
	}
	if filters.StartDate.After(filters.EndDate) {
		return Filters{}, wrap.Errorf(
			ErrInvalidRange,
			"start date %s is after end date %s",
			filters.StartDate.Format(time.RFC3339),
			filters.EndDate.Format(time.RFC3339),
		)
	}
	if _, err := filters.Location(); err != nil {
		return Filters{}, err
	}
	if filters.EventType != 0 && !filters.EventType.IsValid() {
		return Filters{}, wrap.Errorf(ErrInvalidEventType, "event type value %d", filters.EventType)
	}

	dimensions := make([]DimensionFilter, len(filters.Dimensions))
	for i, dimensionFilter := range filters.Dimensions {
		if !dimensionFilter.Dimension.IsValid() {
			return Filters{}, wrap.Errorf(
				ErrUnknownDimension,
				"dimension value %d",
				dimensionFilter.Dimension,
			)
		}

		if dimensionFilter.Operator == 0 {
			dimensionFilter.Operator = OperatorEquals
		} else if !dimensionFilter.Operator.IsValid() {
			return Filters{}, wrap.Errorf(
				ErrInvalidOperator,
				"operator value %d for dimension '%s'",
				dimensionFilter.Operator,
				dimensionFilter.Dimension,
			)
		}

		dimensions[i] = dimensionFilter
	}
	filters.Dimensions = dimensions

	return filters, nil
}

func (filters Filters) Location() (*time.Location, error) {
	name := filters.Timezone
	if name == "" {
		name = DefaultTimezone
	}

	// "Local" is accepted by the time package, but is not an IANA zone the databases know.
	if name == "Local" {
		return nil, wrap.Errorf(ErrInvalidTimezone, "'%s'", name)
	}

	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, wrap.Errorf(ErrInvalidTimezone, "'%s'", name)
	}

	return location, nil
}

// True if any dimension filter needs attributes stored per session rather than per event.
func (filters Filters) RequiresSessionJoin() bool {
	for _, dimensionFilter := range filters.Dimensions {
		if dimensionFilter.Dimension.IsSessionScoped() {
			return true
		}
	}

	return false
}

func (filters Filters) WithEventType(eventType EventType) Filters {
	filters.EventType = eventType
	return filters
}

func (filters Filters) WithRange(period Period) Filters {
	filters.StartDate = period.StartDate
	filters.EndDate = period.EndDate
	return filters
}
