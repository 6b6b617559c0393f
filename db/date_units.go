package db

import (
	"hermannm.dev/enumnames"
	"hermannm.dev/wrap"
)

// Granularity of time buckets, ordered from finest to coarsest.
type DateUnit int8

const (
	DateUnitMinute DateUnit = iota + 1
	DateUnitHour
	DateUnitDay
	DateUnitMonth
	DateUnitYear
)

const DefaultDateUnit = DateUnitDay

var dateUnitMap = enumnames.NewMap(map[DateUnit]string{
	DateUnitMinute: "minute",
	DateUnitHour:   "hour",
	DateUnitDay:    "day",
	DateUnitMonth:  "month",
	DateUnitYear:   "year",
})

var dateUnits = []DateUnit{
	DateUnitMinute,
	DateUnitHour,
	DateUnitDay,
	DateUnitMonth,
	DateUnitYear,
}

func ParseDateUnit(name string) (DateUnit, error) {
	for _, unit := range dateUnits {
		if unit.String() == name {
			return unit, nil
		}
	}

	return 0, wrap.Errorf(ErrInvalidUnit, "unrecognized unit '%s'", name)
}

func (unit DateUnit) IsValid() bool {
	_, ok := dateUnitMap.GetName(unit)
	return ok
}

func (unit DateUnit) String() string {
	return dateUnitMap.GetNameOrFallback(unit, "INVALID_DATE_UNIT")
}

func (unit DateUnit) MarshalJSON() ([]byte, error) {
	return dateUnitMap.MarshalToNameJSON(unit)
}

func (unit *DateUnit) UnmarshalJSON(bytes []byte) error {
	return dateUnitMap.UnmarshalFromNameJSON(bytes, unit)
}
