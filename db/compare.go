package db

import (
	"time"

	"hermannm.dev/enumnames"
	"hermannm.dev/wrap"
)

// How the comparison period for a time series is derived from the requested period.
type CompareMode int8

const (
	// Period of equal length immediately preceding the requested one.
	CompareModePrevious CompareMode = iota + 1
	// Same period one year earlier.
	CompareModeYearOverYear
	// Period supplied by the caller.
	CompareModeCustom
)

var compareModeMap = enumnames.NewMap(map[CompareMode]string{
	CompareModePrevious:     "prev",
	CompareModeYearOverYear: "yoy",
	CompareModeCustom:       "custom",
})

func ParseCompareMode(name string) (CompareMode, error) {
	if name == "" {
		return CompareModePrevious, nil
	}

	for _, mode := range []CompareMode{
		CompareModePrevious,
		CompareModeYearOverYear,
		CompareModeCustom,
	} {
		if mode.String() == name {
			return mode, nil
		}
	}

	return 0, wrap.Errorf(ErrInvalidCompareMode, "unrecognized comparison mode '%s'", name)
}

func (mode CompareMode) IsValid() bool {
	_, ok := compareModeMap.GetName(mode)
	return ok
}

func (mode CompareMode) String() string {
	return compareModeMap.GetNameOrFallback(mode, "INVALID_COMPARE_MODE")
}

func (mode CompareMode) MarshalJSON() ([]byte, error) {
	return compareModeMap.MarshalToNameJSON(mode)
}

func (mode *CompareMode) UnmarshalJSON(bytes []byte) error {
	return compareModeMap.UnmarshalFromNameJSON(bytes, mode)
}

// Half-open time range [StartDate, EndDate).
type Period struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

func (period Period) Length() time.Duration {
	return period.EndDate.Sub(period.StartDate)
}

// Derives the period to compare [startDate, endDate) against. custom is only read for
// CompareModeCustom, and the zero mode is treated as CompareModePrevious.
func PreviousPeriod(
	mode CompareMode,
	startDate time.Time,
	endDate time.Time,
	custom *Period,
) (Period, error) {
	if !endDate.After(startDate) {
		return Period{}, wrap.Errorf(
			ErrInvalidRange,
			"end date %s must be after start date %s",
			endDate.Format(time.RFC3339),
			startDate.Format(time.RFC3339),
		)
	}

	switch mode {
	case 0, CompareModePrevious:
		length := endDate.Sub(startDate)
		return Period{StartDate: startDate.Add(-length), EndDate: startDate}, nil
	case CompareModeYearOverYear:
		return Period{StartDate: startDate.AddDate(-1, 0, 0), EndDate: endDate.AddDate(-1, 0, 0)}, nil
	case CompareModeCustom:
		if custom == nil {
			return Period{}, wrap.Error(ErrInvalidRange, "custom comparison mode requires a period")
		}
		if !custom.EndDate.After(custom.StartDate) {
			return Period{}, wrap.Error(
				ErrInvalidRange,
				"custom comparison period must end after it starts",
			)
		}
		return *custom, nil
	default:
		return Period{}, wrap.Errorf(ErrInvalidCompareMode, "comparison mode value %d", mode)
	}
}
