package clickhouse

import (
	"fmt"

	"hermannm.dev/enumnames"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/webanalytics/db/sqlquery"
	"hermannm.dev/wrap"
)

type Dialect struct{}

// See https://clickhouse.com/docs/en/sql-reference/data-types
var clickhouseParamTypes = enumnames.NewMap(map[sqlquery.ParamKind]string{
	sqlquery.ParamUUID:      "UUID",
	sqlquery.ParamTimestamp: "DateTime64(3, 'UTC')",
	sqlquery.ParamString:    "String",
	sqlquery.ParamInt:       "Int64",
})

// See https://clickhouse.com/docs/en/sql-reference/functions/date-time-functions
var clickhouseStartOfUnitFunctions = enumnames.NewMap(map[db.DateUnit]string{
	db.DateUnitMinute: "toStartOfMinute",
	db.DateUnitHour:   "toStartOfHour",
	db.DateUnitMonth:  "toStartOfMonth",
	db.DateUnitYear:   "toStartOfYear",
})

func (Dialect) Placeholder(param sqlquery.Param) string {
	paramType := clickhouseParamTypes.GetNameOrFallback(param.Kind, "String")
	return fmt.Sprintf("{%s:%s}", param.Name, paramType)
}

// Session attributes are stored on every event, so no column needs a join.
func (Dialect) Column(column string, sessionScoped bool) string {
	return "we." + column
}

func (Dialect) SessionJoin() string {
	return ""
}

// position instead of LIKE, so % and _ in the value match literally.
func (Dialect) Contains(column string, valuePlaceholder string) string {
	return fmt.Sprintf("position(%s, %s) > 0", column, valuePlaceholder)
}

func (Dialect) BucketExpression(
	column string,
	unit db.DateUnit,
	timezonePlaceholder string,
) (string, error) {
	startOfUnit, _ := clickhouseStartOfUnitFunctions.GetName(unit)

	switch unit {
	case db.DateUnitMinute, db.DateUnitHour:
		return fmt.Sprintf(
			"formatDateTime(%s(%s, %s), '%%Y-%%m-%%d %%H:%%i:%%S', %s)",
			startOfUnit,
			column,
			timezonePlaceholder,
			timezonePlaceholder,
		), nil
	case db.DateUnitDay:
		return calendarDateLabel(fmt.Sprintf("toDate(%s, %s)", column, timezonePlaceholder)), nil
	case db.DateUnitMonth, db.DateUnitYear:
		return calendarDateLabel(
			fmt.Sprintf("%s(toDate(%s, %s))", startOfUnit, column, timezonePlaceholder),
		), nil
	default:
		return "", wrap.Errorf(db.ErrInvalidUnit, "unit value %d", unit)
	}
}

// Labels the calendar date at midnight, even on days where midnight does not exist in the zone.
func calendarDateLabel(date string) string {
	return fmt.Sprintf("concat(toString(%s), ' 00:00:00')", date)
}

func (Dialect) DurationExpression(startColumn string, endColumn string) string {
	return fmt.Sprintf("greatest(dateDiff('second', %s, %s), 0)", startColumn, endColumn)
}
