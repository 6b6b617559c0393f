package postgres

import (
	"fmt"

	"hermannm.dev/enumnames"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/webanalytics/db/sqlquery"
	"hermannm.dev/wrap"
)

type Dialect struct{}

// See https://www.postgresql.org/docs/current/datatype.html
var postgresParamTypes = enumnames.NewMap(map[sqlquery.ParamKind]string{
	sqlquery.ParamUUID:      "uuid",
	sqlquery.ParamTimestamp: "timestamptz",
	sqlquery.ParamString:    "text",
	sqlquery.ParamInt:       "bigint",
})

// See https://www.postgresql.org/docs/current/functions-datetime.html#FUNCTIONS-DATETIME-TRUNC
var postgresDateUnits = enumnames.NewMap(map[db.DateUnit]string{
	db.DateUnitMinute: "minute",
	db.DateUnitHour:   "hour",
	db.DateUnitDay:    "day",
	db.DateUnitMonth:  "month",
	db.DateUnitYear:   "year",
})

func (Dialect) Placeholder(param sqlquery.Param) string {
	paramType := postgresParamTypes.GetNameOrFallback(param.Kind, "text")
	return fmt.Sprintf("$%d::%s", param.Position, paramType)
}

func (Dialect) Column(column string, sessionScoped bool) string {
	if sessionScoped {
		return "s." + column
	}
	return "we." + column
}

func (Dialect) SessionJoin() string {
	return "INNER JOIN session AS s ON s.session_id = we.session_id"
}

// strpos instead of LIKE, so % and _ in the value match literally.
func (Dialect) Contains(column string, valuePlaceholder string) string {
	return fmt.Sprintf("strpos(%s, %s) > 0", column, valuePlaceholder)
}

func (Dialect) BucketExpression(
	column string,
	unit db.DateUnit,
	timezonePlaceholder string,
) (string, error) {
	truncateUnit, ok := postgresDateUnits.GetName(unit)
	if !ok {
		return "", wrap.Errorf(db.ErrInvalidUnit, "unit value %d", unit)
	}

	// AT TIME ZONE converts to wall-clock time in the zone before truncating
	return fmt.Sprintf(
		"to_char(date_trunc('%s', %s AT TIME ZONE %s), 'YYYY-MM-DD HH24:MI:SS')",
		truncateUnit,
		column,
		timezonePlaceholder,
	), nil
}

func (Dialect) DurationExpression(startColumn string, endColumn string) string {
	return fmt.Sprintf(
		"GREATEST(FLOOR(EXTRACT(EPOCH FROM (%s - %s))), 0)",
		endColumn,
		startColumn,
	)
}
