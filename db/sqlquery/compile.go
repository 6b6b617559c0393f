package sqlquery

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/wrap"
)

// Parameter names bound by Compile.
const (
	ParamNameWebsiteID = "websiteId"
	ParamNameStartDate = "startDate"
	ParamNameEndDate   = "endDate"
	ParamNameEventType = "eventType"
	ParamNameTimezone  = "timezone"
)

// WHERE predicates, join clause and parameters compiled from a set of filters, for one query.
type Fragment struct {
	Where  []string
	Join   string
	Params *Params
}

func (fragment *Fragment) And(predicate string) {
	fragment.Where = append(fragment.Where, predicate)
}

func (fragment Fragment) WhereClause() string {
	return strings.Join(fragment.Where, " AND ")
}

// Compiles the scoping predicates every query must have (website and date range) along with
// the predicates for the given filters. All values are bound as parameters.
func Compile(dialect Dialect, websiteID uuid.UUID, filters db.Filters) (Fragment, error) {
	params := NewParams(dialect)
	fragment := Fragment{Params: params}

	fragment.And("we.website_id = " + params.Bind(ParamNameWebsiteID, ParamUUID, websiteID.String()))
	fragment.And(
		fmt.Sprintf(
			"we.created_at >= %s AND we.created_at < %s",
			params.Bind(ParamNameStartDate, ParamTimestamp, filters.StartDate),
			params.Bind(ParamNameEndDate, ParamTimestamp, filters.EndDate),
		),
	)

	if filters.EventType != 0 {
		if !filters.EventType.IsValid() {
			return Fragment{}, wrap.Errorf(
				db.ErrInvalidEventType,
				"event type value %d",
				filters.EventType,
			)
		}

		fragment.And(
			"we.event_type = " + params.Bind(ParamNameEventType, ParamInt, int64(filters.EventType)),
		)
	}

	for i, filter := range filters.Dimensions {
		predicate, err := compileDimensionFilter(dialect, params, i, filter)
		if err != nil {
			return Fragment{}, err
		}
		fragment.And(predicate)
	}

	if filters.RequiresSessionJoin() {
		fragment.Join = dialect.SessionJoin()
	}

	return fragment, nil
}

func compileDimensionFilter(
	dialect Dialect,
	params *Params,
	index int,
	filter db.DimensionFilter,
) (string, error) {
	columnName, sessionScoped, err := filter.Dimension.Column()
	if err != nil {
		return "", err
	}

	column := dialect.Column(columnName, sessionScoped)
	placeholder := params.Bind(
		fmt.Sprintf("%s_%d", filter.Dimension, index),
		ParamString,
		filter.Value,
	)

	switch filter.Operator {
	case 0, db.OperatorEquals:
		return column + " = " + placeholder, nil
	case db.OperatorNotEquals:
		return column + " <> " + placeholder, nil
	case db.OperatorContains:
		return dialect.Contains(column, placeholder), nil
	default:
		return "", wrap.Errorf(
			db.ErrInvalidOperator,
			"operator value %d for dimension '%s'",
			filter.Operator,
			filter.Dimension,
		)
	}
}
