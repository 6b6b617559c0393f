package sqlquery

import (
	"hermannm.dev/webanalytics/db"
)

// Renders the backend-specific parts of analytics queries. Queries alias the event table as
// "we".
type Dialect interface {
	Placeholder(param Param) string

	// Qualifies a dimension column. Session-scoped columns may live on the session table.
	Column(column string, sessionScoped bool) string

	// Clause joining session attributes onto events, or "" if events already carry them.
	SessionJoin() string

	// Case-sensitive substring test that treats every character in the value literally.
	Contains(column string, valuePlaceholder string) string

	// Truncates column to the start of its bucket in the given timezone, and formats it with
	// db.BucketLabelLayout. Returns db.ErrInvalidUnit for units outside the enum.
	BucketExpression(column string, unit db.DateUnit, timezonePlaceholder string) (string, error)

	// Whole seconds between start and end, never negative.
	DurationExpression(startColumn string, endColumn string) string
}
