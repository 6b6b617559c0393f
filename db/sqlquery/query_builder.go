package sqlquery

import (
	"strconv"
	"strings"

	"hermannm.dev/webanalytics/db"
)

type QueryBuilder struct {
	strings.Builder
}

func (builder *QueryBuilder) WriteInt(i int) {
	builder.WriteString(strconv.Itoa(i))
}

// Writes the fragment's join clause, if any, preceded by a space.
func (builder *QueryBuilder) WriteJoin(fragment Fragment) {
	if fragment.Join != "" {
		builder.WriteRune(' ')
		builder.WriteString(fragment.Join)
	}
}

func (builder *QueryBuilder) WriteWhere(fragment Fragment) {
	if len(fragment.Where) == 0 {
		return
	}

	builder.WriteString(" WHERE ")
	builder.WriteString(fragment.WhereClause())
}

// Writes LIMIT and OFFSET clauses. A nil pagination or zero limit writes no LIMIT.
func (builder *QueryBuilder) WritePagination(pagination *db.Pagination) {
	if pagination == nil {
		return
	}

	if pagination.Limit > 0 {
		builder.WriteString(" LIMIT ")
		builder.WriteInt(pagination.Limit)
	}
	if pagination.Offset > 0 {
		builder.WriteString(" OFFSET ")
		builder.WriteInt(pagination.Offset)
	}
}
