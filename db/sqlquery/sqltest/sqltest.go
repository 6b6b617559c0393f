// Package sqltest provides in-memory stand-ins for database connections, for testing query
// executors without a database.
package sqltest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"hermannm.dev/webanalytics/db/sqlquery"
)

// Implements sqlquery.Rows over fixed values. Scan supports *string and *int64 destinations.
type Rows struct {
	values [][]any
	next   int
	err    error
	closed bool
}

func NewRows(rows ...[]any) *Rows {
	return &Rows{values: rows}
}

// Makes Err return err once all rows are read.
func (rows *Rows) WithErr(err error) *Rows {
	rows.err = err
	return rows
}

func (rows *Rows) Next() bool {
	if rows.closed || rows.next >= len(rows.values) {
		return false
	}
	rows.next++
	return true
}

func (rows *Rows) Scan(dest ...any) error {
	if rows.next == 0 {
		return errors.New("scan called before next row")
	}

	row := rows.values[rows.next-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d scan destinations, got %d", len(row), len(dest))
	}

	for i := range dest {
		switch destination := dest[i].(type) {
		case *int64:
			value, ok := row[i].(int64)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into int64", i, row[i])
			}
			*destination = value
		case *string:
			value, ok := row[i].(string)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into string", i, row[i])
			}
			*destination = value
		default:
			return fmt.Errorf("column %d: unsupported scan destination %T", i, dest[i])
		}
	}

	return nil
}

func (rows *Rows) Err() error {
	return rows.err
}

func (rows *Rows) Close() error {
	rows.closed = true
	return nil
}

func (rows *Rows) Closed() bool {
	return rows.closed
}

type Query struct {
	Context context.Context
	SQL     string
	Args    []any
}

// Records queries, and answers each with Rows or Err. Implements both QueryContext (as used
// with database/sql) and Query (as used with the ClickHouse driver).
type Conn struct {
	Rows *Rows
	Err  error

	mutex   sync.Mutex
	queries []Query
}

func (conn *Conn) QueryContext(
	ctx context.Context,
	query string,
	args ...any,
) (sqlquery.Rows, error) {
	return conn.Query(ctx, query, args...)
}

func (conn *Conn) Query(ctx context.Context, query string, args ...any) (sqlquery.Rows, error) {
	conn.mutex.Lock()
	defer conn.mutex.Unlock()

	conn.queries = append(conn.queries, Query{Context: ctx, SQL: query, Args: args})

	if conn.Err != nil {
		return nil, conn.Err
	}
	if conn.Rows == nil {
		return NewRows(), nil
	}
	return conn.Rows, nil
}

func (conn *Conn) Queries() []Query {
	conn.mutex.Lock()
	defer conn.mutex.Unlock()

	queries := make([]Query, len(conn.queries))
	copy(queries, conn.queries)
	return queries
}

// The last recorded query. Panics if none were made.
func (conn *Conn) LastQuery() Query {
	queries := conn.Queries()
	return queries[len(queries)-1]
}
