package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"hermannm.dev/webanalytics/config"
	"hermannm.dev/webanalytics/db/sqlquery"
	"hermannm.dev/wrap"
)

const BackendName = "postgres"

// Implements the db querier interfaces for Postgres, with session attributes stored in a
// separate session table.
type PostgresDB struct {
	conn Conn
}

type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (sqlquery.Rows, error)
}

func NewPostgresDB(ctx context.Context, config config.Config) (PostgresDB, error) {
	sqlDB, err := sql.Open("postgres", config.Postgres.URL)
	if err != nil {
		return PostgresDB{}, wrap.Error(err, "failed to open Postgres connection")
	}

	sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return PostgresDB{}, wrap.Error(wrapPostgresError(err), "failed to ping Postgres")
	}

	return PostgresDB{conn: sqlConn{db: sqlDB}}, nil
}

func NewPostgresDBWithConn(conn Conn) PostgresDB {
	return PostgresDB{conn: conn}
}

func (PostgresDB) Name() string {
	return BackendName
}

type sqlConn struct {
	db *sql.DB
}

func (conn sqlConn) QueryContext(
	ctx context.Context,
	query string,
	args ...any,
) (sqlquery.Rows, error) {
	rows, err := conn.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Adds the SQLSTATE of Postgres errors to the message.
func wrapPostgresError(err error) error {
	var postgresErr *pq.Error
	if !errors.As(err, &postgresErr) {
		return err
	}

	return wrap.Errorf(
		err,
		"Postgres error %s (%s)",
		postgresErr.Code,
		postgresErr.Code.Name(),
	)
}
