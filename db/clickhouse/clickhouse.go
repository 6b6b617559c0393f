package clickhouse

import (
	"context"
	"errors"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ClickHouse/clickhouse-go/v2/lib/proto"
	"hermannm.dev/webanalytics/config"
	"hermannm.dev/webanalytics/db/sqlquery"
	"hermannm.dev/webanalytics/log"
	"hermannm.dev/wrap"
)

const BackendName = "clickhouse"

// Implements the db querier interfaces for ClickHouse, where session attributes are
// denormalized onto website events.
type ClickHouseDB struct {
	conn Conn
}

type Conn interface {
	Query(ctx context.Context, query string, args ...any) (sqlquery.Rows, error)
}

func NewClickHouseDB(ctx context.Context, config config.Config) (ClickHouseDB, error) {
	// Options docs: https://clickhouse.com/docs/en/integrations/go#connection-settings
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{config.ClickHouse.Address},
		Auth: clickhouse.Auth{
			Database: config.ClickHouse.DatabaseName,
			Username: config.ClickHouse.Username,
			Password: config.ClickHouse.Password,
		},
		Debug: config.ClickHouse.Debug,
		Debugf: func(format string, v ...any) {
			log.Debugf(format, v...)
		},
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return ClickHouseDB{}, wrap.Error(err, "failed to connect to ClickHouse")
	}

	if err := conn.Ping(ctx); err != nil {
		return ClickHouseDB{}, wrap.Error(wrapClickHouseError(err), "failed to ping ClickHouse")
	}

	return ClickHouseDB{conn: nativeConn{conn: conn}}, nil
}

func NewClickHouseDBWithConn(conn Conn) ClickHouseDB {
	return ClickHouseDB{conn: conn}
}

func (ClickHouseDB) Name() string {
	return BackendName
}

type nativeConn struct {
	conn driver.Conn
}

func (conn nativeConn) Query(ctx context.Context, query string, args ...any) (sqlquery.Rows, error) {
	rows, err := conn.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Adds the exception code and name of ClickHouse server errors to the message.
// Codes: https://github.com/ClickHouse/ClickHouse/blob/master/src/Common/ErrorCodes.cpp
func wrapClickHouseError(err error) error {
	var exception *proto.Exception
	if !errors.As(err, &exception) {
		return err
	}

	return wrap.Errorf(err, "ClickHouse exception %d (%s)", exception.Code, exception.Name)
}
