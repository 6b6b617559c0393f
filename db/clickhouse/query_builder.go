package clickhouse

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"hermannm.dev/webanalytics/db/sqlquery"
	"hermannm.dev/wrap"
)

const timestampParamLayout = "2006-01-02 15:04:05.000"

// Server-side query parameters for the given params, in the text format ClickHouse parses for
// each declared type.
// See https://clickhouse.com/docs/en/interfaces/cli#cli-queries-with-parameters
func queryParameters(params *sqlquery.Params) (clickhouse.Parameters, error) {
	parameters := make(clickhouse.Parameters, params.Len())

	for _, param := range params.List() {
		value, err := formatParamValue(param)
		if err != nil {
			return nil, wrap.Errorf(err, "invalid value for query parameter '%s'", param.Name)
		}
		parameters[param.Name] = value
	}

	return parameters, nil
}

func formatParamValue(param sqlquery.Param) (string, error) {
	switch value := param.Value.(type) {
	case string:
		return value, nil
	case time.Time:
		return value.UTC().Format(timestampParamLayout), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	case int:
		return strconv.Itoa(value), nil
	case fmt.Stringer:
		return value.String(), nil
	default:
		return "", fmt.Errorf("unsupported parameter type %T", param.Value)
	}
}

func withParameters(ctx context.Context, params *sqlquery.Params) (context.Context, error) {
	parameters, err := queryParameters(params)
	if err != nil {
		return nil, err
	}

	return clickhouse.Context(ctx, clickhouse.WithParameters(parameters)), nil
}
