package clickhouse

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/webanalytics/db/sqlquery"
	"hermannm.dev/webanalytics/log"
	"hermannm.dev/wrap"
)

func (clickhouse ClickHouseDB) AggregateStats(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.AggregateStat, error) {
	query, params, err := buildAggregateStatsQuery(websiteID, filters)
	if err != nil {
		return nil, wrap.Error(err, "failed to build aggregate stats query")
	}

	rows, err := clickhouse.runQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}

	return sqlquery.ScanAll(rows, func(rows sqlquery.Rows) (stat db.AggregateStat, err error) {
		err = rows.Scan(&stat.X, &stat.Pageviews, &stat.Sessions, &stat.Clicks)
		return stat, err
	})
}

func (clickhouse ClickHouseDB) LinkClickStats(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
	pagination *db.Pagination,
) ([]db.LinkClickStat, error) {
	query, params, err := buildLinkClickStatsQuery(websiteID, filters, pagination)
	if err != nil {
		return nil, wrap.Error(err, "failed to build link click stats query")
	}

	rows, err := clickhouse.runQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}

	return sqlquery.ScanAll(rows, func(rows sqlquery.Rows) (stat db.LinkClickStat, err error) {
		err = rows.Scan(&stat.Event, &stat.LinkURL, &stat.Clicks)
		return stat, err
	})
}

func (clickhouse ClickHouseDB) StatsByDay(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.DayStats, error) {
	query, params, err := buildStatsByDayQuery(websiteID, filters)
	if err != nil {
		return nil, wrap.Error(err, "failed to build stats by day query")
	}

	rows, err := clickhouse.runQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}

	return sqlquery.ScanAll(rows, func(rows sqlquery.Rows) (stats db.DayStats, err error) {
		err = rows.Scan(
			&stats.Day,
			&stats.Pageviews,
			&stats.Visitors,
			&stats.Visits,
			&stats.Bounces,
			&stats.TotalTime,
		)
		return stats, err
	})
}

func (clickhouse ClickHouseDB) ClickCounts(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.ClickCount, error) {
	query, params, err := buildClickCountsQuery(websiteID, filters)
	if err != nil {
		return nil, wrap.Error(err, "failed to build click counts query")
	}

	rows, err := clickhouse.runQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}

	return sqlquery.ScanAll(rows, func(rows sqlquery.Rows) (count db.ClickCount, err error) {
		count.X = db.ClickCountLabel
		err = rows.Scan(&count.T, &count.Y)
		return count, err
	})
}

func (clickhouse ClickHouseDB) runQuery(
	ctx context.Context,
	query string,
	params *sqlquery.Params,
) (sqlquery.Rows, error) {
	ctx, err := withParameters(ctx, params)
	if err != nil {
		return nil, err
	}

	log.Debug("generated clickhouse query", slog.String("query", query))

	rows, err := clickhouse.conn.Query(ctx, query)
	if err != nil {
		return nil, wrap.Error(wrapClickHouseError(err), "failed to execute query against ClickHouse")
	}

	return rows, nil
}

func buildAggregateStatsQuery(
	websiteID uuid.UUID,
	filters db.Filters,
) (string, *sqlquery.Params, error) {
	fragment, err := sqlquery.Compile(Dialect{}, websiteID, filters)
	if err != nil {
		return "", nil, err
	}
	params := fragment.Params

	bucket, err := Dialect{}.BucketExpression(
		"we.created_at",
		filters.Unit,
		params.Bind(sqlquery.ParamNameTimezone, sqlquery.ParamString, filters.Timezone),
	)
	if err != nil {
		return "", nil, err
	}

	pageView := params.Bind("pageViewType", sqlquery.ParamInt, int64(db.EventTypePageView))
	customEvent := params.Bind("customEventType", sqlquery.ParamInt, int64(db.EventTypeCustomEvent))
	clickNames := bindLinkClickNames(params)

	fragment.And("we.event_type IN (" + pageView + ", " + customEvent + ")")

	var query sqlquery.QueryBuilder
	query.WriteString("SELECT ")
	query.WriteString(bucket)
	query.WriteString(" AS x, ")
	query.WriteString("toInt64(countIf(we.event_type = " + pageView + ")) AS pageviews, ")
	query.WriteString(
		"toInt64(uniqExactIf(we.session_id, we.event_type = " + pageView + ")) AS sessions, ",
	)
	query.WriteString("toInt64(countIf(we.event_type = " + customEvent)
	query.WriteString(" AND we.event_name IN (" + clickNames + "))) AS clicks")
	query.WriteString(" FROM website_event AS we")
	query.WriteWhere(fragment)
	query.WriteString(" GROUP BY x ORDER BY x")

	return query.String(), params, nil
}

func buildLinkClickStatsQuery(
	websiteID uuid.UUID,
	filters db.Filters,
	pagination *db.Pagination,
) (string, *sqlquery.Params, error) {
	fragment, err := sqlquery.Compile(
		Dialect{},
		websiteID,
		filters.WithEventType(db.EventTypeCustomEvent),
	)
	if err != nil {
		return "", nil, err
	}
	params := fragment.Params

	fragment.And("ed.data_key = " + params.Bind("linkUrlKey", sqlquery.ParamString, db.LinkURLDataKey))
	fragment.And("we.event_name IN (" + bindLinkClickNames(params) + ")")

	var query sqlquery.QueryBuilder
	query.WriteString("SELECT we.event_name AS event, ed.string_value AS link_url, ")
	query.WriteString("toInt64(count()) AS clicks")
	query.WriteString(" FROM website_event AS we")
	query.WriteString(" INNER JOIN event_data AS ed")
	query.WriteString(" ON ed.website_id = we.website_id AND ed.event_id = we.event_id")
	query.WriteWhere(fragment)
	query.WriteString(" GROUP BY event, link_url")
	query.WriteString(" ORDER BY clicks, event, link_url")
	query.WritePagination(pagination)

	return query.String(), params, nil
}

func buildStatsByDayQuery(
	websiteID uuid.UUID,
	filters db.Filters,
) (string, *sqlquery.Params, error) {
	fragment, err := sqlquery.Compile(
		Dialect{},
		websiteID,
		filters.WithEventType(db.EventTypePageView),
	)
	if err != nil {
		return "", nil, err
	}
	params := fragment.Params

	day, err := Dialect{}.BucketExpression(
		"t.min_time",
		filters.Unit,
		params.Bind(sqlquery.ParamNameTimezone, sqlquery.ParamString, filters.Timezone),
	)
	if err != nil {
		return "", nil, err
	}

	var query sqlquery.QueryBuilder
	query.WriteString("SELECT ")
	query.WriteString(day)
	query.WriteString(" AS day, ")
	query.WriteString("toInt64(sum(t.c)) AS pageviews, ")
	query.WriteString("toInt64(uniqExact(t.session_id)) AS visitors, ")
	query.WriteString("toInt64(uniqExact(t.visit_id)) AS visits, ")
	query.WriteString("toInt64(countIf(t.c = 1)) AS bounces, ")
	query.WriteString("toInt64(sum(")
	query.WriteString(Dialect{}.DurationExpression("t.min_time", "t.max_time"))
	query.WriteString(")) AS totaltime")

	// One row per visit, with its event count and first/last event time
	query.WriteString(" FROM (SELECT we.session_id, we.visit_id, count() AS c, ")
	query.WriteString("min(we.created_at) AS min_time, max(we.created_at) AS max_time")
	query.WriteString(" FROM website_event AS we")
	query.WriteWhere(fragment)
	query.WriteString(" GROUP BY we.session_id, we.visit_id) AS t")

	query.WriteString(" GROUP BY day ORDER BY day")

	return query.String(), params, nil
}

func buildClickCountsQuery(
	websiteID uuid.UUID,
	filters db.Filters,
) (string, *sqlquery.Params, error) {
	fragment, err := sqlquery.Compile(
		Dialect{},
		websiteID,
		filters.WithEventType(db.EventTypeCustomEvent),
	)
	if err != nil {
		return "", nil, err
	}
	params := fragment.Params

	bucket, err := Dialect{}.BucketExpression(
		"we.created_at",
		filters.Unit,
		params.Bind(sqlquery.ParamNameTimezone, sqlquery.ParamString, filters.Timezone),
	)
	if err != nil {
		return "", nil, err
	}

	fragment.And("we.event_name IN (" + bindLinkClickNames(params) + ")")

	var query sqlquery.QueryBuilder
	query.WriteString("SELECT ")
	query.WriteString(bucket)
	query.WriteString(" AS t, toInt64(count()) AS y")
	query.WriteString(" FROM website_event AS we")
	query.WriteWhere(fragment)
	query.WriteString(" GROUP BY t ORDER BY t")

	return query.String(), params, nil
}

func bindLinkClickNames(params *sqlquery.Params) string {
	return params.Bind("socialLinkClick", sqlquery.ParamString, db.EventNameSocialLinkClick) +
		", " +
		params.Bind("customLinkClick", sqlquery.ParamString, db.EventNameCustomLinkClick)
}
