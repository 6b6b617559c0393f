package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/webanalytics/db/sqlquery"
	"hermannm.dev/webanalytics/log"
	"hermannm.dev/wrap"
)

func (postgres PostgresDB) AggregateStats(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.AggregateStat, error) {
	query, params, err := buildAggregateStatsQuery(websiteID, filters)
	if err != nil {
		return nil, wrap.Error(err, "failed to build aggregate stats query")
	}

	rows, err := postgres.runQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}

	return sqlquery.ScanAll(rows, func(rows sqlquery.Rows) (stat db.AggregateStat, err error) {
		err = rows.Scan(&stat.X, &stat.Pageviews, &stat.Sessions, &stat.Clicks)
		return stat, err
	})
}

func (postgres PostgresDB) LinkClickStats(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
	pagination *db.Pagination,
) ([]db.LinkClickStat, error) {
	query, params, err := buildLinkClickStatsQuery(websiteID, filters, pagination)
	if err != nil {
		return nil, wrap.Error(err, "failed to build link click stats query")
	}

	rows, err := postgres.runQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}

	return sqlquery.ScanAll(rows, func(rows sqlquery.Rows) (stat db.LinkClickStat, err error) {
		err = rows.Scan(&stat.Event, &stat.LinkURL, &stat.Clicks)
		return stat, err
	})
}

func (postgres PostgresDB) StatsByDay(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.DayStats, error) {
	query, params, err := buildStatsByDayQuery(websiteID, filters)
	if err != nil {
		return nil, wrap.Error(err, "failed to build stats by day query")
	}

	rows, err := postgres.runQuery(ctx, query, params)
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

func (postgres PostgresDB) ClickCounts(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.ClickCount, error) {
	query, params, err := buildClickCountsQuery(websiteID, filters)
	if err != nil {
		return nil, wrap.Error(err, "failed to build click counts query")
	}

	rows, err := postgres.runQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}

	return sqlquery.ScanAll(rows, func(rows sqlquery.Rows) (count db.ClickCount, err error) {
		count.X = db.ClickCountLabel
		err = rows.Scan(&count.T, &count.Y)
		return count, err
	})
}

func (postgres PostgresDB) runQuery(
	ctx context.Context,
	query string,
	params *sqlquery.Params,
) (sqlquery.Rows, error) {
	log.Debug("generated postgres query", slog.String("query", query))

	rows, err := postgres.conn.QueryContext(ctx, query, params.Values()...)
	if err != nil {
		return nil, wrap.Error(wrapPostgresError(err), "failed to execute query against Postgres")
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
	query.WriteString("COUNT(*) FILTER (WHERE we.event_type = " + pageView + ") AS pageviews, ")
	query.WriteString(
		"COUNT(DISTINCT we.session_id) FILTER (WHERE we.event_type = " + pageView + ") AS sessions, ",
	)
	query.WriteString("COUNT(*) FILTER (WHERE we.event_type = " + customEvent)
	query.WriteString(" AND we.event_name IN (" + clickNames + ")) AS clicks")
	query.WriteString(" FROM website_event AS we")
	query.WriteJoin(fragment)
	query.WriteWhere(fragment)
	query.WriteString(" GROUP BY 1 ORDER BY 1")

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

	dataKey := params.Bind("linkUrlKey", sqlquery.ParamString, db.LinkURLDataKey)
	fragment.And("we.event_name IN (" + bindLinkClickNames(params) + ")")

	var query sqlquery.QueryBuilder
	query.WriteString("SELECT we.event_name AS event, ")
	query.WriteString("COALESCE(ed.string_value, '') AS link_url, ")
	query.WriteString("COUNT(*) AS clicks")
	query.WriteString(" FROM website_event AS we")
	query.WriteString(" INNER JOIN event_data AS ed ON ed.website_event_id = we.event_id")
	query.WriteString(" AND ed.data_key = " + dataKey)
	query.WriteJoin(fragment)
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
	query.WriteString("SUM(t.c)::bigint AS pageviews, ")
	query.WriteString("COUNT(DISTINCT t.session_id) AS visitors, ")
	query.WriteString("COUNT(DISTINCT t.visit_id) AS visits, ")
	query.WriteString("SUM(CASE WHEN t.c = 1 THEN 1 ELSE 0 END)::bigint AS bounces, ")
	query.WriteString("SUM(")
	query.WriteString(Dialect{}.DurationExpression("t.min_time", "t.max_time"))
	query.WriteString(")::bigint AS totaltime")

	// One row per visit, with its event count and first/last event time
	query.WriteString(" FROM (SELECT we.session_id, we.visit_id, COUNT(*) AS c, ")
	query.WriteString("MIN(we.created_at) AS min_time, MAX(we.created_at) AS max_time")
	query.WriteString(" FROM website_event AS we")
	query.WriteJoin(fragment)
	query.WriteWhere(fragment)
	query.WriteString(" GROUP BY we.session_id, we.visit_id) AS t")

	query.WriteString(" GROUP BY 1 ORDER BY 1")

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
	query.WriteString(" AS t, COUNT(*) AS y")
	query.WriteString(" FROM website_event AS we")
	query.WriteJoin(fragment)
	query.WriteWhere(fragment)
	query.WriteString(" GROUP BY 1 ORDER BY 1")

	return query.String(), params, nil
}

func bindLinkClickNames(params *sqlquery.Params) string {
	return params.Bind("socialLinkClick", sqlquery.ParamString, db.EventNameSocialLinkClick) +
		", " +
		params.Bind("customLinkClick", sqlquery.ParamString, db.EventNameCustomLinkClick)
}
