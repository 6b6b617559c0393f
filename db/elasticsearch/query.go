package elasticsearch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"hermannm.dev/enumnames"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/wrap"
)

type object = map[string]any

// Joda-style equivalents of db.BucketLabelLayout. Day, month and year buckets are labeled with
// their calendar date at midnight, since their first instant is later than midnight on days where
// clocks skip past it.
const (
	wallClockLabelFormat = "yyyy-MM-dd HH:mm:ss"
	calendarLabelFormat  = "yyyy-MM-dd '00:00:00'"
)

// See https://www.elastic.co/guide/en/elasticsearch/reference/8.10/search-aggregations-bucket-datehistogram-aggregation.html#calendar_intervals
var calendarIntervals = enumnames.NewMap(map[db.DateUnit]string{
	db.DateUnitMinute: "minute",
	db.DateUnitHour:   "hour",
	db.DateUnitDay:    "day",
	db.DateUnitMonth:  "month",
	db.DateUnitYear:   "year",
})

// Session counts are exact up to this many distinct sessions per bucket, and approximate above
// it. Elasticsearch caps the threshold at 40000.
const sessionCardinalityPrecision = 40000

func bucketLabelFormat(unit db.DateUnit) string {
	switch unit {
	case db.DateUnitMinute, db.DateUnitHour:
		return wallClockLabelFormat
	default:
		return calendarLabelFormat
	}
}

func (elastic ElasticsearchDB) AggregateStats(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.AggregateStat, error) {
	body, err := buildAggregateStatsRequest(websiteID, filters)
	if err != nil {
		return nil, wrap.Error(err, "failed to build aggregate stats request")
	}

	var response aggregateStatsResponse
	if err := elastic.search(ctx, body, &response); err != nil {
		return nil, err
	}

	buckets := response.Aggregations.Buckets.Buckets
	stats := make([]db.AggregateStat, len(buckets))
	for i, bucket := range buckets {
		stats[i] = db.AggregateStat{
			X:         bucket.KeyAsString,
			Pageviews: bucket.Pageviews.DocCount,
			Sessions:  bucket.Pageviews.Sessions.Value,
			Clicks:    bucket.Clicks.DocCount,
		}
	}

	return stats, nil
}

type aggregateStatsResponse struct {
	Aggregations struct {
		Buckets struct {
			Buckets []struct {
				KeyAsString string `json:"key_as_string"`
				Pageviews   struct {
					DocCount int64 `json:"doc_count"`
					Sessions struct {
						Value int64 `json:"value"`
					} `json:"sessions"`
				} `json:"pageviews"`
				Clicks struct {
					DocCount int64 `json:"doc_count"`
				} `json:"clicks"`
			} `json:"buckets"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

func buildAggregateStatsRequest(websiteID uuid.UUID, filters db.Filters) (object, error) {
	query, err := compileQuery(websiteID, filters)
	if err != nil {
		return nil, err
	}

	interval, ok := calendarIntervals.GetName(filters.Unit)
	if !ok {
		return nil, wrap.Errorf(db.ErrInvalidUnit, "unit value %d", filters.Unit)
	}

	appendFilter(
		query,
		termsQuery("event_type", int(db.EventTypePageView), int(db.EventTypeCustomEvent)),
	)

	return object{
		"size":  0,
		"query": query,
		"aggs": object{
			"buckets": object{
				"date_histogram": object{
					"field":             "created_at",
					"calendar_interval": interval,
					"time_zone":         filters.Timezone,
					"format":            bucketLabelFormat(filters.Unit),
					"min_doc_count":     1,
				},
				"aggs": object{
					"pageviews": object{
						"filter": termQuery("event_type", int(db.EventTypePageView)),
						"aggs": object{
							"sessions": object{
								"cardinality": object{
									"field":               "session_id",
									"precision_threshold": sessionCardinalityPrecision,
								},
							},
						},
					},
					"clicks": object{
						"filter": object{
							"bool": object{
								"filter": []object{
									termQuery("event_type", int(db.EventTypeCustomEvent)),
									termsQuery("event_name", stringsToAny(db.LinkClickEventNames)...),
								},
							},
						},
					},
				},
			},
		},
	}, nil
}

// Compiles the website and date range scoping along with the given filters into a bool query.
// Values are sent as JSON values in term/wildcard queries, never parsed as query strings.
func compileQuery(websiteID uuid.UUID, filters db.Filters) (object, error) {
	boolQuery := object{
		"filter": []object{
			termQuery("website_id", websiteID.String()),
			{
				"range": object{
					"created_at": object{
						"gte":    filters.StartDate.UTC().Format(time.RFC3339Nano),
						"lt":     filters.EndDate.UTC().Format(time.RFC3339Nano),
						"format": "strict_date_optional_time_nanos",
					},
				},
			},
		},
	}
	query := object{"bool": boolQuery}

	if filters.EventType != 0 {
		if !filters.EventType.IsValid() {
			return nil, wrap.Errorf(db.ErrInvalidEventType, "event type value %d", filters.EventType)
		}
		appendFilter(query, termQuery("event_type", int(filters.EventType)))
	}

	var mustNot []object
	for _, filter := range filters.Dimensions {
		field, _, err := filter.Dimension.Column()
		if err != nil {
			return nil, err
		}

		switch filter.Operator {
		case 0, db.OperatorEquals:
			appendFilter(query, termQuery(field, filter.Value))
		case db.OperatorNotEquals:
			mustNot = append(mustNot, termQuery(field, filter.Value))
		case db.OperatorContains:
			appendFilter(query, object{
				"wildcard": object{
					field: object{"value": "*" + escapeWildcard(filter.Value) + "*"},
				},
			})
		default:
			return nil, wrap.Errorf(
				db.ErrInvalidOperator,
				"operator value %d for dimension '%s'",
				filter.Operator,
				filter.Dimension,
			)
		}
	}
	if len(mustNot) != 0 {
		boolQuery["must_not"] = mustNot
	}

	return query, nil
}

func appendFilter(query object, filter object) {
	boolQuery := query["bool"].(object)
	boolQuery["filter"] = append(boolQuery["filter"].([]object), filter)
}

func termQuery(field string, value any) object {
	return object{"term": object{field: value}}
}

func termsQuery(field string, values ...any) object {
	return object{"terms": object{field: values}}
}

func stringsToAny(values []string) []any {
	converted := make([]any, len(values))
	for i, value := range values {
		converted[i] = value
	}
	return converted
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(value string) string {
	return wildcardEscaper.Replace(value)
}
