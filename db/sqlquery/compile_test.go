package sqlquery_test

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/webanalytics/db/clickhouse"
	"hermannm.dev/webanalytics/db/postgres"
	"hermannm.dev/webanalytics/db/sqlquery"
)

var (
	testWebsiteID = uuid.MustParse("4fb8f2ed-6a44-4e9e-9d4c-1d7a1c3f0c11")

	dialects = map[string]sqlquery.Dialect{
		"postgres":   postgres.Dialect{},
		"clickhouse": clickhouse.Dialect{},
	}
)

func baseFilters() db.Filters {
	return db.Filters{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		Timezone:  "UTC",
		Unit:      db.DateUnitDay,
	}
}

func randomFilters(random *rand.Rand) db.Filters {
	filters := baseFilters()
	filters.StartDate = filters.StartDate.Add(time.Duration(random.Intn(1000)) * time.Hour)
	filters.EndDate = filters.StartDate.Add(time.Duration(random.Intn(1000)+1) * time.Hour)

	switch random.Intn(3) {
	case 1:
		filters.EventType = db.EventTypePageView
	case 2:
		filters.EventType = db.EventTypeCustomEvent
	}

	operators := []db.Operator{0, db.OperatorEquals, db.OperatorNotEquals, db.OperatorContains}
	for i := random.Intn(5); i > 0; i-- {
		filters.Dimensions = append(filters.Dimensions, db.DimensionFilter{
			Dimension: db.Dimensions[random.Intn(len(db.Dimensions))],
			Operator:  operators[random.Intn(len(operators))],
			Value:     randomValue(random),
		})
	}

	return filters
}

// Values start with a marker that never occurs in generated SQL, so they can be searched for.
func randomValue(random *rand.Rand) string {
	const characters = "abc/%_'\";-- DROP TABLE x"
	var value strings.Builder
	value.WriteString("zqx")
	for i := random.Intn(12) + 1; i > 0; i-- {
		value.WriteByte(characters[random.Intn(len(characters))])
	}
	return value.String()
}

func TestCompileAlwaysScopesToWebsiteAndRange(t *testing.T) {
	random := rand.New(rand.NewSource(1))

	for name, dialect := range dialects {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 500; i++ {
				filters := randomFilters(random)

				fragment, err := sqlquery.Compile(dialect, testWebsiteID, filters)
				require.NoError(t, err)

				websiteID, ok := fragment.Params.Lookup(sqlquery.ParamNameWebsiteID)
				require.True(t, ok)
				assert.Equal(t, testWebsiteID.String(), websiteID.Value)

				startDate, ok := fragment.Params.Lookup(sqlquery.ParamNameStartDate)
				require.True(t, ok)
				endDate, ok := fragment.Params.Lookup(sqlquery.ParamNameEndDate)
				require.True(t, ok)
				assert.Equal(t, filters.StartDate, startDate.Value)
				assert.Equal(t, filters.EndDate, endDate.Value)

				require.GreaterOrEqual(t, len(fragment.Where), 2)
				assert.Equal(t, "we.website_id = "+dialect.Placeholder(websiteID), fragment.Where[0])
				assert.Equal(
					t,
					"we.created_at >= "+dialect.Placeholder(startDate)+
						" AND we.created_at < "+dialect.Placeholder(endDate),
					fragment.Where[1],
				)

				for _, filter := range filters.Dimensions {
					assert.NotContains(t, fragment.WhereClause(), filter.Value)
				}
			}
		})
	}
}

func TestCompileBindsEventTypeOnlyWhenSet(t *testing.T) {
	for name, dialect := range dialects {
		t.Run(name, func(t *testing.T) {
			fragment, err := sqlquery.Compile(dialect, testWebsiteID, baseFilters())
			require.NoError(t, err)
			_, ok := fragment.Params.Lookup(sqlquery.ParamNameEventType)
			assert.False(t, ok)
			assert.Len(t, fragment.Where, 2)

			fragment, err = sqlquery.Compile(
				dialect,
				testWebsiteID,
				baseFilters().WithEventType(db.EventTypeCustomEvent),
			)
			require.NoError(t, err)
			eventType, ok := fragment.Params.Lookup(sqlquery.ParamNameEventType)
			require.True(t, ok)
			assert.Equal(t, int64(2), eventType.Value)
			assert.Equal(t, "we.event_type = "+dialect.Placeholder(eventType), fragment.Where[2])
		})
	}
}

func TestCompileCountryFilterIsBoundAsParameter(t *testing.T) {
	filters := baseFilters()
	filters.Dimensions = []db.DimensionFilter{
		{Dimension: db.DimensionCountry, Operator: db.OperatorEquals, Value: "US"},
	}

	for name, dialect := range dialects {
		t.Run(name, func(t *testing.T) {
			fragment, err := sqlquery.Compile(dialect, testWebsiteID, filters)
			require.NoError(t, err)

			param, ok := fragment.Params.Lookup("country_0")
			require.True(t, ok)
			assert.Equal(t, "US", param.Value)
			assert.Equal(t, sqlquery.ParamString, param.Kind)

			assert.Contains(
				t,
				fragment.Where,
				dialect.Column("country", true)+" = "+dialect.Placeholder(param),
			)
			assert.NotContains(t, fragment.WhereClause(), "US")
			assert.NotContains(t, fragment.Join, "US")
		})
	}
}

func TestCompileRejectsUnknownDimension(t *testing.T) {
	filters := baseFilters()
	filters.Dimensions = []db.DimensionFilter{
		{Dimension: db.DimensionURL, Value: "/pricing"},
		{Dimension: db.Dimension(99), Value: "x"},
	}

	for name, dialect := range dialects {
		t.Run(name, func(t *testing.T) {
			_, err := sqlquery.Compile(dialect, testWebsiteID, filters)
			assert.ErrorIs(t, err, db.ErrUnknownDimension)
		})
	}
}

func TestCompileAcceptsEveryKnownDimension(t *testing.T) {
	filters := baseFilters()
	for _, dimension := range db.Dimensions {
		filters.Dimensions = append(
			filters.Dimensions,
			db.DimensionFilter{Dimension: dimension, Value: "value"},
		)
	}

	for name, dialect := range dialects {
		t.Run(name, func(t *testing.T) {
			fragment, err := sqlquery.Compile(dialect, testWebsiteID, filters)
			require.NoError(t, err)
			assert.Len(t, fragment.Where, 2+len(db.Dimensions))
		})
	}
}

func TestCompileJoinsSessionOnlyForSessionDimensions(t *testing.T) {
	eventScoped := baseFilters()
	eventScoped.Dimensions = []db.DimensionFilter{{Dimension: db.DimensionURL, Value: "/"}}

	sessionScoped := baseFilters()
	sessionScoped.Dimensions = []db.DimensionFilter{{Dimension: db.DimensionCity, Value: "Oslo"}}

	fragment, err := sqlquery.Compile(postgres.Dialect{}, testWebsiteID, eventScoped)
	require.NoError(t, err)
	assert.Empty(t, fragment.Join)

	fragment, err = sqlquery.Compile(postgres.Dialect{}, testWebsiteID, sessionScoped)
	require.NoError(t, err)
	assert.Equal(t, "INNER JOIN session AS s ON s.session_id = we.session_id", fragment.Join)
	assert.Contains(t, fragment.WhereClause(), "s.city = $4::text")

	// Session attributes are stored on events in ClickHouse
	fragment, err = sqlquery.Compile(clickhouse.Dialect{}, testWebsiteID, sessionScoped)
	require.NoError(t, err)
	assert.Empty(t, fragment.Join)
	assert.Contains(t, fragment.WhereClause(), "we.city = {city_0:String}")
}

func TestCompileOperators(t *testing.T) {
	filters := baseFilters()
	filters.Dimensions = []db.DimensionFilter{
		{Dimension: db.DimensionURL, Operator: db.OperatorContains, Value: "50%_off"},
		{Dimension: db.DimensionBrowser, Operator: db.OperatorNotEquals, Value: "chrome"},
		{Dimension: db.DimensionReferrer, Value: "google.com"},
	}

	fragment, err := sqlquery.Compile(postgres.Dialect{}, testWebsiteID, filters)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"we.website_id = $1::uuid",
		"we.created_at >= $2::timestamptz AND we.created_at < $3::timestamptz",
		"strpos(we.url_path, $4::text) > 0",
		"s.browser <> $5::text",
		"we.referrer_domain = $6::text",
	}, fragment.Where)
	assert.Equal(
		t,
		[]any{
			testWebsiteID.String(),
			filters.StartDate,
			filters.EndDate,
			"50%_off",
			"chrome",
			"google.com",
		},
		fragment.Params.Values(),
	)

	fragment, err = sqlquery.Compile(clickhouse.Dialect{}, testWebsiteID, filters)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"we.website_id = {websiteId:UUID}",
		"we.created_at >= {startDate:DateTime64(3, 'UTC')} AND " +
			"we.created_at < {endDate:DateTime64(3, 'UTC')}",
		"position(we.url_path, {url_0:String}) > 0",
		"we.browser <> {browser_1:String}",
		"we.referrer_domain = {referrer_2:String}",
	}, fragment.Where)
	assert.NotContains(t, fragment.WhereClause(), "LIKE")
}

func TestCompileRejectsInvalidOperator(t *testing.T) {
	filters := baseFilters()
	filters.Dimensions = []db.DimensionFilter{
		{Dimension: db.DimensionURL, Operator: db.Operator(42), Value: "/"},
	}

	_, err := sqlquery.Compile(postgres.Dialect{}, testWebsiteID, filters)
	assert.ErrorIs(t, err, db.ErrInvalidOperator)
}

func TestBindReusesPlaceholderForSameName(t *testing.T) {
	params := sqlquery.NewParams(postgres.Dialect{})

	first := params.Bind("timezone", sqlquery.ParamString, "Europe/Oslo")
	other := params.Bind("unit", sqlquery.ParamString, "day")
	again := params.Bind("timezone", sqlquery.ParamString, "Europe/Oslo")

	assert.Equal(t, "$1::text", first)
	assert.Equal(t, "$2::text", other)
	assert.Equal(t, first, again)
	assert.Equal(t, 2, params.Len())
}

func TestBindRejectsUnknownKind(t *testing.T) {
	params := sqlquery.NewParams(postgres.Dialect{})

	assert.PanicsWithValue(t, "invalid kind 9 for query parameter 'limit'", func() {
		params.Bind("limit", sqlquery.ParamKind(9), 25)
	})
	assert.Equal(t, 0, params.Len())
}
