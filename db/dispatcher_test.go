package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/webanalytics/db"
)

const testWebsiteID = "4fb8f2ed-6a44-4e9e-9d4c-1d7a1c3f0c11"

func weekFilters() db.Filters {
	return db.Filters{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
}

type fakeBackend struct {
	aggregateStats []db.AggregateStat
	linkClickStats []db.LinkClickStat
	dayStats       []db.DayStats
	clickCounts    []db.ClickCount
	err            error
	// Blocks queries until the context is done.
	block bool

	mutex   sync.Mutex
	filters []db.Filters
}

func (*fakeBackend) Name() string {
	return "fake"
}

func (backend *fakeBackend) record(ctx context.Context, filters db.Filters) error {
	backend.mutex.Lock()
	backend.filters = append(backend.filters, filters)
	backend.mutex.Unlock()

	if backend.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return backend.err
}

func (backend *fakeBackend) calls() []db.Filters {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	return backend.filters
}

func (backend *fakeBackend) AggregateStats(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.AggregateStat, error) {
	if err := backend.record(ctx, filters); err != nil {
		return nil, err
	}
	return backend.aggregateStats, nil
}

func (backend *fakeBackend) LinkClickStats(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
	pagination *db.Pagination,
) ([]db.LinkClickStat, error) {
	if err := backend.record(ctx, filters); err != nil {
		return nil, err
	}
	return backend.linkClickStats, nil
}

func (backend *fakeBackend) StatsByDay(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.DayStats, error) {
	if err := backend.record(ctx, filters); err != nil {
		return nil, err
	}
	return backend.dayStats, nil
}

func (backend *fakeBackend) ClickCounts(
	ctx context.Context,
	websiteID uuid.UUID,
	filters db.Filters,
) ([]db.ClickCount, error) {
	if err := backend.record(ctx, filters); err != nil {
		return nil, err
	}
	return backend.clickCounts, nil
}

// Implements only aggregate stats, like the Elasticsearch backend.
type aggregateOnlyBackend struct{}

func (aggregateOnlyBackend) Name() string {
	return "aggregateOnly"
}

func (aggregateOnlyBackend) AggregateStats(
	context.Context,
	uuid.UUID,
	db.Filters,
) ([]db.AggregateStat, error) {
	return nil, nil
}

type observedQuery struct {
	backend   string
	operation db.Operation
	err       error
}

type recordingObserver struct {
	mutex   sync.Mutex
	queries []observedQuery
}

func (observer *recordingObserver) ObserveQuery(
	backend string,
	operation db.Operation,
	duration time.Duration,
	err error,
) {
	observer.mutex.Lock()
	defer observer.mutex.Unlock()
	observer.queries = append(observer.queries, observedQuery{backend, operation, err})
}

func TestAggregateStatsFillsEmptyBuckets(t *testing.T) {
	backend := &fakeBackend{
		aggregateStats: []db.AggregateStat{
			{X: "2024-01-02 00:00:00", Pageviews: 4, Sessions: 2},
			{X: "2024-01-05 00:00:00", Pageviews: 1, Sessions: 1, Clicks: 1},
		},
	}
	dispatcher := db.NewDispatcher(backend)

	stats, err := dispatcher.AggregateStats(context.Background(), testWebsiteID, weekFilters())
	require.NoError(t, err)

	require.Len(t, stats, 7)
	assert.Equal(t, db.AggregateStat{X: "2024-01-01 00:00:00"}, stats[0])
	assert.Equal(t, db.AggregateStat{X: "2024-01-02 00:00:00", Pageviews: 4, Sessions: 2}, stats[1])
	assert.Equal(
		t,
		db.AggregateStat{X: "2024-01-05 00:00:00", Pageviews: 1, Sessions: 1, Clicks: 1},
		stats[4],
	)
	assert.Equal(t, db.AggregateStat{X: "2024-01-07 00:00:00"}, stats[6])
}

func TestBackendReceivesNormalizedFilters(t *testing.T) {
	backend := &fakeBackend{}
	dispatcher := db.NewDispatcher(backend)

	filters := weekFilters()
	filters.Dimensions = []db.DimensionFilter{{Dimension: db.DimensionOS, Value: "Linux"}}

	_, err := dispatcher.StatsByDay(context.Background(), testWebsiteID, filters)
	require.NoError(t, err)

	calls := backend.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "UTC", calls[0].Timezone)
	assert.Equal(t, db.DateUnitDay, calls[0].Unit)
	assert.Equal(t, db.OperatorEquals, calls[0].Dimensions[0].Operator)
	assert.Equal(t, db.Operator(0), filters.Dimensions[0].Operator)
}

func TestInputErrorsNeverReachBackend(t *testing.T) {
	backend := &fakeBackend{}
	observer := &recordingObserver{}
	dispatcher := db.NewDispatcher(backend, db.WithQueryObserver(observer))
	ctx := context.Background()

	invalidRange := weekFilters()
	invalidRange.StartDate, invalidRange.EndDate = invalidRange.EndDate, invalidRange.StartDate

	invalidDimension := weekFilters()
	invalidDimension.Dimensions = []db.DimensionFilter{{Dimension: db.Dimension(77), Value: "x"}}

	_, err := dispatcher.AggregateStats(ctx, "not-a-uuid", weekFilters())
	assert.ErrorIs(t, err, db.ErrInvalidWebsiteID)

	_, err = dispatcher.ClickCounts(ctx, testWebsiteID, invalidRange)
	assert.ErrorIs(t, err, db.ErrInvalidRange)

	tooManyBuckets := weekFilters()
	tooManyBuckets.StartDate = tooManyBuckets.EndDate.AddDate(-1, 0, 0)
	tooManyBuckets.Unit = db.DateUnitMinute
	_, err = dispatcher.AggregateStats(ctx, testWebsiteID, tooManyBuckets)
	assert.ErrorIs(t, err, db.ErrTooManyBuckets)
	assert.True(t, db.IsInputError(err))

	_, err = dispatcher.StatsByDay(ctx, testWebsiteID, invalidDimension)
	assert.ErrorIs(t, err, db.ErrUnknownDimension)

	_, err = dispatcher.LinkClickStats(
		ctx,
		testWebsiteID,
		weekFilters(),
		&db.Pagination{Limit: -1},
	)
	assert.ErrorIs(t, err, db.ErrInvalidPagination)

	assert.Empty(t, backend.calls())
	assert.Empty(t, observer.queries)
}

func TestUnsupportedOperation(t *testing.T) {
	dispatcher := db.NewDispatcher(aggregateOnlyBackend{})
	ctx := context.Background()

	assert.True(t, dispatcher.Supports(db.OperationAggregateStats))
	assert.False(t, dispatcher.Supports(db.OperationStatsByDay))

	_, err := dispatcher.StatsByDay(ctx, testWebsiteID, weekFilters())
	assert.ErrorIs(t, err, db.ErrUnsupportedOperation)
	assert.ErrorContains(t, err, "statsByDay is not implemented for aggregateOnly")

	_, err = dispatcher.LinkClicks(ctx, testWebsiteID, weekFilters(), nil)
	assert.ErrorIs(t, err, db.ErrUnsupportedOperation)

	_, err = dispatcher.ClickCounts(ctx, testWebsiteID, weekFilters())
	assert.ErrorIs(t, err, db.ErrUnsupportedOperation)

	// Checked before input validation
	_, err = dispatcher.StatsByDay(ctx, "not-a-uuid", weekFilters())
	assert.ErrorIs(t, err, db.ErrUnsupportedOperation)

	stats, err := dispatcher.AggregateStats(ctx, testWebsiteID, weekFilters())
	require.NoError(t, err)
	assert.Len(t, stats, 7)
}

func TestBackendErrorsAreWrapped(t *testing.T) {
	backendErr := errors.New("relation \"website_event\" does not exist")
	observer := &recordingObserver{}
	dispatcher := db.NewDispatcher(&fakeBackend{err: backendErr}, db.WithQueryObserver(observer))

	_, err := dispatcher.StatsByDay(context.Background(), testWebsiteID, weekFilters())

	var executionErr *db.ExecutionError
	require.ErrorAs(t, err, &executionErr)
	assert.Equal(t, db.OperationStatsByDay, executionErr.Operation)
	assert.Equal(t, "fake", executionErr.Backend)
	assert.ErrorIs(t, err, backendErr)
	assert.False(t, db.IsInputError(err))

	assert.Equal(
		t,
		[]observedQuery{{backend: "fake", operation: db.OperationStatsByDay, err: backendErr}},
		observer.queries,
	)
}

func TestQueryTimeout(t *testing.T) {
	dispatcher := db.NewDispatcher(
		&fakeBackend{block: true},
		db.WithQueryTimeout(10*time.Millisecond),
	)

	_, err := dispatcher.ClickCounts(context.Background(), testWebsiteID, weekFilters())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var executionErr *db.ExecutionError
	assert.ErrorAs(t, err, &executionErr)
}

func TestLinkClicksSplitsByEvent(t *testing.T) {
	backend := &fakeBackend{
		linkClickStats: []db.LinkClickStat{
			{Event: db.EventNameSocialLinkClick, LinkURL: "https://x.com/a", Clicks: 1},
			{Event: db.EventNameCustomLinkClick, LinkURL: "/pricing", Clicks: 2},
			{Event: db.EventNameSocialLinkClick, LinkURL: "https://github.com/a", Clicks: 3},
		},
	}
	dispatcher := db.NewDispatcher(backend)

	linkClicks, err := dispatcher.LinkClicks(context.Background(), testWebsiteID, weekFilters(), nil)
	require.NoError(t, err)

	assert.Equal(t, db.LinkClicks{
		CustomLinkClicks: []db.XY{{X: "/pricing", Y: 2}},
		SocialLinkClicks: []db.XY{
			{X: "https://x.com/a", Y: 1},
			{X: "https://github.com/a", Y: 3},
		},
	}, linkClicks)
}

func TestClickCountsFillsEmptyBuckets(t *testing.T) {
	backend := &fakeBackend{
		clickCounts: []db.ClickCount{{X: db.ClickCountLabel, T: "2024-01-03 00:00:00", Y: 5}},
	}
	dispatcher := db.NewDispatcher(backend)

	counts, err := dispatcher.ClickCounts(context.Background(), testWebsiteID, weekFilters())
	require.NoError(t, err)

	require.Len(t, counts, 7)
	var total int64
	for _, count := range counts {
		assert.Equal(t, db.ClickCountLabel, count.X)
		total += count.Y
	}
	assert.Equal(t, int64(5), total)
	assert.Equal(t, "2024-01-03 00:00:00", counts[2].T)
}

func TestConcurrentDispatch(t *testing.T) {
	backend := &fakeBackend{dayStats: []db.DayStats{{Day: "2024-01-01 00:00:00", Pageviews: 1}}}
	dispatcher := db.NewDispatcher(backend, db.WithQueryTimeout(time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := dispatcher.StatsByDay(context.Background(), testWebsiteID, weekFilters())
			assert.NoError(t, err)
			assert.Len(t, stats, 1)
		}()
	}
	wg.Wait()

	assert.Len(t, backend.calls(), 20)
}
