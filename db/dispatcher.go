package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"hermannm.dev/webanalytics/log"
	"hermannm.dev/wrap"
)

// A database the analytics operations can run against. A backend implements an operation by
// implementing the matching querier interface below.
type Backend interface {
	Name() string
}

// Implementations receive a validated website ID and normalized filters.
type AggregateStatsQuerier interface {
	AggregateStats(ctx context.Context, websiteID uuid.UUID, filters Filters) ([]AggregateStat, error)
}

type LinkClickStatsQuerier interface {
	LinkClickStats(
		ctx context.Context,
		websiteID uuid.UUID,
		filters Filters,
		pagination *Pagination,
	) ([]LinkClickStat, error)
}

type StatsByDayQuerier interface {
	StatsByDay(ctx context.Context, websiteID uuid.UUID, filters Filters) ([]DayStats, error)
}

type ClickCountsQuerier interface {
	ClickCounts(ctx context.Context, websiteID uuid.UUID, filters Filters) ([]ClickCount, error)
}

type QueryObserver interface {
	ObserveQuery(backend string, operation Operation, duration time.Duration, err error)
}

// Runs analytics operations against the one backend selected at startup. Safe for concurrent
// use; a Dispatcher is never modified after construction.
type Dispatcher struct {
	backend      Backend
	queryTimeout time.Duration
	observer     QueryObserver
}

type DispatcherOption func(*Dispatcher)

// Cancels queries running longer than timeout. Zero means no timeout beyond the caller's context.
func WithQueryTimeout(timeout time.Duration) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		dispatcher.queryTimeout = timeout
	}
}

func WithQueryObserver(observer QueryObserver) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		dispatcher.observer = observer
	}
}

func NewDispatcher(backend Backend, options ...DispatcherOption) Dispatcher {
	dispatcher := Dispatcher{backend: backend}
	for _, option := range options {
		option(&dispatcher)
	}
	return dispatcher
}

func (dispatcher Dispatcher) BackendName() string {
	return dispatcher.backend.Name()
}

func (dispatcher Dispatcher) Supports(operation Operation) bool {
	switch operation {
	case OperationAggregateStats:
		_, ok := dispatcher.backend.(AggregateStatsQuerier)
		return ok
	case OperationLinkClickStats:
		_, ok := dispatcher.backend.(LinkClickStatsQuerier)
		return ok
	case OperationStatsByDay:
		_, ok := dispatcher.backend.(StatsByDayQuerier)
		return ok
	case OperationClickCounts:
		_, ok := dispatcher.backend.(ClickCountsQuerier)
		return ok
	default:
		return false
	}
}

// Pageviews, sessions and link clicks per bucket, one row for every bucket in the range,
// ascending by bucket.
func (dispatcher Dispatcher) AggregateStats(
	ctx context.Context,
	websiteID string,
	filters Filters,
) ([]AggregateStat, error) {
	querier, ok := dispatcher.backend.(AggregateStatsQuerier)
	if !ok {
		return nil, dispatcher.unsupported(OperationAggregateStats)
	}

	id, filters, err := prepareQuery(websiteID, filters)
	if err != nil {
		return nil, err
	}

	labels, err := BucketLabels(filters)
	if err != nil {
		return nil, err
	}

	stats, err := execute(
		ctx,
		dispatcher,
		OperationAggregateStats,
		func(ctx context.Context) ([]AggregateStat, error) {
			return querier.AggregateStats(ctx, id, filters)
		},
	)
	if err != nil {
		return nil, err
	}

	return fillAggregateStats(stats, labels), nil
}

// Clicks per (event name, link URL), ascending by clicks. Pagination may be nil.
func (dispatcher Dispatcher) LinkClickStats(
	ctx context.Context,
	websiteID string,
	filters Filters,
	pagination *Pagination,
) ([]LinkClickStat, error) {
	querier, ok := dispatcher.backend.(LinkClickStatsQuerier)
	if !ok {
		return nil, dispatcher.unsupported(OperationLinkClickStats)
	}

	id, filters, err := prepareQuery(websiteID, filters)
	if err != nil {
		return nil, err
	}

	if pagination != nil && (pagination.Limit < 0 || pagination.Offset < 0) {
		return nil, wrap.Errorf(
			ErrInvalidPagination,
			"limit %d and offset %d must not be negative",
			pagination.Limit,
			pagination.Offset,
		)
	}

	return execute(
		ctx,
		dispatcher,
		OperationLinkClickStats,
		func(ctx context.Context) ([]LinkClickStat, error) {
			return querier.LinkClickStats(ctx, id, filters, pagination)
		},
	)
}

// Link click stats split into custom and social link clicks.
func (dispatcher Dispatcher) LinkClicks(
	ctx context.Context,
	websiteID string,
	filters Filters,
	pagination *Pagination,
) (LinkClicks, error) {
	stats, err := dispatcher.LinkClickStats(ctx, websiteID, filters, pagination)
	if err != nil {
		return LinkClicks{}, err
	}

	return SplitLinkClicks(stats), nil
}

// Visit statistics per bucket (days by default), ascending. Buckets without visits are
// omitted.
func (dispatcher Dispatcher) StatsByDay(
	ctx context.Context,
	websiteID string,
	filters Filters,
) ([]DayStats, error) {
	querier, ok := dispatcher.backend.(StatsByDayQuerier)
	if !ok {
		return nil, dispatcher.unsupported(OperationStatsByDay)
	}

	id, filters, err := prepareQuery(websiteID, filters)
	if err != nil {
		return nil, err
	}

	return execute(
		ctx,
		dispatcher,
		OperationStatsByDay,
		func(ctx context.Context) ([]DayStats, error) {
			return querier.StatsByDay(ctx, id, filters)
		},
	)
}

// Link clicks per bucket, one row for every bucket in the range, ascending by bucket.
func (dispatcher Dispatcher) ClickCounts(
	ctx context.Context,
	websiteID string,
	filters Filters,
) ([]ClickCount, error) {
	querier, ok := dispatcher.backend.(ClickCountsQuerier)
	if !ok {
		return nil, dispatcher.unsupported(OperationClickCounts)
	}

	id, filters, err := prepareQuery(websiteID, filters)
	if err != nil {
		return nil, err
	}

	labels, err := BucketLabels(filters)
	if err != nil {
		return nil, err
	}

	counts, err := execute(
		ctx,
		dispatcher,
		OperationClickCounts,
		func(ctx context.Context) ([]ClickCount, error) {
			return querier.ClickCounts(ctx, id, filters)
		},
	)
	if err != nil {
		return nil, err
	}

	return fillClickCounts(counts, labels), nil
}

func prepareQuery(websiteID string, filters Filters) (uuid.UUID, Filters, error) {
	id, err := ParseWebsiteID(websiteID)
	if err != nil {
		return uuid.UUID{}, Filters{}, err
	}

	filters, err = filters.Normalized()
	if err != nil {
		return uuid.UUID{}, Filters{}, err
	}

	return id, filters, nil
}

func (dispatcher Dispatcher) unsupported(operation Operation) error {
	return wrap.Errorf(
		ErrUnsupportedOperation,
		"%s is not implemented for %s",
		operation,
		dispatcher.backend.Name(),
	)
}

func execute[Result any](
	ctx context.Context,
	dispatcher Dispatcher,
	operation Operation,
	query func(ctx context.Context) (Result, error),
) (Result, error) {
	if dispatcher.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dispatcher.queryTimeout)
		defer cancel()
	}

	backend := dispatcher.backend.Name()

	start := time.Now()
	result, err := query(ctx)
	duration := time.Since(start)

	if dispatcher.observer != nil {
		dispatcher.observer.ObserveQuery(backend, operation, duration, err)
	}

	if err != nil {
		var zero Result
		// Executors compile before sending anything, so input errors from them never reached
		// the database.
		if IsInputError(err) {
			return zero, err
		}
		return zero, &ExecutionError{Operation: operation, Backend: backend, Err: err}
	}

	log.Debug(
		"analytics query completed",
		slog.String("operation", operation.String()),
		slog.String("backend", backend),
		slog.Duration("duration", duration),
	)

	return result, nil
}
