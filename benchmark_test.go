package main

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"testing"
	"time"

	"hermannm.dev/webanalytics/config"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/webanalytics/db/clickhouse"
	"hermannm.dev/webanalytics/db/postgres"
	"hermannm.dev/webanalytics/db/sqlquery/sqltest"
	"hermannm.dev/webanalytics/log"
	"hermannm.dev/wrap"
)

const benchmarkWebsiteID = "4fb8f2ed-6a44-4e9e-9d4c-1d7a1c3f0c11"

var (
	benchmarkFilters = db.Filters{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Timezone:  "Europe/Oslo",
		Unit:      db.DateUnitDay,
		Dimensions: []db.DimensionFilter{
			{Dimension: db.DimensionURL, Operator: db.OperatorContains, Value: "/blog"},
			{Dimension: db.DimensionCountry, Operator: db.OperatorEquals, Value: "NO"},
			{Dimension: db.DimensionBrowser, Operator: db.OperatorNotEquals, Value: "safari"},
		},
	}

	database     db.Dispatcher
	databaseErr  error
	databaseOnce sync.Once
)

func TestMain(m *testing.M) {
	log.Setup(os.Stdout, slog.LevelInfo)
	os.Exit(m.Run())
}

// Connects to the database configured in env, skipping the benchmark if none is configured.
func liveDatabase(b *testing.B) db.Dispatcher {
	databaseOnce.Do(func() {
		conf, err := config.ReadFromEnv()
		if err != nil {
			databaseErr = wrap.Error(err, "failed to read config from env")
			return
		}

		backend, err := initializeDatabase(conf)
		if err != nil {
			databaseErr = wrap.Error(err, "failed to initialize database")
			return
		}

		database = db.NewDispatcher(backend, db.WithQueryTimeout(conf.QueryTimeout))
	})

	if databaseErr != nil {
		b.Skip(databaseErr.Error())
	}
	return database
}

func BenchmarkDispatchPostgres(b *testing.B) {
	benchmarkDispatch(b, postgres.NewPostgresDBWithConn(&sqltest.Conn{}))
}

func BenchmarkDispatchClickHouse(b *testing.B) {
	benchmarkDispatch(b, clickhouse.NewClickHouseDBWithConn(&sqltest.Conn{}))
}

// Measures compilation, validation and bucket filling, without a database round trip.
func benchmarkDispatch(b *testing.B, backend db.Backend) {
	dispatcher := db.NewDispatcher(backend)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dispatcher.AggregateStats(
			context.Background(),
			benchmarkWebsiteID,
			benchmarkFilters,
		); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAggregateStats(b *testing.B) {
	dispatcher := liveDatabase(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dispatcher.AggregateStats(
			context.Background(),
			benchmarkWebsiteID,
			benchmarkFilters,
		); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkStatsByDay(b *testing.B) {
	dispatcher := liveDatabase(b)
	if !dispatcher.Supports(db.OperationStatsByDay) {
		b.Skipf("stats by day not supported by %s", dispatcher.BackendName())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dispatcher.StatsByDay(
			context.Background(),
			benchmarkWebsiteID,
			benchmarkFilters,
		); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConcurrentQueries(b *testing.B) {
	const concurrentQueries = 256

	dispatcher := liveDatabase(b)

	// Divides by GOMAXPROCS, since SetParallelism multiplies its argument by GOMAXPROCS, and we
	// want exactly concurrentQueries number of concurrent queries
	b.SetParallelism(concurrentQueries / runtime.GOMAXPROCS(0))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := dispatcher.AggregateStats(
				context.Background(),
				benchmarkWebsiteID,
				benchmarkFilters,
			); err != nil {
				b.Fatal(err)
			}
		}
	})
}
