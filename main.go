package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"hermannm.dev/webanalytics/api"
	"hermannm.dev/webanalytics/config"
	"hermannm.dev/webanalytics/db"
	"hermannm.dev/webanalytics/db/clickhouse"
	"hermannm.dev/webanalytics/db/elasticsearch"
	"hermannm.dev/webanalytics/db/postgres"
	"hermannm.dev/webanalytics/log"
	"hermannm.dev/webanalytics/metrics"
)

const databaseConnectTimeout = 30 * time.Second

func main() {
	log.Setup(os.Stdout, slog.LevelInfo)

	log.Info("Loading environment variables...")
	conf, err := config.ReadFromEnv()
	if err != nil {
		log.Error(err, "failed to read config from env")
		os.Exit(1)
	}

	logLevel, err := log.ParseLevel(conf.LogLevel)
	if err != nil {
		log.Error(err, "invalid LOG_LEVEL in env")
		os.Exit(1)
	}
	log.Setup(os.Stdout, logLevel)

	backend, err := initializeDatabase(conf)
	if err != nil {
		log.Error(err, "failed to initialize database")
		os.Exit(1)
	}

	queryMetrics := metrics.NewQueryMetrics()
	analytics := db.NewDispatcher(
		backend,
		db.WithQueryTimeout(conf.QueryTimeout),
		db.WithQueryObserver(queryMetrics),
	)

	analyticsAPI := api.NewAnalyticsAPI(
		analytics,
		api.NewTokenAuthorizer(conf.API.Token),
		queryMetrics.Handler(),
		http.NewServeMux(),
		conf.API,
	)

	log.Infof("Listening on port %s...", conf.API.Port)
	if err := analyticsAPI.ListenAndServe(); err != nil {
		log.Error(err, "server stopped")
		os.Exit(1)
	}
}

// Selects the backend once, from the DATABASE setting. It is never changed afterwards.
func initializeDatabase(conf config.Config) (db.Backend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), databaseConnectTimeout)
	defer cancel()

	switch conf.DB {
	case config.DBPostgres:
		log.Info("Connecting to Postgres...")
		return postgres.NewPostgresDB(ctx, conf)
	case config.DBClickHouse:
		log.Info("Connecting to ClickHouse...")
		return clickhouse.NewClickHouseDB(ctx, conf)
	case config.DBElasticsearch:
		log.Info("Connecting to Elasticsearch...")
		return elasticsearch.NewElasticsearchDB(conf)
	default:
		return nil, fmt.Errorf("unsupported database '%s'", conf.DB)
	}
}
