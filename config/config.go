package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"hermannm.dev/wrap"
)

type Config struct {
	BaseConfig
	Postgres      Postgres
	ClickHouse    ClickHouse
	Elasticsearch Elasticsearch
}

type BaseConfig struct {
	IsProduction bool        `env:"PRODUCTION"   envDefault:"false"`
	DB           SupportedDB `env:"DATABASE"`
	LogLevel     string      `env:"LOG_LEVEL"    envDefault:"INFO"`
	// Zero disables the timeout.
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"30s"`
	API          API
}

type API struct {
	Port string `env:"API_PORT" envDefault:"8000"`
	// Bearer token required on API requests. Empty allows all requests.
	Token string `env:"API_TOKEN" envDefault:""`
}

type Postgres struct {
	URL          string `env:"POSTGRES_URL"`
	MaxOpenConns int    `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
}

type ClickHouse struct {
	Address      string `env:"CLICKHOUSE_ADDRESS"`
	DatabaseName string `env:"CLICKHOUSE_DB_NAME"`
	Username     string `env:"CLICKHOUSE_USERNAME"`
	Password     string `env:"CLICKHOUSE_PASSWORD"`
	Debug        bool   `env:"CLICKHOUSE_DEBUG_ENABLED" envDefault:"false"`
}

type Elasticsearch struct {
	Address string `env:"ELASTICSEARCH_ADDRESS"`
	Index   string `env:"ELASTICSEARCH_INDEX"    envDefault:"website_event"`
	Debug   bool   `env:"ELASTICSEARCH_DEBUG_ENABLED" envDefault:"false"`
}

type SupportedDB string

const (
	DBPostgres      SupportedDB = "postgres"
	DBClickHouse    SupportedDB = "clickhouse"
	DBElasticsearch SupportedDB = "elasticsearch"
)

// Reads config from environment variables, loading them from a .env file first if one exists.
// Only the section for the selected DATABASE is required.
func ReadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, wrap.Error(err, "failed to load .env file")
	}

	return parse(env.Options{RequiredIfNoDef: true})
}

func parse(parseOptions env.Options) (Config, error) {
	var config Config

	if err := env.ParseWithOptions(&config.BaseConfig, parseOptions); err != nil {
		return Config{}, err
	}

	switch config.DB {
	case DBPostgres:
		if err := env.ParseWithOptions(&config.Postgres, parseOptions); err != nil {
			return Config{}, err
		}
	case DBClickHouse:
		if err := env.ParseWithOptions(&config.ClickHouse, parseOptions); err != nil {
			return Config{}, err
		}
	case DBElasticsearch:
		if err := env.ParseWithOptions(&config.Elasticsearch, parseOptions); err != nil {
			return Config{}, err
		}
	default:
		err := fmt.Errorf(
			"must be one of: '%s', '%s', '%s'",
			DBPostgres,
			DBClickHouse,
			DBElasticsearch,
		)
		return Config{}, wrap.Errorf(err, "unsupported value '%s' for DATABASE in env", config.DB)
	}

	if config.QueryTimeout < 0 {
		return Config{}, fmt.Errorf("QUERY_TIMEOUT must not be negative, got %s", config.QueryTimeout)
	}

	return config, nil
}
