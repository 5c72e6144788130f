package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const appID = "inventory"

const (
	storageMySQL  = "mysql"
	storageMemory = "memory"
)

type config struct {
	HTTPAddr      string        `envconfig:"http_addr" default:":8000"`
	GRPCAddr      string        `envconfig:"grpc_addr" default:":8001"`
	Storage       string        `envconfig:"storage" default:"mysql"`
	DBDSN         string        `envconfig:"db_dsn" default:"inventory:inventory@tcp(localhost:3306)/inventory"`
	DBMaxConns    int           `envconfig:"db_max_conns" default:"20"`
	LockTimeout   time.Duration `envconfig:"lock_timeout" default:"5s"`
	CommitWorkers int           `envconfig:"commit_workers" default:"16"`
	SyncInterval  time.Duration `envconfig:"sync_interval" default:"0s"`
	TokenSecret   string        `envconfig:"token_secret"`
	LogLevel      string        `envconfig:"log_level" default:"info"`
	KafkaBroker   string        `envconfig:"kafka_broker"`
	KafkaTopic    string        `envconfig:"kafka_topic" default:"inventory-events"`
	OTELEndpoint  string        `envconfig:"otel_endpoint"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := envconfig.Process(appID, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse env")
	}

	switch cfg.Storage {
	case storageMySQL, storageMemory:
	default:
		return cfg, errors.Errorf("unknown storage %q", cfg.Storage)
	}
	if cfg.LockTimeout <= 0 {
		return cfg, errors.New("lock timeout must be positive")
	}
	if cfg.CommitWorkers < 1 {
		return cfg, errors.New("commit workers must be at least 1")
	}
	return cfg, nil
}

func setupLogging(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "parse log level")
	}
	log.SetLevel(parsed)
	return nil
}
