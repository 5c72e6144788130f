package mysql

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Config struct {
	DSN         string
	MaxConns    int
	LockTimeout time.Duration
}

// Open connects with UTC time parsing and a session lock wait timeout that
// backs up the ledger's own bound.
func Open(ctx context.Context, config Config) (*sqlx.DB, error) {
	dsn, err := sessionDSN(config.DSN, config.LockTimeout)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	if config.MaxConns > 0 {
		db.SetMaxOpenConns(config.MaxConns)
		db.SetMaxIdleConns(config.MaxConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}
	return db, nil
}

func sessionDSN(dsn string, lockTimeout time.Duration) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if lockTimeout > 0 {
		seconds := int(math.Ceil(lockTimeout.Seconds()))
		cfg.Params["innodb_lock_wait_timeout"] = strconv.Itoa(seconds)
	}
	return cfg.FormatDSN(), nil
}
