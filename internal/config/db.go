package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	zlog "github.com/rs/zerolog/log"
)

const dbPingTimeout = 3 * time.Second

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxIdleTime time.Duration
	maxLifetime time.Duration
}

// Every repository call holds a connection for one statement only.
var defaultPool = poolSettings{
	maxOpen:     20,
	maxIdle:     10,
	maxIdleTime: 5 * time.Minute,
	maxLifetime: time.Hour,
}

// NewDB opens the shared pgx pool and checks it is reachable. With debug set
// it also logs which server, database and role it connected as.
func NewDB(dsn string, debug bool) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DB DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	applyPool(db, defaultPool)

	if err := verifyDB(context.Background(), db, debug); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func applyPool(db *sql.DB, p poolSettings) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxIdleTime(p.maxIdleTime)
	db.SetConnMaxLifetime(p.maxLifetime)
}

func verifyDB(ctx context.Context, db *sql.DB, debug bool) error {
	ctx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	if !debug {
		return nil
	}

	var who, name, version string
	err := db.QueryRowContext(ctx,
		`SELECT current_user, current_database(), current_setting('server_version')`,
	).Scan(&who, &name, &version)
	if err != nil {
		zlog.Warn().Err(err).Msg("db info lookup failed")
		return nil
	}
	zlog.Debug().Str("user", who).Str("db", name).Str("version", version).Msg("db connected")
	return nil
}
