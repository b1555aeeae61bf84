package server

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// ErrNoConnectionString is returned by ConnectDB for an empty URI.
var ErrNoConnectionString = errors.New("connection string is missing")

// dbPingTimeout bounds the startup ping so an unreachable host does not
// delay the server.
const dbPingTimeout = 5 * time.Second

// Database is the part of a connection pool the server uses.
type Database interface {
	Ping(ctx context.Context) error
	Close()
}

// ConnectDB opens a Postgres pool and validates connectivity immediately.
func ConnectDB(ctx context.Context, uri string) (*pgxpool.Pool, error) {
	if uri == "" {
		return nil, ErrNoConnectionString
	}

	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// OpenDatabase connects when uri is set. Failures are logged and yield a
// nil Database; the server keeps running without one.
func OpenDatabase(ctx context.Context, uri string, logger logrus.FieldLogger) Database {
	pool, err := ConnectDB(ctx, uri)
	switch {
	case errors.Is(err, ErrNoConnectionString):
		logger.Warn("connection string is missing, set CONNECTION_STRING in .env; starting without database")
		return nil
	case err != nil:
		logger.WithError(err).Warn("database connection failed, check CONNECTION_STRING for typos; starting without database")
		return nil
	}

	logger.Info("database connected")
	return pool
}
