package database

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

type deviceSource interface {
	Device(id string) *telldus.Device
}

// Database stores the device inventory and the reading history.
type Database struct {
	pool   *pgxpool.Pool
	hub    deviceSource
	logger *zap.Logger

	categories sync.Map
}

func New(ctx context.Context, dsn string, hub deviceSource) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return NewDatabase(pool, hub), nil
}

func NewDatabase(pool *pgxpool.Pool, hub deviceSource) *Database {
	return &Database{
		pool:   pool,
		hub:    hub,
		logger: zap.L(),
	}
}

func (db *Database) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}
