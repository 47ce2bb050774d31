//go:build integration

package database

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/anicoll/telldus-integration/internal/pkg/database/migration"
	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
	"github.com/anicoll/telldus-integration/internal/pkg/telldus/telldustest"
)

func migrationsFolder(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

func newTestDatabase(t *testing.T) (*Database, *telldus.Hub, *telldustest.Server) {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("telldus"),
		postgres.WithUsername("telldus"),
		postgres.WithPassword("telldus"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migration.Migrate(dsn, migrationsFolder(t)))
	require.NoError(t, migration.Migrate(dsn, migrationsFolder(t)))

	srv := telldustest.NewServer()
	t.Cleanup(srv.Close)
	hub, err := telldus.New(srv.URL, "token")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	db := NewDatabase(pool, hub)
	t.Cleanup(func() { _ = db.Close() })
	return db, hub, srv
}

func TestDatabase_RecordsHistory(t *testing.T) {
	db, hub, srv := newTestDatabase(t)
	ctx := context.Background()

	srv.SetDevices(`{"device":[{"id":1,"name":"Lamp","methods":19,"state":16,"statevalue":"80"}]}`)
	srv.SetSensors(`{"sensor":[{"id":2,"name":"Outside","data":[{"name":"temp","scale":0,"value":"4.5"}]}]}`)
	require.True(t, hub.Refresh(ctx))

	require.NoError(t, db.RegisterDevice(ctx, "1", telldus.CategoryDimmableLight))
	require.NoError(t, db.RegisterSensorItem(ctx, "2", "temp", "0"))
	require.NoError(t, db.PublishState(ctx, "1"))
	require.NoError(t, db.PublishState(ctx, "2"))

	inventory, err := db.Inventory(ctx)
	require.NoError(t, err)
	require.Len(t, inventory, 2)
	assert.Equal(t, "dimmable_light", inventory[0].Category)
	assert.Equal(t, "temp", inventory[1].ItemName)

	lamp, err := db.Latest(ctx, "1")
	require.NoError(t, err)
	require.Len(t, lamp, 2)
	assert.Equal(t, slugDimLevel, lamp[0].Slug)
	assert.Equal(t, "80", lamp[0].Value)
	assert.Equal(t, slugState, lamp[1].Slug)
	assert.Equal(t, "DIM", lamp[1].Value)

	history, err := db.History(ctx, "2", nil, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "temp-0", history[0].Slug)
	assert.Equal(t, "4.5", history[0].Value)
}

func TestDatabase_SkipsUnavailableDevices(t *testing.T) {
	db, hub, srv := newTestDatabase(t)
	ctx := context.Background()

	srv.SetDevices(`{"device":[{"id":1,"name":"Plug","methods":3,"state":1}]}`)
	require.True(t, hub.Refresh(ctx))
	require.NoError(t, db.RegisterDevice(ctx, "1", telldus.CategorySwitch))

	srv.Fail("devices/list", true)
	hub.Refresh(ctx)
	require.NoError(t, db.PublishState(ctx, "1"))

	history, err := db.History(ctx, "1", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDatabase_Cleanup(t *testing.T) {
	db, _, _ := newTestDatabase(t)
	ctx := context.Background()

	_, err := db.pool.Exec(ctx, `INSERT INTO reading (time_stamp, device_id, slug, value) VALUES ($1, '1', 'state', 'TURNON'), ($2, '1', 'state', 'TURNOFF')`,
		time.Now().Add(-10*24*time.Hour), time.Now())
	require.NoError(t, err)

	deleted, err := db.Cleanup(ctx, 192*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	history, err := db.Latest(ctx, "1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "TURNOFF", history[0].Value)
}

func TestDatabase_HistoryWithSingleBound(t *testing.T) {
	db, _, _ := newTestDatabase(t)
	ctx := context.Background()

	old := time.Now().Add(-5 * 24 * time.Hour)
	_, err := db.pool.Exec(ctx, `INSERT INTO reading (time_stamp, device_id, slug, value) VALUES ($1, '1', 'state', 'TURNON'), ($2, '1', 'state', 'TURNOFF')`,
		old, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	from := old.Add(-time.Hour)
	history, err := db.History(ctx, "1", &from, nil)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "TURNOFF", history[0].Value)

	to := old.Add(time.Hour)
	history, err = db.History(ctx, "1", nil, &to)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "TURNON", history[0].Value)
}

func TestDatabase_EmptyInventory(t *testing.T) {
	db, _, _ := newTestDatabase(t)

	inventory, err := db.Inventory(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, inventory)
	assert.Empty(t, inventory)
}
