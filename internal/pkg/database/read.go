package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/telldus-integration/internal/pkg/model"
)

const defaultHistoryWindow = 48 * time.Hour

// History returns the readings of one device between from and to, newest
// first. A nil to defaults to now and a nil from to two days before to.
func (db *Database) History(ctx context.Context, deviceID string, from, to *time.Time) (model.Readings, error) {
	from, to = historyWindow(from, to, time.Now())
	const query = `
	SELECT id, time_stamp, device_id, slug, value
	FROM reading
	WHERE device_id = $1 AND time_stamp BETWEEN $2 AND $3
	ORDER BY time_stamp DESC, id DESC;
	`
	rows, err := db.pool.Query(ctx, query, deviceID, *from, *to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

func historyWindow(from, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	if to == nil {
		to = &now
	}
	if from == nil {
		start := to.Add(-defaultHistoryWindow)
		from = &start
	}
	return from, to
}

// Latest returns the newest reading of every slug of a device.
func (db *Database) Latest(ctx context.Context, deviceID string) (model.Readings, error) {
	const query = `
	SELECT DISTINCT ON (slug) id, time_stamp, device_id, slug, value
	FROM reading
	WHERE device_id = $1
	ORDER BY slug, time_stamp DESC, id DESC;
	`
	rows, err := db.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

func scanReadings(rows pgx.Rows) (model.Readings, error) {
	readings := model.Readings{}
	for rows.Next() {
		var r model.Reading
		if err := rows.Scan(&r.ID, &r.TimeStamp, &r.DeviceID, &r.Slug, &r.Value); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// Inventory lists every discovered device and sensor item.
func (db *Database) Inventory(ctx context.Context) ([]model.InventoryEntry, error) {
	const query = `
	SELECT id, category, item_name, item_scale, discovered_at
	FROM device
	ORDER BY id, item_name, item_scale;
	`
	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.InventoryEntry{}
	for rows.Next() {
		var e model.InventoryEntry
		if err := rows.Scan(&e.DeviceID, &e.Category, &e.ItemName, &e.ItemScale, &e.DiscoveredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
