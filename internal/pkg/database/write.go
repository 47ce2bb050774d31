package database

import (
	"context"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"

	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

const (
	slugState    = "state"
	slugDimLevel = "dim_level"
)

const upsertDeviceSQL = `
	INSERT INTO device (id, name, category, item_name, item_scale, discovered_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id, item_name, item_scale) DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category;`

// ItemSlug is the reading slug of a sensor item.
func ItemSlug(name, scale string) string {
	return slug.Make(name + " " + scale)
}

func (db *Database) RegisterDevice(ctx context.Context, id string, category telldus.Category) error {
	db.categories.Store(id, category)
	_, err := db.pool.Exec(ctx, upsertDeviceSQL, id, db.hub.Device(id).Name(), category.String(), "", "", time.Now())
	return err
}

func (db *Database) RegisterSensorItem(ctx context.Context, id, name, scale string) error {
	db.categories.Store(id, telldus.CategorySensor)
	_, err := db.pool.Exec(ctx, upsertDeviceSQL, id, db.hub.Device(id).Name(), telldus.CategorySensor.String(), name, scale, time.Now())
	return err
}

// PublishState records the current state of an available device: its
// last command and dim level, or the value of every sensor item.
func (db *Database) PublishState(ctx context.Context, id string) error {
	stored, ok := db.categories.Load(id)
	if !ok {
		return nil
	}
	category := stored.(telldus.Category)
	d := db.hub.Device(id)
	if !d.IsAvailable() {
		return nil
	}

	now := time.Now()
	batch := &pgx.Batch{}
	insert := func(key, value string) {
		batch.Queue(`INSERT INTO reading (time_stamp, device_id, slug, value) VALUES ($1, $2, $3, $4)`, now, id, key, value)
	}

	switch category {
	case telldus.CategorySensor:
		for _, item := range d.Items() {
			insert(ItemSlug(item.Name, item.Scale.String()), item.Value.String())
		}
	case telldus.CategoryDimmableLight:
		if level, ok := d.DimLevel(); ok {
			insert(slugDimLevel, strconv.Itoa(level))
		}
		fallthrough
	default:
		if state := d.State(); state != 0 {
			insert(slugState, state.String())
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	return db.pool.SendBatch(ctx, batch).Close()
}
