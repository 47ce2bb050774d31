package telldus

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"
)

var (
	ErrInvalidLevel = errors.New("dim level must be between 0 and 255")
	ErrNotIssuable  = errors.New("method cannot be issued to the hub")
)

type commander interface {
	Execute(ctx context.Context, path string, params url.Values) error
}

// Device is a live view over one cached record. Properties are read from
// the cache on every call and are never stored on the Device itself.
type Device struct {
	id     string
	client commander
	cache  *Cache
}

func newDevice(id string, client commander, cache *Cache) *Device {
	return &Device{id: id, client: client, cache: cache}
}

func (d *Device) ID() string {
	return d.id
}

// Record returns a copy of the cached record.
func (d *Device) Record() (DeviceRecord, bool) {
	return d.cache.Get(d.id)
}

func (d *Device) record() DeviceRecord {
	record, _ := d.cache.Get(d.id)
	return record
}

func (d *Device) Name() string {
	return d.record().Name
}

func (d *Device) IsAvailable() bool {
	return d.cache.IsAvailable(d.id)
}

func (d *Device) IsSensor() bool {
	return d.record().IsSensor()
}

func (d *Device) Category() Category {
	return Classify(d.record())
}

func (d *Device) Methods() Method {
	return d.record().Methods
}

func (d *Device) State() Method {
	return d.record().State
}

// IsOn is true when the last command was TURNON or DIM.
func (d *Device) IsOn() bool {
	state := d.State()
	return state == TurnOn || state == Dim
}

// IsDown is true when a cover was last lowered.
func (d *Device) IsDown() bool {
	return d.State() == Down
}

func (d *Device) DimLevel() (int, bool) {
	return d.record().DimLevel()
}

func (d *Device) Battery() (int, bool) {
	return d.record().BatteryPercent()
}

func (d *Device) LastUpdated() (time.Time, bool) {
	return d.record().LastUpdatedTime()
}

func (d *Device) Items() []SensorItem {
	return d.record().Data
}

// Item returns the sensor item matching name and scale.
func (d *Device) Item(name, scale string) (SensorItem, bool) {
	return lo.Find(d.Items(), func(item SensorItem) bool {
		return item.Name == name && item.Scale.String() == scale
	})
}

// Value returns the reading of the sensor item matching name and scale.
func (d *Device) Value(name, scale string) (string, bool) {
	item, ok := d.Item(name, scale)
	if !ok {
		return "", false
	}
	return item.Value.String(), true
}

func (d *Device) TurnOn(ctx context.Context) error {
	return d.execute(ctx, TurnOn, nil)
}

func (d *Device) TurnOff(ctx context.Context) error {
	return d.execute(ctx, TurnOff, nil)
}

func (d *Device) Dim(ctx context.Context, level int) error {
	if level < 0 || level > 255 {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	return d.execute(ctx, Dim, url.Values{"level": {strconv.Itoa(level)}})
}

func (d *Device) Up(ctx context.Context) error {
	return d.execute(ctx, Up, nil)
}

func (d *Device) Down(ctx context.Context) error {
	return d.execute(ctx, Down, nil)
}

func (d *Device) Stop(ctx context.Context) error {
	return d.execute(ctx, Stop, nil)
}

// execute sends command to the hub and, on success, records it as the
// device state without waiting for the next poll. Only the operations of
// the device's category are sent.
func (d *Device) execute(ctx context.Context, command Method, params url.Values) error {
	if !command.Issuable() {
		return fmt.Errorf("%w: %s", ErrNotIssuable, command)
	}
	record, ok := d.cache.Get(d.id)
	if !ok {
		return fmt.Errorf("%w: device %s is not available", ErrNotIssuable, d.id)
	}
	if category := Classify(record); !category.Operations().Has(command) {
		return fmt.Errorf("%w: %s on %s", ErrNotIssuable, command, category)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("id", d.id)

	if err := d.client.Execute(ctx, "device/"+command.Name(), params); err != nil {
		return err
	}
	d.cache.Patch(d.id, func(record *DeviceRecord) {
		record.State = command
		if level := params.Get("level"); level != "" {
			record.StateValue = FlexString(level)
		}
	})
	return nil
}

func (d *Device) String() string {
	record, ok := d.Record()
	if !ok {
		return fmt.Sprintf("Device #%s '%s'", d.id, UnnamedDevice)
	}
	return record.String()
}
