package model

import (
	"time"

	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

type EventType string

const (
	EventDeviceDiscovered     EventType = "device_discovered"
	EventSensorItemDiscovered EventType = "sensor_item_discovered"
	EventStatePossiblyChanged EventType = "state_possibly_changed"
)

// Event is what the publishers forward to sinks that do not speak MQTT.
type Event struct {
	Type      EventType   `json:"type"`
	DeviceID  string      `json:"device_id"`
	Category  string      `json:"category,omitempty"`
	ItemName  string      `json:"item_name,omitempty"`
	ItemScale string      `json:"item_scale,omitempty"`
	Device    *DeviceView `json:"device,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type SensorReading struct {
	Name  string `json:"name"`
	Scale string `json:"scale"`
	Value string `json:"value"`
}

// DeviceView is a point in time rendering of a device.
type DeviceView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
	Methods     string          `json:"methods,omitempty"`
	State       string          `json:"state,omitempty"`
	On          *bool           `json:"on,omitempty"`
	Closed      *bool           `json:"closed,omitempty"`
	DimLevel    *int            `json:"dim_level,omitempty"`
	Battery     *int            `json:"battery,omitempty"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
	Items       []SensorReading `json:"items,omitempty"`
}

func NewDeviceView(d *telldus.Device) DeviceView {
	record, _ := d.Record()
	category := telldus.Classify(record)
	view := DeviceView{
		ID:        d.ID(),
		Name:      record.Name,
		Category:  category.String(),
		Available: d.IsAvailable(),
		Methods:   record.Methods.String(),
		State:     record.State.String(),
	}
	if battery, ok := record.BatteryPercent(); ok {
		view.Battery = &battery
	}
	if updated, ok := record.LastUpdatedTime(); ok {
		view.LastUpdated = &updated
	}

	switch category {
	case telldus.CategorySensor:
		for _, item := range record.Data {
			view.Items = append(view.Items, SensorReading{
				Name:  item.Name,
				Scale: item.Scale.String(),
				Value: item.Value.String(),
			})
		}
	case telldus.CategoryCover:
		closed := d.IsDown()
		view.Closed = &closed
	case telldus.CategoryDimmableLight:
		if level, ok := record.DimLevel(); ok {
			view.DimLevel = &level
		}
		fallthrough
	default:
		on := d.IsOn()
		view.On = &on
	}
	return view
}
