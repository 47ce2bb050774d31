package model

import "time"

// Reading is one stored value of a device state or sensor item.
type Reading struct {
	ID        int64     `json:"id"`
	TimeStamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Slug      string    `json:"slug"`
	Value     string    `json:"value"`
}

type Readings []Reading

// InventoryEntry is a discovered entity as stored in the database.
type InventoryEntry struct {
	DeviceID     string    `json:"device_id"`
	Category     string    `json:"category"`
	ItemName     string    `json:"item_name,omitempty"`
	ItemScale    string    `json:"item_scale,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}
