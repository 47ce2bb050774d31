package telldus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnnamedDevice is rendered for records that carry no name.
const UnnamedDevice = "NO NAME"

// FlexString accepts a JSON string, number or bool and keeps its text form.
// The hub is inconsistent about quoting ids, scales and values.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return fmt.Errorf("unexpected json value %s", data)
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// DeviceRecord is the raw synchronised state of one device or sensor.
type DeviceRecord struct {
	ID          FlexString   `json:"id"`
	Name        string       `json:"name"`
	Methods     Method       `json:"methods"`
	State       Method       `json:"state"`
	StateValue  FlexString   `json:"statevalue"`
	Battery     *int         `json:"battery,omitempty"`
	LastUpdated *int64       `json:"lastUpdated,omitempty"`
	Data        []SensorItem `json:"data,omitempty"`
}

// SensorItem is one scalar reading of a sensor.
type SensorItem struct {
	Name  string     `json:"name"`
	Scale FlexString `json:"scale"`
	Value FlexString `json:"value"`
}

func (i SensorItem) String() string {
	return fmt.Sprintf("%s=%s", i.Name, i.Value)
}

// IsSensor reports whether the record came with a data list.
func (r DeviceRecord) IsSensor() bool {
	return r.Data != nil
}

// DeviceID returns the cache key of the record.
func (r DeviceRecord) DeviceID() string {
	return string(r.ID)
}

// StateValueOrZero returns the state value, or "0" when the hub reports
// nothing usable.
func (r DeviceRecord) StateValueOrZero() string {
	v := strings.TrimSpace(string(r.StateValue))
	switch v {
	case "", "unde", "undefined":
		return "0"
	}
	return v
}

// DimLevel parses the state value. ok is false for non numeric values.
func (r DeviceRecord) DimLevel() (level int, ok bool) {
	level, err := strconv.Atoi(r.StateValueOrZero())
	if err != nil {
		return 0, false
	}
	return level, true
}

// BatteryPercent scales the 0-255 battery reading to 0-100.
func (r DeviceRecord) BatteryPercent() (int, bool) {
	if r.Battery == nil || *r.Battery == 0 {
		return 0, false
	}
	return int(math.Round(float64(*r.Battery) * 100 / 255)), true
}

// LastUpdatedTime returns the last report time of the record.
func (r DeviceRecord) LastUpdatedTime() (time.Time, bool) {
	if r.LastUpdated == nil || *r.LastUpdated == 0 {
		return time.Time{}, false
	}
	return time.Unix(*r.LastUpdated, 0), true
}

func (r DeviceRecord) String() string {
	name := r.Name
	if name == "" {
		name = UnnamedDevice
	}
	if r.IsSensor() {
		items := make([]string, 0, len(r.Data))
		for _, item := range r.Data {
			items = append(items, item.String())
		}
		return fmt.Sprintf("Sensor #%s '%s' (%s)", r.ID, name, strings.Join(items, ", "))
	}
	return fmt.Sprintf("Device #%s '%s' (%s:%s) [%s]", r.ID, name, r.State, r.StateValueOrZero(), r.Methods)
}

type deviceListResponse struct {
	Device []DeviceRecord `json:"device"`
}

type sensorListResponse struct {
	Sensor []DeviceRecord `json:"sensor"`
}

type commandResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
