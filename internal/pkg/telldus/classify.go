package telldus

import (
	"go.uber.org/zap"
)

// Category is the coarse entity type a device is exposed as.
type Category string

func (c Category) String() string {
	return string(c)
}

const (
	CategoryDimmableLight Category = "dimmable_light"
	CategoryCover         Category = "cover"
	CategorySwitch        Category = "switch"
	CategorySensor        Category = "sensor"
)

// Operations returns the commands an entity of this category accepts.
func (c Category) Operations() Method {
	switch c {
	case CategoryDimmableLight:
		return TurnOn | TurnOff | Dim
	case CategoryCover:
		return Up | Down | Stop
	case CategorySwitch:
		return TurnOn | TurnOff
	}
	return 0
}

// Classify maps a record to exactly one category. Sensors win outright,
// otherwise the richest supported method decides: DIM, then UP, then TURNON.
func Classify(record DeviceRecord) Category {
	switch {
	case record.IsSensor():
		return CategorySensor
	case record.Methods&Dim != 0:
		return CategoryDimmableLight
	case record.Methods&Up != 0:
		return CategoryCover
	case record.Methods&TurnOn != 0:
		return CategorySwitch
	}
	zap.L().Warn("unidentified device type",
		zap.String("device_id", record.DeviceID()),
		zap.Int("methods", int(record.Methods)),
	)
	return CategorySwitch
}
