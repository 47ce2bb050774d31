package telldus

import (
	"strings"
)

// Method is a Tellstick command bit. A device's supported commands and its
// current state are both expressed as Method masks.
type Method int

const (
	TurnOn     Method = 1
	TurnOff    Method = 2
	Bell       Method = 4
	Toggle     Method = 8
	Dim        Method = 16
	Learn      Method = 32
	Up         Method = 128
	Down       Method = 256
	Stop       Method = 512
	RGBW       Method = 1024
	Thermostat Method = 2048
)

// SupportedMethods is the only mask requested from and issued to the hub.
const SupportedMethods = TurnOn | TurnOff | Dim | Up | Down | Stop

var allMethods = []Method{TurnOn, TurnOff, Bell, Toggle, Dim, Learn, Up, Down, Stop, RGBW, Thermostat}

var methodNames = map[Method]string{
	TurnOn:     "turnOn",
	TurnOff:    "turnOff",
	Bell:       "bell",
	Toggle:     "toggle",
	Dim:        "dim",
	Learn:      "learn",
	Up:         "up",
	Down:       "down",
	Stop:       "stop",
	RGBW:       "rgbw",
	Thermostat: "thermostat",
}

// Name returns the REST path segment for a single method bit.
func (m Method) Name() string {
	return methodNames[m]
}

// Has reports whether every bit of o is set in m.
func (m Method) Has(o Method) bool {
	return o != 0 && m&o == o
}

// Issuable reports whether m is a single whitelisted command.
func (m Method) Issuable() bool {
	_, known := methodNames[m]
	return known && SupportedMethods.Has(m)
}

// String renders a mask as e.g. "TURNON|TURNOFF|DIM".
func (m Method) String() string {
	res := make([]string, 0, len(allMethods))
	for _, method := range allMethods {
		if m&method != 0 {
			res = append(res, strings.ToUpper(method.Name()))
		}
	}
	return strings.Join(res, "|")
}
