package telldus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestClassify(t *testing.T) {
	tests := map[string]struct {
		record DeviceRecord
		want   Category
	}{
		"dimmer":                {record: DeviceRecord{Methods: TurnOn | TurnOff | Dim}, want: CategoryDimmableLight},
		"dim only":              {record: DeviceRecord{Methods: Dim}, want: CategoryDimmableLight},
		"dim beats up":          {record: DeviceRecord{Methods: Dim | Up | Down}, want: CategoryDimmableLight},
		"cover":                 {record: DeviceRecord{Methods: Up | Down | Stop}, want: CategoryCover},
		"up beats turn on":      {record: DeviceRecord{Methods: TurnOn | Up}, want: CategoryCover},
		"switch":                {record: DeviceRecord{Methods: TurnOn | TurnOff}, want: CategorySwitch},
		"sensor data wins":      {record: DeviceRecord{Methods: Dim | Up, Data: []SensorItem{{Name: "temp"}}}, want: CategorySensor},
		"empty data is sensor":  {record: DeviceRecord{Data: []SensorItem{}}, want: CategorySensor},
		"bell defaults":         {record: DeviceRecord{Methods: Bell}, want: CategorySwitch},
		"no methods defaults":   {record: DeviceRecord{}, want: CategorySwitch},
		"thermostat defaults":   {record: DeviceRecord{Methods: Thermostat | RGBW}, want: CategorySwitch},
		"unknown bits defaults": {record: DeviceRecord{Methods: 1 << 20}, want: CategorySwitch},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.record))
		})
	}
}

func TestClassify_PureFunctionOfMethods(t *testing.T) {
	for m := Method(0); m < 4096; m++ {
		a := Classify(DeviceRecord{ID: "1", Name: "a", Methods: m, State: TurnOn})
		b := Classify(DeviceRecord{ID: "2", Name: "b", Methods: m, State: Down, StateValue: "12"})
		if !assert.Equal(t, a, b, "methods %d", m) {
			return
		}
	}
}

func TestClassify_WarnsOnUnidentified(t *testing.T) {
	logs := observeLogs(t, zapcore.WarnLevel)

	Classify(DeviceRecord{ID: "9", Methods: Bell})
	Classify(DeviceRecord{ID: "10", Methods: TurnOn})

	entries := logs.FilterMessage("unidentified device type").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "9", entries[0].ContextMap()["device_id"])
		assert.Equal(t, int64(Bell), entries[0].ContextMap()["methods"])
	}
}
