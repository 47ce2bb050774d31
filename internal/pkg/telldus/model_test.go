package telldus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString_Unmarshal(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    FlexString
		wantErr bool
	}{
		"string":  {in: `"abc"`, want: "abc"},
		"integer": {in: `42`, want: "42"},
		"float":   {in: `21.5`, want: "21.5"},
		"null":    {in: `null`, want: ""},
		"bool":    {in: `true`, want: "true"},
		"object":  {in: `{"a":1}`, wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var f FlexString
			err := json.Unmarshal([]byte(tt.in), &f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestDeviceRecord_IsSensorFollowsDataKey(t *testing.T) {
	var withData, withoutData DeviceRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"a","data":[]}`), &withData))
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"a"}`), &withoutData))

	assert.True(t, withData.IsSensor())
	assert.False(t, withoutData.IsSensor())
}

func TestDeviceRecord_BatteryPercent(t *testing.T) {
	battery := func(v int) *int { return &v }
	tests := map[string]struct {
		battery *int
		want    int
		ok      bool
	}{
		"missing": {battery: nil},
		"zero":    {battery: battery(0)},
		"full":    {battery: battery(255), want: 100, ok: true},
		"half":    {battery: battery(128), want: 50, ok: true},
		"low":     {battery: battery(13), want: 5, ok: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := DeviceRecord{Battery: tt.battery}.BatteryPercent()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMethod_String(t *testing.T) {
	assert.Equal(t, "TURNON|TURNOFF|DIM", (TurnOn | TurnOff | Dim).String())
	assert.Equal(t, "UP|DOWN|STOP", (Up | Down | Stop).String())
	assert.Equal(t, "", Method(0).String())
}

func TestMethod_Issuable(t *testing.T) {
	for _, m := range []Method{TurnOn, TurnOff, Dim, Up, Down, Stop} {
		assert.True(t, m.Issuable(), m.String())
	}
	for _, m := range []Method{Bell, Toggle, Learn, RGBW, Thermostat, TurnOn | TurnOff, 0} {
		assert.False(t, m.Issuable(), m.String())
	}
	assert.Equal(t, Method(915), SupportedMethods)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "temperature", KindOf("temp", "0").DeviceClass)
	assert.Equal(t, "W", KindOf("watt", "2").Unit)
	assert.Equal(t, "kWh", KindOf("watt", "0").Unit)
	assert.Equal(t, SensorKind{}, KindOf("mystery", "0"))
}
