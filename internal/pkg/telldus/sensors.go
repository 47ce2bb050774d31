package telldus

// SensorKind describes how a sensor item name is presented. The table is
// display metadata only.
type SensorKind struct {
	DeviceClass string
	Unit        string
	Icon        string
}

// Sensor item names as reported by the hub.
const (
	SensorTemperature   = "temp"
	SensorHumidity      = "humidity"
	SensorRainRate      = "rrate"
	SensorRainTotal     = "rtot"
	SensorWindDirection = "wdir"
	SensorWindAverage   = "wavg"
	SensorWindGust      = "wgust"
	SensorUV            = "uv"
	SensorWatt          = "watt"
	SensorLuminance     = "lum"
	SensorDewPoint      = "dew"
	SensorBarometric    = "barpress"
)

var sensorKinds = map[string]SensorKind{
	SensorTemperature:   {DeviceClass: "temperature", Unit: "°C"},
	"temperature":       {DeviceClass: "temperature", Unit: "°C"},
	SensorHumidity:      {DeviceClass: "humidity", Unit: "%"},
	SensorRainRate:      {DeviceClass: "precipitation_intensity", Unit: "mm/h"},
	SensorRainTotal:     {DeviceClass: "precipitation", Unit: "mm"},
	SensorWindDirection: {Unit: "°", Icon: "mdi:compass"},
	SensorWindAverage:   {DeviceClass: "wind_speed", Unit: "m/s"},
	SensorWindGust:      {DeviceClass: "wind_speed", Unit: "m/s"},
	SensorUV:            {Unit: "UV index", Icon: "mdi:weather-sunny-alert"},
	SensorLuminance:     {DeviceClass: "illuminance", Unit: "lx"},
	SensorDewPoint:      {DeviceClass: "temperature", Unit: "°C"},
	SensorBarometric:    {DeviceClass: "atmospheric_pressure", Unit: "hPa"},
}

// wattScales maps the hub's scale tag of a watt item to its unit.
var wattScales = map[string]SensorKind{
	"0": {DeviceClass: "energy", Unit: "kWh"},
	"2": {DeviceClass: "power", Unit: "W"},
	"3": {DeviceClass: "energy", Unit: "kWh"},
}

// KindOf returns the presentation for an item name and scale. Unknown
// names yield an empty kind.
func KindOf(name, scale string) SensorKind {
	if name == SensorWatt {
		if kind, ok := wattScales[scale]; ok {
			return kind
		}
		return SensorKind{DeviceClass: "power", Unit: "W"}
	}
	return sensorKinds[name]
}
