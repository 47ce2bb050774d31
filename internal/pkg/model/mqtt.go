package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

// RegisterMessage is a Home Assistant MQTT discovery payload. Topics may be
// relative to "~".
type RegisterMessage struct {
	Tilda               string         `json:"~"`
	Name                string         `json:"name"`
	ID                  string         `json:"unique_id"`
	ObjectID            string         `json:"object_id,omitempty"`
	StateTopic          string         `json:"state_topic,omitempty"`
	CommandTopic        string         `json:"command_topic,omitempty"`
	AvailabilityTopic   string         `json:"availability_topic,omitempty"`
	JSONAttributesTopic string         `json:"json_attributes_topic,omitempty"`
	Optimistic          *bool          `json:"optimistic,omitempty"`
	Device              RegisterDevice `json:"device"`

	// light
	BrightnessStateTopic   string `json:"brightness_state_topic,omitempty"`
	BrightnessCommandTopic string `json:"brightness_command_topic,omitempty"`
	BrightnessScale        int    `json:"brightness_scale,omitempty"`

	// cover
	PayloadOpen  string `json:"payload_open,omitempty"`
	PayloadClose string `json:"payload_close,omitempty"`
	PayloadStop  string `json:"payload_stop,omitempty"`
	StateOpen    string `json:"state_open,omitempty"`
	StateClosed  string `json:"state_closed,omitempty"`

	// sensor
	DeviceClass       string `json:"device_class,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	Icon              string `json:"icon,omitempty"`
}

// Attributes is published on the json attributes topic of an entity.
type Attributes struct {
	BatteryLevel    *int    `json:"battery_level,omitempty"`
	TimeLastUpdated *string `json:"time_last_updated,omitempty"`
}
