package cmd

import (
	"context"

	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

// Hub defines what cmd.run expects from the Telldus hub: connectivity
// validation, the poller's refresh surface and the device views the sinks
// and the HTTP API read from.
type Hub interface {
	ValidateConnectivity(ctx context.Context) bool
	Refresh(ctx context.Context) bool
	IDs() []string
	Record(id string) (telldus.DeviceRecord, bool)
	Device(id string) *telldus.Device
	Devices() []*telldus.Device
	IsAvailable(id string) bool
}
