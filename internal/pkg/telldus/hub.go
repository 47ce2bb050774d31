package telldus

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Hub ties the REST client to the state cache.
type Hub struct {
	client *Client
	cache  *Cache
	logger *zap.Logger
}

func New(host, token string, opts ...func(*Client)) (*Hub, error) {
	client, err := NewClient(host, token, opts...)
	if err != nil {
		return nil, err
	}
	return &Hub{
		client: client,
		cache:  NewCache(),
		logger: zap.L(),
	}, nil
}

// Refresh fetches devices and sensors and rebuilds the cache from whatever
// came back. It returns true only if both fetches succeeded.
func (h *Hub) Refresh(ctx context.Context) bool {
	devices, devErr := h.client.Devices(ctx)
	sensors, sensErr := h.client.Sensors(ctx)
	h.cache.Replace(devices, sensors)

	if devErr != nil || sensErr != nil {
		h.logger.Warn("partial update",
			zap.Bool("devices_ok", devErr == nil),
			zap.Bool("sensors_ok", sensErr == nil),
			zap.Int("cached", len(h.cache.IDs())),
		)
		return false
	}
	return true
}

// ValidateConnectivity calls devices/list once; an empty answer counts as
// a failure.
func (h *Hub) ValidateConnectivity(ctx context.Context) bool {
	devices, err := h.client.Devices(ctx)
	return err == nil && len(devices) != 0
}

func (h *Hub) Device(id string) *Device {
	return newDevice(id, h.client, h.cache)
}

// Devices returns a view for every cached id.
func (h *Hub) Devices() []*Device {
	return lo.Map(h.cache.IDs(), func(id string, _ int) *Device {
		return h.Device(id)
	})
}

func (h *Hub) IDs() []string {
	return h.cache.IDs()
}

func (h *Hub) Record(id string) (DeviceRecord, bool) {
	return h.cache.Get(id)
}

func (h *Hub) IsAvailable(id string) bool {
	return h.cache.IsAvailable(id)
}
