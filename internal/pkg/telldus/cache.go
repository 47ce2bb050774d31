package telldus

import (
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Cache holds the latest record of every device and sensor, keyed by id.
// It is rebuilt wholesale by Replace and patched in place by successful
// commands. All methods are safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	state  map[string]DeviceRecord
	logger *zap.Logger
}

func NewCache() *Cache {
	return &Cache{
		state:  map[string]DeviceRecord{},
		logger: zap.L(),
	}
}

// Replace discards the previous mapping and rebuilds it from devices and
// sensors. Records without a name are dropped.
func (c *Cache) Replace(devices, sensors []DeviceRecord) {
	state := make(map[string]DeviceRecord, len(devices)+len(sensors))
	collect := func(records []DeviceRecord) {
		for _, record := range records {
			if record.Name == "" {
				c.logger.Debug("dropping unnamed record", zap.String("device_id", record.DeviceID()))
				continue
			}
			state[record.DeviceID()] = record
		}
	}
	collect(devices)
	collect(sensors)

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Get returns a copy of the record for id.
func (c *Cache) Get(id string) (DeviceRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.state[id]
	return record, ok
}

// IDs returns the ids currently cached, sorted.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	ids := lo.Keys(c.state)
	c.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// IsAvailable reports whether id was part of the latest fetch.
func (c *Cache) IsAvailable(id string) bool {
	_, ok := c.Get(id)
	return ok
}

// Patch applies fn to the cached record for id. It returns false if the
// id is no longer cached.
func (c *Cache) Patch(id string, fn func(*DeviceRecord)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.state[id]
	if !ok {
		return false
	}
	fn(&record)
	c.state[id] = record
	return true
}
