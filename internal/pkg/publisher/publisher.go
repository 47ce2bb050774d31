package publisher

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/telldus-integration/internal/pkg/poller"
	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

var errAlreadyRegistered = errors.New("publisher already registered")

var _ poller.Listener = (*Registry)(nil)

// Publisher is a destination for discovery and state events.
type Publisher interface {
	RegisterDevice(ctx context.Context, id string, category telldus.Category) error
	RegisterSensorItem(ctx context.Context, id, name, scale string) error
	PublishState(ctx context.Context, id string) error
}

type namedPublisher struct {
	name      string
	publisher Publisher
}

// Registry forwards every event to all registered publishers in
// registration order. A failing publisher is logged and skipped.
type Registry struct {
	mu         sync.RWMutex
	publishers []namedPublisher
	logger     *zap.Logger
}

func New() *Registry {
	return &Registry{logger: zap.L()}
}

func (r *Registry) RegisterPublisher(name string, p Publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, np := range r.publishers {
		if np.name == name {
			return errAlreadyRegistered
		}
	}
	r.publishers = append(r.publishers, namedPublisher{name: name, publisher: p})
	return nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.publishers))
	for _, np := range r.publishers {
		names = append(names, np.name)
	}
	return names
}

func (r *Registry) each(fn func(Publisher) error, msg string, fields ...zap.Field) {
	r.mu.RLock()
	publishers := append([]namedPublisher(nil), r.publishers...)
	r.mu.RUnlock()

	for _, np := range publishers {
		if err := fn(np.publisher); err != nil {
			r.logger.Error("failed to "+msg, append(fields, zap.Error(err), zap.String("publisher", np.name))...)
			continue
		}
		r.logger.Debug(msg, append(fields, zap.String("publisher", np.name))...)
	}
}

func (r *Registry) DeviceDiscovered(ctx context.Context, id string, category telldus.Category) {
	r.each(func(p Publisher) error {
		return p.RegisterDevice(ctx, id, category)
	}, "register device", zap.String("device_id", id), zap.String("category", category.String()))
}

func (r *Registry) SensorItemDiscovered(ctx context.Context, id, name, scale string) {
	r.each(func(p Publisher) error {
		return p.RegisterSensorItem(ctx, id, name, scale)
	}, "register sensor item", zap.String("device_id", id), zap.String("item", name), zap.String("scale", scale))
}

func (r *Registry) StatePossiblyChanged(ctx context.Context, id string) {
	r.each(func(p Publisher) error {
		return p.PublishState(ctx, id)
	}, "publish state", zap.String("device_id", id))
}
