package poller

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

const (
	MinInterval     = 500 * time.Millisecond
	DefaultInterval = time.Minute
)

// Listener receives the outbound events of a sync cycle.
type Listener interface {
	DeviceDiscovered(ctx context.Context, id string, category telldus.Category)
	SensorItemDiscovered(ctx context.Context, id, name, scale string)
	StatePossiblyChanged(ctx context.Context, id string)
}

type hub interface {
	Refresh(ctx context.Context) bool
	IDs() []string
	Record(id string) (telldus.DeviceRecord, bool)
}

// Poller periodically refreshes the hub and announces devices it has not
// seen before. Cycles never overlap: the next one is scheduled only after
// the previous one returns.
type Poller struct {
	hub      hub
	listener Listener
	interval time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	known map[string]struct{}
}

func New(h hub, listener Listener, interval time.Duration) *Poller {
	return &Poller{
		hub:      h,
		listener: listener,
		interval: ClampInterval(interval),
		logger:   zap.L(),
		known:    map[string]struct{}{},
	}
}

// ClampInterval applies the default and minimum poll interval.
func ClampInterval(interval time.Duration) time.Duration {
	if interval == 0 {
		return DefaultInterval
	}
	return max(interval, MinInterval)
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run syncs immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Debug("update interval", zap.Duration("interval", p.interval))
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			p.update(ctx)
			timer.Reset(p.interval)
		}
	}
}

// update runs one cycle and keeps the loop alive if a listener panics.
func (p *Poller) update(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("sync cycle panicked", zap.Any("panic", r))
		}
	}()
	p.Sync(ctx)
}

// Sync runs a single cycle. It returns false if either fetch failed; any
// data that did arrive is still cached and announced.
func (p *Poller) Sync(ctx context.Context) bool {
	p.logger.Debug("updating")
	ok := p.hub.Refresh(ctx)
	if !ok {
		p.logger.Warn("failed request")
	}

	previous := p.Known()
	for _, id := range p.hub.IDs() {
		if p.isKnown(id) {
			continue
		}
		record, found := p.hub.Record(id)
		if !found {
			continue
		}
		if p.discover(ctx, record) {
			p.markKnown(id)
		}
	}

	for _, id := range previous {
		p.listener.StatePossiblyChanged(ctx, id)
	}
	return ok
}

// discover announces a record and reports whether anything was announced.
// A sensor without data items announces nothing and is retried next cycle.
func (p *Poller) discover(ctx context.Context, record telldus.DeviceRecord) bool {
	id := record.DeviceID()
	if record.IsSensor() {
		for _, item := range record.Data {
			p.logger.Info("discovered sensor item",
				zap.String("device_id", id),
				zap.String("item", item.Name),
				zap.String("scale", item.Scale.String()),
			)
			p.listener.SensorItemDiscovered(ctx, id, item.Name, item.Scale.String())
		}
		return len(record.Data) > 0
	}
	category := telldus.Classify(record)
	p.logger.Info("discovered device", zap.String("device_id", id), zap.String("category", category.String()))
	p.listener.DeviceDiscovered(ctx, id, category)
	return true
}

// Known returns the ids announced so far, sorted.
func (p *Poller) Known() []string {
	p.mu.Lock()
	ids := lo.Keys(p.known)
	p.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (p *Poller) isKnown(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.known[id]
	return ok
}

func (p *Poller) markKnown(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.known[id] = struct{}{}
}
