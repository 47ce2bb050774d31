package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/telldus-integration/internal/pkg/model"
	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

const (
	manufacturer = "Telldus"

	payloadOn     = "ON"
	payloadOff    = "OFF"
	payloadOpen   = "OPEN"
	payloadClose  = "CLOSE"
	payloadStop   = "STOP"
	stateOpen     = "open"
	stateClosed   = "closed"
	online        = "online"
	offline       = "offline"
	lastUpdatedAt = "2006-01-02 15:04:05"
)

type sensorItem struct {
	name  string
	scale string
}

func (i sensorItem) key() string {
	return slug.Make(i.name + " " + i.scale)
}

type entity struct {
	category telldus.Category
	name     string
	items    []sensorItem
}

func (s *service) base(id string) string {
	return fmt.Sprintf("%s/%s", s.topicPrefix, id)
}

func component(category telldus.Category) string {
	switch category {
	case telldus.CategoryDimmableLight:
		return "light"
	case telldus.CategoryCover:
		return "cover"
	case telldus.CategorySensor:
		return "sensor"
	}
	return "switch"
}

func (s *service) configTopic(category telldus.Category, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/config", s.discoveryPrefix, component(category), objectID)
}

func deviceName(d *telldus.Device) string {
	if name := d.Name(); name != "" {
		return name
	}
	return telldus.UnnamedDevice
}

func defaultRegisterMsg(base, id, name string) model.RegisterMessage {
	optimistic := true
	return model.RegisterMessage{
		Tilda:               base,
		Name:                name,
		ID:                  slug.Make("telldus " + id),
		ObjectID:            slug.Make("telldus " + id),
		AvailabilityTopic:   "~/availability",
		JSONAttributesTopic: "~/attributes",
		Optimistic:          &optimistic,
		Device: model.RegisterDevice{
			Name:         name,
			Identifiers:  []string{"telldus_" + id},
			Manufacturer: manufacturer,
		},
	}
}

func (s *service) deviceRegisterMsg(id, name string, category telldus.Category) model.RegisterMessage {
	msg := defaultRegisterMsg(s.base(id), id, name)
	msg.Device.Model = category.String()
	msg.StateTopic = "~/state"
	msg.CommandTopic = "~/set"
	switch category {
	case telldus.CategoryDimmableLight:
		msg.BrightnessStateTopic = "~/brightness"
		msg.BrightnessCommandTopic = "~/brightness/set"
		msg.BrightnessScale = 255
	case telldus.CategoryCover:
		msg.PayloadOpen = payloadOpen
		msg.PayloadClose = payloadClose
		msg.PayloadStop = payloadStop
		msg.StateOpen = stateOpen
		msg.StateClosed = stateClosed
	}
	return msg
}

func (s *service) sensorRegisterMsg(id, name string, item sensorItem) model.RegisterMessage {
	msg := defaultRegisterMsg(s.base(id), id, name)
	msg.Name = fmt.Sprintf("%s %s", name, item.name)
	msg.ID = slug.Make("telldus " + id + " " + item.key())
	msg.ObjectID = msg.ID
	msg.Device.Model = telldus.CategorySensor.String()
	msg.StateTopic = "~/" + item.key()
	msg.Optimistic = nil

	kind := telldus.KindOf(item.name, item.scale)
	msg.DeviceClass = kind.DeviceClass
	msg.UnitOfMeasurement = kind.Unit
	msg.Icon = kind.Icon
	if kind.Unit != "" {
		msg.StateClass = "measurement"
	}
	return msg
}

// RegisterDevice publishes the discovery config of a switch, light or cover
// followed by its current state.
func (s *service) RegisterDevice(ctx context.Context, id string, category telldus.Category) error {
	name := deviceName(s.hub.Device(id))

	s.mu.Lock()
	s.entities[id] = &entity{category: category, name: name}
	s.mu.Unlock()

	if err := s.publishJSON(s.configTopic(category, slug.Make("telldus "+id)), s.deviceRegisterMsg(id, name, category)); err != nil {
		return err
	}
	return s.PublishState(ctx, id)
}

// RegisterSensorItem publishes the discovery config of one sensor reading
// followed by its current value.
func (s *service) RegisterSensorItem(ctx context.Context, id, itemName, scale string) error {
	name := deviceName(s.hub.Device(id))
	item := sensorItem{name: itemName, scale: scale}

	s.mu.Lock()
	e, ok := s.entities[id]
	if !ok {
		e = &entity{category: telldus.CategorySensor, name: name}
		s.entities[id] = e
	}
	e.items = append(e.items, item)
	s.mu.Unlock()

	msg := s.sensorRegisterMsg(id, name, item)
	if err := s.publishJSON(s.configTopic(telldus.CategorySensor, msg.ObjectID), msg); err != nil {
		return err
	}
	return s.PublishState(ctx, id)
}

func (s *service) lookup(id string) (entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return entity{}, false
	}
	return entity{category: e.category, name: e.name, items: append([]sensorItem(nil), e.items...)}, true
}

// PublishState re-reads the cached device and publishes availability,
// state and attributes. Unchanged payloads are not republished.
func (s *service) PublishState(_ context.Context, id string) error {
	e, ok := s.lookup(id)
	if !ok {
		return nil
	}
	d := s.hub.Device(id)
	base := s.base(id)

	if err := s.refreshName(id, d, e); err != nil {
		return err
	}

	availability := offline
	if d.IsAvailable() {
		availability = online
	}
	if err := s.publish(base+"/availability", []byte(availability)); err != nil {
		return err
	}
	if !d.IsAvailable() {
		return nil
	}

	switch e.category {
	case telldus.CategorySensor:
		for _, item := range e.items {
			value, ok := d.Value(item.name, item.scale)
			if !ok {
				continue
			}
			if err := s.publish(base+"/"+item.key(), []byte(value)); err != nil {
				return err
			}
		}
	case telldus.CategoryCover:
		state := stateOpen
		if d.IsDown() {
			state = stateClosed
		}
		if err := s.publish(base+"/state", []byte(state)); err != nil {
			return err
		}
	case telldus.CategoryDimmableLight:
		if level, ok := d.DimLevel(); ok {
			if err := s.publish(base+"/brightness", []byte(strconv.Itoa(level))); err != nil {
				return err
			}
		}
		fallthrough
	default:
		state := payloadOff
		if d.IsOn() {
			state = payloadOn
		}
		if err := s.publish(base+"/state", []byte(state)); err != nil {
			return err
		}
	}

	return s.publishJSON(base+"/attributes", attributes(d))
}

// refreshName republishes discovery configs when the hub reports a new name.
func (s *service) refreshName(id string, d *telldus.Device, e entity) error {
	name := d.Name()
	if name == "" || name == e.name {
		return nil
	}
	s.logger.Info("device renamed", zap.String("device_id", id), zap.String("old", e.name), zap.String("new", name))
	s.mu.Lock()
	if stored, ok := s.entities[id]; ok {
		stored.name = name
	}
	s.mu.Unlock()

	if e.category != telldus.CategorySensor {
		return s.publishJSON(s.configTopic(e.category, slug.Make("telldus "+id)), s.deviceRegisterMsg(id, name, e.category))
	}
	for _, item := range e.items {
		msg := s.sensorRegisterMsg(id, name, item)
		if err := s.publishJSON(s.configTopic(telldus.CategorySensor, msg.ObjectID), msg); err != nil {
			return err
		}
	}
	return nil
}

func attributes(d *telldus.Device) model.Attributes {
	attrs := model.Attributes{}
	if battery, ok := d.Battery(); ok {
		attrs.BatteryLevel = &battery
	}
	if updated, ok := d.LastUpdated(); ok {
		ts := updated.In(time.Local).Format(lastUpdatedAt)
		attrs.TimeLastUpdated = &ts
	}
	return attrs
}

func (s *service) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.publish(topic, payload)
}

func (s *service) publish(topic string, payload []byte) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if last, ok := s.published[topic]; ok && last == string(payload) {
		return nil
	}
	if err := wait(s.client.Publish(topic, 1, true, payload)); err != nil {
		delete(s.published, topic)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	s.published[topic] = string(payload)
	s.logger.Debug("published", zap.String("topic", topic), zap.ByteString("payload", payload))
	return nil
}
