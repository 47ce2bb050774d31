package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

var errUnknownCommand = errors.New("unknown command payload")

func (s *service) subscribe() error {
	filters := map[string]byte{
		s.topicPrefix + "/+/set":            1,
		s.topicPrefix + "/+/brightness/set": 1,
	}
	return wait(s.client.SubscribeMultiple(filters, s.onMessage))
}

func (s *service) onMessage(_ paho_mqtt.Client, msg paho_mqtt.Message) {
	if err := s.handleCommand(s.ctx, msg.Topic(), msg.Payload()); err != nil {
		s.logger.Error("failed to handle command",
			zap.String("topic", msg.Topic()),
			zap.ByteString("payload", msg.Payload()),
			zap.Error(err),
		)
	}
}

// handleCommand executes a Home Assistant command and publishes the
// optimistic state that results from it.
func (s *service) handleCommand(ctx context.Context, topic string, payload []byte) error {
	rest, ok := strings.CutPrefix(topic, s.topicPrefix+"/")
	if !ok {
		return fmt.Errorf("unexpected topic %s", topic)
	}
	id, action, _ := strings.Cut(rest, "/")
	if _, known := s.lookup(id); !known {
		return fmt.Errorf("device %s not registered", id)
	}
	d := s.hub.Device(id)
	value := strings.TrimSpace(string(payload))

	var err error
	switch action {
	case "brightness/set":
		var level int
		level, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("brightness %q: %w", value, err)
		}
		err = d.Dim(ctx, level)
	case "set":
		err = s.execute(ctx, d, value)
	default:
		return fmt.Errorf("unexpected topic %s", topic)
	}
	if err != nil {
		return err
	}
	s.logger.Info("executed command", zap.String("device_id", id), zap.String("action", action), zap.String("payload", value))
	return s.PublishState(ctx, id)
}

func (s *service) execute(ctx context.Context, d *telldus.Device, payload string) error {
	switch strings.ToUpper(payload) {
	case payloadOn:
		return d.TurnOn(ctx)
	case payloadOff:
		return d.TurnOff(ctx)
	case payloadOpen:
		return d.Up(ctx)
	case payloadClose:
		return d.Down(ctx)
	case payloadStop:
		return d.Stop(ctx)
	}
	return fmt.Errorf("%w: %s", errUnknownCommand, payload)
}
