package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/telldus-integration/internal/pkg/config"
	"github.com/anicoll/telldus-integration/internal/pkg/telldus"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
)

var errTimeout = errors.New("mqtt operation timed out")

type deviceSource interface {
	Device(id string) *telldus.Device
}

type service struct {
	client          paho_mqtt.Client
	hub             deviceSource
	discoveryPrefix string
	topicPrefix     string
	logger          *zap.Logger

	ctx      context.Context
	mu       sync.Mutex
	entities map[string]*entity

	// publishMu serialises publishes so published always holds the last
	// payload the broker accepted for a topic.
	publishMu sync.Mutex
	published map[string]string
}

// New builds the Home Assistant publisher and its broker client. Command
// topics are (re)subscribed on every successful connect.
func New(cfg config.MQTTConfig, hub deviceSource) *service {
	s := newService(nil, hub, cfg)
	opts := ClientOptions(cfg).SetOnConnectHandler(s.onConnect)
	s.client = paho_mqtt.NewClient(opts)
	return s
}

func newService(client paho_mqtt.Client, hub deviceSource, cfg config.MQTTConfig) *service {
	return &service{
		client:          client,
		hub:             hub,
		discoveryPrefix: strings.TrimSuffix(cfg.DiscoveryPrefix, "/"),
		topicPrefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		logger:          zap.L(),
		ctx:             context.Background(),
		entities:        map[string]*entity{},
		published:       map[string]string{},
	}
}

// ClientOptions translates the config into paho options.
func ClientOptions(cfg config.MQTTConfig) *paho_mqtt.ClientOptions {
	return paho_mqtt.NewClientOptions().
		AddBroker(BrokerURL(cfg.Host)).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(false)
}

// BrokerURL adds the default scheme and port to a bare broker host.
func BrokerURL(host string) string {
	if !strings.Contains(host, "://") {
		host = "tcp://" + host
	}
	if i := strings.LastIndex(host, ":"); i <= strings.Index(host, "://") {
		host += ":1883"
	}
	return host
}

func (s *service) Connect(ctx context.Context) error {
	s.ctx = ctx
	token := s.client.Connect()
	res := token.WaitTimeout(connectTimeout)
	if err := token.Error(); err != nil {
		return err
	}
	if res {
		return nil
	}
	return errors.New("unable to connect in time")
}

func (s *service) Close() {
	s.client.Disconnect(250)
}

func (s *service) onConnect(_ paho_mqtt.Client) {
	s.logger.Info("connected to mqtt broker")
	if err := s.subscribe(); err != nil {
		s.logger.Error("failed to subscribe to command topics", zap.Error(err))
	}
}

func wait(token paho_mqtt.Token) error {
	if !token.WaitTimeout(publishTimeout) {
		return errTimeout
	}
	return token.Error()
}
