package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/anicoll/telldus-integration/internal/pkg/poller"
)

type Config struct {
	Telldus  TelldusConfig  `envPrefix:"TELLDUS_"`
	MQTT     MQTTConfig     `envPrefix:"MQTT_"`
	Database DatabaseConfig
	HTTP     HTTPConfig
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

type TelldusConfig struct {
	Host         string        `env:"HOST,required"`
	Token        string        `env:"TOKEN,required"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
}

type MQTTConfig struct {
	Host            string `env:"HOST"`
	Username        string `env:"USER"`
	Password        string `env:"PASS"`
	ClientID        string `env:"CLIENT_ID" envDefault:"telldus-integration"`
	DiscoveryPrefix string `env:"DISCOVERY_PREFIX" envDefault:"homeassistant"`
	TopicPrefix     string `env:"TOPIC_PREFIX" envDefault:"telldus"`
}

// Enabled reports whether a broker is configured.
func (c MQTTConfig) Enabled() bool {
	return c.Host != ""
}

type DatabaseConfig struct {
	URL              string        `env:"DATABASE_URL"`
	MigrationsFolder string        `env:"MIGRATIONS_FOLDER"`
	Retention        time.Duration `env:"HISTORY_RETENTION" envDefault:"192h"`
	CleanupSchedule  string        `env:"CLEANUP_SCHEDULE" envDefault:"0 3 * * *"`
}

func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

type HTTPConfig struct {
	Addr       string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	APIKeyHash string `env:"API_KEY_HASH"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFromEnv reads the configuration from the given variables only.
func LoadFromEnv(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}
	cfg.Telldus.PollInterval = poller.ClampInterval(cfg.Telldus.PollInterval)
	return cfg, nil
}
