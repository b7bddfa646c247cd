package config

import "time"

// StreamwatchConfig is the root configuration for a streamwatch instance.
type StreamwatchConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Stream   StreamConfig   `yaml:"stream"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this streamwatch.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds edgeX API settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	AccountID  int64         `yaml:"account_id"`
	SigningKey string        `yaml:"signing_key"` // hex ECDSA key, usually ${EDGEX_SIGNING_KEY}
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// StreamConfig holds WebSocket session settings and the topics to follow.
type StreamConfig struct {
	Topics             []TopicConfig `yaml:"topics"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	Private            bool          `yaml:"private"`
}

// TopicConfig is one public quote subscription.
type TopicConfig struct {
	Channel string            `yaml:"channel"`
	Params  map[string]string `yaml:"params"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
