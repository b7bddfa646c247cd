package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-streamwatch
api:
  rest_url: https://testnet.edgex.exchange
  account_id: 12345
stream:
  topics:
    - channel: ticker.BTC-USD
    - channel: kline.BTC-USD
      params:
        interval: 1m
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-streamwatch" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-streamwatch")
	}
	if cfg.API.RestURL != "https://testnet.edgex.exchange" {
		t.Errorf("API.RestURL = %q, want %q", cfg.API.RestURL, "https://testnet.edgex.exchange")
	}
	if cfg.API.AccountID != 12345 {
		t.Errorf("API.AccountID = %d, want 12345", cfg.API.AccountID)
	}
	if len(cfg.Stream.Topics) != 2 {
		t.Fatalf("len(Stream.Topics) = %d, want 2", len(cfg.Stream.Topics))
	}
	if cfg.Stream.Topics[1].Params["interval"] != "1m" {
		t.Errorf("Topics[1].Params[interval] = %q, want %q", cfg.Stream.Topics[1].Params["interval"], "1m")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_SIGNING_KEY", "deadbeef")

	yaml := `
instance:
  id: test-streamwatch
api:
  signing_key: ${TEST_SIGNING_KEY}
stream:
  topics:
    - channel: ticker.BTC-USD
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.SigningKey != "deadbeef" {
		t.Errorf("API.SigningKey = %q, want %q", cfg.API.SigningKey, "deadbeef")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-streamwatch
stream:
  topics:
    - channel: ticker.BTC-USD
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.API.RestURL != DefaultRestURL {
		t.Errorf("API.RestURL = %q, want default %q", cfg.API.RestURL, DefaultRestURL)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Stream.PingInterval != DefaultPingInterval {
		t.Errorf("Stream.PingInterval = %v, want default %v", cfg.Stream.PingInterval, DefaultPingInterval)
	}
	if cfg.Stream.ReconnectMaxDelay != DefaultReconnectMaxDelay {
		t.Errorf("Stream.ReconnectMaxDelay = %v, want default %v", cfg.Stream.ReconnectMaxDelay, DefaultReconnectMaxDelay)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StreamwatchConfig
		wantErr string
	}{
		{
			name:    "missing instance id",
			cfg:     StreamwatchConfig{},
			wantErr: "instance.id is required",
		},
		{
			name: "public stream without topics",
			cfg: StreamwatchConfig{
				Instance: InstanceConfig{ID: "test"},
				API:      APIConfig{RestURL: "https://x", WSURL: "wss://x"},
				Metrics:  MetricsConfig{Port: 9090},
			},
			wantErr: "stream.topics must list at least one channel",
		},
		{
			name: "private stream without credentials",
			cfg: StreamwatchConfig{
				Instance: InstanceConfig{ID: "test"},
				API:      APIConfig{RestURL: "https://x", WSURL: "wss://x"},
				Stream:   StreamConfig{Private: true},
				Metrics:  MetricsConfig{Port: 9090},
			},
			wantErr: "api.account_id is required for a private stream",
		},
		{
			name: "private stream with topics",
			cfg: StreamwatchConfig{
				Instance: InstanceConfig{ID: "test"},
				API:      APIConfig{RestURL: "https://x", WSURL: "wss://x", AccountID: 1, SigningKey: "ab"},
				Stream: StreamConfig{
					Private: true,
					Topics:  []TopicConfig{{Channel: "ticker.BTC-USD"}},
				},
				Metrics: MetricsConfig{Port: 9090},
			},
			wantErr: "stream.topics cannot be set on a private stream",
		},
		{
			name: "base delay exceeds max delay",
			cfg: StreamwatchConfig{
				Instance: InstanceConfig{ID: "test"},
				API:      APIConfig{RestURL: "https://x", WSURL: "wss://x"},
				Stream: StreamConfig{
					Topics:             []TopicConfig{{Channel: "ticker.BTC-USD"}},
					ReconnectBaseDelay: 2 * time.Minute,
					ReconnectMaxDelay:  time.Minute,
				},
				Metrics: MetricsConfig{Port: 9090},
			},
			wantErr: "stream.reconnect_base_delay (2m0s) cannot exceed reconnect_max_delay (1m0s)",
		},
		{
			name: "valid config",
			cfg: StreamwatchConfig{
				Instance: InstanceConfig{ID: "test"},
				API:      APIConfig{RestURL: "https://x", WSURL: "wss://x"},
				Stream: StreamConfig{
					Topics:             []TopicConfig{{Channel: "ticker.BTC-USD"}},
					ReconnectBaseDelay: time.Second,
					ReconnectMaxDelay:  time.Minute,
				},
				Metrics: MetricsConfig{Port: 9090},
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
