package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *StreamwatchConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.WSURL == "" {
		return errors.New("api.ws_url is required")
	}

	if c.Stream.Private {
		if c.API.AccountID == 0 {
			return errors.New("api.account_id is required for a private stream")
		}
		if c.API.SigningKey == "" {
			return errors.New("api.signing_key is required for a private stream")
		}
		if len(c.Stream.Topics) > 0 {
			return errors.New("stream.topics cannot be set on a private stream")
		}
	} else if len(c.Stream.Topics) == 0 {
		return errors.New("stream.topics must list at least one channel")
	}

	for i, topic := range c.Stream.Topics {
		if topic.Channel == "" {
			return fmt.Errorf("stream.topics[%d].channel is required", i)
		}
	}

	if c.Stream.ReconnectBaseDelay > c.Stream.ReconnectMaxDelay {
		return fmt.Errorf("stream.reconnect_base_delay (%v) cannot exceed reconnect_max_delay (%v)",
			c.Stream.ReconnectBaseDelay, c.Stream.ReconnectMaxDelay)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}
