package ws

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edgex-exchange/edgex-sdk-go/pkg/backoff"
)

// closeGraceDelay is a short pause before each backoff wait so an
// explicit Close that raced a failed attempt is observed promptly.
const closeGraceDelay = 100 * time.Millisecond

// triggerReconnect starts the reconnection engine for a failed
// connection. The keepalive and dispatch loops can both detect the same
// failure; try-acquiring makes the second trigger a no-op.
func (s *Session) triggerReconnect(old *wsConn) {
	if !s.reconnectMu.TryLock() {
		return
	}
	go func() {
		ok := s.reconnect(old)
		s.reconnectMu.Unlock()
		// Replay outside the engine lock so a failure mid-replay can
		// trigger a fresh engine run.
		if ok && !s.cfg.Private {
			s.replaySubscriptions()
		}
	}()
}

// reconnect retires the failed connection and redials with exponential
// backoff until it succeeds or the session is closed. It never gives up
// on its own. Returns true when a new connection was established.
func (s *Session) reconnect(old *wsConn) bool {
	if s.closed.Load() {
		return false
	}

	s.mu.Lock()
	if s.conn != old {
		// A newer connection already replaced the one that failed.
		s.mu.Unlock()
		return false
	}
	s.conn = nil
	s.state = StateReconnecting
	closeCh := s.closeCh
	s.mu.Unlock()

	old.retire()
	incReconnect()
	s.logger.Info("websocket reconnecting", zap.String("url", s.cfg.URL))

	bo := backoff.New(backoff.Config{
		InitialInterval: s.cfg.ReconnectBaseDelay,
		Multiplier:      2.0,
		MaxInterval:     s.cfg.ReconnectMaxDelay,
	})

	for attempt := 1; ; attempt++ {
		if s.closed.Load() {
			s.logger.Info("reconnect abandoned, session closed")
			return false
		}

		err := s.dial(context.Background())
		if err == nil {
			s.logger.Info("websocket reconnected", zap.Int("attempts", attempt))
			return true
		}
		if errors.Is(err, ErrClosed) {
			return false
		}

		delay := bo.NextBackOff()
		s.logger.Warn("reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		select {
		case <-closeCh:
			return false
		case <-time.After(closeGraceDelay):
		}
		if s.closed.Load() {
			return false
		}
		select {
		case <-closeCh:
			return false
		case <-time.After(delay):
		}
	}
}

// replaySubscriptions re-sends every registered subscription on the
// fresh connection. Replay is best effort: one failed topic is logged
// and does not block the rest.
func (s *Session) replaySubscriptions() {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return
	}

	for _, sub := range s.reg.snapshot() {
		if err := s.sendSubscribe(c, sub.Topic, sub.Params); err != nil {
			s.logger.Warn("resubscribe failed", zap.String("topic", sub.Topic), zap.Error(err))
			continue
		}
		incResubscribe()
	}
}
