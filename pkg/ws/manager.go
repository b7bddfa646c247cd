package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgex-exchange/edgex-sdk-go/pkg/signing"
)

const (
	publicWSEndpoint  = "/api/v1/public/ws"
	privateWSEndpoint = "/api/v1/private/ws"
)

// ManagerConfig holds shared settings for the sessions a Manager owns.
type ManagerConfig struct {
	BaseURL    string // e.g. wss://quote.edgex.exchange
	AccountID  int64
	SigningKey signing.PrivateKey
	Signer     signing.Signer

	PingInterval       time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	Logger *zap.Logger
}

// Manager owns at most one public and one private session for an
// account, created lazily. Each session keeps its own subscription
// registry and reconnects independently.
type Manager struct {
	cfg ManagerConfig

	mu      sync.Mutex
	public  *Session
	private *Session
}

// NewManager creates a manager. Sessions are dialed on first use.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{cfg: cfg}, nil
}

// Public returns the connected public session, dialing it on first call.
func (m *Manager) Public(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.public != nil {
		return m.public, nil
	}

	sess, err := m.newSession(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("public session: %w", err)
	}
	m.public = sess
	return sess, nil
}

// Private returns the connected private session, dialing it on first
// call. Private sessions carry account events; they take no topic
// subscriptions.
func (m *Manager) Private(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.private != nil {
		return m.private, nil
	}

	sess, err := m.newSession(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("private session: %w", err)
	}
	m.private = sess
	return sess, nil
}

func (m *Manager) newSession(ctx context.Context, private bool) (*Session, error) {
	endpoint := publicWSEndpoint
	if private {
		endpoint = privateWSEndpoint
	}

	sess, err := NewSession(Config{
		URL:                m.cfg.BaseURL + endpoint,
		Private:            private,
		AccountID:          m.cfg.AccountID,
		SigningKey:         m.cfg.SigningKey,
		Signer:             m.cfg.Signer,
		PingInterval:       m.cfg.PingInterval,
		ReconnectBaseDelay: m.cfg.ReconnectBaseDelay,
		ReconnectMaxDelay:  m.cfg.ReconnectMaxDelay,
		Logger:             m.cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := sess.Connect(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// CloseAll closes every session the manager has created.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.public != nil {
		errs = append(errs, m.public.Close())
		m.public = nil
	}
	if m.private != nil {
		errs = append(errs, m.private.Close())
		m.private = nil
	}
	return errors.Join(errs...)
}
