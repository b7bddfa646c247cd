package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/edgex-exchange/edgex-sdk-go/pkg/signing"
)

// privateWSPath is the synthetic path private handshake signatures are
// computed over. The account ID is appended with no separator; the
// gateway canonicalizes the same way.
const privateWSPath = "/api/v1/private/ws"

// Config holds the settings for one logical channel.
type Config struct {
	URL        string
	Private    bool
	AccountID  int64
	SigningKey signing.PrivateKey
	Signer     signing.Signer // defaults to signing.LocalSigner

	PingInterval       time.Duration // default 30s
	HandshakeTimeout   time.Duration // default 10s
	WriteTimeout       time.Duration // default 5s
	ReconnectBaseDelay time.Duration // default 1s
	ReconnectMaxDelay  time.Duration // default 60s

	Logger *zap.Logger
}

// validate checks required fields and fills defaults.
func (c *Config) validate() error {
	var errs []string

	if c.URL == "" {
		errs = append(errs, "URL is required")
	}
	if c.Private {
		if c.AccountID == 0 {
			errs = append(errs, "AccountID is required for private channels")
		}
		if c.SigningKey == "" {
			errs = append(errs, "SigningKey is required for private channels")
		}
	}
	if c.Signer == nil {
		c.Signer = signing.LocalSigner{}
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = 1 * time.Second
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid ws config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// wsConn is one physical connection. Its done channel retires the
// keepalive loop; the dispatch loop is retired by closing the socket out
// from under its blocking read.
type wsConn struct {
	ws         *websocket.Conn
	done       chan struct{}
	once       sync.Once
	notifyOnce sync.Once
}

// retire stops the loops bound to this connection and closes the socket,
// swallowing "already closed" errors.
func (c *wsConn) retire() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Session is one logical WebSocket channel. It survives connection loss:
// the reconnection engine replaces the physical connection underneath
// while subscriptions and handlers stay registered.
type Session struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex // guards conn, state, closeCh
	conn    *wsConn
	state   State
	closeCh chan struct{}
	closed  atomic.Bool

	writeMu sync.Mutex // gorilla allows one concurrent writer

	reg *registry

	hookMu          sync.Mutex
	connectHooks    []func()
	messageHooks    []func([]byte)
	disconnectHooks []func(error)

	// reconnectMu is try-acquired: when both loops detect the same
	// failure, the second trigger is a no-op rather than a queued retry.
	reconnectMu sync.Mutex
}

// NewSession creates a session for one logical channel. It does not
// connect; call Connect.
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	RegisterMetrics(prometheus.DefaultRegisterer)

	return &Session{
		cfg:    cfg,
		logger: cfg.Logger.Named("edgex-ws"),
		reg:    newRegistry(),
	}, nil
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect establishes the WebSocket connection, starts the keepalive and
// dispatch loops, and runs the on-connect hooks synchronously. Calling
// Connect on a closed session re-arms it.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.closed.Store(false)
	if s.closeCh == nil || chanClosed(s.closeCh) {
		s.closeCh = make(chan struct{})
	}
	s.state = StateConnecting
	s.mu.Unlock()

	if err := s.dial(ctx); err != nil {
		s.mu.Lock()
		if s.state == StateConnecting {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// dial performs one handshake attempt and, on success, installs the new
// physical connection and starts its loops. Shared by Connect and the
// reconnection engine.
func (s *Session) dial(ctx context.Context) error {
	url := s.cfg.URL
	header := http.Header{}
	timestamp := time.Now().UnixMilli()

	if s.cfg.Private {
		// Private sockets are authenticated out-of-band with the same
		// canonicalizer and signer as REST, over a fixed synthetic path.
		path := privateWSPath + "accountId=" + strconv.FormatInt(s.cfg.AccountID, 10)
		sig, err := signing.SignRequest(s.cfg.Signer, s.cfg.SigningKey, signing.Request{
			Method:    http.MethodGet,
			Path:      path,
			Timestamp: timestamp,
		})
		if err != nil {
			return fmt.Errorf("sign websocket handshake: %w", err)
		}
		header.Set(signing.HeaderTimestamp, strconv.FormatInt(timestamp, 10))
		header.Set(signing.HeaderSignature, sig.String())
	} else {
		// Public sockets only need monotonic anti-replay.
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "timestamp=" + strconv.FormatInt(timestamp, 10)
	}

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		incConnect("error")
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: status %d", ErrHandshakeRejected, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}

	c := &wsConn{ws: ws, done: make(chan struct{})}

	s.mu.Lock()
	if s.closed.Load() {
		// An explicit close raced the handshake; the close wins.
		s.mu.Unlock()
		_ = ws.Close()
		return ErrClosed
	}
	s.conn = c
	s.state = StateConnected
	s.mu.Unlock()

	incConnect("ok")
	go s.keepaliveLoop(c)
	go s.dispatchLoop(c)

	s.runConnectHooks()
	s.logger.Info("websocket connected",
		zap.String("url", s.cfg.URL),
		zap.Bool("private", s.cfg.Private),
	)
	return nil
}

// Close shuts the session down. The cancellation flag is set before the
// socket is closed so a concurrently-racing reconnect sees the intent to
// stop. Closed is terminal for auto-reconnection.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.closed.Store(true)
	if s.closeCh != nil && !chanClosed(s.closeCh) {
		close(s.closeCh)
	}
	c := s.conn
	s.conn = nil
	s.state = StateClosed
	s.mu.Unlock()

	if c != nil {
		c.retire()
	}
	s.logger.Info("websocket closed")
	return nil
}

// Subscribe subscribes to a topic on a public channel and registers the
// handler under the topic's channel prefix. The subscription is replayed
// automatically after every reconnect until Unsubscribe is called.
func (s *Session) Subscribe(topic string, params map[string]string, handler Handler) error {
	if s.cfg.Private {
		return ErrPrivateChannel
	}

	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}

	// Bind the handler before the frame goes out so the first event
	// cannot slip past it.
	if handler != nil {
		s.reg.setHandler(channelPrefix(topic), handler)
	}
	if err := s.sendSubscribe(c, topic, params); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	s.reg.add(Subscription{Topic: topic, Params: params, Handler: handler})
	return nil
}

// Unsubscribe removes a topic from the registry and tells the server.
func (s *Session) Unsubscribe(topic string) error {
	if s.cfg.Private {
		return ErrPrivateChannel
	}

	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}

	if err := s.writeJSON(c, map[string]any{"type": "unsubscribe", "channel": topic}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, err)
	}
	s.reg.remove(topic)
	return nil
}

// Subscriptions returns a snapshot of the active subscriptions.
func (s *Session) Subscriptions() []Subscription {
	return s.reg.snapshot()
}

// OnMessage registers a handler for a message type or quote-event channel
// prefix, replacing any previous handler for that key.
func (s *Session) OnMessage(msgType string, handler Handler) {
	s.reg.setHandler(msgType, handler)
}

// OnConnect registers a hook run synchronously after every successful
// connect, including reconnects.
func (s *Session) OnConnect(hook func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.connectHooks = append(s.connectHooks, hook)
}

// OnMessageHook registers a hook that sees every raw inbound frame before
// routing. Intended for diagnostics.
func (s *Session) OnMessageHook(hook func([]byte)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.messageHooks = append(s.messageHooks, hook)
}

// OnDisconnect registers a hook run when the connection is lost. Loss is
// reported only here, never as an error from a Session method.
func (s *Session) OnDisconnect(hook func(error)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.disconnectHooks = append(s.disconnectHooks, hook)
}

// keepaliveLoop sends a ping frame every PingInterval. A send failure
// means the connection is gone: the loop hands off to the reconnection
// engine and terminates itself.
func (s *Session) keepaliveLoop(c *wsConn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ping := pingFrame{Type: "ping", Time: strconv.FormatInt(time.Now().UnixMilli(), 10)}
			if err := s.writeJSON(c, ping); err != nil {
				s.logger.Warn("keepalive send failed", zap.Error(err))
				s.notifyDisconnect(c, err)
				s.triggerReconnect(c)
				return
			}
		}
	}
}

// dispatchLoop receives frames one at a time and routes them. A read
// error hands off to the reconnection engine and terminates the loop;
// cancellation happens by the socket being closed out from under it.
func (s *Session) dispatchLoop(c *wsConn) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Retired by Close or by the reconnection engine.
				return
			default:
			}
			s.logger.Warn("websocket read failed", zap.Error(err))
			s.notifyDisconnect(c, err)
			s.triggerReconnect(c)
			return
		}
		s.handleFrame(c, data)
	}
}

// handleFrame routes one inbound frame: raw hooks first, then ping
// echo, then handler lookup by quote-event channel prefix or by type.
// Undecodable and unmatched frames are dropped without error.
func (s *Session) handleFrame(c *wsConn, data []byte) {
	for _, hook := range s.messageHooksSnapshot() {
		s.invokeRawHook(hook, data)
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		incDecodeDrop()
		return
	}

	if f.Type == "ping" {
		// Echo the server's time value, not a fresh timestamp.
		if err := s.writeJSON(c, pongFrame{Type: "pong", Time: f.Time}); err != nil {
			s.logger.Warn("pong send failed", zap.Error(err))
		}
		return
	}

	key := f.Type
	if f.Type == "quote-event" {
		key = channelPrefix(f.Channel)
	}
	incMessage(key)

	if h, ok := s.reg.handler(key); ok {
		s.invokeHandler(key, h, data)
	}
}

// sendSubscribe writes one subscribe frame with the topic's extra params
// flattened into the message.
func (s *Session) sendSubscribe(c *wsConn, topic string, params map[string]string) error {
	msg := map[string]any{"type": "subscribe", "channel": topic}
	for k, v := range params {
		msg[k] = v
	}
	return s.writeJSON(c, msg)
}

func (s *Session) writeJSON(c *wsConn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) runConnectHooks() {
	s.hookMu.Lock()
	hooks := make([]func(), len(s.connectHooks))
	copy(hooks, s.connectHooks)
	s.hookMu.Unlock()

	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("connect hook panic", zap.Any("panic", r))
				}
			}()
			hook()
		}()
	}
}

// notifyDisconnect fires the disconnect hooks exactly once per physical
// connection, whichever loop observes the loss first. An explicit Close
// is not a loss and never notifies.
func (s *Session) notifyDisconnect(c *wsConn, cause error) {
	c.notifyOnce.Do(func() { s.runDisconnectHooks(cause) })
}

func (s *Session) runDisconnectHooks(cause error) {
	s.hookMu.Lock()
	hooks := make([]func(error), len(s.disconnectHooks))
	copy(hooks, s.disconnectHooks)
	s.hookMu.Unlock()

	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("disconnect hook panic", zap.Any("panic", r))
				}
			}()
			hook(cause)
		}()
	}
}

func (s *Session) messageHooksSnapshot() []func([]byte) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	hooks := make([]func([]byte), len(s.messageHooks))
	copy(hooks, s.messageHooks)
	return hooks
}

func (s *Session) invokeRawHook(hook func([]byte), data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("message hook panic", zap.Any("panic", r))
		}
	}()
	hook(data)
}

func (s *Session) invokeHandler(key string, h Handler, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", zap.String("key", key), zap.Any("panic", r))
		}
	}()
	h(data)
}

// channelPrefix returns the channel name before its first dot:
// "ticker.BTC-USD" routes as "ticker".
func channelPrefix(channel string) string {
	if i := strings.Index(channel, "."); i >= 0 {
		return channel[:i]
	}
	return channel
}

// chanClosed reports whether ch is already closed. Callers hold s.mu.
func chanClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
