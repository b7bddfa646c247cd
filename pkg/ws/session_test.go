package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/edgex-exchange/edgex-sdk-go/pkg/signing"
)

const testSigningKey = signing.PrivateKey("4c0883a69102937d6231471b5dbb6204fe512961708279f1d8b1b9a7e1d7f1f3")

func newWSServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func mustConnect(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	sess, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestPingEchoesServerTime(t *testing.T) {
	pongs := make(chan pongFrame, 1)

	srv := newWSServer(t, func(conn *websocket.Conn, _ *http.Request) {
		defer conn.Close()
		if err := conn.WriteJSON(pingFrame{Type: "ping", Time: "12345"}); err != nil {
			return
		}
		for {
			var f pongFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if f.Type == "pong" {
				select {
				case pongs <- f:
				default:
				}
				return
			}
		}
	})

	mustConnect(t, Config{URL: wsURL(srv), PingInterval: time.Hour})

	select {
	case pong := <-pongs:
		if pong.Time != "12345" {
			t.Fatalf("pong time = %q, want the server's ping time echoed back", pong.Time)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestSubscriptionsReplayAfterReconnect(t *testing.T) {
	var generation atomic.Int32
	firstReady := make(chan struct{})
	replayed := make(chan string, 8)

	srv := newWSServer(t, func(conn *websocket.Conn, _ *http.Request) {
		defer conn.Close()
		gen := generation.Add(1)
		seen := 0
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["type"] != "subscribe" {
				continue
			}
			topic, _ := msg["channel"].(string)
			switch gen {
			case 1:
				seen++
				if seen == 2 {
					// Both subscriptions landed; force a disconnect.
					close(firstReady)
					return
				}
			default:
				replayed <- topic
			}
		}
	})

	sess := mustConnect(t, Config{
		URL:                wsURL(srv),
		PingInterval:       time.Hour,
		ReconnectBaseDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:  50 * time.Millisecond,
	})

	if err := sess.Subscribe("ticker.BTC-USD", nil, nil); err != nil {
		t.Fatalf("Subscribe ticker: %v", err)
	}
	if err := sess.Subscribe("depth.BTC-USD", map[string]string{"level": "15"}, nil); err != nil {
		t.Fatalf("Subscribe depth: %v", err)
	}

	select {
	case <-firstReady:
	case <-time.After(3 * time.Second):
		t.Fatal("server never saw the initial subscriptions")
	}

	got := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case topic := <-replayed:
			got[topic] = true
		case <-deadline:
			t.Fatalf("replay incomplete, got %v", got)
		}
	}
	if !got["ticker.BTC-USD"] || !got["depth.BTC-USD"] {
		t.Fatalf("replayed topics = %v, want both originals", got)
	}
}

func TestCloseStopsReconnectPromptly(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, _ *http.Request) {
		conn.Close()
	})

	sess := mustConnect(t, Config{
		URL:                wsURL(srv),
		PingInterval:       time.Hour,
		ReconnectBaseDelay: 10 * time.Second, // long enough that only the close can end the wait
		ReconnectMaxDelay:  10 * time.Second,
	})

	// Let the engine reach its backoff wait, then take the server away
	// so the redial fails too.
	time.Sleep(200 * time.Millisecond)
	srv.Close()
	time.Sleep(200 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = sess.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind the reconnect backoff")
	}
	if got := sess.State(); got != StateClosed {
		t.Fatalf("state = %v, want %v", got, StateClosed)
	}
}

func TestPrivateHandshakeIsSigned(t *testing.T) {
	headers := make(chan http.Header, 1)

	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		select {
		case headers <- r.Header.Clone():
		default:
		}
		conn.Close()
	})

	mustConnect(t, Config{
		URL:          wsURL(srv),
		Private:      true,
		AccountID:    543210,
		SigningKey:   testSigningKey,
		PingInterval: time.Hour,
	})

	var hdr http.Header
	select {
	case hdr = <-headers:
	case <-time.After(3 * time.Second):
		t.Fatal("no handshake seen")
	}

	tsRaw := hdr.Get(signing.HeaderTimestamp)
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		t.Fatalf("timestamp header %q is not a millisecond integer: %v", tsRaw, err)
	}

	want, err := signing.SignRequest(signing.LocalSigner{}, testSigningKey, signing.Request{
		Method:    http.MethodGet,
		Path:      privateWSPath + "accountId=543210",
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("SignRequest: %v", err)
	}
	if got := hdr.Get(signing.HeaderSignature); got != want.String() {
		t.Fatalf("signature header = %q, want recomputed %q", got, want.String())
	}
}

func TestPublicHandshakeCarriesTimestamp(t *testing.T) {
	queries := make(chan string, 1)

	srv := newWSServer(t, func(conn *websocket.Conn, r *http.Request) {
		select {
		case queries <- r.URL.Query().Get("timestamp"):
		default:
		}
		conn.Close()
	})

	mustConnect(t, Config{URL: wsURL(srv), PingInterval: time.Hour})

	select {
	case ts := <-queries:
		if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
			t.Fatalf("timestamp param %q is not a millisecond integer: %v", ts, err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no handshake seen")
	}
}

func TestQuoteEventRoutesByChannelPrefix(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, _ *http.Request) {
		defer conn.Close()
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["type"] != "subscribe" {
				continue
			}
			event := map[string]any{
				"type":    "quote-event",
				"channel": "ticker.BTC-USD",
				"content": map[string]any{"lastPrice": "64000.5"},
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	})

	sess := mustConnect(t, Config{URL: wsURL(srv), PingInterval: time.Hour})

	delivered := make(chan []byte, 1)
	err := sess.Subscribe("ticker.BTC-USD", nil, func(message []byte) {
		delivered <- message
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case raw := <-delivered:
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("handler got undecodable payload: %v", err)
		}
		if f.Channel != "ticker.BTC-USD" {
			t.Fatalf("channel = %q, want ticker.BTC-USD", f.Channel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestConcurrentSubscribeDuringDispatch(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, _ *http.Request) {
		defer conn.Close()

		// Drain client frames so writes never block on flow control.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// Flood quote-events through the dispatch loop while the test
		// goroutines churn the registry.
		event := map[string]any{"type": "quote-event", "channel": "ticker.FLOOD-USD"}
		for {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	})

	sess := mustConnect(t, Config{URL: wsURL(srv), PingInterval: time.Hour})
	sess.OnMessage("ticker", func(message []byte) {})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			topic := fmt.Sprintf("ticker.SYM-%d", g)
			for i := 0; i < 50; i++ {
				if err := sess.Subscribe(topic, nil, func(message []byte) {}); err != nil {
					t.Errorf("Subscribe %s: %v", topic, err)
					return
				}
				if err := sess.Unsubscribe(topic); err != nil {
					t.Errorf("Unsubscribe %s: %v", topic, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	if n := len(sess.Subscriptions()); n != 0 {
		t.Fatalf("registry has %d leftover subscriptions after churn, want 0", n)
	}
}

func TestDisconnectHooksFireOncePerLoss(t *testing.T) {
	var generation atomic.Int32

	srv := newWSServer(t, func(conn *websocket.Conn, _ *http.Request) {
		defer conn.Close()
		if generation.Add(1) > 1 {
			// Later generations stay up so only one loss happens.
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
		// First generation drops immediately; the fast ping interval
		// below means the keepalive loop races the dispatch loop to
		// observe it.
	})

	sess, err := NewSession(Config{
		URL:                wsURL(srv),
		PingInterval:       time.Millisecond,
		ReconnectBaseDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:  50 * time.Millisecond,
		Logger:             zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })

	// Registered before Connect so the immediate drop cannot beat it.
	var hookCalls atomic.Int32
	sess.OnDisconnect(func(err error) {
		hookCalls.Add(1)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for hookCalls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("disconnect hook never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Give both loops time to observe the same loss.
	time.Sleep(200 * time.Millisecond)
	if got := hookCalls.Load(); got != 1 {
		t.Fatalf("disconnect hook fired %d times for one loss, want 1", got)
	}
}

func TestSubscribeErrors(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn, _ *http.Request) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	t.Run("private channel rejects topics", func(t *testing.T) {
		sess := mustConnect(t, Config{
			URL:          wsURL(srv),
			Private:      true,
			AccountID:    1,
			SigningKey:   testSigningKey,
			PingInterval: time.Hour,
		})
		if err := sess.Subscribe("ticker.BTC-USD", nil, nil); err != ErrPrivateChannel {
			t.Fatalf("err = %v, want ErrPrivateChannel", err)
		}
	})

	t.Run("not connected", func(t *testing.T) {
		sess, err := NewSession(Config{URL: wsURL(srv), Logger: zap.NewNop()})
		if err != nil {
			t.Fatalf("NewSession: %v", err)
		}
		if err := sess.Subscribe("ticker.BTC-USD", nil, nil); err != ErrNotConnected {
			t.Fatalf("err = %v, want ErrNotConnected", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{URL: "wss://quote.example.com/api/v1/public/ws"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.PingInterval != 30*time.Second {
		t.Errorf("PingInterval default = %v, want 30s", cfg.PingInterval)
	}
	if cfg.ReconnectBaseDelay != 1*time.Second || cfg.ReconnectMaxDelay != 60*time.Second {
		t.Errorf("reconnect defaults = %v/%v, want 1s/60s", cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay)
	}

	bad := Config{URL: "wss://x", Private: true}
	if err := bad.validate(); err == nil {
		t.Error("private config without credentials passed validation")
	}
}
