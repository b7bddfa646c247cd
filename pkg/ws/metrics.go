package ws

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	wsConnects     *prometheus.CounterVec
	wsReconnects   prometheus.Counter
	wsResubscribes prometheus.Counter
	wsMessages     *prometheus.CounterVec
	wsDecodeDrops  prometheus.Counter
)

// RegisterMetrics registers the WebSocket counters with r. Safe to call
// more than once; only the first call registers.
func RegisterMetrics(r prometheus.Registerer) {
	metricsOnce.Do(func() {
		wsConnects = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgex_ws_connects_total",
			Help: "WebSocket handshake attempts by result.",
		}, []string{"result"})
		wsReconnects = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edgex_ws_reconnects_total",
			Help: "Reconnection engine runs.",
		})
		wsResubscribes = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edgex_ws_resubscribes_total",
			Help: "Subscriptions replayed after a reconnect.",
		})
		wsMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edgex_ws_messages_total",
			Help: "Inbound frames by routing key.",
		}, []string{"key"})
		wsDecodeDrops = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edgex_ws_decode_drops_total",
			Help: "Inbound frames dropped because they did not decode.",
		})

		r.MustRegister(wsConnects, wsReconnects, wsResubscribes, wsMessages, wsDecodeDrops)
	})
}

func incConnect(result string) {
	if wsConnects != nil {
		wsConnects.WithLabelValues(result).Inc()
	}
}

func incReconnect() {
	if wsReconnects != nil {
		wsReconnects.Inc()
	}
}

func incResubscribe() {
	if wsResubscribes != nil {
		wsResubscribes.Inc()
	}
}

func incMessage(key string) {
	if wsMessages != nil {
		wsMessages.WithLabelValues(key).Inc()
	}
}

func incDecodeDrop() {
	if wsDecodeDrops != nil {
		wsDecodeDrops.Inc()
	}
}
