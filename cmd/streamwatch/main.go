// streamwatch connects to the edgeX quote stream, follows the configured
// topics across reconnects, and serves Prometheus metrics about the
// session. It doubles as a smoke test for credentials: with a private
// stream configured it performs the signed handshake and surfaces
// account events.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/edgex-exchange/edgex-sdk-go/internal/config"
	"github.com/edgex-exchange/edgex-sdk-go/internal/version"
	"github.com/edgex-exchange/edgex-sdk-go/pkg/rest"
	"github.com/edgex-exchange/edgex-sdk-go/pkg/signing"
	"github.com/edgex-exchange/edgex-sdk-go/pkg/ws"
)

func main() {
	configPath := flag.String("config", "configs/streamwatch.yaml", "path to config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting streamwatch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("config", *configPath),
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("instance_id", cfg.Instance.ID),
		zap.String("rest_url", cfg.API.RestURL),
		zap.String("ws_url", cfg.API.WSURL),
		zap.Bool("private", cfg.Stream.Private),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// Probe REST connectivity and clock skew before opening the stream.
	restClient := rest.NewClient(cfg.API.RestURL, cfg.API.AccountID, signing.PrivateKey(cfg.API.SigningKey),
		rest.WithLogger(logger),
		rest.WithTimeout(cfg.API.Timeout),
		rest.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	serverTime, err := restClient.GetServerTime(ctx)
	if err != nil {
		logger.Fatal("failed to get server time", zap.Error(err))
	}
	skew := time.Since(time.UnixMilli(serverTime.TimeMillis))
	logger.Info("server time", zap.Int64("time_millis", serverTime.TimeMillis), zap.Duration("skew", skew))

	sess, err := ws.NewSession(ws.Config{
		URL:                streamURL(cfg),
		Private:            cfg.Stream.Private,
		AccountID:          cfg.API.AccountID,
		SigningKey:         signing.PrivateKey(cfg.API.SigningKey),
		PingInterval:       cfg.Stream.PingInterval,
		ReconnectBaseDelay: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Stream.ReconnectMaxDelay,
		Logger:             logger,
	})
	if err != nil {
		logger.Fatal("failed to create session", zap.Error(err))
	}

	if err := sess.Connect(ctx); err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer sess.Close()

	if cfg.Stream.Private {
		sess.OnMessage("trade-event", func(message []byte) {
			logger.Info("account event", zap.ByteString("payload", message))
		})
	} else {
		for _, topic := range cfg.Stream.Topics {
			channel := topic.Channel
			err := sess.Subscribe(channel, topic.Params, func(message []byte) {
				logger.Debug("quote event", zap.String("channel", channel), zap.Int("bytes", len(message)))
			})
			if err != nil {
				logger.Fatal("failed to subscribe", zap.String("channel", channel), zap.Error(err))
			}
			logger.Info("subscribed", zap.String("channel", channel))
		}
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		state := sess.State()
		if state != ws.StateConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintln(w, state.String())
	})

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}
	go func() {
		logger.Info("starting metrics server", zap.Int("port", cfg.Metrics.Port), zap.String("path", cfg.Metrics.Path))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(err))
	}
	if err := sess.Close(); err != nil {
		logger.Warn("session close failed", zap.Error(err))
	}
	logger.Info("streamwatch stopped")
}

func streamURL(cfg *config.StreamwatchConfig) string {
	if cfg.Stream.Private {
		return cfg.API.WSURL + "/api/v1/private/ws"
	}
	return cfg.API.WSURL + "/api/v1/public/ws"
}
