package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hnql/hnql/internal/eventbus"
	"github.com/hnql/hnql/internal/executor"
	"github.com/hnql/hnql/internal/hn"
	"github.com/hnql/hnql/internal/hnrt"
	"github.com/hnql/hnql/internal/metrics"
	"github.com/hnql/hnql/internal/otel"
	"github.com/hnql/hnql/internal/schema"
	"github.com/hnql/hnql/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GraphQL HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "HTTP listen address")
	f.Duration("timeout", 10*time.Second, "per-request timeout")
	f.Bool("pretty", false, "pretty-print JSON responses")
	f.Int64("max-body-bytes", 1<<20, "request body size limit in bytes (0 disables)")
	f.StringSlice("cors-origins", nil, "allowed CORS origins; empty disables CORS")
	f.Bool("graphiql", true, "serve the GraphiQL IDE on GET requests expecting HTML")
	f.String("hn-base-url", "", "item store base URL override (default: the public Firebase API)")
	f.Float64("hn-rate-limit", 0, "upstream requests per second (0 disables throttling)")
	f.Int("hn-rate-burst", 10, "upstream rate limit burst size")
	f.String("log-format", "text", "access log format: text or json")
	f.String("otel-endpoint", "", "OTLP collector endpoint; empty disables tracing")
	f.String("otel-service", "hnql", "OpenTelemetry service name")
	f.String("metrics-addr", "", "Prometheus /metrics listen address; empty disables metrics")

	_ = viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	logger := newLogger(viper.GetString("log-format"))

	eventbus.Use(eventbus.New())

	shutdown, err := otel.Setup(viper.GetString("otel-endpoint"), viper.GetString("otel-service"))
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if addr := viper.GetString("metrics-addr"); addr != "" {
		m := metrics.New()
		defer m.Close()
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			logger.Info("metrics listening", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics server", slog.String("error", err.Error()))
			}
		}()
	}

	var clientOpts []hn.Option
	if base := viper.GetString("hn-base-url"); base != "" {
		clientOpts = append(clientOpts, hn.WithBaseURL(base))
	}
	if rps := viper.GetFloat64("hn-rate-limit"); rps > 0 {
		clientOpts = append(clientOpts, hn.WithRateLimit(rps, viper.GetInt("hn-rate-burst")))
	}
	client := hn.NewClient(clientOpts...)

	sch, err := schema.BuildHackerNews()
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	sopts := []server.Option{
		server.WithTimeout(viper.GetDuration("timeout")),
		server.WithMaxBodyBytes(viper.GetInt64("max-body-bytes")),
		server.WithGraphiQL(viper.GetBool("graphiql")),
		server.WithLogger(logger),
	}
	if viper.GetBool("pretty") {
		sopts = append(sopts, server.WithPretty())
	}
	if origins := viper.GetStringSlice("cors-origins"); len(origins) > 0 {
		sopts = append(sopts, server.WithCORS(origins...))
	}

	h, err := server.New(func() executor.Runtime { return hnrt.NewRuntime(client) }, sch, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	addr := viper.GetString("addr")
	logger.Info("graphql listening", slog.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}

func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
