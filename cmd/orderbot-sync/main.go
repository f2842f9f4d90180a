package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/SherbornYachtClub/orderbot-sync/internal/config"
	"github.com/SherbornYachtClub/orderbot-sync/pkg/logging"
	"github.com/SherbornYachtClub/orderbot-sync/pkg/ordersync"
	"github.com/SherbornYachtClub/orderbot-sync/pkg/squarespace"
	"github.com/SherbornYachtClub/orderbot-sync/pkg/store"
	"github.com/bsm/redislock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	serve := flag.Bool("serve", false, "run an HTTP trigger server instead of a one-shot sync")
	flag.Parse()

	cfg := config.Load()
	logger := logging.Setup(logging.FromEnv())

	// Nothing can run without the API credential; fail before any
	// network or database activity.
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to pass SQUARESPACE_API_KEY. Exiting")
	}

	runner, err := buildRunner(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build sync runner")
	}

	if *serve {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("Starting sync trigger server")
		if err := http.ListenAndServe(addr, newMux(runner)); err != nil {
			logger.Fatal().Err(err).Msg("Server failed")
		}
		return
	}

	report, err := runner.Run(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Sync run failed")
		os.Exit(1)
	}
	logger.Info().
		Int("orders", report.OrdersFetched).
		Int("inserted", report.Rows.Inserted).
		Int("duplicates", report.Rows.Duplicates).
		Int("failed", report.Rows.Failed).
		Msg("Sync finished")
}

// buildRunner wires the commerce client, the store opener and the
// optional Redis run lock into a runner.
func buildRunner(cfg *config.Config) (*ordersync.Runner, error) {
	client, err := squarespace.New(squarespace.Config{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("creating commerce client: %w", err)
	}

	var locker *redislock.Client
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		locker = redislock.New(redisClient)
	}

	dsn := cfg.Database.DSN()
	return ordersync.NewRunner(ordersync.Config{
		Fetcher: client,
		OpenStore: func() (ordersync.Persister, error) {
			st, err := store.Open(dsn)
			if err != nil {
				return nil, err
			}
			return st, nil
		},
		Locker: locker,
	})
}

// newMux builds the trigger server routes: POST /sync runs one sync,
// /health and /metrics serve liveness and Prometheus scrapes.
func newMux(runner *ordersync.Runner) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/sync", syncHandler(runner))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func syncHandler(runner *ordersync.Runner) http.HandlerFunc {
	logger := logging.NewLogger("main")
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// The event carries trigger metadata only; a missing or
		// malformed body still triggers a run.
		var event ordersync.Event
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&event)
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		resp := runner.Handle(ctx, event)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}
