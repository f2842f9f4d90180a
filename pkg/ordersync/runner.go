// Package ordersync orchestrates one sync run: fetch the year's orders
// from the commerce API, then persist them as line item rows.
package ordersync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SherbornYachtClub/orderbot-sync/pkg/logging"
	"github.com/SherbornYachtClub/orderbot-sync/pkg/squarespace"
	"github.com/SherbornYachtClub/orderbot-sync/pkg/store"
	"github.com/bsm/redislock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sync_runs_total",
	Help: "Sync runs by outcome (success, empty, lock_held, fetch_failed, store_failed)",
}, []string{"outcome"})

// Errors classifying a failed run.
var (
	// ErrLockHeld is returned when another instance holds the run lock.
	ErrLockHeld = errors.New("another sync run is in progress")

	// ErrFetchFailed wraps any failure while paginating the orders API.
	ErrFetchFailed = errors.New("fetching orders failed")

	// ErrStoreFailed wraps any failure opening or writing the store.
	ErrStoreFailed = errors.New("persisting orders failed")
)

const (
	// lockKey serializes scheduled runs across instances.
	lockKey = "orderbot:sync"

	// lockTTL bounds how long a crashed run can block the next one.
	lockTTL = 10 * time.Minute
)

// Fetcher produces the full order set for the current year window.
type Fetcher interface {
	OrdersForCurrentYear(ctx context.Context) ([]squarespace.Order, error)
}

// Persister writes a batch of orders and releases its connection.
type Persister interface {
	InsertOrders(ctx context.Context, orders []squarespace.Order) (store.Result, error)
	Close() error
}

// StoreOpener connects to the store at persistence time, so a fetch
// that yields nothing never touches the database.
type StoreOpener func() (Persister, error)

// Config holds the runner configuration.
type Config struct {
	// Fetcher is the commerce API client (REQUIRED).
	Fetcher Fetcher

	// OpenStore opens the persistence store (REQUIRED).
	OpenStore StoreOpener

	// Locker enables the cross-instance run lock. Nil disables locking.
	Locker *redislock.Client
}

// Runner executes sync runs.
type Runner struct {
	fetcher   Fetcher
	openStore StoreOpener
	locker    *redislock.Client
	logger    zerolog.Logger
}

// NewRunner creates a new sync runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.OpenStore == nil {
		return nil, fmt.Errorf("store opener is required")
	}

	return &Runner{
		fetcher:   cfg.Fetcher,
		openStore: cfg.OpenStore,
		locker:    cfg.Locker,
		logger:    logging.NewLogger("ordersync"),
	}, nil
}

// Report summarizes one completed run.
type Report struct {
	OrdersFetched int
	Rows          store.Result
}

// Run performs one complete fetch-then-persist cycle. Fetch fully
// materializes before any row is written. There is no retry anywhere;
// every failure is terminal for its unit of work.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	startTime := time.Now()

	if r.locker != nil {
		lock, err := r.locker.Obtain(ctx, lockKey, lockTTL, nil)
		if err == redislock.ErrNotObtained {
			r.logger.Warn().Msg("Run lock already held, skipping this run")
			runsTotal.WithLabelValues("lock_held").Inc()
			return Report{}, ErrLockHeld
		} else if err != nil {
			// Redis being down should not stop the sync.
			r.logger.Warn().Err(err).Msg("Could not reach run lock, proceeding without it")
		} else {
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					r.logger.Warn().Err(err).Msg("Failed to release run lock")
				}
			}()
		}
	}

	orders, err := r.fetcher.OrdersForCurrentYear(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to get new orders")
		runsTotal.WithLabelValues("fetch_failed").Inc()
		return Report{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	if len(orders) == 0 {
		runsTotal.WithLabelValues("empty").Inc()
		return Report{}, nil
	}

	st, err := r.openStore()
	if err != nil {
		r.logger.Error().Err(err).Msg("Database connection error")
		runsTotal.WithLabelValues("store_failed").Inc()
		return Report{OrdersFetched: len(orders)}, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to close store")
		}
	}()

	rows, err := st.InsertOrders(ctx, orders)
	report := Report{OrdersFetched: len(orders), Rows: rows}
	if err != nil {
		runsTotal.WithLabelValues("store_failed").Inc()
		return report, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	r.logger.Info().
		Int("orders", report.OrdersFetched).
		Int("inserted", rows.Inserted).
		Int("duplicates", rows.Duplicates).
		Int("failed", rows.Failed).
		Dur("duration", time.Since(startTime)).
		Msg("Sync run complete")
	runsTotal.WithLabelValues("success").Inc()

	return report, nil
}
