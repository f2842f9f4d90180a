package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/SherbornYachtClub/orderbot-sync/pkg/squarespace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

// Prometheus metrics for persistence operations.
var (
	rowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_rows_total",
		Help: "Line item rows processed by outcome (inserted, duplicate, failed)",
	}, []string{"outcome"})

	ordersCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_orders_committed_total",
		Help: "Orders whose line items were committed",
	})
)

// Result reports what happened to each row of a batch so operators and
// tests can assert on outcomes without parsing logs.
type Result struct {
	// Inserted is the number of rows written.
	Inserted int

	// Duplicates is the number of rows skipped because a prior run
	// already stored the line item id.
	Duplicates int

	// Failed is the number of rows skipped for other statement-level
	// reasons.
	Failed int
}

// InsertOrders persists every line item of every order, one row per
// line item.
//
// Each order is one transaction: a crash mid-run leaves fully-committed
// orders intact and only the in-flight order's writes at risk. Within
// an order, each insert runs inside a savepoint so a failing statement
// is skipped without poisoning the rest of the order's transaction.
// A duplicate line item id is an expected no-op, not an error.
func (s *Store) InsertOrders(ctx context.Context, orders []squarespace.Order) (Result, error) {
	var result Result

	for _, order := range orders {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for i, li := range order.LineItems {
				row := Flatten(order, li)
				sp := fmt.Sprintf("line_item_%d", i)

				// Issued via Exec, not tx.SavePoint: the postgres
				// dialector discards savepoint statement errors, and a
				// failing savepoint means the transaction is already
				// aborted and must not be committed.
				if err := tx.Exec("SAVEPOINT " + sp).Error; err != nil {
					return fmt.Errorf("savepoint: %w", err)
				}

				err := tx.Create(&row).Error
				if err == nil {
					result.Inserted++
					rowsTotal.WithLabelValues("inserted").Inc()
					continue
				}

				if rbErr := tx.Exec("ROLLBACK TO SAVEPOINT " + sp).Error; rbErr != nil {
					// Transaction is unusable, give up on this order.
					return fmt.Errorf("rollback to savepoint: %w", rbErr)
				}

				if errors.Is(err, gorm.ErrDuplicatedKey) {
					s.logger.Info().
						Str("order_number", order.OrderNumber).
						Str("line_item_id", li.ID).
						Msg("Caught duplicate line item, skipping")
					result.Duplicates++
					rowsTotal.WithLabelValues("duplicate").Inc()
					continue
				}

				s.logger.Error().
					Err(err).
					Str("order_number", order.OrderNumber).
					Str("line_item_id", li.ID).
					Msg("Failed to insert line item, skipping")
				result.Failed++
				rowsTotal.WithLabelValues("failed").Inc()
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("order %s: %w", order.OrderNumber, err)
		}
		ordersCommittedTotal.Inc()
	}

	s.logger.Info().
		Int("inserted", result.Inserted).
		Int("duplicates", result.Duplicates).
		Int("failed", result.Failed).
		Msg("Successful load out")

	return result, nil
}
