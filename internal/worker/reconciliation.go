package worker

import (
	"context"
	"log/slog"
	"time"

	"storefront/internal/repo"
	"storefront/internal/service"
)

// ReconciliationWorker cancels pending orders whose payment never completed. Cancellation
// goes through the order service so stock is released and owners and admins are notified.
type ReconciliationWorker struct {
	orderRepo repo.OrderRepo
	orders    service.OrderService
	timeout   time.Duration
	interval  time.Duration
	log       *slog.Logger
}

func NewReconciliationWorker(
	orderRepo repo.OrderRepo,
	orders service.OrderService,
	timeout time.Duration,
	interval time.Duration,
	log *slog.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		orderRepo: orderRepo,
		orders:    orders,
		timeout:   timeout,
		interval:  interval,
		log:       log,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	if rw.timeout <= 0 {
		rw.log.Info("reconciliation worker disabled")
		return
	}
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.log.Info("reconciliation worker started", "timeout", rw.timeout, "interval", rw.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := rw.Sweep(ctx)
			if err != nil {
				rw.log.Error("reconciliation failed", "err", err)
				continue
			}
			if n > 0 {
				rw.log.Info("stale orders cancelled", "count", n)
			}
		}
	}
}

// Sweep runs one pass and reports how many orders were cancelled.
func (rw *ReconciliationWorker) Sweep(ctx context.Context) (int, error) {
	stuck, err := rw.orderRepo.FindStuckOrders(ctx, rw.timeout)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, order := range stuck {
		ok, err := rw.orders.CancelStale(ctx, order.ID)
		if err != nil {
			// retried on the next tick
			rw.log.Warn("cancel stale order", "order_id", order.ID, "err", err)
			continue
		}
		if !ok {
			rw.log.Debug("order moved on before cancel", "order_id", order.ID)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
