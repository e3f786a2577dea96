package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quickbuck/internal/lease"
)

// RunCycle executes one full world tick under the singleton lease. A second
// trigger arriving mid-cycle fails fast with ErrCycleRunning instead of
// queueing. Sub-steps run strictly in order, each as its own bounded unit of
// work; a fatal sub-step error aborts the cycle, but the lease is always
// released on the way out. The history record is written only for cycles
// that complete.
func (e *Engine) RunCycle(ctx context.Context, trigger string) (TickResult, error) {
	owner := uuid.NewString()
	if err := e.lease.TryAcquire(ctx, owner, e.params.LockStaleAfter); err != nil {
		if errors.Is(err, lease.ErrHeld) {
			return TickResult{}, ErrCycleRunning
		}
		return TickResult{}, fmt.Errorf("tick: acquire lease: %w", err)
	}
	defer func() {
		// Release with a fresh context so a cancelled cycle still frees
		// the lease.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.lease.Release(releaseCtx, owner); err != nil {
			e.log.Error("tick: lease release failed", "err", err)
		}
	}()

	started := e.now()
	last, err := e.store.LastTickNumber(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("tick: read history: %w", err)
	}
	tickNumber := last + 1
	log := e.log.With("tick", tickNumber, "trigger", trigger)
	log.Info("cycle started")

	purchases, budgetSpent, err := e.SimulateDemand(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("tick %d: demand: %w", tickNumber, err)
	}

	costed, err := e.RunCompanyCosts(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("tick %d: company costs: %w", tickNumber, err)
	}

	stockUpdates, err := e.AdvanceStockPrices(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("tick %d: stock prices: %w", tickNumber, err)
	}
	cryptoUpdates, err := e.AdvanceCryptoPrices(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("tick %d: crypto prices: %w", tickNumber, err)
	}

	interestApplied := 0
	cursor := Cursor("")
	for i := 0; i < e.params.Interest.Batches; i++ {
		batch, err := e.AccrueInterestBatch(ctx, e.params.Interest.BatchLimit, cursor)
		if err != nil {
			return TickResult{}, fmt.Errorf("tick %d: interest batch %d: %w", tickNumber, i, err)
		}
		interestApplied += batch.Processed
		cursor = batch.NextCursor
		if cursor == "" {
			break
		}
	}

	recomputed := 0
	cursor = ""
	for i := 0; i < e.params.NetWorth.Batches; i++ {
		batch, err := e.RecomputeNetWorthBatch(ctx, e.params.NetWorth.BatchLimit, cursor)
		if err != nil {
			return TickResult{}, fmt.Errorf("tick %d: net worth batch %d: %w", tickNumber, i, err)
		}
		recomputed += batch.Processed
		cursor = batch.NextCursor
		if cursor == "" {
			break
		}
	}

	rec := TickRecord{
		TickNumber:    tickNumber,
		RanAt:         started,
		Trigger:       trigger,
		PurchaseCount: len(purchases),
		BudgetSpent:   budgetSpent,
		StockUpdates:  len(stockUpdates),
		CryptoUpdates: len(cryptoUpdates),
		TopMovers:     topMovers(stockUpdates, 5),
	}
	if err := e.store.InsertTickRecord(ctx, rec); err != nil {
		return TickResult{}, fmt.Errorf("tick %d: record history: %w", tickNumber, err)
	}

	log.Info("cycle complete",
		"purchases", len(purchases),
		"budget_spent_cents", budgetSpent,
		"companies_costed", costed,
		"stock_updates", len(stockUpdates),
		"crypto_updates", len(cryptoUpdates),
		"loans_accrued", interestApplied,
		"players_recomputed", recomputed,
		"elapsed", e.now().Sub(started).String(),
	)

	return TickResult{
		TickNumber:        tickNumber,
		PurchaseCount:     len(purchases),
		StockUpdateCount:  len(stockUpdates),
		CryptoUpdateCount: len(cryptoUpdates),
	}, nil
}
