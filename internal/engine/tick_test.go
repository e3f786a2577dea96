package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seededTickStore(t *testing.T) *memStore {
	t.Helper()
	store := newMemStore()
	companyID := store.addCompany(Company{Name: "Acme"})
	store.addProduct(Product{CompanyID: companyID, PriceCents: 900, Quality: 0.8, Active: true})
	if _, err := store.InsertInstrument(context.Background(), Instrument{
		Symbol: "ACME", Kind: KindStock, Sector: "tech",
		CurrentPriceCents: 10_000, Liquidity: 50_000, OutstandingShares: 1_000,
	}); err != nil {
		t.Fatalf("insert instrument: %v", err)
	}
	if _, err := store.InsertInstrument(context.Background(), Instrument{
		Symbol: "COIN", Kind: KindCrypto, Sector: "defi",
		CurrentPriceCents: 2_000, Liquidity: 80_000, OutstandingShares: 5_000,
	}); err != nil {
		t.Fatalf("insert instrument: %v", err)
	}
	store.addPlayer(Player{ID: "p1", BalanceCents: 100_000})
	return store
}

func TestRunCycleSequencesAndRecordsHistory(t *testing.T) {
	store := seededTickStore(t)
	e, ls := newTestEngine(store, DefaultParams())
	ctx := context.Background()

	first, err := e.RunCycle(ctx, "manual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TickNumber != 1 {
		t.Fatalf("first tick number=%d, want 1", first.TickNumber)
	}

	second, err := e.RunCycle(ctx, "scheduled")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TickNumber != 2 {
		t.Fatalf("second tick number=%d, want 2 (gapless)", second.TickNumber)
	}

	rec, err := store.LatestTickRecord(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.TickNumber != 2 || rec.Trigger != "scheduled" {
		t.Fatalf("history record: %+v", rec)
	}
	if rec.StockUpdates != 1 || rec.CryptoUpdates != 1 {
		t.Fatalf("expected both engines to run: %+v", rec)
	}

	// The lease is free again after a completed cycle.
	if err := ls.TryAcquire(ctx, "probe", time.Minute); err != nil {
		t.Fatalf("lease still held after cycle: %v", err)
	}
}

func TestRunCycleRefusesWhileLockHeld(t *testing.T) {
	store := seededTickStore(t)
	e, ls := newTestEngine(store, DefaultParams())
	ctx := context.Background()

	if err := ls.TryAcquire(ctx, "other-runner", 10*time.Minute); err != nil {
		t.Fatalf("setup acquire: %v", err)
	}

	if _, err := e.RunCycle(ctx, "manual"); !errors.Is(err, ErrCycleRunning) {
		t.Fatalf("expected ErrCycleRunning, got %v", err)
	}
	if n, _ := store.LastTickNumber(ctx); n != 0 {
		t.Fatalf("a refused cycle must not write history, got tick %d", n)
	}
}

func TestRunCycleReleasesLeaseOnFatalError(t *testing.T) {
	store := seededTickStore(t)
	store.failTickRecord = true
	e, _ := newTestEngine(store, DefaultParams())
	ctx := context.Background()

	if _, err := e.RunCycle(ctx, "manual"); err == nil {
		t.Fatalf("expected the history write to fail the cycle")
	}

	// The failed cycle held nothing back: the next attempt acquires the
	// lease and reuses the unclaimed tick number.
	store.failTickRecord = false
	result, err := e.RunCycle(ctx, "manual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TickNumber != 1 {
		t.Fatalf("tick number=%d, want 1 (failed cycles leave no gap)", result.TickNumber)
	}
}

func TestRunCycleRunsEmptyWorld(t *testing.T) {
	e, _ := newTestEngine(newMemStore(), DefaultParams())
	result, err := e.RunCycle(context.Background(), "manual")
	if err != nil {
		t.Fatalf("an empty world should tick cleanly: %v", err)
	}
	if result.TickNumber != 1 || result.PurchaseCount != 0 {
		t.Fatalf("got %+v", result)
	}
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	store := newMemStore()
	e, _ := newTestEngine(store, DefaultParams())
	ctx := context.Background()

	if err := e.SeedDefaults(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stocks, _ := store.CountInstruments(ctx, KindStock)
	cryptos, _ := store.CountInstruments(ctx, KindCrypto)
	if stocks == 0 || cryptos == 0 {
		t.Fatalf("expected a seeded market, got %d stocks %d cryptos", stocks, cryptos)
	}

	if err := e.SeedDefaults(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, _ := store.CountInstruments(ctx, KindStock)
	if again != stocks {
		t.Fatalf("reseeding grew the market from %d to %d", stocks, again)
	}
}

func TestRunCompanyCostsDeductsAndStamps(t *testing.T) {
	store := newMemStore()
	companyID := store.addCompany(Company{Name: "Payroll", BalanceCents: 10_000})
	store.employees[companyID] = []Employee{
		{CompanyID: companyID, Name: "a", TickCostPct: 1.5},
		{CompanyID: companyID, Name: "b", TickCostPct: 0.5},
	}
	idleID := store.addCompany(Company{Name: "Solo", BalanceCents: 10_000})

	e, _ := newTestEngine(store, DefaultParams())
	processed, err := e.RunCompanyCosts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed=%d, want 2", processed)
	}

	// floor(10000 x 2% ) = 200 deducted.
	if got := store.company(companyID).BalanceCents; got != 9_800 {
		t.Fatalf("balance=%d, want 9800", got)
	}
	idle := store.company(idleID)
	if idle.BalanceCents != 10_000 {
		t.Fatalf("company with no employees was charged: %d", idle.BalanceCents)
	}
	if idle.LastCostsAt.IsZero() {
		t.Fatalf("zero-cost company must still be stamped")
	}
}
