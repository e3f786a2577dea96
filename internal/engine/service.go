// Package engine runs the world tick for the QuickBuck economy: synthetic
// bot demand, stochastic stock and crypto pricing, company operating costs,
// loan interest accrual, and net worth recomputation, all sequenced under a
// single-holder lease.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quickbuck/internal/lease"
)

type Engine struct {
	store  Store
	lease  lease.Lease
	log    *slog.Logger
	params Params

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func New(store Store, ls lease.Lease, logger *slog.Logger, params Params) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		lease:  ls,
		log:    logger,
		params: params,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

func (e *Engine) nextFloat() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) nextNorm(stddev float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gaussian(e.rng, stddev)
}

func (e *Engine) nextIntn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

// SeedDefaults lists a starter market when no instruments exist yet.
func (e *Engine) SeedDefaults(ctx context.Context) error {
	count, err := e.store.CountInstruments(ctx, KindStock)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := e.now()
	seed := []Instrument{
		{Symbol: "COBLT", Name: "Cobalt Dynamics", Sector: "tech", CurrentPriceCents: 13_000, Liquidity: 50_000, OutstandingShares: 1_000_000},
		{Symbol: "NMBUS", Name: "Nimbus Labs", Sector: "tech", CurrentPriceCents: 9_500, Liquidity: 40_000, OutstandingShares: 800_000},
		{Symbol: "PYLON", Name: "Pylon Networks", Sector: "industrial", CurrentPriceCents: 8_000, Liquidity: 60_000, OutstandingShares: 1_200_000},
		{Symbol: "ARCFN", Name: "Arcane Finance", Sector: "finance", CurrentPriceCents: 14_500, Liquidity: 35_000, OutstandingShares: 600_000},
		{Symbol: "LUMNA", Name: "Lumina Health", Sector: "health", CurrentPriceCents: 10_200, Liquidity: 45_000, OutstandingShares: 900_000},
		{Symbol: "NEBUL", Name: "Nebula Energy", Sector: "energy", CurrentPriceCents: 9_200, Liquidity: 55_000, OutstandingShares: 1_100_000},
		{Symbol: "ZENTH", Name: "Zenith Retail", Sector: "retail", CurrentPriceCents: 7_500, Liquidity: 70_000, OutstandingShares: 1_500_000},
	}
	cryptos := []Instrument{
		{Symbol: "QBC", Name: "QuickBuck Coin", Sector: "l1", CurrentPriceCents: 420_000, Liquidity: 8_000, OutstandingShares: 21_000_000},
		{Symbol: "STNK", Name: "Stonk Token", Sector: "defi", CurrentPriceCents: 1_250, Liquidity: 120_000, OutstandingShares: 500_000_000},
		{Symbol: "GRFT", Name: "Graft Protocol", Sector: "defi", CurrentPriceCents: 8_400, Liquidity: 40_000, OutstandingShares: 90_000_000},
	}

	for i := range seed {
		seed[i].Kind = KindStock
		seed[i].FairValueCents = seed[i].CurrentPriceCents
		seed[i].MarketCapCents = seed[i].CurrentPriceCents * seed[i].OutstandingShares
		seed[i].LastUpdated = now
		if _, err := e.store.InsertInstrument(ctx, seed[i]); err != nil {
			return err
		}
	}
	for i := range cryptos {
		cryptos[i].Kind = KindCrypto
		cryptos[i].FairValueCents = cryptos[i].CurrentPriceCents
		cryptos[i].MarketCapCents = cryptos[i].CurrentPriceCents * cryptos[i].OutstandingShares
		cryptos[i].LastUpdated = now
		if _, err := e.store.InsertInstrument(ctx, cryptos[i]); err != nil {
			return err
		}
	}
	e.log.Info("seeded starter market", "stocks", len(seed), "cryptos", len(cryptos))
	return nil
}
