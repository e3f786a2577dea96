package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// AdvanceStockPrices runs one pricing pass over the oldest-updated window of
// stocks and returns the per-instrument price updates.
func (e *Engine) AdvanceStockPrices(ctx context.Context) ([]PriceUpdate, error) {
	return e.advancePrices(ctx, KindStock, e.params.Stocks)
}

// AdvanceCryptoPrices is the analogous pass over crypto instruments. Same
// pipeline, hotter parameters, no company-fundamental anchor.
func (e *Engine) AdvanceCryptoPrices(ctx context.Context) ([]PriceUpdate, error) {
	return e.advancePrices(ctx, KindCrypto, e.params.Crypto)
}

func (e *Engine) advancePrices(ctx context.Context, kind AssetKind, p PricingParams) ([]PriceUpdate, error) {
	instruments, err := e.store.InstrumentsByOldestUpdate(ctx, kind, p.Window)
	if err != nil {
		return nil, err
	}
	if len(instruments) == 0 {
		return nil, nil
	}

	// One market-wide trend draw per cycle; one correlated drift draw per
	// sector, shared by every instrument in it.
	marketTrend := e.nextNorm(p.MarketTrendVol)
	sectorDrift := make(map[string]float64)
	for _, inst := range instruments {
		if _, ok := sectorDrift[inst.Sector]; !ok {
			sectorDrift[inst.Sector] = e.nextNorm(p.SectorDriftVol)
		}
	}

	updates := make([]PriceUpdate, 0, len(instruments))
	for _, inst := range instruments {
		upd, err := e.advanceInstrument(ctx, inst, p, sectorDrift[inst.Sector], marketTrend)
		if err != nil {
			e.log.Warn("pricing: instrument skipped", "symbol", inst.Symbol, "err", err)
			continue
		}
		updates = append(updates, upd)
	}
	return updates, nil
}

func (e *Engine) advanceInstrument(ctx context.Context, inst Instrument, p PricingParams, drift, trend float64) (PriceUpdate, error) {
	old := inst.CurrentPriceCents
	if old < MinPriceCents {
		old = MinPriceCents
	}

	fair, err := e.fairValue(ctx, inst, p)
	if err != nil {
		return PriceUpdate{}, err
	}

	vol := p.DefaultVolatility
	if v, ok := p.SectorVolatility[inst.Sector]; ok {
		vol = v
	}
	// Volatility clustering: a large prior move amplifies this cycle's.
	if math.Abs(inst.LastChange) > p.ClusterThreshold {
		vol *= p.ClusterFactor
	}

	// Pre-draw the optional news shock and the sub-tick it lands on.
	eventRet := 0.0
	eventAt := -1
	if p.EventProb > 0 && e.nextFloat() < p.EventProb {
		e.mu.Lock()
		eventRet = eventShock(e.rng, p.EventMaxMove)
		eventAt = e.rng.Intn(p.SubTicks)
		e.mu.Unlock()
	}

	dt := 1.0 / float64(p.SubTicks)
	price := old
	high, low := old, old
	for i := 0; i < p.SubTicks; i++ {
		ret := meanReversionPull(price, fair, p.MeanReversion) * dt
		ret += p.MomentumWeight * inst.Momentum * dt
		ret += drift * dt
		ret += trend * dt
		ret += e.nextNorm(vol * math.Sqrt(dt))
		if i == eventAt {
			ret += eventRet
		}
		ret = clampChange(ret, p.MaxTickChange*dt)
		next := applyReturn(price, ret)
		// Cheap instruments round to no movement; force a one-cent step
		// when the underlying direction is non-trivial.
		if next == price && price < p.ForcedMoveBelowCents && math.Abs(ret) > 1e-4 {
			if ret > 0 {
				next = price + 1
			} else if price > MinPriceCents {
				next = price - 1
			}
		}
		price = next
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
	}

	// The per-cycle cap: whatever the sub-ticks compounded to, the close
	// stays within MaxTickChange of the opening price (at least one cent
	// of room so the floor rule can still act).
	bound := int64(math.Round(float64(old) * p.MaxTickChange))
	if bound < 1 {
		bound = 1
	}
	if price > old+bound {
		price = old + bound
	}
	if price < old-bound {
		price = old - bound
	}
	if price < MinPriceCents {
		price = MinPriceCents
	}
	if high < price {
		high = price
	}
	if low > price {
		low = price
	}

	change := float64(price-old) / float64(old)
	inst.CurrentPriceCents = price
	inst.FairValueCents = fair
	inst.LastChange = change
	inst.Momentum = ema(inst.Momentum, change, p.MomentumBlend)
	inst.LastUpdated = e.now()

	marketCap, err := notionalCents(price, inst.OutstandingShares)
	if err != nil {
		return PriceUpdate{}, err
	}
	inst.MarketCapCents = marketCap

	if err := e.store.UpdateInstrumentPrice(ctx, inst); err != nil {
		return PriceUpdate{}, err
	}
	volume := int64(float64(inst.OutstandingShares) * (0.001 + 0.01*math.Abs(change) + 0.002*e.nextFloat()))
	if err := e.store.InsertCandle(ctx, Candle{
		InstrumentID: inst.ID,
		OpenCents:    old,
		HighCents:    high,
		LowCents:     low,
		CloseCents:   price,
		Volume:       volume,
		TickAt:       inst.LastUpdated,
	}); err != nil {
		return PriceUpdate{}, err
	}
	// Equity stays synced with its traded price.
	if inst.CompanyID != nil {
		if err := e.store.SetCompanyMarketCap(ctx, *inst.CompanyID, marketCap); err != nil {
			return PriceUpdate{}, err
		}
	}

	return PriceUpdate{
		Symbol:         inst.Symbol,
		OldPriceCents:  old,
		NewPriceCents:  price,
		ChangeFraction: change,
	}, nil
}

// fairValue anchors the mean-reversion pull: five times book balance per
// share for company-linked instruments, otherwise a noisy short moving
// average of recent closes.
func (e *Engine) fairValue(ctx context.Context, inst Instrument, p PricingParams) (int64, error) {
	if inst.CompanyID != nil && p.FairValueMultiple > 0 && inst.OutstandingShares > 0 {
		comp, err := e.store.CompanyByID(ctx, *inst.CompanyID)
		if err == nil {
			fv := p.FairValueMultiple * float64(comp.BalanceCents) / float64(inst.OutstandingShares)
			if validPositive(fv) {
				return int64(math.Max(float64(MinPriceCents), math.Round(fv))), nil
			}
			return MinPriceCents, nil
		}
		// Fall through to the moving average when the link is broken.
	}

	closes, err := e.store.RecentCloses(ctx, inst.ID, p.SMAWindow)
	if err != nil {
		return 0, err
	}
	if len(closes) == 0 {
		return inst.CurrentPriceCents, nil
	}
	var sum int64
	for _, c := range closes {
		sum += c
	}
	avg := float64(sum) / float64(len(closes))
	fv := avg * (1 + e.nextNorm(p.SMANoise))
	if !validPositive(fv) {
		return inst.CurrentPriceCents, nil
	}
	if fv < float64(MinPriceCents) {
		fv = float64(MinPriceCents)
	}
	return int64(math.Round(fv)), nil
}

// QuoteTrade prices a prospective buy or sell at the spread-adjusted quote
// and reports the resting-price impact the trade would leave.
func (e *Engine) QuoteTrade(ctx context.Context, symbol string, shares int64, side string) (Quote, error) {
	inst, err := e.store.InstrumentBySymbol(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	p := e.params.Stocks
	if inst.Kind == KindCrypto {
		p = e.params.Crypto
	}
	direction := 1
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "", "buy":
	case "sell":
		direction = -1
	default:
		return Quote{}, fmt.Errorf("side must be buy or sell: %w", ErrValidation)
	}
	if shares < 0 {
		return Quote{}, fmt.Errorf("shares must be >= 0: %w", ErrValidation)
	}

	price := inst.CurrentPriceCents
	buy := applyReturn(price, p.Spread)
	sell := applyReturn(price, -p.Spread)
	return Quote{
		Symbol:         inst.Symbol,
		PriceCents:     price,
		BuyCents:       buy,
		SellCents:      sell,
		Shares:         shares,
		ImpactFraction: priceImpact(float64(shares), inst.Liquidity, direction, p.MaxImpact),
	}, nil
}

// topMovers keeps the n largest absolute movers for the history record.
func topMovers(updates []PriceUpdate, n int) []PriceUpdate {
	if len(updates) == 0 {
		return nil
	}
	sorted := make([]PriceUpdate, len(updates))
	copy(sorted, updates)
	sort.Slice(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].ChangeFraction) > math.Abs(sorted[j].ChangeFraction)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
