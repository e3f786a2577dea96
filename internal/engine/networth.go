package engine

import "context"

// RecomputeNetWorthBatch refreshes the cached net worth of one page of
// players, oldest recomputation first. A player whose valuation cannot be
// computed keeps the previous figure but is stamped anyway so the rotation
// never stalls on bad data.
func (e *Engine) RecomputeNetWorthBatch(ctx context.Context, limit int, cursor Cursor) (BatchResult, error) {
	players, next, err := e.store.PlayersByOldestNetWorth(ctx, cursor, limit)
	if err != nil {
		return BatchResult{}, err
	}

	now := e.now()
	processed := 0
	for _, pl := range players {
		netWorth, err := e.playerNetWorth(ctx, pl)
		if err != nil {
			e.log.Warn("networth: recompute failed", "player_id", pl.ID, "err", err)
			netWorth = pl.NetWorthCents
		}
		if err := e.store.SetPlayerNetWorth(ctx, pl.ID, netWorth, now); err != nil {
			e.log.Warn("networth: player skipped", "player_id", pl.ID, "err", err)
			continue
		}
		processed++
	}
	return BatchResult{Processed: processed, NextCursor: next}, nil
}

// playerNetWorth is cash plus a bounded sample of holdings and company
// equity, minus a bounded sample of active debt. Public companies contribute
// market value through their linked instrument (cached market cap when the
// lookup misses), private ones contribute raw balance.
func (e *Engine) playerNetWorth(ctx context.Context, pl Player) (int64, error) {
	p := e.params.NetWorth
	total := pl.BalanceCents

	for _, kind := range []AssetKind{KindStock, KindCrypto} {
		holdings, err := e.store.PlayerHoldings(ctx, pl.ID, kind, p.MaxHoldings)
		if err != nil {
			return 0, err
		}
		for _, h := range holdings {
			value, err := notionalCents(h.PriceCents, h.Shares)
			if err != nil {
				e.log.Warn("networth: holding skipped", "player_id", pl.ID, "instrument_id", h.InstrumentID, "err", err)
				continue
			}
			total += value
		}
	}

	companies, err := e.store.PlayerCompanies(ctx, pl.ID, p.MaxCompanies)
	if err != nil {
		return 0, err
	}
	for _, c := range companies {
		total += e.companyEquity(ctx, c)
	}

	loans, err := e.store.PlayerActiveLoans(ctx, pl.ID, p.MaxLoans)
	if err != nil {
		return 0, err
	}
	for _, ln := range loans {
		total -= ln.RemainingCents
	}
	return total, nil
}

func (e *Engine) companyEquity(ctx context.Context, c Company) int64 {
	if !c.IsPublic {
		return c.BalanceCents
	}
	if c.InstrumentID != nil {
		inst, err := e.store.InstrumentByID(ctx, *c.InstrumentID)
		if err == nil {
			if value, nerr := notionalCents(inst.CurrentPriceCents, inst.OutstandingShares); nerr == nil {
				return value
			}
		}
	}
	return c.MarketCapCents
}
