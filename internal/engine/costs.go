package engine

import (
	"context"
	"math"
)

// RunCompanyCosts deducts each rotated company's per-tick operating cost:
// every employee costs a percentage of the company balance per cycle. The
// company is stamped even when nothing is deducted so the rotation advances.
func (e *Engine) RunCompanyCosts(ctx context.Context) (int, error) {
	p := e.params.Costs
	companies, err := e.store.CompaniesByOldestCosts(ctx, p.Window)
	if err != nil {
		return 0, err
	}

	now := e.now()
	processed := 0
	for _, c := range companies {
		cost, err := e.companyTickCost(ctx, c)
		if err != nil {
			e.log.Warn("costs: company compute failed", "company_id", c.ID, "err", err)
			cost = 0
		}
		if err := e.store.ApplyCompanyCosts(ctx, c.ID, cost, now); err != nil {
			e.log.Warn("costs: company skipped", "company_id", c.ID, "err", err)
			continue
		}
		processed++
	}
	return processed, nil
}

func (e *Engine) companyTickCost(ctx context.Context, c Company) (int64, error) {
	if c.BalanceCents <= 0 {
		return 0, nil
	}
	employees, err := e.store.CompanyEmployees(ctx, c.ID, e.params.Costs.MaxEmployees)
	if err != nil {
		return 0, err
	}
	var pct float64
	for _, emp := range employees {
		if validPositive(emp.TickCostPct) {
			pct += emp.TickCostPct
		}
	}
	if pct <= 0 {
		return 0, nil
	}
	cost := int64(math.Floor(float64(c.BalanceCents) * pct / 100))
	if cost > c.BalanceCents {
		cost = c.BalanceCents
	}
	if cost < 0 {
		cost = 0
	}
	return cost, nil
}
