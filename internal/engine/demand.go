package engine

import (
	"context"
	"math"

	"github.com/google/uuid"
)

// minScore is the attractiveness below which a listing is not worth a bot's
// attention at all.
const minScore = 0.05

// SimulateDemand spends the cycle's synthetic-demand budget against a
// rotation window of companies, oldest serviced first. A bad listing or a
// failed purchase is logged and skipped; every visited company is stamped so
// the rotation advances even when nothing was bought from it.
func (e *Engine) SimulateDemand(ctx context.Context) ([]Purchase, int64, error) {
	p := e.params.Demand
	companies, err := e.store.CompaniesByOldestBotPurchase(ctx, p.CompanyWindow)
	if err != nil {
		return nil, 0, err
	}
	if len(companies) == 0 {
		return nil, 0, nil
	}

	// Random per-company weights, normalized so sub-budgets sum to the
	// total budget.
	weights := make([]float64, len(companies))
	var sum float64
	for i := range weights {
		weights[i] = 0.1 + e.nextFloat()
		sum += weights[i]
	}

	var (
		executed []Purchase
		spent    int64
		visited  = make([]int64, 0, len(companies))
	)
	for i, c := range companies {
		visited = append(visited, c.ID)
		subBudget := int64(weights[i] / sum * float64(p.TotalBudgetCents))
		if subBudget < p.MinSubBudgetCents {
			continue
		}
		purchases, companySpent, err := e.buyFromCompany(ctx, c, subBudget)
		if err != nil {
			e.log.Warn("demand: company skipped", "company_id", c.ID, "err", err)
			continue
		}
		executed = append(executed, purchases...)
		spent += companySpent
	}

	if err := e.store.TouchCompanyBotPurchase(ctx, visited, e.now()); err != nil {
		return executed, spent, err
	}
	return executed, spent, nil
}

// buyFromCompany converts one company's sub-budget into purchases across its
// eligible listings, splitting the sub-budget evenly and carrying any
// residual forward to later listings.
func (e *Engine) buyFromCompany(ctx context.Context, c Company, subBudget int64) ([]Purchase, int64, error) {
	p := e.params.Demand
	products, err := e.store.ActiveProductsByCompany(ctx, c.ID, p.MaxProductsPerCompany)
	if err != nil {
		return nil, 0, err
	}

	eligible := products[:0]
	for _, prod := range products {
		if !e.eligibleListing(prod) {
			continue
		}
		eligible = append(eligible, prod)
	}
	if len(eligible) == 0 {
		return nil, 0, nil
	}

	perListing := subBudget / int64(len(eligible))
	remaining := subBudget
	now := e.now()

	var executed []Purchase
	for _, prod := range eligible {
		alloc := perListing
		if alloc > remaining {
			alloc = remaining
		}
		qty := alloc / prod.PriceCents
		if prod.Stock != nil && qty > *prod.Stock {
			qty = *prod.Stock
		}
		if prod.MaxPerOrder > 0 && qty > prod.MaxPerOrder {
			qty = prod.MaxPerOrder
		}
		if qty <= 0 {
			continue
		}
		total, err := notionalCents(prod.PriceCents, qty)
		if err != nil || total > remaining {
			e.log.Warn("demand: listing skipped", "product_id", prod.ID, "err", err)
			continue
		}
		purchase := Purchase{
			ID:         uuid.NewString(),
			ProductID:  prod.ID,
			CompanyID:  c.ID,
			Quantity:   qty,
			UnitCents:  prod.PriceCents,
			TotalCents: total,
			At:         now,
		}
		if err := e.store.RecordPurchase(ctx, purchase); err != nil {
			e.log.Warn("demand: purchase failed", "product_id", prod.ID, "err", err)
			continue
		}
		executed = append(executed, purchase)
		remaining -= total
		if remaining <= 0 {
			break
		}
	}
	return executed, subBudget - remaining, nil
}

func (e *Engine) eligibleListing(prod Product) bool {
	p := e.params.Demand
	if !prod.Active || prod.Archived {
		return false
	}
	if prod.PriceCents < MinPriceCents || prod.PriceCents > p.MaxUnitPriceCents {
		return false
	}
	if prod.Stock != nil && *prod.Stock <= 0 {
		return false
	}
	return listingScore(prod, p) >= minScore
}

// listingScore blends quality (40%), log-normal price preference around the
// sweet spot (30%), historical demand capped at 1 (20%), and a constant
// floor (10%), scaled down for expensive items.
func listingScore(prod Product, p DemandParams) float64 {
	demand := math.Min(1, float64(prod.TotalSold)/p.DemandScale)
	score := 0.4*prod.Quality +
		0.3*pricePreference(prod.PriceCents, p.SweetSpotCents) +
		0.2*demand +
		0.1
	return score * unitPricePenalty(prod.PriceCents, p.SweetSpotCents)
}
