package engine

import "time"

// Params carries every tunable the cycle uses. Batch sizes are configuration,
// sized so a worst-case sub-step stays well under the store's per-call
// document-read ceiling; they are not load-bearing constants.
type Params struct {
	LockStaleAfter time.Duration

	Demand   DemandParams
	Costs    CostParams
	Stocks   PricingParams
	Crypto   PricingParams
	Interest InterestParams
	NetWorth NetWorthParams
}

type DemandParams struct {
	TotalBudgetCents      int64
	CompanyWindow         int
	MaxProductsPerCompany int
	MinSubBudgetCents     int64
	SweetSpotCents        int64
	MaxUnitPriceCents     int64
	DemandScale           float64
}

type CostParams struct {
	Window       int
	MaxEmployees int
}

type PricingParams struct {
	Window            int
	SubTicks          int
	SectorVolatility  map[string]float64
	DefaultVolatility float64
	ClusterThreshold  float64
	ClusterFactor     float64
	MeanReversion     float64
	MomentumWeight    float64
	MomentumBlend     float64
	SectorDriftVol    float64
	MarketTrendVol    float64
	EventProb         float64
	EventMaxMove      float64
	MaxTickChange     float64
	FairValueMultiple float64
	SMAWindow         int
	SMANoise          float64
	Spread            float64
	MaxImpact         float64
	// Below this price a non-trivial drift forces a one-cent move so
	// rounding cannot leave the instrument stuck.
	ForcedMoveBelowCents int64
}

type InterestParams struct {
	BatchLimit      int
	Batches         int
	IntervalsPerDay int
}

type NetWorthParams struct {
	BatchLimit   int
	Batches      int
	MaxHoldings  int
	MaxCompanies int
	MaxLoans     int
}

func DefaultParams() Params {
	return Params{
		LockStaleAfter: 10 * time.Minute,
		Demand: DemandParams{
			TotalBudgetCents:      500_000, // 5,000 bucks of synthetic demand per cycle
			CompanyWindow:         25,
			MaxProductsPerCompany: 12,
			MinSubBudgetCents:     500,
			SweetSpotCents:        2_500,
			MaxUnitPriceCents:     250_000,
			DemandScale:           200,
		},
		Costs: CostParams{
			Window:       25,
			MaxEmployees: 32,
		},
		Stocks: PricingParams{
			Window:            60,
			SubTicks:          6,
			SectorVolatility:  defaultSectorVolatility,
			DefaultVolatility: 0.020,
			ClusterThreshold:  0.05,
			ClusterFactor:     1.8,
			MeanReversion:     0.06,
			MomentumWeight:    0.30,
			MomentumBlend:     0.40,
			SectorDriftVol:    0.008,
			MarketTrendVol:    0.005,
			EventProb:         0.02,
			EventMaxMove:      0.15,
			MaxTickChange:     0.10,
			FairValueMultiple: 5,
			SMAWindow:         8,
			SMANoise:          0.02,
			Spread:            0.005,
			MaxImpact:         0.05,
			ForcedMoveBelowCents: 500,
		},
		Crypto: PricingParams{
			Window:            30,
			SubTicks:          6,
			SectorVolatility:  nil,
			DefaultVolatility: 0.045,
			ClusterThreshold:  0.08,
			ClusterFactor:     2.2,
			MeanReversion:     0.03,
			MomentumWeight:    0.35,
			MomentumBlend:     0.45,
			SectorDriftVol:    0.014,
			MarketTrendVol:    0.009,
			EventProb:         0.04,
			EventMaxMove:      0.30,
			MaxTickChange:     0.18,
			FairValueMultiple: 0, // no company link: fair value always tracks the SMA
			SMAWindow:         8,
			SMANoise:          0.035,
			Spread:            0.008,
			MaxImpact:         0.08,
			ForcedMoveBelowCents: 500,
		},
		Interest: InterestParams{
			BatchLimit:      200,
			Batches:         3,
			IntervalsPerDay: 72, // one cooling-off interval every 20 minutes
		},
		NetWorth: NetWorthParams{
			BatchLimit:   150,
			Batches:      3,
			MaxHoldings:  50,
			MaxCompanies: 20,
			MaxLoans:     20,
		},
	}
}

var defaultSectorVolatility = map[string]float64{
	"tech":       0.028,
	"finance":    0.020,
	"energy":     0.024,
	"health":     0.018,
	"retail":     0.016,
	"industrial": 0.015,
}
