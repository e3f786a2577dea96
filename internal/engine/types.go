package engine

import "time"

type AssetKind string

const (
	KindStock  AssetKind = "stock"
	KindCrypto AssetKind = "crypto"
)

// Instrument is one tradable asset. Prices are integer cents; CurrentPrice
// never drops below one cent while the instrument trades.
type Instrument struct {
	ID                int64      `json:"id"`
	Symbol            string     `json:"symbol"`
	Name              string     `json:"name"`
	Kind              AssetKind  `json:"kind"`
	Sector            string     `json:"sector"`
	CurrentPriceCents int64      `json:"current_price_cents"`
	FairValueCents    int64      `json:"fair_value_cents"`
	Volatility        float64    `json:"volatility"`
	Momentum          float64    `json:"momentum"`
	Liquidity         float64    `json:"liquidity"`
	OutstandingShares int64      `json:"outstanding_shares"`
	MarketCapCents    int64      `json:"market_cap_cents"`
	LastChange        float64    `json:"last_change"`
	LastUpdated       time.Time  `json:"last_updated"`
	CompanyID         *int64     `json:"company_id,omitempty"`
}

// Candle is one OHLCV point for one instrument over one tick. Append-only.
type Candle struct {
	InstrumentID int64     `json:"instrument_id"`
	OpenCents    int64     `json:"open_cents"`
	HighCents    int64     `json:"high_cents"`
	LowCents     int64     `json:"low_cents"`
	CloseCents   int64     `json:"close_cents"`
	Volume       int64     `json:"volume"`
	TickAt       time.Time `json:"tick_at"`
}

// Product is a marketplace listing the demand allocator buys against.
// Stock is nil for unlimited inventory.
type Product struct {
	ID                int64  `json:"id"`
	CompanyID         int64  `json:"company_id"`
	Name              string `json:"name"`
	PriceCents        int64  `json:"price_cents"`
	Stock             *int64 `json:"stock,omitempty"`
	MaxPerOrder       int64  `json:"max_per_order"`
	Quality           float64 `json:"quality"`
	TotalSold         int64  `json:"total_sold"`
	TotalRevenueCents int64  `json:"total_revenue_cents"`
	Active            bool   `json:"active"`
	Archived          bool   `json:"archived"`
}

type Company struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	OwnerID         string    `json:"owner_id"`
	BalanceCents    int64     `json:"balance_cents"`
	IsPublic        bool      `json:"is_public"`
	MarketCapCents  int64     `json:"market_cap_cents"`
	InstrumentID    *int64    `json:"instrument_id,omitempty"`
	LastBotPurchase time.Time `json:"last_bot_purchase"`
	LastCostsAt     time.Time `json:"last_costs_at"`
}

type Employee struct {
	ID          int64   `json:"id"`
	CompanyID   int64   `json:"company_id"`
	Name        string  `json:"name"`
	TickCostPct float64 `json:"tick_cost_pct"`
}

type LoanStatus string

const (
	LoanActive LoanStatus = "active"
	LoanClosed LoanStatus = "closed"
)

type Loan struct {
	ID                   int64      `json:"id"`
	PlayerID             string     `json:"player_id"`
	RemainingCents       int64      `json:"remaining_cents"`
	DailyRatePct         float64    `json:"daily_rate_pct"`
	AccruedInterestCents int64      `json:"accrued_interest_cents"`
	LastInterestApplied  time.Time  `json:"last_interest_applied"`
	Status               LoanStatus `json:"status"`
}

// Player.NetWorthCents is a cached figure recomputed by rotation; the cash
// balance is authoritative, the net worth is not.
type Player struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	BalanceCents       int64     `json:"balance_cents"`
	NetWorthCents      int64     `json:"net_worth_cents"`
	LastNetWorthUpdate time.Time `json:"last_net_worth_update"`
}

// HoldingValue is the priced view of one holding used by the aggregator.
type HoldingValue struct {
	InstrumentID int64
	Shares       int64
	PriceCents   int64
}

// Purchase is the immutable record of one simulated bot purchase.
type Purchase struct {
	ID         string    `json:"id"`
	ProductID  int64     `json:"product_id"`
	CompanyID  int64     `json:"company_id"`
	Quantity   int64     `json:"quantity"`
	UnitCents  int64     `json:"unit_cents"`
	TotalCents int64     `json:"total_cents"`
	At         time.Time `json:"at"`
}

// PriceUpdate summarizes one instrument's move during a cycle.
type PriceUpdate struct {
	Symbol         string  `json:"symbol"`
	OldPriceCents  int64   `json:"old_price_cents"`
	NewPriceCents  int64   `json:"new_price_cents"`
	ChangeFraction float64 `json:"change_fraction"`
}

// TickRecord is the append-only history row written once per successful cycle.
type TickRecord struct {
	TickNumber      int64         `json:"tick_number"`
	RanAt           time.Time     `json:"ran_at"`
	Trigger         string        `json:"trigger"`
	PurchaseCount   int           `json:"purchase_count"`
	BudgetSpent     int64         `json:"budget_spent_cents"`
	StockUpdates    int           `json:"stock_updates"`
	CryptoUpdates   int           `json:"crypto_updates"`
	TopMovers       []PriceUpdate `json:"top_movers,omitempty"`
}

// TickResult is the cycle result payload consumed by dashboards.
type TickResult struct {
	TickNumber       int64 `json:"tick_number"`
	PurchaseCount    int   `json:"purchase_count"`
	StockUpdateCount int   `json:"stock_update_count"`
	CryptoUpdateCount int  `json:"crypto_update_count"`
}

// Quote is the trade-time view of an instrument: spread-adjusted buy/sell
// prices and the resting-price impact a trade of Shares would leave behind.
type Quote struct {
	Symbol         string  `json:"symbol"`
	PriceCents     int64   `json:"price_cents"`
	BuyCents       int64   `json:"buy_cents"`
	SellCents      int64   `json:"sell_cents"`
	Shares         int64   `json:"shares"`
	ImpactFraction float64 `json:"impact_fraction"`
}
