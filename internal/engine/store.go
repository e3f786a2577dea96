package engine

import (
	"context"
	"time"
)

// Cursor is an opaque pagination token. Empty means "start from the top".
type Cursor string

// Store is the read/write contract the backing document store exposes. Each
// method is one bounded unit of work: the caller picks limits so a worst-case
// call stays under the store's per-transaction document-read ceiling. All
// list methods return entities in a stable, deterministic order.
type Store interface {
	// Tick history. LastTickNumber returns 0 when no cycle has run.
	LastTickNumber(ctx context.Context) (int64, error)
	InsertTickRecord(ctx context.Context, rec TickRecord) error
	LatestTickRecord(ctx context.Context) (TickRecord, error)

	// Demand allocator reads/writes. Companies come back oldest bot
	// purchase first so the rotation is starvation-free.
	CompaniesByOldestBotPurchase(ctx context.Context, limit int) ([]Company, error)
	ActiveProductsByCompany(ctx context.Context, companyID int64, limit int) ([]Product, error)
	// RecordPurchase atomically decrements product stock, bumps the sold and
	// revenue counters, credits the company balance, and appends the
	// immutable purchase row.
	RecordPurchase(ctx context.Context, p Purchase) error
	TouchCompanyBotPurchase(ctx context.Context, companyIDs []int64, at time.Time) error

	// Company operating-cost pass.
	CompaniesByOldestCosts(ctx context.Context, limit int) ([]Company, error)
	CompanyEmployees(ctx context.Context, companyID int64, limit int) ([]Employee, error)
	ApplyCompanyCosts(ctx context.Context, companyID int64, costCents int64, at time.Time) error

	// Pricing engine.
	InstrumentsByOldestUpdate(ctx context.Context, kind AssetKind, limit int) ([]Instrument, error)
	InstrumentBySymbol(ctx context.Context, symbol string) (Instrument, error)
	InstrumentByID(ctx context.Context, id int64) (Instrument, error)
	ListInstruments(ctx context.Context, kind AssetKind, limit int) ([]Instrument, error)
	CompanyByID(ctx context.Context, id int64) (Company, error)
	RecentCloses(ctx context.Context, instrumentID int64, limit int) ([]int64, error)
	RecentCandles(ctx context.Context, instrumentID int64, limit int) ([]Candle, error)
	UpdateInstrumentPrice(ctx context.Context, inst Instrument) error
	InsertCandle(ctx context.Context, c Candle) error
	SetCompanyMarketCap(ctx context.Context, companyID, marketCapCents int64) error
	CountInstruments(ctx context.Context, kind AssetKind) (int, error)
	InsertInstrument(ctx context.Context, inst Instrument) (int64, error)

	// Interest processor. ActiveLoans pages active loans ordered by
	// (last_interest_applied, id) ascending from the cursor.
	ActiveLoans(ctx context.Context, cursor Cursor, limit int) ([]Loan, Cursor, error)
	// ApplyLoanInterest adds interest to the loan's remaining and accrued
	// balances, stamps last_interest_applied, and debits the borrower's
	// cash balance by the same amount in one unit of work.
	ApplyLoanInterest(ctx context.Context, loanID int64, interestCents int64, at time.Time) error

	// Net worth aggregator.
	PlayersByOldestNetWorth(ctx context.Context, cursor Cursor, limit int) ([]Player, Cursor, error)
	PlayerHoldings(ctx context.Context, playerID string, kind AssetKind, limit int) ([]HoldingValue, error)
	PlayerCompanies(ctx context.Context, playerID string, limit int) ([]Company, error)
	PlayerActiveLoans(ctx context.Context, playerID string, limit int) ([]Loan, error)
	SetPlayerNetWorth(ctx context.Context, playerID string, netWorthCents int64, at time.Time) error
}
