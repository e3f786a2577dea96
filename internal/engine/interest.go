package engine

import (
	"context"
	"math"
	"time"
)

// BatchResult reports one rotated batch of a cursor-paginated sub-step.
type BatchResult struct {
	Processed  int    `json:"processed"`
	NextCursor Cursor `json:"next_cursor"`
}

// AccrueInterestBatch visits one page of active loans oldest-accrued-first
// and applies one cooling-off interval's worth of interest to every loan
// that is due. Loans not yet due are left unstamped and revisited once due,
// which also makes the accrual idempotent within the window. The borrower's
// cash balance is debited alongside and may go negative: that is debt
// distress, not an error.
func (e *Engine) AccrueInterestBatch(ctx context.Context, limit int, cursor Cursor) (BatchResult, error) {
	p := e.params.Interest
	loans, next, err := e.store.ActiveLoans(ctx, cursor, limit)
	if err != nil {
		return BatchResult{}, err
	}

	interval := 24 * time.Hour / time.Duration(p.IntervalsPerDay)
	now := e.now()
	processed := 0
	for _, ln := range loans {
		if ln.Status != LoanActive {
			continue
		}
		if now.Sub(ln.LastInterestApplied) < interval {
			continue
		}
		interest := intervalInterest(ln.RemainingCents, ln.DailyRatePct, p.IntervalsPerDay)
		if interest <= 0 {
			continue
		}
		if err := e.store.ApplyLoanInterest(ctx, ln.ID, interest, now); err != nil {
			e.log.Warn("interest: loan skipped", "loan_id", ln.ID, "err", err)
			continue
		}
		processed++
	}
	return BatchResult{Processed: processed, NextCursor: next}, nil
}

// intervalInterest is floor(remaining × dailyRate / intervalsPerDay), with
// dailyRate given as a percent figure.
func intervalInterest(remainingCents int64, dailyRatePct float64, intervalsPerDay int) int64 {
	if remainingCents <= 0 || !validPositive(dailyRatePct) || intervalsPerDay <= 0 {
		return 0
	}
	return int64(math.Floor(float64(remainingCents) * dailyRatePct / 100 / float64(intervalsPerDay)))
}
