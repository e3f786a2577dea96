package engine

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

const (
	CentsPerBuck = int64(100)

	// MinPriceCents is the hard floor for any traded instrument.
	MinPriceCents = int64(1)
)

var (
	ErrCycleRunning  = errors.New("another cycle is currently running, please wait")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("value out of domain")
	ErrNoActiveLoans = errors.New("no active loans")
)

func CentsToBucks(v int64) float64 {
	return float64(v) / float64(CentsPerBuck)
}

func BucksToCents(v float64) int64 {
	return int64(math.Round(v * float64(CentsPerBuck)))
}

// notionalCents multiplies a unit price by a quantity without silently
// overflowing int64.
func notionalCents(priceCents, qty int64) (int64, error) {
	v := new(big.Int).Mul(big.NewInt(priceCents), big.NewInt(qty))
	if !v.IsInt64() {
		return 0, fmt.Errorf("notional overflow: %w", ErrValidation)
	}
	return v.Int64(), nil
}

// validCents rejects the quantities the error taxonomy calls validation
// failures: non-finite or non-positive computed amounts.
func validPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
