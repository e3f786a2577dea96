package engine

import (
	"math"
	"math/rand"
)

// Pure pricing math. Every function takes its inputs explicitly (including
// the random source) so price paths are reproducible under a seeded rand.

// gaussian draws a standard normal sample scaled by stddev.
func gaussian(rng *rand.Rand, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return rng.NormFloat64() * stddev
}

// meanReversionPull is the fractional pull toward fair value: positive when
// the price sits below fair value, negative above it.
func meanReversionPull(priceCents, fairCents int64, strength float64) float64 {
	if fairCents <= 0 || priceCents <= 0 {
		return 0
	}
	return strength * (float64(fairCents-priceCents) / float64(fairCents))
}

// clampChange bounds a fractional return to ±max.
func clampChange(ret, max float64) float64 {
	if ret > max {
		return max
	}
	if ret < -max {
		return -max
	}
	return ret
}

// eventShock draws a one-off news-shock return: magnitude uniform in
// (0, maxMove], sign split roughly half and half.
func eventShock(rng *rand.Rand, maxMove float64) float64 {
	mag := maxMove * (0.2 + 0.8*rng.Float64())
	if rng.Float64() < 0.5 {
		return -mag
	}
	return mag
}

// applyReturn advances an integer price by a fractional return, flooring at
// one cent.
func applyReturn(priceCents int64, ret float64) int64 {
	next := int64(math.Round(float64(priceCents) * (1 + ret)))
	if next < MinPriceCents {
		next = MinPriceCents
	}
	return next
}

// priceImpact is the permanent fractional shift a trade of the given size
// leaves on the resting price: shares over liquidity, signed by direction,
// clamped to ±maxImpact. direction is +1 for buys, -1 for sells.
func priceImpact(shares, liquidity float64, direction int, maxImpact float64) float64 {
	if liquidity <= 0 || shares <= 0 {
		return 0
	}
	return clampChange(shares/liquidity*float64(direction), maxImpact)
}

// pricePreference is the log-normal attractiveness term of the demand score,
// peaking at the configured sweet-spot price and decaying symmetrically in
// log space.
func pricePreference(priceCents, sweetSpotCents int64) float64 {
	if priceCents <= 0 || sweetSpotCents <= 0 {
		return 0
	}
	const sigma = 0.9
	d := math.Log(float64(priceCents) / float64(sweetSpotCents))
	return math.Exp(-(d * d) / (2 * sigma * sigma))
}

// unitPricePenalty suppresses budget concentration on very expensive items:
// 1.0 near the sweet spot, decaying toward zero as price grows past it.
func unitPricePenalty(priceCents, sweetSpotCents int64) float64 {
	if priceCents <= sweetSpotCents {
		return 1
	}
	return float64(sweetSpotCents) / float64(priceCents)
}

// ema blends a new observation into a running value with weight alpha.
func ema(prev, observed, alpha float64) float64 {
	return alpha*observed + (1-alpha)*prev
}
