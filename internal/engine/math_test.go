package engine

import (
	"math"
	"math/rand"
	"testing"
)

func TestPricePreferencePeaksAtSweetSpot(t *testing.T) {
	sweet := int64(2_500)
	at := pricePreference(sweet, sweet)
	if math.Abs(at-1) > 1e-9 {
		t.Fatalf("preference at sweet spot = %f, want 1", at)
	}
	below := pricePreference(500, sweet)
	above := pricePreference(50_000, sweet)
	if below >= at || above >= at {
		t.Fatalf("preference should decay away from sweet spot: below=%f at=%f above=%f", below, at, above)
	}
	if pricePreference(0, sweet) != 0 {
		t.Fatalf("non-positive price must score 0")
	}
}

func TestUnitPricePenalty(t *testing.T) {
	sweet := int64(2_500)
	if got := unitPricePenalty(1_000, sweet); got != 1 {
		t.Fatalf("penalty below sweet spot = %f, want 1", got)
	}
	if got := unitPricePenalty(25_000, sweet); math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("penalty at 10x sweet spot = %f, want 0.1", got)
	}
}

func TestListingScoreBounds(t *testing.T) {
	p := DefaultParams().Demand
	best := Product{Quality: 1, PriceCents: p.SweetSpotCents, TotalSold: int64(p.DemandScale) * 2}
	if got := listingScore(best, p); got > 1.0+1e-9 {
		t.Fatalf("score exceeded 1: %f", got)
	}
	junk := Product{Quality: 0, PriceCents: 200_000}
	if got := listingScore(junk, p); got >= minScore {
		t.Fatalf("expensive zero-quality listing should fall below the threshold, got %f", got)
	}
}

func TestApplyReturnFloorsAtOneCent(t *testing.T) {
	if got := applyReturn(3, -0.99); got != MinPriceCents {
		t.Fatalf("got %d, want floor %d", got, MinPriceCents)
	}
	if got := applyReturn(10_000, 0.05); got != 10_500 {
		t.Fatalf("got %d, want 10500", got)
	}
}

func TestMeanReversionPullDirection(t *testing.T) {
	if pull := meanReversionPull(8_000, 10_000, 0.06); pull <= 0 {
		t.Fatalf("below fair value should pull up, got %f", pull)
	}
	if pull := meanReversionPull(12_000, 10_000, 0.06); pull >= 0 {
		t.Fatalf("above fair value should pull down, got %f", pull)
	}
	if pull := meanReversionPull(12_000, 0, 0.06); pull != 0 {
		t.Fatalf("zero fair value must not pull, got %f", pull)
	}
}

func TestClampChange(t *testing.T) {
	if got := clampChange(0.5, 0.1); got != 0.1 {
		t.Fatalf("got %f", got)
	}
	if got := clampChange(-0.5, 0.1); got != -0.1 {
		t.Fatalf("got %f", got)
	}
	if got := clampChange(0.03, 0.1); got != 0.03 {
		t.Fatalf("got %f", got)
	}
}

func TestPriceImpactClamped(t *testing.T) {
	if got := priceImpact(1_000_000, 50_000, 1, 0.05); got != 0.05 {
		t.Fatalf("buy impact should clamp to +0.05, got %f", got)
	}
	if got := priceImpact(1_000_000, 50_000, -1, 0.05); got != -0.05 {
		t.Fatalf("sell impact should clamp to -0.05, got %f", got)
	}
	if got := priceImpact(100, 0, 1, 0.05); got != 0 {
		t.Fatalf("zero liquidity must be impact-free, got %f", got)
	}
}

func TestEventShockWithinRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1_000; i++ {
		shock := eventShock(rng, 0.15)
		if mag := math.Abs(shock); mag <= 0 || mag > 0.15 {
			t.Fatalf("shock magnitude out of range: %f", shock)
		}
	}
}

func TestIntervalInterestWorkedExample(t *testing.T) {
	// 100,000 cents at 5%/day over 72 intervals: floor(100000*0.05/72) = 69.
	if got := intervalInterest(100_000, 5, 72); got != 69 {
		t.Fatalf("got %d, want 69", got)
	}
	if got := intervalInterest(0, 5, 72); got != 0 {
		t.Fatalf("zero principal must accrue nothing, got %d", got)
	}
	if got := intervalInterest(100_000, 0, 72); got != 0 {
		t.Fatalf("zero rate must accrue nothing, got %d", got)
	}
	if got := intervalInterest(10, 5, 72); got != 0 {
		t.Fatalf("sub-cent interest floors to zero, got %d", got)
	}
}

func TestNotionalCentsOverflow(t *testing.T) {
	got, err := notionalCents(2_000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 200_000 {
		t.Fatalf("got %d, want 200000", got)
	}
	if _, err := notionalCents(math.MaxInt64, 2); err == nil {
		t.Fatalf("expected overflow error")
	}
}
