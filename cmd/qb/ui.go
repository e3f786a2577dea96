package main

import (
	"fmt"

	"github.com/fatih/color"

	"quickbuck/internal/engine"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printNeutral(msg string) {
	neutral.Println(msg)
}

func renderTick(rec engine.TickRecord) {
	accent.Printf("tick %d  (%s, %s)\n", rec.TickNumber, rec.Trigger, rec.RanAt.Format("2006-01-02 15:04:05"))
	neutral.Printf("  purchases: %d  spent: %s\n", rec.PurchaseCount, bucks(rec.BudgetSpent))
	neutral.Printf("  stock updates: %d  crypto updates: %d\n", rec.StockUpdates, rec.CryptoUpdates)
	if len(rec.TopMovers) > 0 {
		neutral.Println("  top movers:")
		for _, m := range rec.TopMovers {
			line := fmt.Sprintf("    %-6s %s -> %s  %+.2f%%", m.Symbol, bucks(m.OldPriceCents), bucks(m.NewPriceCents), m.ChangeFraction*100)
			if m.ChangeFraction < 0 {
				danger.Println(line)
			} else {
				success.Println(line)
			}
		}
	}
}

func renderInstruments(list []engine.Instrument) {
	if len(list) == 0 {
		neutral.Println("no instruments")
		return
	}
	accent.Printf("%-6s %-24s %-10s %12s %10s\n", "SYM", "NAME", "SECTOR", "PRICE", "CHANGE")
	for _, inst := range list {
		line := fmt.Sprintf("%-6s %-24s %-10s %12s %+9.2f%%",
			inst.Symbol, truncate(inst.Name, 24), inst.Sector, bucks(inst.CurrentPriceCents), inst.LastChange*100)
		if inst.LastChange < 0 {
			danger.Println(line)
		} else {
			success.Println(line)
		}
	}
}

func renderQuote(q engine.Quote) {
	accent.Printf("%s  %s\n", q.Symbol, bucks(q.PriceCents))
	neutral.Printf("  buy: %s  sell: %s  (%d shares, impact %+.3f%%)\n",
		bucks(q.BuyCents), bucks(q.SellCents), q.Shares, q.ImpactFraction*100)
}

func bucks(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
