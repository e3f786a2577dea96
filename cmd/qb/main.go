package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cl "quickbuck/internal/cli"
	"quickbuck/internal/config"
)

func main() {
	cfg := config.LoadCLIFromEnv()

	root := &cobra.Command{
		Use:          "qb",
		Short:        "QuickBuck operator CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newTickCmd(cfg),
		newStatusCmd(cfg),
		newStocksCmd(cfg),
		newCryptosCmd(cfg),
		newQuoteCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(cfg config.CLIConfig) *cl.Client {
	return cl.NewClient(cfg.APIBaseURL, cfg.AdminToken)
}

func newTickCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Trigger a full economy cycle now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
			defer cancel()
			result, err := newClient(cfg).TriggerTick(ctx)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("tick %d complete", result.TickNumber))
			printNeutral(fmt.Sprintf("  purchases: %d  stock updates: %d  crypto updates: %d",
				result.PurchaseCount, result.StockUpdateCount, result.CryptoUpdateCount))
			return nil
		},
	}
}

func newStatusCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the most recent recorded tick",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rec, err := newClient(cfg).LatestTick(ctx)
			if err != nil {
				return err
			}
			renderTick(rec)
			return nil
		},
	}
}

func newStocksCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "stocks",
		Short: "List stock instruments with current prices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			stocks, err := newClient(cfg).Stocks(ctx)
			if err != nil {
				return err
			}
			renderInstruments(stocks)
			return nil
		},
	}
}

func newCryptosCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "cryptos",
		Short: "List crypto instruments with current prices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			cryptos, err := newClient(cfg).Cryptos(ctx)
			if err != nil {
				return err
			}
			renderInstruments(cryptos)
			return nil
		},
	}
}

func newQuoteCmd(cfg config.CLIConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote SYMBOL [SHARES]",
		Short: "Show spread-adjusted buy/sell prices for a symbol",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares := int64(1)
			if len(args) == 2 {
				n, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid share count %q", args[1])
				}
				shares = n
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			quote, err := newClient(cfg).Quote(ctx, strings.ToUpper(args[0]), "buy", shares)
			if err != nil {
				return err
			}
			renderQuote(quote)
			return nil
		},
	}
	return cmd
}
