package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quickbuck/internal/engine"
)

func (s *Store) LastTickNumber(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(tick_number), 0) FROM ticks
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: last tick number: %w", err)
	}
	return n, nil
}

func (s *Store) InsertTickRecord(ctx context.Context, rec engine.TickRecord) error {
	movers, err := json.Marshal(rec.TopMovers)
	if err != nil {
		return fmt.Errorf("postgres: marshal top movers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ticks
		    (tick_number, ran_at, trigger_source, purchase_count, budget_spent_cents, stock_updates, crypto_updates, top_movers)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
	`, rec.TickNumber, rec.RanAt, rec.Trigger, rec.PurchaseCount, rec.BudgetSpent, rec.StockUpdates, rec.CryptoUpdates, string(movers))
	if err != nil {
		return fmt.Errorf("postgres: insert tick %d: %w", rec.TickNumber, err)
	}
	return nil
}

func (s *Store) LatestTickRecord(ctx context.Context) (engine.TickRecord, error) {
	var (
		rec    engine.TickRecord
		movers []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT tick_number, ran_at, trigger_source, purchase_count, budget_spent_cents, stock_updates, crypto_updates, top_movers
		FROM ticks
		ORDER BY tick_number DESC
		LIMIT 1
	`).Scan(&rec.TickNumber, &rec.RanAt, &rec.Trigger, &rec.PurchaseCount, &rec.BudgetSpent, &rec.StockUpdates, &rec.CryptoUpdates, &movers)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, engine.ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("postgres: latest tick: %w", err)
	}
	if err := json.Unmarshal(movers, &rec.TopMovers); err != nil {
		return rec, fmt.Errorf("postgres: decode top movers: %w", err)
	}
	return rec, nil
}
