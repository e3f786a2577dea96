package postgres

import (
	"context"
	"fmt"
	"time"

	"quickbuck/internal/engine"
)

func (s *Store) PlayersByOldestNetWorth(ctx context.Context, cursor engine.Cursor, limit int) ([]engine.Player, engine.Cursor, error) {
	ts, id, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, balance_cents, net_worth_cents, last_net_worth_update
		FROM players
		WHERE (last_net_worth_update, id) > ($1, $2)
		ORDER BY last_net_worth_update, id
		LIMIT $3
	`, ts, id, limit)
	if err != nil {
		return nil, "", fmt.Errorf("postgres: list players: %w", err)
	}
	defer rows.Close()

	var out []engine.Player
	for rows.Next() {
		var p engine.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.BalanceCents, &p.NetWorthCents, &p.LastNetWorthUpdate); err != nil {
			return nil, "", fmt.Errorf("postgres: scan player: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	if len(out) < limit {
		return out, "", nil
	}
	last := out[len(out)-1]
	return out, encodeCursor(last.LastNetWorthUpdate, last.ID), nil
}

func (s *Store) PlayerHoldings(ctx context.Context, playerID string, kind engine.AssetKind, limit int) ([]engine.HoldingValue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT h.instrument_id, h.shares, i.current_price_cents
		FROM holdings h
		JOIN instruments i ON i.id = h.instrument_id
		WHERE h.player_id = $1 AND i.kind = $2 AND h.shares > 0
		ORDER BY h.instrument_id
		LIMIT $3
	`, playerID, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: holdings of %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []engine.HoldingValue
	for rows.Next() {
		var h engine.HoldingValue
		if err := rows.Scan(&h.InstrumentID, &h.Shares, &h.PriceCents); err != nil {
			return nil, fmt.Errorf("postgres: scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) SetPlayerNetWorth(ctx context.Context, playerID string, netWorthCents int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE players
		SET net_worth_cents = $2,
		    last_net_worth_update = $3
		WHERE id = $1
	`, playerID, netWorthCents, at)
	if err != nil {
		return fmt.Errorf("postgres: set net worth %s: %w", playerID, err)
	}
	return nil
}
