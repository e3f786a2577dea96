package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"quickbuck/internal/engine"
)

const instrumentColumns = `
	id, symbol, name, kind, sector, current_price_cents, fair_value_cents,
	volatility, momentum, liquidity, outstanding_shares, market_cap_cents,
	last_change, last_updated, company_id`

func scanInstrument(row pgx.Row) (engine.Instrument, error) {
	var i engine.Instrument
	err := row.Scan(&i.ID, &i.Symbol, &i.Name, &i.Kind, &i.Sector,
		&i.CurrentPriceCents, &i.FairValueCents, &i.Volatility, &i.Momentum,
		&i.Liquidity, &i.OutstandingShares, &i.MarketCapCents,
		&i.LastChange, &i.LastUpdated, &i.CompanyID)
	return i, err
}

func (s *Store) instrumentsWhere(ctx context.Context, clause string, limit int, args ...any) ([]engine.Instrument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+instrumentColumns+`
		FROM instruments
		`+clause+`
		LIMIT $`+fmt.Sprint(len(args)+1),
		append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list instruments: %w", err)
	}
	defer rows.Close()

	var out []engine.Instrument
	for rows.Next() {
		i, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan instrument: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *Store) InstrumentsByOldestUpdate(ctx context.Context, kind engine.AssetKind, limit int) ([]engine.Instrument, error) {
	return s.instrumentsWhere(ctx, "WHERE kind = $1 ORDER BY last_updated, id", limit, string(kind))
}

func (s *Store) ListInstruments(ctx context.Context, kind engine.AssetKind, limit int) ([]engine.Instrument, error) {
	return s.instrumentsWhere(ctx, "WHERE kind = $1 ORDER BY symbol", limit, string(kind))
}

func (s *Store) InstrumentBySymbol(ctx context.Context, symbol string) (engine.Instrument, error) {
	i, err := scanInstrument(s.pool.QueryRow(ctx, `
		SELECT `+instrumentColumns+`
		FROM instruments
		WHERE symbol = $1
	`, strings.ToUpper(strings.TrimSpace(symbol))))
	if errors.Is(err, pgx.ErrNoRows) {
		return i, engine.ErrNotFound
	}
	if err != nil {
		return i, fmt.Errorf("postgres: instrument %s: %w", symbol, err)
	}
	return i, nil
}

func (s *Store) InstrumentByID(ctx context.Context, id int64) (engine.Instrument, error) {
	i, err := scanInstrument(s.pool.QueryRow(ctx, `
		SELECT `+instrumentColumns+`
		FROM instruments
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return i, engine.ErrNotFound
	}
	if err != nil {
		return i, fmt.Errorf("postgres: instrument %d: %w", id, err)
	}
	return i, nil
}

func (s *Store) CountInstruments(ctx context.Context, kind engine.AssetKind) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `
		SELECT COUNT(1) FROM instruments WHERE kind = $1
	`, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count instruments: %w", err)
	}
	return n, nil
}

func (s *Store) InsertInstrument(ctx context.Context, inst engine.Instrument) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO instruments
		    (symbol, name, kind, sector, current_price_cents, fair_value_cents,
		     volatility, momentum, liquidity, outstanding_shares, market_cap_cents,
		     last_change, last_updated, company_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, inst.Symbol, inst.Name, string(inst.Kind), inst.Sector,
		inst.CurrentPriceCents, inst.FairValueCents, inst.Volatility, inst.Momentum,
		inst.Liquidity, inst.OutstandingShares, inst.MarketCapCents,
		inst.LastChange, inst.LastUpdated, inst.CompanyID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert instrument %s: %w", inst.Symbol, err)
	}
	return id, nil
}

func (s *Store) UpdateInstrumentPrice(ctx context.Context, inst engine.Instrument) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE instruments
		SET current_price_cents = $2,
		    fair_value_cents = $3,
		    momentum = $4,
		    market_cap_cents = $5,
		    last_change = $6,
		    last_updated = $7
		WHERE id = $1
	`, inst.ID, inst.CurrentPriceCents, inst.FairValueCents, inst.Momentum,
		inst.MarketCapCents, inst.LastChange, inst.LastUpdated)
	if err != nil {
		return fmt.Errorf("postgres: update instrument %s: %w", inst.Symbol, err)
	}
	return nil
}

func (s *Store) InsertCandle(ctx context.Context, c engine.Candle) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO candles (instrument_id, open_cents, high_cents, low_cents, close_cents, volume, tick_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.InstrumentID, c.OpenCents, c.HighCents, c.LowCents, c.CloseCents, c.Volume, c.TickAt)
	if err != nil {
		return fmt.Errorf("postgres: insert candle instrument %d: %w", c.InstrumentID, err)
	}
	return nil
}

func (s *Store) RecentCloses(ctx context.Context, instrumentID int64, limit int) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT close_cents
		FROM candles
		WHERE instrument_id = $1
		ORDER BY tick_at DESC
		LIMIT $2
	`, instrumentID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent closes %d: %w", instrumentID, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var c int64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("postgres: scan close: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) RecentCandles(ctx context.Context, instrumentID int64, limit int) ([]engine.Candle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT instrument_id, open_cents, high_cents, low_cents, close_cents, volume, tick_at
		FROM candles
		WHERE instrument_id = $1
		ORDER BY tick_at DESC
		LIMIT $2
	`, instrumentID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent candles %d: %w", instrumentID, err)
	}
	defer rows.Close()

	var out []engine.Candle
	for rows.Next() {
		var c engine.Candle
		if err := rows.Scan(&c.InstrumentID, &c.OpenCents, &c.HighCents, &c.LowCents, &c.CloseCents, &c.Volume, &c.TickAt); err != nil {
			return nil, fmt.Errorf("postgres: scan candle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
