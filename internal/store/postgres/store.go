// Package postgres implements engine.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"quickbuck/internal/engine"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the schema. Statements are idempotent so both binaries can
// run it at startup.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS tick_locks (
    lock_id   TEXT PRIMARY KEY,
    is_locked BOOLEAN     NOT NULL DEFAULT false,
    locked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    locked_by TEXT        NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ticks (
    tick_number        BIGINT PRIMARY KEY,
    ran_at             TIMESTAMPTZ NOT NULL,
    trigger_source     TEXT        NOT NULL,
    purchase_count     INTEGER     NOT NULL,
    budget_spent_cents BIGINT      NOT NULL,
    stock_updates      INTEGER     NOT NULL,
    crypto_updates     INTEGER     NOT NULL,
    top_movers         JSONB       NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS instruments (
    id                  BIGSERIAL PRIMARY KEY,
    symbol              TEXT    NOT NULL UNIQUE,
    name                TEXT    NOT NULL,
    kind                TEXT    NOT NULL,
    sector              TEXT    NOT NULL,
    current_price_cents BIGINT  NOT NULL,
    fair_value_cents    BIGINT  NOT NULL,
    volatility          DOUBLE PRECISION NOT NULL DEFAULT 0,
    momentum            DOUBLE PRECISION NOT NULL DEFAULT 0,
    liquidity           DOUBLE PRECISION NOT NULL DEFAULT 0,
    outstanding_shares  BIGINT  NOT NULL,
    market_cap_cents    BIGINT  NOT NULL,
    last_change         DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_updated        TIMESTAMPTZ NOT NULL DEFAULT now(),
    company_id          BIGINT
);
CREATE INDEX IF NOT EXISTS idx_instruments_rotation ON instruments (kind, last_updated, id);

CREATE TABLE IF NOT EXISTS candles (
    id            BIGSERIAL PRIMARY KEY,
    instrument_id BIGINT NOT NULL REFERENCES instruments (id),
    open_cents    BIGINT NOT NULL,
    high_cents    BIGINT NOT NULL,
    low_cents     BIGINT NOT NULL,
    close_cents   BIGINT NOT NULL,
    volume        BIGINT NOT NULL,
    tick_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candles_series ON candles (instrument_id, tick_at DESC);

CREATE TABLE IF NOT EXISTS companies (
    id                BIGSERIAL PRIMARY KEY,
    name              TEXT    NOT NULL,
    owner_id          TEXT    NOT NULL,
    balance_cents     BIGINT  NOT NULL DEFAULT 0,
    is_public         BOOLEAN NOT NULL DEFAULT false,
    market_cap_cents  BIGINT  NOT NULL DEFAULT 0,
    instrument_id     BIGINT,
    last_bot_purchase TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
    last_costs_at     TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
);
CREATE INDEX IF NOT EXISTS idx_companies_bot_rotation ON companies (last_bot_purchase, id);
CREATE INDEX IF NOT EXISTS idx_companies_cost_rotation ON companies (last_costs_at, id);

CREATE TABLE IF NOT EXISTS employees (
    id            BIGSERIAL PRIMARY KEY,
    company_id    BIGINT NOT NULL REFERENCES companies (id),
    name          TEXT   NOT NULL,
    tick_cost_pct DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS products (
    id                  BIGSERIAL PRIMARY KEY,
    company_id          BIGINT  NOT NULL REFERENCES companies (id),
    name                TEXT    NOT NULL,
    price_cents         BIGINT  NOT NULL,
    stock               BIGINT,
    max_per_order       BIGINT  NOT NULL DEFAULT 0,
    quality             DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    total_sold          BIGINT  NOT NULL DEFAULT 0,
    total_revenue_cents BIGINT  NOT NULL DEFAULT 0,
    is_active           BOOLEAN NOT NULL DEFAULT true,
    is_archived         BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS idx_products_company ON products (company_id, id);

CREATE TABLE IF NOT EXISTS purchases (
    id          TEXT PRIMARY KEY,
    product_id  BIGINT NOT NULL REFERENCES products (id),
    company_id  BIGINT NOT NULL REFERENCES companies (id),
    quantity    BIGINT NOT NULL,
    unit_cents  BIGINT NOT NULL,
    total_cents BIGINT NOT NULL,
    bought_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS players (
    id                    TEXT PRIMARY KEY,
    name                  TEXT   NOT NULL,
    balance_cents         BIGINT NOT NULL DEFAULT 0,
    net_worth_cents       BIGINT NOT NULL DEFAULT 0,
    last_net_worth_update TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
);
CREATE INDEX IF NOT EXISTS idx_players_rotation ON players (last_net_worth_update, id);

CREATE TABLE IF NOT EXISTS holdings (
    player_id     TEXT   NOT NULL REFERENCES players (id),
    instrument_id BIGINT NOT NULL REFERENCES instruments (id),
    shares        BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (player_id, instrument_id)
);

CREATE TABLE IF NOT EXISTS loans (
    id                     BIGSERIAL PRIMARY KEY,
    player_id              TEXT   NOT NULL REFERENCES players (id),
    remaining_cents        BIGINT NOT NULL,
    daily_rate_pct         DOUBLE PRECISION NOT NULL,
    accrued_interest_cents BIGINT NOT NULL DEFAULT 0,
    last_interest_applied  TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
    status                 TEXT   NOT NULL DEFAULT 'active'
);
CREATE INDEX IF NOT EXISTS idx_loans_rotation ON loans (status, last_interest_applied, id);
`

// Cursors encode a (timestamp, id) keyset position. Freshly stamped rows
// sort past the cursor and can resurface on later pages; the engine's
// due-time checks keep them from being processed twice.
func encodeCursor(ts time.Time, id string) engine.Cursor {
	return engine.Cursor(ts.UTC().Format(time.RFC3339Nano) + "|" + id)
}

func decodeCursor(c engine.Cursor) (time.Time, string, error) {
	if c == "" {
		return time.Unix(0, 0).UTC(), "", nil
	}
	parts := strings.SplitN(string(c), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("postgres: malformed cursor %q", c)
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("postgres: malformed cursor %q: %w", c, err)
	}
	return ts, parts[1], nil
}

func decodeCursorInt(c engine.Cursor) (time.Time, int64, error) {
	ts, raw, err := decodeCursor(c)
	if err != nil {
		return time.Time{}, 0, err
	}
	if raw == "" {
		return ts, 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("postgres: malformed cursor %q: %w", c, err)
	}
	return ts, id, nil
}

var _ engine.Store = (*Store)(nil)
