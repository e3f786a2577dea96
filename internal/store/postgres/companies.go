package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"quickbuck/internal/engine"
)

const companyColumns = `
	id, name, owner_id, balance_cents, is_public, market_cap_cents,
	instrument_id, last_bot_purchase, last_costs_at`

func scanCompany(row pgx.Row) (engine.Company, error) {
	var c engine.Company
	err := row.Scan(&c.ID, &c.Name, &c.OwnerID, &c.BalanceCents, &c.IsPublic,
		&c.MarketCapCents, &c.InstrumentID, &c.LastBotPurchase, &c.LastCostsAt)
	return c, err
}

func (s *Store) companiesBy(ctx context.Context, orderCol string, limit int) ([]engine.Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		ORDER BY `+orderCol+`, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list companies: %w", err)
	}
	defer rows.Close()

	var out []engine.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CompaniesByOldestBotPurchase(ctx context.Context, limit int) ([]engine.Company, error) {
	return s.companiesBy(ctx, "last_bot_purchase", limit)
}

func (s *Store) CompaniesByOldestCosts(ctx context.Context, limit int) ([]engine.Company, error) {
	return s.companiesBy(ctx, "last_costs_at", limit)
}

func (s *Store) CompanyByID(ctx context.Context, id int64) (engine.Company, error) {
	c, err := scanCompany(s.pool.QueryRow(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return c, engine.ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("postgres: company %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) TouchCompanyBotPurchase(ctx context.Context, companyIDs []int64, at time.Time) error {
	if len(companyIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE companies
		SET last_bot_purchase = $2
		WHERE id = ANY($1)
	`, companyIDs, at)
	if err != nil {
		return fmt.Errorf("postgres: touch companies: %w", err)
	}
	return nil
}

func (s *Store) ApplyCompanyCosts(ctx context.Context, companyID int64, costCents int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE companies
		SET balance_cents = balance_cents - $2,
		    last_costs_at = $3
		WHERE id = $1
	`, companyID, costCents, at)
	if err != nil {
		return fmt.Errorf("postgres: apply costs company %d: %w", companyID, err)
	}
	return nil
}

func (s *Store) SetCompanyMarketCap(ctx context.Context, companyID, marketCapCents int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE companies
		SET market_cap_cents = $2
		WHERE id = $1
	`, companyID, marketCapCents)
	if err != nil {
		return fmt.Errorf("postgres: set market cap company %d: %w", companyID, err)
	}
	return nil
}

func (s *Store) CompanyEmployees(ctx context.Context, companyID int64, limit int) ([]engine.Employee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, tick_cost_pct
		FROM employees
		WHERE company_id = $1
		ORDER BY id
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: employees company %d: %w", companyID, err)
	}
	defer rows.Close()

	var out []engine.Employee
	for rows.Next() {
		var e engine.Employee
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Name, &e.TickCostPct); err != nil {
			return nil, fmt.Errorf("postgres: scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) PlayerCompanies(ctx context.Context, playerID string, limit int) ([]engine.Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE owner_id = $1
		ORDER BY id
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: companies of %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []engine.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
