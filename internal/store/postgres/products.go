package postgres

import (
	"context"
	"fmt"

	"quickbuck/internal/engine"
)

func (s *Store) ActiveProductsByCompany(ctx context.Context, companyID int64, limit int) ([]engine.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, name, price_cents, stock, max_per_order,
		       quality, total_sold, total_revenue_cents, is_active, is_archived
		FROM products
		WHERE company_id = $1 AND is_active = true AND is_archived = false
		ORDER BY id
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: products company %d: %w", companyID, err)
	}
	defer rows.Close()

	var out []engine.Product
	for rows.Next() {
		var p engine.Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.PriceCents, &p.Stock,
			&p.MaxPerOrder, &p.Quality, &p.TotalSold, &p.TotalRevenueCents, &p.Active, &p.Archived); err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordPurchase applies one simulated sale atomically: the product counters,
// the company credit, and the immutable purchase row commit together.
func (s *Store) RecordPurchase(ctx context.Context, p engine.Purchase) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin purchase: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE products
		SET stock = CASE WHEN stock IS NULL THEN NULL ELSE stock - $2 END,
		    total_sold = total_sold + $2,
		    total_revenue_cents = total_revenue_cents + $3
		WHERE id = $1
		  AND (stock IS NULL OR stock >= $2)
	`, p.ProductID, p.Quantity, p.TotalCents)
	if err != nil {
		return fmt.Errorf("postgres: update product %d: %w", p.ProductID, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("postgres: product %d has insufficient stock: %w", p.ProductID, engine.ErrValidation)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE companies
		SET balance_cents = balance_cents + $2
		WHERE id = $1
	`, p.CompanyID, p.TotalCents); err != nil {
		return fmt.Errorf("postgres: credit company %d: %w", p.CompanyID, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO purchases (id, product_id, company_id, quantity, unit_cents, total_cents, bought_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.ProductID, p.CompanyID, p.Quantity, p.UnitCents, p.TotalCents, p.At); err != nil {
		return fmt.Errorf("postgres: insert purchase %s: %w", p.ID, err)
	}

	return tx.Commit(ctx)
}
