package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"quickbuck/internal/engine"
)

func (s *Store) ActiveLoans(ctx context.Context, cursor engine.Cursor, limit int) ([]engine.Loan, engine.Cursor, error) {
	ts, id, err := decodeCursorInt(cursor)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, player_id, remaining_cents, daily_rate_pct, accrued_interest_cents, last_interest_applied, status
		FROM loans
		WHERE status = 'active'
		  AND (last_interest_applied, id) > ($1, $2)
		ORDER BY last_interest_applied, id
		LIMIT $3
	`, ts, id, limit)
	if err != nil {
		return nil, "", fmt.Errorf("postgres: active loans: %w", err)
	}
	defer rows.Close()

	var out []engine.Loan
	for rows.Next() {
		var ln engine.Loan
		if err := rows.Scan(&ln.ID, &ln.PlayerID, &ln.RemainingCents, &ln.DailyRatePct,
			&ln.AccruedInterestCents, &ln.LastInterestApplied, &ln.Status); err != nil {
			return nil, "", fmt.Errorf("postgres: scan loan: %w", err)
		}
		out = append(out, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	if len(out) < limit {
		return out, "", nil
	}
	last := out[len(out)-1]
	return out, encodeCursor(last.LastInterestApplied, strconv.FormatInt(last.ID, 10)), nil
}

func (s *Store) ApplyLoanInterest(ctx context.Context, loanID int64, interestCents int64, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin interest: %w", err)
	}
	defer tx.Rollback(ctx)

	var playerID string
	err = tx.QueryRow(ctx, `
		UPDATE loans
		SET remaining_cents = remaining_cents + $2,
		    accrued_interest_cents = accrued_interest_cents + $2,
		    last_interest_applied = $3
		WHERE id = $1 AND status = 'active'
		RETURNING player_id
	`, loanID, interestCents, at).Scan(&playerID)
	if err != nil {
		return fmt.Errorf("postgres: accrue loan %d: %w", loanID, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE players
		SET balance_cents = balance_cents - $2
		WHERE id = $1
	`, playerID, interestCents); err != nil {
		return fmt.Errorf("postgres: debit player %s: %w", playerID, err)
	}

	return tx.Commit(ctx)
}

func (s *Store) PlayerActiveLoans(ctx context.Context, playerID string, limit int) ([]engine.Loan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, player_id, remaining_cents, daily_rate_pct, accrued_interest_cents, last_interest_applied, status
		FROM loans
		WHERE player_id = $1 AND status = 'active'
		ORDER BY id
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: loans of %s: %w", playerID, err)
	}
	defer rows.Close()

	var out []engine.Loan
	for rows.Next() {
		var ln engine.Loan
		if err := rows.Scan(&ln.ID, &ln.PlayerID, &ln.RemainingCents, &ln.DailyRatePct,
			&ln.AccruedInterestCents, &ln.LastInterestApplied, &ln.Status); err != nil {
			return nil, fmt.Errorf("postgres: scan loan: %w", err)
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}
