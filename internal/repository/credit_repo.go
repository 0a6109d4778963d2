package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CreditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *CreditRepo {
	return &CreditRepo{pool: pool}
}

// Consume spends one credit. Returns false when the balance is zero; the
// conditional UPDATE keeps the decrement atomic under concurrent calls.
func (r *CreditRepo) Consume(ctx context.Context, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE user_credits SET credits = credits - 1, updated_at = NOW() WHERE user_id = $1 AND credits > 0",
		userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Grant adds credits to a user's balance, creating the row if needed.
func (r *CreditRepo) Grant(ctx context.Context, userID uuid.UUID, credits int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_credits (user_id, credits)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET credits = user_credits.credits + EXCLUDED.credits, updated_at = NOW()`,
		userID, credits,
	)
	return err
}

// Balance reports remaining credits; a user without a ledger row has zero.
func (r *CreditRepo) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var credits int
	err := r.pool.QueryRow(ctx, "SELECT credits FROM user_credits WHERE user_id = $1", userID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return credits, nil
}
