package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/repository"
)

// EntitlementService gates generation behind the per-user credits ledger.
type EntitlementService struct {
	creditRepo *repository.CreditRepo
	redis      *redis.Client
}

func NewEntitlementService(creditRepo *repository.CreditRepo, redisClient *redis.Client) *EntitlementService {
	return &EntitlementService{
		creditRepo: creditRepo,
		redis:      redisClient,
	}
}

// Consume spends one credit for a generation. The decrement is atomic; two
// concurrent submissions cannot spend the same credit twice.
func (s *EntitlementService) Consume(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.creditRepo.Consume(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return &PaymentRequiredError{Message: "You have no credits left"}
	}
	return nil
}

// Refund returns a credit spent on a submission that performed no
// generation.
func (s *EntitlementService) Refund(ctx context.Context, userID uuid.UUID) error {
	return s.creditRepo.Grant(ctx, userID, 1)
}

// Balance reports the user's remaining credits.
func (s *EntitlementService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.creditRepo.Balance(ctx, userID)
}

// CreditPurchase grants purchased credits exactly once per billing
// transaction. The transaction ID is deduplicated in Redis so replayed
// webhook deliveries are no-ops.
func (s *EntitlementService) CreditPurchase(ctx context.Context, appUserID, transactionID string, credits int) error {
	userID, err := uuid.Parse(appUserID)
	if err != nil {
		return fmt.Errorf("invalid app user ID %q: %w", appUserID, err)
	}

	fresh, err := s.redis.SetNX(ctx, "billing_txn:"+transactionID, "1", 30*24*time.Hour).Result()
	if err != nil {
		return fmt.Errorf("failed to check transaction %s: %w", transactionID, err)
	}
	if !fresh {
		// Already processed
		return nil
	}

	return s.creditRepo.Grant(ctx, userID, credits)
}
