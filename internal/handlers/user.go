package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/middleware"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/repository"
)

type balanceService interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
}

type UserHandler struct {
	userRepo    *repository.UserRepo
	entitlement balanceService
}

func NewUserHandler(userRepo *repository.UserRepo, entitlement balanceService) *UserHandler {
	return &UserHandler{userRepo: userRepo, entitlement: entitlement}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.userRepo.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	credits, err := h.entitlement.Balance(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.CreditBalance{UserID: userID, Credits: credits})
}
