package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// Credits granted per purchasable product.
var productCredits = map[string]int{
	"app.lumio.credits.10":  10,
	"app.lumio.credits.50":  50,
	"app.lumio.credits.200": 200,
}

type purchaseService interface {
	CreditPurchase(ctx context.Context, appUserID, transactionID string, credits int) error
}

// WebhookHandler receives billing events from the payment provider.
type WebhookHandler struct {
	entitlement purchaseService
	token       string
}

func NewWebhookHandler(entitlement purchaseService, token string) *WebhookHandler {
	return &WebhookHandler{entitlement: entitlement, token: token}
}

// Billing handles POST /webhooks/billing. The provider is answered
// immediately to avoid delivery timeouts; crediting happens asynchronously
// and duplicate deliveries are deduplicated by transaction ID.
func (h *WebhookHandler) Billing(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+h.token {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		log.Println("Unauthorized billing webhook attempt")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)

	go h.processEvent(body)
}

func (h *WebhookHandler) processEvent(data []byte) {
	var payload struct {
		Event struct {
			AppUserID     string `json:"app_user_id"`
			Type          string `json:"type"`
			ProductID     string `json:"product_id"`
			TransactionID string `json:"transaction_id"`
		} `json:"event"`
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		log.Println("Invalid billing webhook JSON:", err)
		return
	}

	event := payload.Event
	if event.Type != "NON_RENEWING_PURCHASE" {
		log.Printf("Ignoring billing event type %s", event.Type)
		return
	}

	credits, ok := productCredits[event.ProductID]
	if !ok {
		log.Printf("Unknown product_id: %s", event.ProductID)
		return
	}

	if err := h.entitlement.CreditPurchase(context.Background(), event.AppUserID, event.TransactionID, credits); err != nil {
		log.Printf("Failed to credit purchase %s for user %s: %v", event.TransactionID, event.AppUserID, err)
		return
	}

	log.Printf("Credited %d credits to user %s", credits, event.AppUserID)
}
