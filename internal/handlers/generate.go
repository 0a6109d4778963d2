package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/gemini"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/middleware"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/services"
)

type generationService interface {
	Generate(ctx context.Context, contents []gemini.Content, cfg gemini.GenerationConfig) (*gemini.Result, error)
	Chat(ctx context.Context, contents []gemini.Content) (string, error)
}

type entitlementService interface {
	Consume(ctx context.Context, userID uuid.UUID) error
}

// GenerateHandler exposes the two generation endpoints. Unlike the rest of
// the API these answer with a flat {"error": "..."} body, which is what the
// web client expects.
type GenerateHandler struct {
	generation  generationService
	entitlement entitlementService
}

func NewGenerateHandler(generation generationService, entitlement entitlementService) *GenerateHandler {
	return &GenerateHandler{
		generation:  generation,
		entitlement: entitlement,
	}
}

// GenerateImage handles POST /image.
func (h *GenerateHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGenerationError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		writeGenerationError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	if err := h.consumeCredit(w, r); err != nil {
		return
	}

	contents := gemini.BuildConversation(req.History, req.Prompt, req.Images)
	cfg := gemini.GenerationConfig{
		Modalities:  modalitiesFor(req.ResponseType),
		AspectRatio: req.AspectRatio,
	}

	result, err := h.generation.Generate(r.Context(), contents, cfg)
	if err != nil {
		writeGenerationError(w, http.StatusInternalServerError, err.Error())
		return
	}

	images := result.Images
	if images == nil {
		images = []models.InlineImage{}
	}
	writeJSON(w, http.StatusOK, models.GenerateImageResponse{Images: images, Text: result.Text})
}

// GenerateText handles POST /text.
func (h *GenerateHandler) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGenerationError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" && len(req.Files) == 0 {
		writeGenerationError(w, http.StatusBadRequest, "Provide a prompt or files")
		return
	}

	if err := h.consumeCredit(w, r); err != nil {
		return
	}

	contents := gemini.AppendToConversation(req.History, req.Prompt, req.Files)

	text, err := h.generation.Chat(r.Context(), contents)
	if err != nil {
		writeGenerationError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateTextResponse{Text: text})
}

// consumeCredit spends one credit and writes the response itself when the
// user has none left.
func (h *GenerateHandler) consumeCredit(w http.ResponseWriter, r *http.Request) error {
	userID := middleware.GetUserID(r.Context())
	err := h.entitlement.Consume(r.Context(), userID)
	if err == nil {
		return nil
	}

	if pre, ok := err.(*services.PaymentRequiredError); ok {
		writeGenerationError(w, http.StatusPaymentRequired, pre.Message)
	} else {
		writeGenerationError(w, http.StatusInternalServerError, "Failed to check credits")
	}
	return err
}

// modalitiesFor maps the requested response type onto provider modalities.
// IMAGE is the default for the image flow.
func modalitiesFor(responseType string) []string {
	switch responseType {
	case "TEXT":
		return []string{gemini.ModalityText}
	case "BOTH":
		return []string{gemini.ModalityImage, gemini.ModalityText}
	default:
		return []string{gemini.ModalityImage}
	}
}

func writeGenerationError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
