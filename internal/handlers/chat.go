package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/middleware"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/session"
)

type chatRepository interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SaveMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)
}

// chatEntitlement extends the consume capability with a refund, so a credit
// spent on a submission that never ran can be handed back.
type chatEntitlement interface {
	Consume(ctx context.Context, userID uuid.UUID) error
	Refund(ctx context.Context, userID uuid.UUID) error
}

type ChatHandler struct {
	chatRepo    chatRepository
	sessions    *session.Manager
	entitlement chatEntitlement
}

func NewChatHandler(chatRepo chatRepository, sessions *session.Manager, entitlement chatEntitlement) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		sessions:    sessions,
		entitlement: entitlement,
	}
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New Chat"
	}
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:50])
	}

	chat := &models.Chat{
		UserID: middleware.GetUserID(r.Context()),
		Title:  title,
	}
	if err := h.chatRepo.Create(r.Context(), chat); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatRepo.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chat, ok := h.ownedChat(w, r)
	if !ok {
		return
	}

	if err := h.chatRepo.Delete(r.Context(), chat.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.sessions.Clear(chat.ID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted"})
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	chat, ok := h.ownedChat(w, r)
	if !ok {
		return
	}

	messages, err := h.chatRepo.ListMessages(r.Context(), chat.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// PostMessage submits one message to a chat: the user turn is recorded
// immediately, one generation round trip runs, and the assistant turn comes
// back in the response. A generation failure arrives as the assistant
// message's text, not as an HTTP error.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	chat, ok := h.ownedChat(w, r)
	if !ok {
		return
	}

	var req models.ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	mode := session.ModeText
	if req.Mode == string(session.ModeImage) {
		mode = session.ModeImage
	}

	if mode == session.ModeImage && strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Prompt is required", r))
		return
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Provide a prompt or files", r))
		return
	}

	if err := h.entitlement.Consume(r.Context(), chat.UserID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	// First touch after a restart: rebuild the in-memory conversation from
	// the persisted messages.
	if len(h.sessions.History(chat.ID)) == 0 {
		persisted, err := h.chatRepo.ListMessages(r.Context(), chat.ID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		h.sessions.Seed(chat.ID, messagesToTurns(persisted))
	}

	userTurn, assistantTurn, err := h.sessions.Submit(r.Context(), chat.ID, req.Message, req.Attachments, mode)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			// No generation ran; hand the credit back.
			if refundErr := h.entitlement.Refund(r.Context(), chat.UserID); refundErr != nil {
				log.Printf("Failed to refund credit for user %s: %v", chat.UserID, refundErr)
			}
			writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "A message is already being processed for this chat", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	userMsg := turnToMessage(chat.ID, userTurn)
	assistantMsg := turnToMessage(chat.ID, assistantTurn)

	if err := h.chatRepo.SaveMessage(r.Context(), &userMsg); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.chatRepo.SaveMessage(r.Context(), &assistantMsg); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
}

// ownedChat loads the chat from the URL and verifies ownership.
func (h *ChatHandler) ownedChat(w http.ResponseWriter, r *http.Request) (*models.Chat, bool) {
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return nil, false
	}

	chat, err := h.chatRepo.GetByID(r.Context(), chatID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Chat not found", r))
		return nil, false
	}

	if chat.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return chat, true
}

func turnToMessage(chatID uuid.UUID, turn models.Turn) models.Message {
	msg := models.Message{
		ChatID: chatID,
		Role:   turn.Role,
	}

	var texts []string
	for _, p := range turn.Parts {
		if p.Image != nil {
			msg.Images = append(msg.Images, *p.Image)
			continue
		}
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	msg.Text = strings.Join(texts, "\n")

	return msg
}

func messagesToTurns(messages []models.Message) []models.Turn {
	turns := make([]models.Turn, 0, len(messages))
	for _, msg := range messages {
		var parts []models.ContentPart
		if msg.Text != "" {
			parts = append(parts, models.ContentPart{Text: msg.Text})
		}
		for i := range msg.Images {
			img := msg.Images[i]
			parts = append(parts, models.ContentPart{Image: &img})
		}
		turns = append(turns, models.Turn{Role: msg.Role, Parts: parts})
	}
	return turns
}
