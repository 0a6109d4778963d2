package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/middleware"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/session"
)

type fakeChatRepo struct {
	mu       sync.Mutex
	chats    map[uuid.UUID]*models.Chat
	messages map[uuid.UUID][]models.Message
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:    make(map[uuid.UUID]*models.Chat),
		messages: make(map[uuid.UUID][]models.Message),
	}
}

func (f *fakeChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat.ID = uuid.New()
	chat.CreatedAt = time.Now()
	stored := *chat
	f.chats[chat.ID] = &stored
	return nil
}

func (f *fakeChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	found := *chat
	return &found, nil
}

func (f *fakeChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chats := []models.Chat{}
	for _, chat := range f.chats {
		if chat.UserID == userID {
			chats = append(chats, *chat)
		}
	}
	return chats, nil
}

func (f *fakeChatRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.chats, id)
	delete(f.messages, id)
	return nil
}

func (f *fakeChatRepo) SaveMessage(ctx context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	f.messages[msg.ChatID] = append(f.messages[msg.ChatID], *msg)
	return nil
}

func (f *fakeChatRepo) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message{}, f.messages[chatID]...), nil
}

func (f *fakeChatRepo) savedMessages(chatID uuid.UUID) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message{}, f.messages[chatID]...)
}

func (f *fakeChatRepo) addChat(userID uuid.UUID) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.chats[id] = &models.Chat{ID: id, UserID: userID, Title: "New Chat"}
	return id
}

func chatRequest(method, target string, body []byte, userID, chatID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", chatID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestPostMessage_AppendsAndPersistsBothTurns(t *testing.T) {
	userID := uuid.New()
	repo := newFakeChatRepo()
	chatID := repo.addChat(userID)
	entitlement := &fakeEntitlement{}
	h := NewChatHandler(repo, session.NewManager(&fakeGeneration{text: "hello back"}), entitlement)

	body := `{"message":"hello","mode":"text"}`
	rr := httptest.NewRecorder()
	h.PostMessage(rr, chatRequest(http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", []byte(body), userID, chatID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.ChatMessageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserMessage.Role != models.RoleUser || resp.UserMessage.Text != "hello" {
		t.Errorf("unexpected user message: %+v", resp.UserMessage)
	}
	if resp.AssistantMessage.Role != models.RoleAssistant || resp.AssistantMessage.Text != "hello back" {
		t.Errorf("unexpected assistant message: %+v", resp.AssistantMessage)
	}

	saved := repo.savedMessages(chatID)
	if len(saved) != 2 {
		t.Fatalf("expected both turns persisted, got %d messages", len(saved))
	}
	if saved[0].Role != models.RoleUser || saved[1].Role != models.RoleAssistant {
		t.Errorf("unexpected persisted order: %+v", saved)
	}
	if entitlement.consumed != 1 {
		t.Errorf("expected one credit spent, got %d", entitlement.consumed)
	}
}

func TestPostMessage_RejectsForeignChat(t *testing.T) {
	owner := uuid.New()
	repo := newFakeChatRepo()
	chatID := repo.addChat(owner)
	entitlement := &fakeEntitlement{}
	h := NewChatHandler(repo, session.NewManager(&fakeGeneration{text: "ok"}), entitlement)

	rr := httptest.NewRecorder()
	h.PostMessage(rr, chatRequest(http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", []byte(`{"message":"hi"}`), uuid.New(), chatID))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if entitlement.consumed != 0 {
		t.Errorf("no credit must be spent on a rejected request, got %d", entitlement.consumed)
	}
}

func TestPostMessage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"image mode without prompt", `{"message":"  ","mode":"image"}`, "Prompt is required"},
		{"text mode without prompt or attachments", `{"message":""}`, "Provide a prompt or files"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			userID := uuid.New()
			repo := newFakeChatRepo()
			chatID := repo.addChat(userID)
			entitlement := &fakeEntitlement{}
			h := NewChatHandler(repo, session.NewManager(&fakeGeneration{}), entitlement)

			rr := httptest.NewRecorder()
			h.PostMessage(rr, chatRequest(http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", []byte(tc.body), userID, chatID))

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error.Message != tc.wantMsg {
				t.Errorf("expected message %q, got %q", tc.wantMsg, resp.Error.Message)
			}
			if entitlement.consumed != 0 {
				t.Errorf("no credit must be spent on an invalid request, got %d", entitlement.consumed)
			}
		})
	}
}

func TestPostMessage_BusySubmissionRefundsCredit(t *testing.T) {
	userID := uuid.New()
	repo := newFakeChatRepo()
	chatID := repo.addChat(userID)
	entitlement := &fakeEntitlement{}

	block := make(chan struct{})
	sessions := session.NewManager(&fakeGeneration{text: "slow reply", block: block})
	h := NewChatHandler(repo, sessions, entitlement)

	done := make(chan struct{})
	go func() {
		defer close(done)
		rr := httptest.NewRecorder()
		h.PostMessage(rr, chatRequest(http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", []byte(`{"message":"first"}`), userID, chatID))
	}()

	// Wait for the first submission to be in flight.
	for len(sessions.History(chatID)) != 1 {
		time.Sleep(time.Millisecond)
	}

	rr := httptest.NewRecorder()
	h.PostMessage(rr, chatRequest(http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", []byte(`{"message":"second"}`), userID, chatID))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for an overlapping submission, got %d", rr.Code)
	}

	close(block)
	<-done

	// The rejected submission's credit was handed back: two spends, one refund.
	entitlement.mu.Lock()
	consumed, refunded := entitlement.consumed, entitlement.refunded
	entitlement.mu.Unlock()
	if consumed != 2 || refunded != 1 {
		t.Errorf("expected net spend of one credit, got consumed=%d refunded=%d", consumed, refunded)
	}

	// Only the in-flight submission's turns were persisted.
	if got := len(repo.savedMessages(chatID)); got != 2 {
		t.Errorf("expected 2 persisted messages, got %d", got)
	}
}

func TestPostMessage_SeedsFromPersistedHistory(t *testing.T) {
	userID := uuid.New()
	repo := newFakeChatRepo()
	chatID := repo.addChat(userID)
	repo.messages[chatID] = []models.Message{
		{ChatID: chatID, Role: models.RoleUser, Text: "earlier question"},
		{ChatID: chatID, Role: models.RoleAssistant, Text: "earlier answer"},
	}

	fake := &fakeGeneration{text: "continued"}
	// A fresh manager, as after a process restart.
	h := NewChatHandler(repo, session.NewManager(fake), &fakeEntitlement{})

	rr := httptest.NewRecorder()
	h.PostMessage(rr, chatRequest(http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", []byte(`{"message":"and then?"}`), userID, chatID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// Persisted history plus the new user turn reached the provider.
	if len(fake.lastContents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(fake.lastContents))
	}
	if fake.lastContents[1].Role != "model" {
		t.Errorf("expected persisted assistant turn as model role, got %q", fake.lastContents[1].Role)
	}
	if fake.lastContents[2].Parts[0].Text != "and then?" {
		t.Errorf("expected the new prompt last, got %+v", fake.lastContents[2])
	}
}

func TestCreateChat_TitleDefaultsAndTruncates(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		wantTitle string
	}{
		{"empty title defaults", "", "New Chat"},
		{"whitespace title defaults", "   ", "New Chat"},
		{"short title kept", "Trip planning", "Trip planning"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeChatRepo()
			h := NewChatHandler(repo, session.NewManager(&fakeGeneration{}), &fakeEntitlement{})

			body, _ := json.Marshal(models.CreateChatRequest{Title: tc.title})
			rr := httptest.NewRecorder()
			h.CreateChat(rr, chatRequest(http.MethodPost, "/api/v1/chats", body, uuid.New(), uuid.Nil))

			if rr.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d", rr.Code)
			}

			var chat models.Chat
			json.NewDecoder(rr.Body).Decode(&chat)
			if chat.Title != tc.wantTitle {
				t.Errorf("expected title %q, got %q", tc.wantTitle, chat.Title)
			}
		})
	}
}

func TestCreateChat_TruncatesLongTitleOnRunes(t *testing.T) {
	repo := newFakeChatRepo()
	h := NewChatHandler(repo, session.NewManager(&fakeGeneration{}), &fakeEntitlement{})

	longTitle := ""
	for i := 0; i < 60; i++ {
		longTitle += "ü"
	}
	body, _ := json.Marshal(models.CreateChatRequest{Title: longTitle})
	rr := httptest.NewRecorder()
	h.CreateChat(rr, chatRequest(http.MethodPost, "/api/v1/chats", body, uuid.New(), uuid.Nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	var chat models.Chat
	json.NewDecoder(rr.Body).Decode(&chat)
	if got := utf8.RuneCountInString(chat.Title); got != 50 {
		t.Errorf("expected 50 runes, got %d", got)
	}
	if !utf8.ValidString(chat.Title) {
		t.Error("truncated title is not valid UTF-8")
	}
}

func TestDeleteChat_DropsSessionHistory(t *testing.T) {
	userID := uuid.New()
	repo := newFakeChatRepo()
	chatID := repo.addChat(userID)
	sessions := session.NewManager(&fakeGeneration{text: "ok"})
	h := NewChatHandler(repo, sessions, &fakeEntitlement{})

	rr := httptest.NewRecorder()
	h.PostMessage(rr, chatRequest(http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", []byte(`{"message":"hi"}`), userID, chatID))
	if rr.Code != http.StatusOK {
		t.Fatalf("setup submission failed: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.DeleteChat(rr, chatRequest(http.MethodDelete, "/api/v1/chats/"+chatID.String(), nil, userID, chatID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := len(sessions.History(chatID)); got != 0 {
		t.Errorf("expected session history cleared, got %d turns", got)
	}
}
