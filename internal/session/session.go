package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/gemini"
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
)

// ErrBusy is returned when a submission arrives while another one for the
// same chat is still waiting on the provider. Overlapping submissions are
// rejected rather than queued or interleaved.
var ErrBusy = errors.New("a submission is already in progress for this chat")

// Mode selects which gateway path a submission takes.
type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
)

type generator interface {
	Generate(ctx context.Context, contents []gemini.Content, cfg gemini.GenerationConfig) (*gemini.Result, error)
	Chat(ctx context.Context, contents []gemini.Content) (string, error)
}

type conversation struct {
	turns    []models.Turn
	inFlight bool
}

// Manager owns the in-memory ordered turn list per chat and drives gateway
// calls. History grows unbounded for the life of the process; persistence
// and entitlement checks belong to the callers.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*conversation
	gen      generator
}

func NewManager(gen generator) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*conversation),
		gen:      gen,
	}
}

// History returns a snapshot of the chat's turns.
func (m *Manager) History(chatID uuid.UUID) []models.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.sessions[chatID]
	if !ok {
		return nil
	}

	turns := make([]models.Turn, len(conv.turns))
	copy(turns, conv.turns)
	return turns
}

// Seed loads persisted turns into an empty session. A session that already
// holds turns is left alone.
func (m *Manager) Seed(chatID uuid.UUID, turns []models.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.getOrCreateLocked(chatID)
	if len(conv.turns) == 0 {
		conv.turns = append(conv.turns, turns...)
	}
}

// Clear drops the in-memory history for a chat.
func (m *Manager) Clear(chatID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Submit appends the user turn immediately, runs one gateway round trip and
// appends the assistant turn. A generation failure is surfaced as the
// assistant turn's text content, not as an error; the only error Submit
// itself reports is ErrBusy.
func (m *Manager) Submit(ctx context.Context, chatID uuid.UUID, prompt string, attachments []models.Attachment, mode Mode) (models.Turn, models.Turn, error) {
	userTurn := buildUserTurn(prompt, attachments)

	m.mu.Lock()
	conv := m.getOrCreateLocked(chatID)
	if conv.inFlight {
		m.mu.Unlock()
		return models.Turn{}, models.Turn{}, ErrBusy
	}
	conv.inFlight = true

	prior := make([]models.Turn, len(conv.turns))
	copy(prior, conv.turns)
	conv.turns = append(conv.turns, userTurn)
	m.mu.Unlock()

	assistantTurn := m.roundTrip(ctx, prior, prompt, attachments, mode)

	m.mu.Lock()
	conv.turns = append(conv.turns, assistantTurn)
	conv.inFlight = false
	m.mu.Unlock()

	return userTurn, assistantTurn, nil
}

// roundTrip runs without holding the manager lock; the provider call may
// take a while and other chats must not stall behind it.
func (m *Manager) roundTrip(ctx context.Context, prior []models.Turn, prompt string, attachments []models.Attachment, mode Mode) models.Turn {
	if mode == ModeImage {
		contents := gemini.BuildConversation(prior, prompt, attachments)
		result, err := m.gen.Generate(ctx, contents, gemini.GenerationConfig{})
		if err != nil {
			return textTurn(models.RoleAssistant, err.Error())
		}
		return assistantTurn(result)
	}

	contents := gemini.AppendToConversation(prior, prompt, attachments)
	text, err := m.gen.Chat(ctx, contents)
	if err != nil {
		return textTurn(models.RoleAssistant, err.Error())
	}
	return textTurn(models.RoleAssistant, text)
}

func buildUserTurn(prompt string, attachments []models.Attachment) models.Turn {
	var parts []models.ContentPart
	if prompt != "" {
		parts = append(parts, models.ContentPart{Text: prompt})
	}
	for _, a := range attachments {
		mime := a.MimeType
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, models.ContentPart{Image: &models.InlineImage{Data: a.Data, MimeType: mime}})
	}
	return models.Turn{Role: models.RoleUser, Parts: parts}
}

func assistantTurn(result *gemini.Result) models.Turn {
	var parts []models.ContentPart
	if result.Text != "" {
		parts = append(parts, models.ContentPart{Text: result.Text})
	}
	for i := range result.Images {
		img := result.Images[i]
		parts = append(parts, models.ContentPart{Image: &img})
	}
	return models.Turn{Role: models.RoleAssistant, Parts: parts}
}

func textTurn(role, text string) models.Turn {
	return models.Turn{Role: role, Parts: []models.ContentPart{{Text: text}}}
}

func (m *Manager) getOrCreateLocked(chatID uuid.UUID) *conversation {
	if conv, ok := m.sessions[chatID]; ok {
		return conv
	}
	conv := &conversation{}
	m.sessions[chatID] = conv
	return conv
}
