package models

import (
	"time"

	"github.com/google/uuid"
)

// Role values for a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// InlineImage is binary image data embedded as base64 text, paired with a
// media type.
type InlineImage struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// ContentPart is one element of a turn: either text or an inline image.
// Exactly one field is set; parts are never mutated after construction.
type ContentPart struct {
	Text  string       `json:"text,omitempty"`
	Image *InlineImage `json:"image,omitempty"`
}

// Turn is one participant's contribution to a conversation. Part order
// within a turn is preserved as supplied.
type Turn struct {
	Role  string        `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// Attachment is an inline file sent alongside a prompt. MimeType may be
// empty; it defaults to image/png when the request is shaped.
type Attachment struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType,omitempty"`
}

// Chat is a persisted conversation owned by a user.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a persisted conversation turn.
type Message struct {
	ID        uuid.UUID     `json:"id"`
	ChatID    uuid.UUID     `json:"chat_id"`
	Role      string        `json:"role"`
	Text      string        `json:"text"`
	Images    []InlineImage `json:"images,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ChatMessageRequest is the payload posted to a chat.
type ChatMessageRequest struct {
	Message     string       `json:"message"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Mode        string       `json:"mode,omitempty"` // "text" (default) or "image"
}

// ChatMessageResponse carries the two turns a submission produced.
type ChatMessageResponse struct {
	UserMessage      Message `json:"user_message"`
	AssistantMessage Message `json:"assistant_message"`
}

// CreateChatRequest names a new chat.
type CreateChatRequest struct {
	Title string `json:"title"`
}
