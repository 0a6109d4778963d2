package gemini

import (
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
)

// Output modalities a generation call may request.
const (
	ModalityImage = "IMAGE"
	ModalityText  = "TEXT"
)

const defaultImageMime = "image/png"

// Blob is inline binary data on the wire, base64-encoded.
type Blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// Part is one element of a wire content block. Parts carrying neither text
// nor inline data are ignored during normalization.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Content is one turn of a provider conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Candidate is one generated alternative in a provider response.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// PromptFeedback reports why the provider declined a request.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// RawResponse is the provider response as it arrives. Depending on the
// provider version, output parts show up either at the top level or nested
// under the first candidate; Normalize resolves that.
type RawResponse struct {
	Parts          []Part          `json:"parts"`
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback"`
}

// GenerationConfig selects what the provider should produce.
type GenerationConfig struct {
	Modalities  []string
	AspectRatio string
}

// Result is the normalized provider output: images in the order the
// provider returned them, and all text parts joined by newlines.
type Result struct {
	Images []models.InlineImage
	Text   string
}

type generateContentRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}
