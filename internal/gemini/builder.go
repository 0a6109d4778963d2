package gemini

import (
	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
)

// BuildConversation shapes a provider conversation from prior turns, a new
// prompt and optional attachments. The history is copied verbatim, then one
// fresh user turn is appended: the prompt text followed by the attachments
// in input order. This is the image-flow variant; it always creates a new
// turn.
func BuildConversation(history []models.Turn, prompt string, attachments []models.Attachment) []Content {
	contents := historyContents(history)

	parts := make([]Part, 0, len(attachments)+1)
	parts = append(parts, Part{Text: prompt})
	parts = append(parts, attachmentParts(attachments)...)

	return append(contents, Content{Role: "user", Parts: parts})
}

// AppendToConversation is the text-flow variant: when the trailing turn is a
// user turn, the new parts join it in place instead of opening a fresh turn.
func AppendToConversation(history []models.Turn, prompt string, attachments []models.Attachment) []Content {
	contents := historyContents(history)

	var parts []Part
	if prompt != "" {
		parts = append(parts, Part{Text: prompt})
	}
	parts = append(parts, attachmentParts(attachments)...)

	if n := len(contents); n > 0 && contents[n-1].Role == "user" {
		contents[n-1].Parts = append(contents[n-1].Parts, parts...)
		return contents
	}

	return append(contents, Content{Role: "user", Parts: parts})
}

func historyContents(history []models.Turn) []Content {
	contents := make([]Content, 0, len(history)+1)
	for _, turn := range history {
		parts := make([]Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p.Image != nil {
				parts = append(parts, Part{InlineData: &Blob{
					Data:     p.Image.Data,
					MimeType: mimeOrDefault(p.Image.MimeType),
				}})
				continue
			}
			parts = append(parts, Part{Text: p.Text})
		}
		contents = append(contents, Content{Role: wireRole(turn.Role), Parts: parts})
	}
	return contents
}

// attachmentParts maps attachments to inline-data parts. Payloads pass
// through unvalidated; malformed base64 surfaces later as a provider fault.
func attachmentParts(attachments []models.Attachment) []Part {
	parts := make([]Part, 0, len(attachments))
	for _, a := range attachments {
		parts = append(parts, Part{InlineData: &Blob{
			Data:     a.Data,
			MimeType: mimeOrDefault(a.MimeType),
		}})
	}
	return parts
}

// wireRole translates the conversation model's roles into the provider's.
func wireRole(role string) string {
	switch role {
	case models.RoleAssistant:
		return "model"
	case "":
		return "user"
	default:
		return role
	}
}

func mimeOrDefault(mime string) string {
	if mime == "" {
		return defaultImageMime
	}
	return mime
}
