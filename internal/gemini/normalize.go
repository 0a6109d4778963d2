package gemini

import (
	"strings"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/models"
)

// Normalize extracts a uniform result from a raw provider response. Every
// part is classified as an inline image or text; parts matching neither are
// dropped. When nothing usable remains the call is treated as failed, not
// empty, and the returned error is a *Failure.
func Normalize(raw *RawResponse) (*Result, error) {
	result := &Result{}

	var texts []string
	for _, p := range outputParts(raw) {
		switch {
		case p.InlineData != nil:
			result.Images = append(result.Images, models.InlineImage{
				Data:     p.InlineData.Data,
				MimeType: mimeOrDefault(p.InlineData.MimeType),
			})
		case p.Text != "":
			texts = append(texts, p.Text)
		}
	}
	result.Text = strings.Join(texts, "\n")

	if len(result.Images) == 0 && result.Text == "" {
		return nil, classifyEmpty(raw)
	}
	return result, nil
}

// ExtractText joins the text parts of a response. The text flow reads only
// this; an empty response yields an empty string, never a Failure.
func ExtractText(raw *RawResponse) string {
	var texts []string
	for _, p := range outputParts(raw) {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// outputParts resolves the two shapes the provider is known to use: parts at
// the top level win; otherwise the first candidate's content is read. Absent
// fields are empty sequences, never a fault.
func outputParts(raw *RawResponse) []Part {
	if raw == nil {
		return nil
	}
	if len(raw.Parts) > 0 {
		return raw.Parts
	}
	if len(raw.Candidates) > 0 {
		return raw.Candidates[0].Content.Parts
	}
	return nil
}

// classifyEmpty decides why a response carried no usable parts. A block
// reason takes precedence over a finish reason.
func classifyEmpty(raw *RawResponse) *Failure {
	if raw != nil && raw.PromptFeedback != nil && raw.PromptFeedback.BlockReason != "" {
		return &Failure{Kind: FailureBlocked, Reason: raw.PromptFeedback.BlockReason}
	}
	if raw != nil && len(raw.Candidates) > 0 && raw.Candidates[0].FinishReason != "" {
		return &Failure{Kind: FailureNoOutput, Reason: raw.Candidates[0].FinishReason}
	}
	return &Failure{Kind: FailureNoOutput}
}
