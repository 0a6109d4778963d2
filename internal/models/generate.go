package models

// GenerateImageRequest is the payload for POST /image.
type GenerateImageRequest struct {
	Prompt       string       `json:"prompt"`
	Images       []Attachment `json:"images,omitempty"`
	AspectRatio  string       `json:"aspectRatio,omitempty"`
	ResponseType string       `json:"responseType,omitempty"` // "IMAGE" (default), "TEXT" or "BOTH"
	History      []Turn       `json:"history,omitempty"`
}

// GenerateImageResponse is the normalized provider output for the image flow.
type GenerateImageResponse struct {
	Images []InlineImage `json:"images"`
	Text   string        `json:"text"`
}

// GenerateTextRequest is the payload for POST /text.
type GenerateTextRequest struct {
	Prompt  string       `json:"prompt,omitempty"`
	Files   []Attachment `json:"files,omitempty"`
	History []Turn       `json:"history,omitempty"`
}

// GenerateTextResponse carries the text-flow reply.
type GenerateTextResponse struct {
	Text string `json:"text"`
}
