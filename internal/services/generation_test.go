package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/gemini"
)

type fakeProvider struct {
	response *gemini.RawResponse
	err      error

	calls     int
	lastModel string
	lastCfg   *gemini.GenerationConfig
}

func (f *fakeProvider) GenerateContent(ctx context.Context, model string, contents []gemini.Content, cfg *gemini.GenerationConfig) (*gemini.RawResponse, error) {
	f.calls++
	f.lastModel = model
	f.lastCfg = cfg
	return f.response, f.err
}

func TestGenerate_NormalizesProviderOutput(t *testing.T) {
	fake := &fakeProvider{
		response: &gemini.RawResponse{
			Candidates: []gemini.Candidate{
				{Content: gemini.Content{Parts: []gemini.Part{
					{Text: "here you go"},
					{InlineData: &gemini.Blob{Data: "aW1n", MimeType: "image/jpeg"}},
				}}},
			},
		},
	}
	svc := NewGenerationService(fake, "image-model", "text-model", 2)

	result, err := svc.Generate(context.Background(), nil, gemini.GenerationConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Text != "here you go" {
		t.Errorf("unexpected text: %q", result.Text)
	}
	if len(result.Images) != 1 || result.Images[0].MimeType != "image/jpeg" {
		t.Errorf("unexpected images: %+v", result.Images)
	}
	if fake.lastModel != "image-model" {
		t.Errorf("expected image model, got %q", fake.lastModel)
	}
	if fake.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", fake.calls)
	}
}

func TestGenerate_DefaultsModalitiesToImage(t *testing.T) {
	fake := &fakeProvider{response: &gemini.RawResponse{Parts: []gemini.Part{{Text: "x"}}}}
	svc := NewGenerationService(fake, "img", "txt", 1)

	if _, err := svc.Generate(context.Background(), nil, gemini.GenerationConfig{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.lastCfg == nil || len(fake.lastCfg.Modalities) != 1 || fake.lastCfg.Modalities[0] != gemini.ModalityImage {
		t.Errorf("expected IMAGE modality default, got %+v", fake.lastCfg)
	}
}

func TestGenerate_KeepsCallerModalities(t *testing.T) {
	fake := &fakeProvider{response: &gemini.RawResponse{Parts: []gemini.Part{{Text: "x"}}}}
	svc := NewGenerationService(fake, "img", "txt", 1)

	cfg := gemini.GenerationConfig{Modalities: []string{gemini.ModalityImage, gemini.ModalityText}, AspectRatio: "16:9"}
	if _, err := svc.Generate(context.Background(), nil, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.lastCfg.Modalities) != 2 {
		t.Errorf("caller modalities were not preserved: %+v", fake.lastCfg.Modalities)
	}
	if fake.lastCfg.AspectRatio != "16:9" {
		t.Errorf("aspect ratio was not forwarded: %q", fake.lastCfg.AspectRatio)
	}
}

func TestGenerate_ProviderFaultBecomesProviderError(t *testing.T) {
	fake := &fakeProvider{err: fmt.Errorf("gemini API 503 Service Unavailable: overloaded")}
	svc := NewGenerationService(fake, "img", "txt", 1)

	_, err := svc.Generate(context.Background(), nil, gemini.GenerationConfig{})

	var failure *gemini.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *gemini.Failure, got %T", err)
	}
	if failure.Kind != gemini.FailureProvider {
		t.Errorf("expected provider_error, got %s", failure.Kind)
	}
	if failure.Reason == "" {
		t.Error("expected underlying message to be surfaced verbatim")
	}
}

func TestGenerate_EmptyOutputIsClassified(t *testing.T) {
	fake := &fakeProvider{
		response: &gemini.RawResponse{
			PromptFeedback: &gemini.PromptFeedback{BlockReason: "SAFETY"},
		},
	}
	svc := NewGenerationService(fake, "img", "txt", 1)

	_, err := svc.Generate(context.Background(), nil, gemini.GenerationConfig{})

	var failure *gemini.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *gemini.Failure, got %T", err)
	}
	if failure.Kind != gemini.FailureBlocked {
		t.Errorf("expected blocked_by_policy, got %s", failure.Kind)
	}
}

func TestChat_JoinsTextAndUsesTextModel(t *testing.T) {
	fake := &fakeProvider{
		response: &gemini.RawResponse{
			Candidates: []gemini.Candidate{
				{Content: gemini.Content{Parts: []gemini.Part{{Text: "a"}, {Text: "b"}}}},
			},
		},
	}
	svc := NewGenerationService(fake, "img", "txt", 1)

	text, err := svc.Chat(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "a\nb" {
		t.Errorf("expected joined text, got %q", text)
	}
	if fake.lastModel != "txt" {
		t.Errorf("expected text model, got %q", fake.lastModel)
	}
	if fake.lastCfg == nil || len(fake.lastCfg.Modalities) != 1 || fake.lastCfg.Modalities[0] != gemini.ModalityText {
		t.Errorf("expected TEXT modality, got %+v", fake.lastCfg)
	}
}

func TestChat_EmptyResponseIsEmptyStringNotFailure(t *testing.T) {
	fake := &fakeProvider{
		response: &gemini.RawResponse{
			PromptFeedback: &gemini.PromptFeedback{BlockReason: "SAFETY"},
		},
	}
	svc := NewGenerationService(fake, "img", "txt", 1)

	text, err := svc.Chat(context.Background(), nil)
	if err != nil {
		t.Fatalf("text flow must not classify empty output, got %v", err)
	}
	if text != "" {
		t.Errorf("expected empty string, got %q", text)
	}
}

func TestChat_ProviderFaultSurfaces(t *testing.T) {
	fake := &fakeProvider{err: fmt.Errorf("request: connection refused")}
	svc := NewGenerationService(fake, "img", "txt", 1)

	_, err := svc.Chat(context.Background(), nil)

	var failure *gemini.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *gemini.Failure, got %T", err)
	}
	if failure.Kind != gemini.FailureProvider {
		t.Errorf("expected provider_error, got %s", failure.Kind)
	}
}
