package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zentriq68-boop/Lumio-Chat-App/internal/gemini"
)

// provider is the single capability this gateway consumes. The concrete
// client is injected so tests can substitute a fake.
type provider interface {
	GenerateContent(ctx context.Context, model string, contents []gemini.Content, cfg *gemini.GenerationConfig) (*gemini.RawResponse, error)
}

// GenerationService orchestrates one provider round trip per call: no
// retries, no streaming, no cancellation of an in-flight request beyond the
// context the caller supplies.
type GenerationService struct {
	provider   provider
	imageModel string
	textModel  string
	rateChan   chan struct{} // Token bucket
}

func NewGenerationService(p provider, imageModel, textModel string, concurrentReqs int) *GenerationService {
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GenerationService{
		provider:   p,
		imageModel: imageModel,
		textModel:  textModel,
		rateChan:   rateChan,
	}
}

// acquireRate blocks until a rate slot is available
func (s *GenerationService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for generation rate slot")
	}
}

func (s *GenerationService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Generate runs the image-flow round trip. Empty modalities default to
// IMAGE. Provider-level faults come back as a *gemini.Failure of kind
// provider_error; an empty response is classified by the normalizer.
func (s *GenerationService) Generate(ctx context.Context, contents []gemini.Content, cfg gemini.GenerationConfig) (*gemini.Result, error) {
	if len(cfg.Modalities) == 0 {
		cfg.Modalities = []string{gemini.ModalityImage}
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	raw, err := s.provider.GenerateContent(ctx, s.imageModel, contents, &cfg)
	if err != nil {
		return nil, &gemini.Failure{Kind: gemini.FailureProvider, Reason: err.Error()}
	}

	return gemini.Normalize(raw)
}

// Chat runs the text-only round trip. It reads text parts only and joins
// them; a response with nothing usable yields an empty string rather than a
// classified failure.
func (s *GenerationService) Chat(ctx context.Context, contents []gemini.Content) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	cfg := &gemini.GenerationConfig{Modalities: []string{gemini.ModalityText}}
	raw, err := s.provider.GenerateContent(ctx, s.textModel, contents, cfg)
	if err != nil {
		return "", &gemini.Failure{Kind: gemini.FailureProvider, Reason: err.Error()}
	}

	return gemini.ExtractText(raw), nil
}
