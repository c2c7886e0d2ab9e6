package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Bounded output sizes per artifact kind. Quizzes run larger because of
// the per-option explanations.
const (
	maxTokensFlashcards int32 = 4000
	maxTokensQuiz       int32 = 6000
)

// generationTemperature stays low so the model favors source fidelity
// over creativity.
const generationTemperature = 0.3

// TextGenerator is the single external call the pipeline makes. The
// Gemini implementation below is the production one; tests substitute
// their own.
type TextGenerator interface {
	Generate(ctx context.Context, prompt Prompt, maxTokens int32) (string, error)
}

// GeminiGenerator calls the Gemini API with an explicit wall-clock
// timeout and at most one retry on transient transport failures.
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

// NewGeminiGenerator builds the production generator. Credentials and
// model name come in as explicit configuration, never from ambient
// global state.
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:    client,
		modelName: modelName,
		timeout:   timeout,
	}, nil
}

func (g *GeminiGenerator) Close() {
	g.client.Close()
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt Prompt, maxTokens int32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(generationTemperature)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(maxTokens)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.System)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil && isTransient(err) && ctx.Err() == nil {
		resp, err = model.GenerateContent(ctx, genai.Text(prompt.User))
	}
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty response")
	}

	return text, nil
}

func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return false
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func maxTokensFor(kind Kind) int32 {
	if kind == KindQuiz {
		return maxTokensQuiz
	}
	return maxTokensFlashcards
}
