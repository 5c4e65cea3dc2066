package modelclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GenAIClient wraps a single google/generative-ai-go client and serves
// both VisionClient and ChatClient: one genai.Client backs both
// image-prompted classification and structured text generation.
// genai.Client is safe for concurrent calls, so one instance can be
// shared across extractions.
type GenAIClient struct {
	client    *genai.Client
	modelName string
}

// NewGenAIClient dials the Generative Language API with the given API key
// and default model name (e.g. "gemini-1.5-flash").
func NewGenAIClient(ctx context.Context, apiKey, modelName string) (*GenAIClient, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GenAIClient{client: c, modelName: modelName}, nil
}

// Close releases the underlying gRPC connection.
func (g *GenAIClient) Close() error {
	return g.client.Close()
}

// AnalyzeImage implements VisionClient by submitting the image alongside
// the prompt to the configured model.
func (g *GenAIClient) AnalyzeImage(ctx context.Context, imageBytes []byte, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	resp, err := model.GenerateContent(ctx, genai.ImageData("png", imageBytes), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("vision call: %w", err)
	}
	return collectText(resp), nil
}

// Chat implements ChatClient by concatenating the message history into a
// single turn: the genai text API has no separate "messages" concept,
// so system/user/assistant turns are rendered as labeled paragraphs.
func (g *GenAIClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	model := g.client.GenerativeModel(g.modelName)

	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", strings.ToUpper(m.Role), m.Content)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(b.String()))
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}
	return collectText(resp), nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return b.String()
}
