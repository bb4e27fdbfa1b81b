package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Gemini is the text generation service. It holds no conversation state;
// every call is single-shot.
type Gemini interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type GeminiClient struct {
	client          *genai.Client
	generativeModel string
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

// NewGemini creates a Gemini client against the Gemini API backend.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.0-flash",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	contents := genai.Text(prompt)

	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content")
	}

	if len(resp.Candidates) == 0 ||
		resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", goerr.New("generation response has no content")
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", goerr.New("generation response is empty")
	}

	return text, nil
}
