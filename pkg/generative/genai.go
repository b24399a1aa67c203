package generative

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/matzehuels/chartforge/pkg/errors"
	"github.com/matzehuels/chartforge/pkg/observability"
)

// Options configures [NewGenAI].
type Options struct {
	APIKey      string
	Model       string
	Temperature float32
}

// GenAI calls the Gemini API through google.golang.org/genai.
type GenAI struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGenAI creates a client. It does not contact the service.
func NewGenAI(ctx context.Context, opts Options) (*GenAI, error) {
	if opts.APIKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "generative API key is required")
	}
	if opts.Model == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "generative model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGenerativeUnavailable, err, "create genai client")
	}
	return &GenAI{client: client, model: opts.Model, temperature: opts.Temperature}, nil
}

// Model returns the model name.
func (g *GenAI) Model() string { return g.model }

// Generate sends prompt as a single user turn and returns the text of the
// first candidate.
func (g *GenAI) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.generate(ctx, prompt)
	observability.Generative().OnCall(ctx, g.model, time.Since(start), err)
	return text, err
}

func (g *GenAI) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeGenerativeUnavailable, err, "generate content with %s", g.model)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New(errors.ErrCodeGenerativeUnavailable, "%s returned an empty response", g.model)
	}
	return text, nil
}

var _ Generator = (*GenAI)(nil)
