package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Turn is one prior message handed to the model.
type Turn struct {
	User bool
	Text string
}

// Prompt is everything a Responder needs for one answer.
type Prompt struct {
	System  string
	History []Turn
	Query   string
}

// Responder produces the assistant's wording.
type Responder interface {
	Respond(ctx context.Context, p Prompt) (string, error)
}

// GeminiResponder answers through Google's Gemini API.
type GeminiResponder struct {
	client  *genai.Client
	modelID string
}

func NewGeminiResponder(ctx context.Context, apiKey, modelID string) (*GeminiResponder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("assistant: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-1.5-pro"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("assistant: create gemini client: %w", err)
	}
	return &GeminiResponder{client: client, modelID: modelID}, nil
}

func (g *GeminiResponder) Respond(ctx context.Context, p Prompt) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0.3)
	if strings.TrimSpace(p.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(p.System))
	}

	cs := model.StartChat()
	cs.History = historyContents(p.History)

	resp, err := cs.SendMessage(ctx, genai.Text(p.Query))
	if err != nil {
		return "", fmt.Errorf("assistant: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("assistant: gemini returned no candidates")
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	answer := strings.TrimSpace(out.String())
	if answer == "" {
		return "", errors.New("assistant: gemini returned empty content")
	}
	return answer, nil
}

func historyContents(turns []Turn) []*genai.Content {
	var out []*genai.Content
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		role := "model"
		if t.User {
			role = "user"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(text)}})
	}
	return out
}

func (g *GeminiResponder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
