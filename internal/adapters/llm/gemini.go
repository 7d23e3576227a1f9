package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

const defaultModel = "gemini-2.0-flash-exp"

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates an LLMClient backed by the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// GenerateReply implements domain.LLMClient for conversational turns.
func (g *GeminiClient) GenerateReply(
	ctx context.Context,
	utterance string,
	convCtx domain.ConversationContext,
) (string, error) {
	// History (user / assistant) as conversation turns.
	var contents []*genai.Content
	for _, m := range convCtx.History {
		contents = append(contents, genai.NewContentFromText(m.Text, roleFor(m.Author)))
	}
	contents = append(contents, genai.NewContentFromText(utterance, genai.RoleUser))

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(1000),
	}
	if convCtx.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(convCtx.System, genai.RoleUser)
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}

// roleFor maps a conversation author onto the Gemini turn role.
func roleFor(author domain.Role) genai.Role {
	if author == domain.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// GenerateContent runs a one-shot prompt, used for the structured
// estimation and insight operations.
func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}
