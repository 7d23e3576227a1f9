package llm

import (
	"context"
	"fmt"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

// MockLLM is the keyless demo client. Replies are deterministic so local
// mode and tests behave the same on every run.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(ctx context.Context, utterance string, convCtx domain.ConversationContext) (string, error) {
	return fmt.Sprintf("I'm a demo AI assistant! You said %q. To make me real, please set GEMINI_API_KEY.", utterance), nil
}

func (m *MockLLM) GenerateContent(ctx context.Context, prompt string) (string, error) {
	// A fixed, well-formed object keeps the estimate and insights
	// endpoints usable without a key.
	return `{
  "humanTime": 60,
  "aiTime": 20,
  "confidence": 50,
  "category": "general",
  "reasoning": "Demo estimate; set GEMINI_API_KEY for real analysis.",
  "patterns": [],
  "topAITasks": [],
  "totalTimeSaved": 0,
  "recommendations": ["Set GEMINI_API_KEY to enable real insights."],
  "trends": []
}`, nil
}
