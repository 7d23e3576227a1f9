// Package assistant is the server-side AI surface: persisted chat with the
// user's productivity data as context, task-duration estimation, and
// insight generation.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/asub927/human-vs-ai-app/internal/domain"
	"github.com/asub927/human-vs-ai-app/internal/observability"
)

// historyWindow is how many persisted turns feed back into the model.
const historyWindow = 10

type Service struct {
	llm      domain.LLMClient
	tasks    domain.TaskStore
	projects domain.ProjectStore
	history  domain.HistoryStore
	now      func() time.Time
}

func NewService(llm domain.LLMClient, tasks domain.TaskStore, projects domain.ProjectStore, history domain.HistoryStore) *Service {
	return &Service{
		llm:      llm,
		tasks:    tasks,
		projects: projects,
		history:  history,
		now:      time.Now,
	}
}

type ChatOutput struct {
	Message   string
	Timestamp time.Time
}

// Chat answers one utterance with the user's stored tasks and projects
// summarized into the system preamble, and persists both turns.
func (s *Service) Chat(ctx context.Context, userID domain.UserID, message string) (*ChatOutput, error) {
	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	tasks, err := s.tasks.ListTasksByUser(userID)
	if err != nil {
		return nil, err
	}
	projects, err := s.projects.ListProjectsByUser(userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.ListHistoryByUser(userID, historyWindow)
	if err != nil {
		return nil, err
	}

	convCtx := domain.ConversationContext{
		UserID:  userID,
		System:  chatSystemPrompt(buildContext(tasks, projects)),
		History: historyToMessages(entries),
	}

	reply, err := s.llm.GenerateReply(ctx, message, convCtx)
	if err != nil {
		log.Error("assistant chat failed", "error", err)
		return nil, err
	}

	now := s.now()
	for _, turn := range []struct {
		role domain.Role
		text string
	}{
		{domain.RoleUser, message},
		{domain.RoleAssistant, reply},
	} {
		entry := &domain.HistoryEntry{
			ID:        domain.HistoryEntryID(ulid.Make().String()),
			UserID:    userID,
			Role:      turn.role,
			Text:      turn.text,
			CreatedAt: now,
		}
		if err := s.history.AppendHistory(entry); err != nil {
			log.Error("failed to persist chat history", "error", err)
			return nil, err
		}
	}

	return &ChatOutput{Message: reply, Timestamp: now}, nil
}

// ClearHistory wipes the user's persisted assistant conversation.
func (s *Service) ClearHistory(ctx context.Context, userID domain.UserID) error {
	return s.history.DeleteHistoryByUser(userID)
}

// Estimate is the structured duration estimate for a described task.
type Estimate struct {
	HumanTime  float64 `json:"humanTime"`
	AITime     float64 `json:"aiTime"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
	Reasoning  string  `json:"reasoning"`
}

// EstimateTask asks the model for duration estimates grounded in the
// user's historical tasks. The response must contain a JSON object;
// otherwise domain.ErrNoJSON is returned.
func (s *Service) EstimateTask(ctx context.Context, userID domain.UserID, description string) (*Estimate, error) {
	tasks, err := s.tasks.ListTasksByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(tasks) > historyWindow {
		tasks = tasks[:historyWindow]
	}

	text, err := s.llm.GenerateContent(ctx, estimatePrompt(description, tasks))
	if err != nil {
		return nil, err
	}

	var est Estimate
	if err := decodeJSONObject(text, &est); err != nil {
		return nil, err
	}
	return &est, nil
}

// TopAITask names a task where AI assistance paid off most.
type TopAITask struct {
	Task string  `json:"task"`
	Gain float64 `json:"gain"`
}

// Trend is one time-bucketed metric observation.
type Trend struct {
	Period string  `json:"period"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// Insights is the model's structured read of the user's data.
type Insights struct {
	Patterns        []string    `json:"patterns"`
	TopAITasks      []TopAITask `json:"topAITasks"`
	TotalTimeSaved  float64     `json:"totalTimeSaved"`
	Recommendations []string    `json:"recommendations"`
	Trends          []Trend     `json:"trends"`
}

// GenerateInsights asks the model to analyze the user's tasks and
// projects. Fails closed with domain.ErrNoJSON when no JSON object can be
// extracted.
func (s *Service) GenerateInsights(ctx context.Context, userID domain.UserID) (*Insights, error) {
	tasks, err := s.tasks.ListTasksByUser(userID)
	if err != nil {
		return nil, err
	}
	projects, err := s.projects.ListProjectsByUser(userID)
	if err != nil {
		return nil, err
	}

	text, err := s.llm.GenerateContent(ctx, insightsPrompt(tasks, projects))
	if err != nil {
		return nil, err
	}

	var ins Insights
	if err := decodeJSONObject(text, &ins); err != nil {
		return nil, err
	}
	return &ins, nil
}

// decodeJSONObject extracts the first-to-last brace span from free text
// and decodes it into v. No span, or a span that does not decode, is a
// ParseError: we never guess at malformed model output.
func decodeJSONObject(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return domain.ErrNoJSON
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNoJSON, err)
	}
	return nil
}

func historyToMessages(entries []*domain.HistoryEntry) []*domain.Message {
	msgs := make([]*domain.Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, &domain.Message{
			ID:        domain.MessageID(e.ID),
			Author:    e.Role,
			Text:      e.Text,
			CreatedAt: e.CreatedAt,
		})
	}
	return msgs
}
