package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/asub927/human-vs-ai-app/internal/adapters/llm"
	"github.com/asub927/human-vs-ai-app/internal/adapters/storage/memory"
	"github.com/asub927/human-vs-ai-app/internal/app/chat"
	"github.com/asub927/human-vs-ai-app/internal/app/guided"
	"github.com/asub927/human-vs-ai-app/internal/app/projects"
	"github.com/asub927/human-vs-ai-app/internal/app/tasks"
	"github.com/asub927/human-vs-ai-app/internal/domain"
)

type fixture struct {
	svc          *chat.Service
	projectStore *memory.ProjectStore
	taskStore    *memory.TaskStore
	projectSvc   *projects.Service
}

func newFixture(t *testing.T, llmClient domain.LLMClient) *fixture {
	t.Helper()

	projectStore := memory.NewProjectStore()
	taskStore := memory.NewTaskStore()
	projectSvc := projects.NewService(projectStore)
	taskSvc := tasks.NewService(taskStore, projectStore)

	svc := chat.NewService(
		llmClient,
		memory.NewSessionStore(),
		memory.NewMessageStore(),
		projectStore,
		projectSvc,
		taskSvc,
		5*time.Second,
	)

	return &fixture{
		svc:          svc,
		projectStore: projectStore,
		taskStore:    taskStore,
		projectSvc:   projectSvc,
	}
}

func startSession(t *testing.T, svc *chat.Service) domain.SessionID {
	t.Helper()

	out, err := svc.StartSession(context.Background(), chat.StartSessionInput{
		UserID: "test-user",
		Title:  "Test session",
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if out.Welcome == nil || out.Welcome.Text == "" {
		t.Fatalf("expected a welcome message")
	}
	return out.Session.ID
}

func TestStartSessionAndFreeChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	sessionID := startSession(t, f.svc)

	out, err := f.svc.SendMessage(ctx, chat.SendMessageInput{
		SessionID: sessionID,
		Text:      "how productive was I this week?",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(out.AssistantMessages) != 1 || out.AssistantMessages[0].Text == "" {
		t.Fatalf("expected one non-empty assistant reply, got %v", out.AssistantMessages)
	}
	if out.Mode != guided.ModeFreeChat {
		t.Fatalf("expected free chat mode, got %s", out.Mode)
	}
}

func TestEmptyUtteranceRejected(t *testing.T) {
	f := newFixture(t, llm.NewMockLLM())
	sessionID := startSession(t, f.svc)

	_, err := f.svc.SendMessage(context.Background(), chat.SendMessageInput{
		SessionID: sessionID,
		Text:      "   ",
	})
	if !errors.Is(err, chat.ErrEmptyUtterance) {
		t.Fatalf("expected ErrEmptyUtterance, got %v", err)
	}
}

type failingLLM struct{}

func (failingLLM) GenerateReply(ctx context.Context, utterance string, convCtx domain.ConversationContext) (string, error) {
	return "", errors.New("quota exceeded")
}

func (failingLLM) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestBridgeFailureFallsBackToApology(t *testing.T) {
	f := newFixture(t, failingLLM{})
	sessionID := startSession(t, f.svc)

	out, err := f.svc.SendMessage(context.Background(), chat.SendMessageInput{
		SessionID: sessionID,
		Text:      "hello",
	})
	if err != nil {
		t.Fatalf("SendMessage must not surface bridge errors, got %v", err)
	}
	if len(out.AssistantMessages) != 1 {
		t.Fatalf("expected exactly one reply, got %d", len(out.AssistantMessages))
	}
	reply := out.AssistantMessages[0].Text
	if !strings.Contains(reply, "Sorry, I encountered an error") {
		t.Fatalf("expected apology reply, got %q", reply)
	}
	if strings.Contains(reply, "quota") {
		t.Fatalf("raw backend error leaked to the user: %q", reply)
	}
}

func TestGuidedCreateProjectEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	sessionID := startSession(t, f.svc)

	out, err := f.svc.QuickAction(ctx, sessionID, guided.ActionCreateProject)
	if err != nil {
		t.Fatalf("QuickAction failed: %v", err)
	}
	if out.Mode != guided.ModeProjectName {
		t.Fatalf("expected project-name mode, got %s", out.Mode)
	}

	if _, err := f.svc.SendMessage(ctx, chat.SendMessageInput{SessionID: sessionID, Text: "Launch"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	final, err := f.svc.SendMessage(ctx, chat.SendMessageInput{SessionID: sessionID, Text: "Draft plan"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if final.Mode != guided.ModeFreeChat {
		t.Fatalf("expected return to free chat, got %s", final.Mode)
	}
	last := final.AssistantMessages[len(final.AssistantMessages)-1].Text
	if last != `Project "Launch" created with task "Draft plan"!` {
		t.Fatalf("unexpected confirmation: %q", last)
	}

	created, err := f.projectStore.ListProjectsByUser("test-user")
	if err != nil {
		t.Fatalf("ListProjectsByUser failed: %v", err)
	}
	if len(created) != 1 || created[0].Name != "Launch" {
		t.Fatalf("expected one project named Launch, got %v", created)
	}
	if len(created[0].TaskNames) != 1 || created[0].TaskNames[0] != "Draft plan" {
		t.Fatalf("expected initial task definition, got %v", created[0].TaskNames)
	}
}

func TestGuidedFillFormRecordsTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	sessionID := startSession(t, f.svc)

	if _, err := f.projectSvc.CreateProject(ctx, "test-user", "Website", []string{"Design Homepage"}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	if _, err := f.svc.QuickAction(ctx, sessionID, guided.ActionFillForm); err != nil {
		t.Fatalf("QuickAction failed: %v", err)
	}
	for _, input := range []string{"1", "1", "120"} {
		if _, err := f.svc.SendMessage(ctx, chat.SendMessageInput{SessionID: sessionID, Text: input}); err != nil {
			t.Fatalf("SendMessage(%q) failed: %v", input, err)
		}
	}
	final, err := f.svc.SendMessage(ctx, chat.SendMessageInput{SessionID: sessionID, Text: "30"})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if final.Mode != guided.ModeFreeChat {
		t.Fatalf("expected return to free chat, got %s", final.Mode)
	}

	recorded, err := f.taskStore.ListTasksByUser("test-user")
	if err != nil {
		t.Fatalf("ListTasksByUser failed: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("expected exactly one recorded task, got %d", len(recorded))
	}
	task := recorded[0]
	if task.Name != "Design Homepage" || task.HumanTime != 120 || task.AITime != 30 {
		t.Fatalf("unexpected recorded task: %+v", task)
	}
}

func TestQuickActionWithNoProjects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	sessionID := startSession(t, f.svc)

	out, err := f.svc.QuickAction(ctx, sessionID, guided.ActionAddTask)
	if err != nil {
		t.Fatalf("QuickAction failed: %v", err)
	}
	if out.Mode != guided.ModeFreeChat {
		t.Fatalf("expected to stay in free chat, got %s", out.Mode)
	}
	if len(out.AssistantMessages) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(out.AssistantMessages))
	}
	if out.AssistantMessages[0].Text != "You don't have any projects yet. Create one first!" {
		t.Fatalf("unexpected message: %q", out.AssistantMessages[0].Text)
	}
	if got, _ := f.taskStore.ListTasksByUser("test-user"); len(got) != 0 {
		t.Fatalf("no mutator may fire, got %d tasks", len(got))
	}
}

type stuckRecorder struct{}

func (stuckRecorder) CreateTask(ctx context.Context, userID domain.UserID, projectID domain.ProjectID, name string, humanTime, aiTime int) (*domain.Task, error) {
	return nil, errors.New("storage unavailable")
}

func TestMutationFailureResetsFlow(t *testing.T) {
	ctx := context.Background()

	projectStore := memory.NewProjectStore()
	projectSvc := projects.NewService(projectStore)
	svc := chat.NewService(
		llm.NewMockLLM(),
		memory.NewSessionStore(),
		memory.NewMessageStore(),
		projectStore,
		projectSvc,
		stuckRecorder{},
		5*time.Second,
	)

	if _, err := projectSvc.CreateProject(ctx, "test-user", "Website", []string{"Design Homepage"}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	sessionID := startSession(t, svc)

	if _, err := svc.QuickAction(ctx, sessionID, guided.ActionFillForm); err != nil {
		t.Fatalf("QuickAction failed: %v", err)
	}
	for _, input := range []string{"1", "1", "120"} {
		if _, err := svc.SendMessage(ctx, chat.SendMessageInput{SessionID: sessionID, Text: input}); err != nil {
			t.Fatalf("SendMessage(%q) failed: %v", input, err)
		}
	}

	final, err := svc.SendMessage(ctx, chat.SendMessageInput{SessionID: sessionID, Text: "30"})
	if err != nil {
		t.Fatalf("mutation failure must not surface as a turn error: %v", err)
	}

	// The session must not be left stuck awaiting input.
	if final.Mode != guided.ModeFreeChat {
		t.Fatalf("expected reset to free chat after mutation failure, got %s", final.Mode)
	}
	if len(final.AssistantMessages) != 1 {
		t.Fatalf("expected exactly one failure message, got %d", len(final.AssistantMessages))
	}
	if !strings.Contains(final.AssistantMessages[0].Text, "Something went wrong") {
		t.Fatalf("unexpected failure message: %q", final.AssistantMessages[0].Text)
	}
}

type blockingLLM struct {
	started chan struct{}
	release chan struct{}
}

func (l *blockingLLM) GenerateReply(ctx context.Context, utterance string, convCtx domain.ConversationContext) (string, error) {
	close(l.started)
	select {
	case <-l.release:
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *blockingLLM) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func TestModeReadDuringInFlightTurn(t *testing.T) {
	ctx := context.Background()
	llmClient := &blockingLLM{started: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, llmClient)
	sessionID := startSession(t, f.svc)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.SendMessage(ctx, chat.SendMessageInput{SessionID: sessionID, Text: "slow question"})
		done <- err
	}()

	<-llmClient.started

	// Polling the mode while a turn is in flight must be safe.
	if mode := f.svc.Mode(sessionID); mode != guided.ModeFreeChat {
		t.Fatalf("unexpected mode during turn: %s", mode)
	}
	if _, err := f.svc.SendMessage(ctx, chat.SendMessageInput{SessionID: sessionID, Text: "second"}); !errors.Is(err, domain.ErrTurnInProgress) {
		t.Fatalf("expected ErrTurnInProgress, got %v", err)
	}

	close(llmClient.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if mode := f.svc.Mode(sessionID); mode != guided.ModeFreeChat {
		t.Fatalf("unexpected mode after turn: %s", mode)
	}
}

func TestEndSessionDiscardsFlowState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, llm.NewMockLLM())
	sessionID := startSession(t, f.svc)

	if _, err := f.svc.QuickAction(ctx, sessionID, guided.ActionCreateProject); err != nil {
		t.Fatalf("QuickAction failed: %v", err)
	}
	if err := f.svc.EndSession(ctx, sessionID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	// Abandoning mid-flow must leave no residual writes.
	if got, _ := f.projectStore.ListProjectsByUser("test-user"); len(got) != 0 {
		t.Fatalf("expected no projects after abandoned flow, got %d", len(got))
	}
	if _, _, err := f.svc.Timeline(ctx, sessionID, 0); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session to be gone, got %v", err)
	}
}
