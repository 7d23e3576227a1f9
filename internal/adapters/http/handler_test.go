package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/asub927/human-vs-ai-app/internal/adapters/http"
	"github.com/asub927/human-vs-ai-app/internal/adapters/llm"
	"github.com/asub927/human-vs-ai-app/internal/adapters/storage/memory"
	"github.com/asub927/human-vs-ai-app/internal/app/analytics"
	"github.com/asub927/human-vs-ai-app/internal/app/assistant"
	"github.com/asub927/human-vs-ai-app/internal/app/chat"
	"github.com/asub927/human-vs-ai-app/internal/app/projects"
	"github.com/asub927/human-vs-ai-app/internal/app/tasks"
	"github.com/asub927/human-vs-ai-app/internal/domain"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newTestServerWithLLM(t, llm.NewMockLLM())
}

func newTestServerWithLLM(t *testing.T, llmClient domain.LLMClient) http.Handler {
	t.Helper()

	sessionStore := memory.NewSessionStore()
	messageStore := memory.NewMessageStore()
	projectStore := memory.NewProjectStore()
	taskStore := memory.NewTaskStore()
	historyStore := memory.NewHistoryStore()

	projectSvc := projects.NewService(projectStore)
	taskSvc := tasks.NewService(taskStore, projectStore)
	analyticsSvc := analytics.NewService(taskStore, projectStore)
	assistantSvc := assistant.NewService(llmClient, taskStore, projectStore, historyStore)
	chatSvc := chat.NewService(llmClient, sessionStore, messageStore, projectStore, projectSvc, taskSvc, 5*time.Second)

	return httpadapter.NewServer(chatSvc, projectSvc, taskSvc, analyticsSvc, assistantSvc)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProjectLifecycle(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/projects", map[string]any{
		"user_id":    "u1",
		"name":       "Website",
		"task_names": []string{"Design Homepage"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID        string   `json:"id"`
		Name      string   `json:"name"`
		TaskNames []string `json:"task_names"`
	}
	decode(t, rec, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Website", created.Name)
	assert.Equal(t, []string{"Design Homepage"}, created.TaskNames)

	rec = doJSON(t, h, http.MethodPost, "/projects/"+created.ID+"/task-definitions", map[string]any{
		"task_name": "Copywriting",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &created)
	assert.Equal(t, []string{"Design Homepage", "Copywriting"}, created.TaskNames)

	rec = doJSON(t, h, http.MethodDelete, "/projects/"+created.ID+"/task-definitions/Copywriting", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/projects?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []json.RawMessage
	decode(t, rec, &list)
	assert.Len(t, list, 1)

	rec = doJSON(t, h, http.MethodDelete, "/projects/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/projects/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProjectValidation(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/projects", map[string]any{
		"user_id": "u1",
		"name":    "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/projects", map[string]any{
		"name": "Website",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/projects", map[string]any{
		"user_id": "u1", "name": "Website",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var project struct {
		ID string `json:"id"`
	}
	decode(t, rec, &project)

	rec = doJSON(t, h, http.MethodPost, "/tasks", map[string]any{
		"user_id":    "u1",
		"project_id": project.ID,
		"name":       "Design Homepage",
		"human_time": 120,
		"ai_time":    30,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var task struct {
		ID          string `json:"id"`
		ProjectName string `json:"project_name"`
		HumanTime   int    `json:"human_time"`
	}
	decode(t, rec, &task)
	assert.Equal(t, "Website", task.ProjectName)
	assert.Equal(t, 120, task.HumanTime)

	rec = doJSON(t, h, http.MethodPatch, "/tasks/"+task.ID, map[string]any{
		"human_time": 90,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &task)
	assert.Equal(t, 90, task.HumanTime)

	// Negative minutes are rejected at the service boundary.
	rec = doJSON(t, h, http.MethodPost, "/tasks", map[string]any{
		"user_id":    "u1",
		"project_id": project.ID,
		"name":       "Bad",
		"human_time": -5,
		"ai_time":    0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsOverviewEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/projects", map[string]any{
		"user_id": "u1", "name": "Website",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var project struct {
		ID string `json:"id"`
	}
	decode(t, rec, &project)

	for _, times := range [][2]int{{120, 30}, {60, 45}} {
		rec = doJSON(t, h, http.MethodPost, "/tasks", map[string]any{
			"user_id":    "u1",
			"project_id": project.ID,
			"name":       fmt.Sprintf("task-%d", times[0]),
			"human_time": times[0],
			"ai_time":    times[1],
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/analytics/overview?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview struct {
		TotalTasks          int     `json:"totalTasks"`
		TotalProjects       int     `json:"totalProjects"`
		TotalTimeSaved      int     `json:"totalTimeSaved"`
		AvgProductivityGain float64 `json:"avgProductivityGain"`
	}
	decode(t, rec, &overview)
	assert.Equal(t, 2, overview.TotalTasks)
	assert.Equal(t, 1, overview.TotalProjects)
	assert.Equal(t, 105, overview.TotalTimeSaved)
	assert.Equal(t, 50.0, overview.AvgProductivityGain)

	rec = doJSON(t, h, http.MethodGet, "/analytics/overview", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "user_id is required")
}

func TestChatSessionGuidedFlow(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/chat/sessions", map[string]any{
		"user_id": "u1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Session struct {
			ID   string `json:"id"`
			Mode string `json:"mode"`
		} `json:"session"`
		Welcome struct {
			Text string `json:"text"`
		} `json:"welcome_message"`
	}
	decode(t, rec, &started)
	require.NotEmpty(t, started.Session.ID)
	assert.Equal(t, "chat", started.Session.Mode)
	assert.NotEmpty(t, started.Welcome.Text)

	sessionID := started.Session.ID

	rec = doJSON(t, h, http.MethodPost, "/chat/sessions/"+sessionID+"/actions", map[string]any{
		"action": "create_project",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var turn struct {
		AssistantMessages []struct {
			Text string `json:"text"`
		} `json:"assistant_messages"`
		Mode string `json:"mode"`
	}
	decode(t, rec, &turn)
	assert.Equal(t, "create_project_name", turn.Mode)
	require.Len(t, turn.AssistantMessages, 1)

	rec = doJSON(t, h, http.MethodPost, "/chat/sessions/"+sessionID+"/messages", map[string]any{
		"text": "Launch",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &turn)
	assert.Equal(t, "create_project_task", turn.Mode)

	rec = doJSON(t, h, http.MethodPost, "/chat/sessions/"+sessionID+"/messages", map[string]any{
		"text": "Draft plan",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &turn)
	assert.Equal(t, "chat", turn.Mode)
	require.NotEmpty(t, turn.AssistantMessages)
	assert.Equal(t, `Project "Launch" created with task "Draft plan"!`,
		turn.AssistantMessages[len(turn.AssistantMessages)-1].Text)

	// The created project is visible through the REST surface too.
	rec = doJSON(t, h, http.MethodGet, "/projects?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		Name string `json:"name"`
	}
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Launch", list[0].Name)

	// Full timeline: welcome, prompt, two user turns, two assistant turns.
	rec = doJSON(t, h, http.MethodGet, "/chat/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var timeline struct {
		Messages []struct {
			Author string `json:"author"`
		} `json:"messages"`
	}
	decode(t, rec, &timeline)
	assert.Len(t, timeline.Messages, 6)

	rec = doJSON(t, h, http.MethodDelete, "/chat/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/chat/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessageValidation(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/chat/sessions", map[string]any{"user_id": "u1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	decode(t, rec, &started)

	rec = doJSON(t, h, http.MethodPost, "/chat/sessions/"+started.Session.ID+"/messages", map[string]any{
		"text": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/chat/sessions/"+started.Session.ID+"/actions", map[string]any{
		"action": "launch_rockets",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/chat/sessions/nope/messages", map[string]any{
		"text": "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type badJSONLLM struct{}

func (badJSONLLM) GenerateReply(ctx context.Context, utterance string, convCtx domain.ConversationContext) (string, error) {
	return "ok", nil
}

func (badJSONLLM) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return "I would rather not produce JSON today.", nil
}

func TestAIEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/ai/chat", map[string]any{
		"user_id": "u1",
		"message": "how am I doing?",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var chatResp struct {
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
	decode(t, rec, &chatResp)
	assert.NotEmpty(t, chatResp.Message)
	assert.NotEmpty(t, chatResp.Timestamp)

	rec = doJSON(t, h, http.MethodPost, "/ai/estimate", map[string]any{
		"user_id":     "u1",
		"description": "write launch blog post",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var est struct {
		HumanTime float64 `json:"humanTime"`
		AITime    float64 `json:"aiTime"`
	}
	decode(t, rec, &est)
	assert.Greater(t, est.HumanTime, est.AITime)

	rec = doJSON(t, h, http.MethodPost, "/ai/insights", map[string]any{
		"user_id": "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/ai/history?user_id=u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/ai/chat", map[string]any{
		"user_id": "u1",
		"message": "  ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnparseableModelOutputIsBadGateway(t *testing.T) {
	h := newTestServerWithLLM(t, badJSONLLM{})

	rec := doJSON(t, h, http.MethodPost, "/ai/estimate", map[string]any{
		"user_id":     "u1",
		"description": "anything",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "AI response could not be parsed", body["error"])
}

type hangingLLM struct {
	started chan struct{}
	release chan struct{}
}

func (l *hangingLLM) GenerateReply(ctx context.Context, utterance string, convCtx domain.ConversationContext) (string, error) {
	close(l.started)
	select {
	case <-l.release:
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *hangingLLM) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func TestConcurrentTurnConflicts(t *testing.T) {
	llmClient := &hangingLLM{started: make(chan struct{}), release: make(chan struct{})}
	h := newTestServerWithLLM(t, llmClient)

	rec := doJSON(t, h, http.MethodPost, "/chat/sessions", map[string]any{"user_id": "u1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	decode(t, rec, &started)
	sessionID := started.Session.ID

	firstDone := make(chan *httptest.ResponseRecorder)
	go func() {
		firstDone <- doJSON(t, h, http.MethodPost, "/chat/sessions/"+sessionID+"/messages", map[string]any{
			"text": "slow question",
		})
	}()

	<-llmClient.started
	rec = doJSON(t, h, http.MethodPost, "/chat/sessions/"+sessionID+"/messages", map[string]any{
		"text": "impatient second question",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(llmClient.release)
	first := <-firstDone
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}
