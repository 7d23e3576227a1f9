package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/asub927/human-vs-ai-app/internal/app/analytics"
	"github.com/asub927/human-vs-ai-app/internal/app/assistant"
	"github.com/asub927/human-vs-ai-app/internal/app/chat"
	"github.com/asub927/human-vs-ai-app/internal/app/guided"
	"github.com/asub927/human-vs-ai-app/internal/app/projects"
	"github.com/asub927/human-vs-ai-app/internal/app/tasks"
	"github.com/asub927/human-vs-ai-app/internal/domain"
)

type Server struct {
	chat      *chat.Service
	projects  *projects.Service
	tasks     *tasks.Service
	analytics *analytics.Service
	assistant *assistant.Service
}

func NewServer(
	chatSvc *chat.Service,
	projectSvc *projects.Service,
	taskSvc *tasks.Service,
	analyticsSvc *analytics.Service,
	assistantSvc *assistant.Service,
) http.Handler {
	s := &Server{
		chat:      chatSvc,
		projects:  projectSvc,
		tasks:     taskSvc,
		analytics: analyticsSvc,
		assistant: assistantSvc,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectWithID)

	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTaskWithID)

	mux.HandleFunc("/analytics/overview", s.handleAnalyticsOverview)
	mux.HandleFunc("/analytics/projects", s.handleAnalyticsProjects)
	mux.HandleFunc("/analytics/chart", s.handleAnalyticsChart)

	mux.HandleFunc("/ai/chat", s.handleAIChat)
	mux.HandleFunc("/ai/estimate", s.handleAIEstimate)
	mux.HandleFunc("/ai/insights", s.handleAIInsights)
	mux.HandleFunc("/ai/history", s.handleAIHistory)

	mux.HandleFunc("/chat/sessions", s.handleSessions)
	mux.HandleFunc("/chat/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type projectResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	TaskNames []string  `json:"task_names"`
	CreatedAt time.Time `json:"created_at"`
}

type taskResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Name        string    `json:"name"`
	HumanTime   int       `json:"human_time"`
	AITime      int       `json:"ai_time"`
	CreatedAt   time.Time `json:"created_at"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ─────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─────────────────────────────────────────────
// Projects
// ─────────────────────────────────────────────

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			UserID    string   `json:"user_id"`
			Name      string   `json:"name"`
			TaskNames []string `json:"task_names,omitempty"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UserID == "" {
			badRequest(w, "user_id is required")
			return
		}
		project, err := s.projects.CreateProject(r.Context(), domain.UserID(req.UserID), req.Name, req.TaskNames)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProjectResponse(project))

	case http.MethodGet:
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		list, err := s.projects.ListProjects(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]projectResponse, 0, len(list))
		for _, p := range list {
			out = append(out, toProjectResponse(p))
		}
		writeJSON(w, http.StatusOK, out)

	default:
		methodNotAllowed(w)
	}
}

// /projects/{id}
// /projects/{id}/task-definitions
// /projects/{id}/task-definitions/{name}
func (s *Server) handleProjectWithID(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/projects/")
	if len(parts) == 0 {
		http.NotFound(w, r)
		return
	}
	id := domain.ProjectID(parts[0])

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			project, err := s.projects.GetProject(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toProjectResponse(project))
		case http.MethodPatch:
			var req struct {
				Name string `json:"name"`
			}
			if !decodeBody(w, r, &req) {
				return
			}
			project, err := s.projects.RenameProject(r.Context(), id, req.Name)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toProjectResponse(project))
		case http.MethodDelete:
			if err := s.projects.DeleteProject(r.Context(), id); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}

	case len(parts) == 2 && parts[1] == "task-definitions":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var req struct {
			TaskName string `json:"task_name"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		project, err := s.projects.AddTaskDefinition(r.Context(), id, req.TaskName)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProjectResponse(project))

	case len(parts) == 3 && parts[1] == "task-definitions":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		project, err := s.projects.RemoveTaskDefinition(r.Context(), id, parts[2])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProjectResponse(project))

	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Tasks
// ─────────────────────────────────────────────

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			UserID    string `json:"user_id"`
			ProjectID string `json:"project_id"`
			Name      string `json:"name"`
			HumanTime int    `json:"human_time"`
			AITime    int    `json:"ai_time"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UserID == "" {
			badRequest(w, "user_id is required")
			return
		}
		task, err := s.tasks.CreateTask(r.Context(), domain.UserID(req.UserID), domain.ProjectID(req.ProjectID), req.Name, req.HumanTime, req.AITime)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTaskResponse(task))

	case http.MethodGet:
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		list, err := s.tasks.ListTasks(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]taskResponse, 0, len(list))
		for _, t := range list {
			out = append(out, toTaskResponse(t))
		}
		writeJSON(w, http.StatusOK, out)

	default:
		methodNotAllowed(w)
	}
}

// /tasks/{id}
func (s *Server) handleTaskWithID(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/tasks/")
	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}
	id := domain.TaskID(parts[0])

	switch r.Method {
	case http.MethodGet:
		task, err := s.tasks.GetTask(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTaskResponse(task))

	case http.MethodPatch:
		var req struct {
			Name      *string `json:"name,omitempty"`
			HumanTime *int    `json:"human_time,omitempty"`
			AITime    *int    `json:"ai_time,omitempty"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		task, err := s.tasks.UpdateTask(r.Context(), id, req.Name, req.HumanTime, req.AITime)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTaskResponse(task))

	case http.MethodDelete:
		if err := s.tasks.DeleteTask(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w)
	}
}

// ─────────────────────────────────────────────
// Analytics
// ─────────────────────────────────────────────

func (s *Server) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	userID, ok := analyticsUser(w, r)
	if !ok {
		return
	}
	overview, err := s.analytics.Overview(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleAnalyticsProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := analyticsUser(w, r)
	if !ok {
		return
	}
	summaries, err := s.analytics.ByProject(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleAnalyticsChart(w http.ResponseWriter, r *http.Request) {
	userID, ok := analyticsUser(w, r)
	if !ok {
		return
	}
	rows, err := s.analytics.ChartData(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func analyticsUser(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return "", false
	}
	return requireUserID(w, r)
}

// ─────────────────────────────────────────────
// Assistant (server-side AI)
// ─────────────────────────────────────────────

func (s *Server) handleAIChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		UserID  string `json:"user_id"`
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		badRequest(w, "message is required")
		return
	}

	out, err := s.assistant.Chat(r.Context(), domain.UserID(req.UserID), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   out.Message,
		"timestamp": out.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) handleAIEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		UserID      string `json:"user_id"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		badRequest(w, "description is required")
		return
	}

	est, err := s.assistant.EstimateTask(r.Context(), domain.UserID(req.UserID), req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleAIInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		UserID string `json:"user_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	ins, err := s.assistant.GenerateInsights(r.Context(), domain.UserID(req.UserID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

func (s *Server) handleAIHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := s.assistant.ClearHistory(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────────────────────
// Chat sessions
// ─────────────────────────────────────────────

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		UserID string `json:"user_id"`
		Title  string `json:"title,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	out, err := s.chat.StartSession(r.Context(), chat.StartSessionInput{
		UserID: domain.UserID(req.UserID),
		Title:  req.Title,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"session": s.toSessionResponse(out.Session),
	}
	if out.Welcome != nil {
		resp["welcome_message"] = toMessageResponse(out.Welcome)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// /chat/sessions/{id}
// /chat/sessions/{id}/messages
// /chat/sessions/{id}/actions
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/chat/sessions/")
	if len(parts) == 0 {
		http.NotFound(w, r)
		return
	}
	id := domain.SessionID(parts[0])

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, id)
		case http.MethodDelete:
			if err := s.chat.EndSession(r.Context(), id); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}

	case len(parts) == 2 && parts[1] == "messages":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleSendMessage(w, r, id)

	case len(parts) == 2 && parts[1] == "actions":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleQuickAction(w, r, id)

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	session, msgs, err := s.chat.Timeline(r.Context(), id, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  s.toSessionResponse(session),
		"messages": toMessagesResponse(msgs),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	// Empty input never reaches the state machine.
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.chat.SendMessage(r.Context(), chat.SendMessageInput{
		SessionID: id,
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_message":       toMessageResponse(out.UserMessage),
		"assistant_messages": toMessagesResponse(out.AssistantMessages),
		"mode":               string(out.Mode),
	})
}

func (s *Server) handleQuickAction(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req struct {
		Action string `json:"action"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	action, ok := guided.ParseAction(req.Action)
	if !ok {
		badRequest(w, "unknown action")
		return
	}

	out, err := s.chat.QuickAction(r.Context(), id, action)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assistant_messages": toMessagesResponse(out.AssistantMessages),
		"mode":               string(out.Mode),
	})
}

// ─────────────────────────────────────────────
// Response helpers
// ─────────────────────────────────────────────

func toProjectResponse(p *domain.Project) projectResponse {
	names := p.TaskNames
	if names == nil {
		names = []string{}
	}
	return projectResponse{
		ID:        string(p.ID),
		UserID:    string(p.UserID),
		Name:      p.Name,
		TaskNames: names,
		CreatedAt: p.CreatedAt,
	}
}

func toTaskResponse(t *domain.Task) taskResponse {
	return taskResponse{
		ID:          string(t.ID),
		UserID:      string(t.UserID),
		ProjectID:   string(t.ProjectID),
		ProjectName: t.ProjectName,
		Name:        t.Name,
		HumanTime:   t.HumanTime,
		AITime:      t.AITime,
		CreatedAt:   t.CreatedAt,
	}
}

func (s *Server) toSessionResponse(sess *domain.Session) sessionResponse {
	return sessionResponse{
		ID:        string(sess.ID),
		UserID:    string(sess.UserID),
		Title:     sess.Title,
		Mode:      string(s.chat.Mode(sess.ID)),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		SessionID: string(m.SessionID),
		Author:    string(m.Author),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

func splitPath(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func requireUserID(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return "", false
	}
	return domain.UserID(userID), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

// writeError maps service errors to responses without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})

	case errors.Is(err, domain.ErrTurnInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})

	case errors.Is(err, domain.ErrNoJSON):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "AI response could not be parsed"})

	case errors.Is(err, chat.ErrEmptyUtterance),
		errors.Is(err, projects.ErrEmptyProjectName),
		errors.Is(err, projects.ErrEmptyTaskName),
		errors.Is(err, tasks.ErrEmptyTaskName),
		errors.Is(err, tasks.ErrNegativeMinute):
		badRequest(w, err.Error())

	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
