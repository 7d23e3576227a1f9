// Package chat runs the assistant chat sessions: it owns the conversation
// timeline, drives the guided-entry state machine, and falls back to the
// LLM bridge for free-form turns.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/asub927/human-vs-ai-app/internal/app/guided"
	"github.com/asub927/human-vs-ai-app/internal/domain"
	"github.com/asub927/human-vs-ai-app/internal/observability"
)

// ErrEmptyUtterance is returned when a submitted message is blank after
// trimming. Blank input never reaches the state machine.
var ErrEmptyUtterance = errors.New("message text is required")

// apologyReply is what the user sees when the AI backend fails for any
// reason. Backend errors never surface raw.
const apologyReply = "Sorry, I encountered an error while trying to reach the AI service."

const greeting = "👋 Hi there! How can I help you today?"

// ProjectMutator executes the guided flows' project-side terminal writes.
type ProjectMutator interface {
	CreateProject(ctx context.Context, userID domain.UserID, name string, taskNames []string) (*domain.Project, error)
	AddTaskDefinition(ctx context.Context, projectID domain.ProjectID, taskName string) (*domain.Project, error)
}

// TaskRecorder executes the fill-form flow's terminal write.
type TaskRecorder interface {
	CreateTask(ctx context.Context, userID domain.UserID, projectID domain.ProjectID, name string, humanTime, aiTime int) (*domain.Task, error)
}

// flowState is the per-session conversation state. It lives only in this
// process: abandoning a session discards it with no cleanup obligation.
type flowState struct {
	state guided.State
	busy  bool
}

type Service struct {
	llm          domain.LLMClient
	sessionStore domain.SessionStore
	messageStore domain.MessageStore
	projectStore domain.ProjectStore
	projects     ProjectMutator
	tasks        TaskRecorder
	llmTimeout   time.Duration
	now          func() time.Time

	mu    sync.Mutex
	flows map[domain.SessionID]*flowState
}

func NewService(
	llm domain.LLMClient,
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
	projectStore domain.ProjectStore,
	projects ProjectMutator,
	tasks TaskRecorder,
	llmTimeout time.Duration,
) *Service {
	if llmTimeout <= 0 {
		llmTimeout = 30 * time.Second
	}
	return &Service{
		llm:          llm,
		sessionStore: sessionStore,
		messageStore: messageStore,
		projectStore: projectStore,
		projects:     projects,
		tasks:        tasks,
		llmTimeout:   llmTimeout,
		now:          time.Now,
		flows:        make(map[domain.SessionID]*flowState),
	}
}

type StartSessionInput struct {
	UserID domain.UserID
	Title  string
}

type StartSessionOutput struct {
	Session *domain.Session
	Welcome *domain.Message
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	now := s.now()

	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)
	log.Info("starting new chat session")

	session := &domain.Session{
		ID:        domain.SessionID(newID()),
		UserID:    in.UserID,
		Title:     in.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessionStore.CreateSession(session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	welcome := s.assistantMessage(session.ID, greeting, now)
	if err := s.messageStore.AppendMessage(welcome); err != nil {
		log.Error("failed to append welcome message", "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.flows[session.ID] = &flowState{state: guided.NewState()}
	s.mu.Unlock()

	log.Info("chat session started", "session_id", session.ID)

	return &StartSessionOutput{Session: session, Welcome: welcome}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	Text      string
}

type SendMessageOutput struct {
	UserMessage       *domain.Message
	AssistantMessages []*domain.Message
	Mode              guided.Mode
}

// SendMessage processes exactly one user utterance to completion. Only one
// turn may be in flight per session; a concurrent submission gets
// domain.ErrTurnInProgress.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyUtterance
	}

	session, err := s.sessionStore.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	state, err := s.acquireTurn(session.ID)
	if err != nil {
		return nil, err
	}
	defer s.releaseTurn(session.ID)

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"user_id", session.UserID,
		"mode", state.Mode,
	)
	log.Info("processing utterance")

	// History is read before the new message is appended; the utterance
	// travels separately to the bridge.
	history, err := s.messageStore.GetMessagesBySession(session.ID, 20)
	if err != nil {
		log.Error("failed to load history", "error", err)
		return nil, err
	}

	userMsg := &domain.Message{
		ID:        domain.MessageID(newID()),
		SessionID: session.ID,
		Author:    domain.RoleUser,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.messageStore.AppendMessage(userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, err
	}

	projects, err := s.projectStore.ListProjectsByUser(session.UserID)
	if err != nil {
		log.Error("failed to snapshot projects", "error", err)
		return nil, err
	}

	res := guided.HandleInput(state, text, projects)
	s.setFlowState(session.ID, res.State)
	replies := res.Replies

	if res.Forward {
		replies = append(replies, s.freeChatReply(ctx, session, history, text))
	}

	if res.Mutation != nil {
		if err := s.applyMutation(ctx, session.UserID, res.Mutation); err != nil {
			// The state is already reset; tell the user instead of
			// wedging the flow.
			log.Error("guided flow mutation failed",
				"kind", res.Mutation.Kind, "error", err)
			replies = append(replies, guided.FailureReply())
		} else {
			replies = append(replies, res.Mutation.Confirmation)
		}
	}

	out := &SendMessageOutput{UserMessage: userMsg, Mode: res.State.Mode}
	for _, reply := range replies {
		msg := s.assistantMessage(session.ID, reply, s.now())
		if err := s.messageStore.AppendMessage(msg); err != nil {
			log.Error("failed to append assistant message", "error", err)
			return nil, err
		}
		out.AssistantMessages = append(out.AssistantMessages, msg)
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	log.Info("turn completed", "replies", len(replies), "mode", res.State.Mode)
	return out, nil
}

type QuickActionOutput struct {
	AssistantMessages []*domain.Message
	Mode              guided.Mode
}

// QuickAction starts a guided flow from one of the chat surface's action
// buttons. Mid-flow invocations are ignored.
func (s *Service) QuickAction(ctx context.Context, sessionID domain.SessionID, action guided.Action) (*QuickActionOutput, error) {
	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	current, err := s.acquireTurn(session.ID)
	if err != nil {
		return nil, err
	}
	defer s.releaseTurn(session.ID)

	projects, err := s.projectStore.ListProjectsByUser(session.UserID)
	if err != nil {
		return nil, err
	}

	state, replies := guided.Start(current, action, projects)
	s.setFlowState(session.ID, state)

	out := &QuickActionOutput{Mode: state.Mode}
	for _, reply := range replies {
		msg := s.assistantMessage(session.ID, reply, s.now())
		if err := s.messageStore.AppendMessage(msg); err != nil {
			return nil, err
		}
		out.AssistantMessages = append(out.AssistantMessages, msg)
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info("quick action handled",
		"session_id", session.ID, "action", action, "mode", state.Mode)
	return out, nil
}

// Timeline returns the session and its messages, oldest first.
func (s *Service) Timeline(ctx context.Context, sessionID domain.SessionID, limit int) (*domain.Session, []*domain.Message, error) {
	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	msgs, err := s.messageStore.GetMessagesBySession(sessionID, limit)
	if err != nil {
		return nil, nil, err
	}

	return session, msgs, nil
}

// EndSession tears the session down. Any in-progress flow is discarded;
// no partial flow ever persists.
func (s *Service) EndSession(ctx context.Context, sessionID domain.SessionID) error {
	s.mu.Lock()
	delete(s.flows, sessionID)
	s.mu.Unlock()

	return s.sessionStore.DeleteSession(sessionID)
}

// Mode reports the session's current conversation mode, for the chat
// surface's input affordances.
func (s *Service) Mode(sessionID domain.SessionID) guided.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fl, ok := s.flows[sessionID]; ok {
		return fl.state.Mode
	}
	return guided.ModeFreeChat
}

func (s *Service) freeChatReply(ctx context.Context, session *domain.Session, history []*domain.Message, text string) string {
	ctx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	reply, err := s.llm.GenerateReply(ctx, text, domain.ConversationContext{
		SessionID: session.ID,
		UserID:    session.UserID,
		History:   history,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Error("chat bridge failed",
			"session_id", session.ID, "error", err)
		return apologyReply
	}
	return reply
}

func (s *Service) applyMutation(ctx context.Context, userID domain.UserID, m *guided.Mutation) error {
	switch m.Kind {
	case guided.MutationCreateProject:
		_, err := s.projects.CreateProject(ctx, userID, m.ProjectName, m.InitialTasks)
		return err
	case guided.MutationAddTaskDefinition:
		_, err := s.projects.AddTaskDefinition(ctx, m.ProjectID, m.TaskName)
		return err
	case guided.MutationRecordTask:
		_, err := s.tasks.CreateTask(ctx, userID, m.ProjectID, m.TaskName, m.HumanTime, m.AITime)
		return err
	}
	return errors.New("unknown mutation kind")
}

// acquireTurn marks the session busy and returns a snapshot of its flow
// state. All flow state access goes through s.mu; the turn works on the
// snapshot and writes the successor back via setFlowState.
func (s *Service) acquireTurn(sessionID domain.SessionID) (guided.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fl, ok := s.flows[sessionID]
	if !ok {
		// Session predates this process (e.g. sqlite backend across a
		// restart); start it over in free chat.
		fl = &flowState{state: guided.NewState()}
		s.flows[sessionID] = fl
	}
	if fl.busy {
		return guided.State{}, domain.ErrTurnInProgress
	}
	fl.busy = true
	return fl.state, nil
}

func (s *Service) setFlowState(sessionID domain.SessionID, state guided.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fl, ok := s.flows[sessionID]; ok {
		fl.state = state
	}
}

func (s *Service) releaseTurn(sessionID domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fl, ok := s.flows[sessionID]; ok {
		fl.busy = false
	}
}

func (s *Service) assistantMessage(sessionID domain.SessionID, text string, at time.Time) *domain.Message {
	return &domain.Message{
		ID:        domain.MessageID(newID()),
		SessionID: sessionID,
		Author:    domain.RoleAssistant,
		Text:      text,
		CreatedAt: at,
	}
}

func newID() string {
	return ulid.Make().String()
}
