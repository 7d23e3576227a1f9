package domain

import "context"

// LLMClient defines how the core application interacts with an LLM service.
type LLMClient interface {
	// GenerateReply answers a chat utterance given prior turns.
	GenerateReply(ctx context.Context, utterance string, convCtx ConversationContext) (string, error)
	// GenerateContent runs a one-shot prompt, used for structured
	// estimation and insight generation.
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// SessionStore defines session persistence.
type SessionStore interface {
	CreateSession(session *Session) error
	UpdateSession(session *Session) error
	GetSession(id SessionID) (*Session, error)
	ListSessionsByUser(userID UserID, limit int) ([]*Session, error)
	DeleteSession(id SessionID) error
}

// MessageStore defines session-timeline persistence.
type MessageStore interface {
	AppendMessage(msg *Message) error
	GetMessagesBySession(sessionID SessionID, limit int) ([]*Message, error)
}

// ProjectStore defines project persistence.
type ProjectStore interface {
	CreateProject(project *Project) error
	GetProject(id ProjectID) (*Project, error)
	ListProjectsByUser(userID UserID) ([]*Project, error)
	UpdateProject(project *Project) error
	DeleteProject(id ProjectID) error
}

// TaskStore defines recorded-task persistence.
type TaskStore interface {
	CreateTask(task *Task) error
	GetTask(id TaskID) (*Task, error)
	ListTasksByUser(userID UserID) ([]*Task, error)
	ListTasksByProject(projectID ProjectID) ([]*Task, error)
	UpdateTask(task *Task) error
	DeleteTask(id TaskID) error
}

// HistoryStore persists the server-side assistant chat log per user.
type HistoryStore interface {
	AppendHistory(entry *HistoryEntry) error
	ListHistoryByUser(userID UserID, limit int) ([]*HistoryEntry, error)
	DeleteHistoryByUser(userID UserID) error
}
