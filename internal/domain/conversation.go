package domain

// Message represents one entry in a chat session timeline (user or assistant).
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Role
	Text      string
	CreatedAt Timestamp
}

// Session represents one open chat surface between a user and the assistant.
// Guided-flow state is deliberately NOT part of the session entity: it lives
// only in memory for the session's lifetime and is discarded on teardown.
type Session struct {
	ID        SessionID
	UserID    UserID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// HistoryEntry is one persisted turn of the server-side assistant chat.
// Unlike session messages these survive across sessions and feed the
// assistant's context window.
type HistoryEntry struct {
	ID        HistoryEntryID
	UserID    UserID
	Role      Role
	Text      string
	CreatedAt Timestamp
}

// ConversationContext gives the LLM minimal context about the conversation.
type ConversationContext struct {
	SessionID SessionID
	UserID    UserID
	System    string
	History   []*Message
}
