package domain

import "time"

type UserID string
type ProjectID string
type TaskID string
type SessionID string
type MessageID string
type HistoryEntryID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Timestamp = time.Time
