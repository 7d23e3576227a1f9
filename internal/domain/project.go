package domain

import "time"

// User is the owner of projects, tasks and chat sessions. Authentication
// happens outside this service; callers identify themselves by user id.
type User struct {
	ID         UserID
	Email      string
	Name       string
	Provider   string
	ProviderID string
	CreatedAt  time.Time
}

// Project groups task definitions. TaskNames are the names a user can pick
// from when recording a completed task; they are separate from the recorded
// Task entries themselves.
type Project struct {
	ID        ProjectID
	UserID    UserID
	Name      string
	TaskNames []string
	CreatedAt time.Time
}

// Task is one recorded completion with both timings, in minutes.
// ProjectName is denormalized so chart rows survive project deletion.
type Task struct {
	ID          TaskID
	UserID      UserID
	ProjectID   ProjectID
	ProjectName string
	Name        string
	HumanTime   int
	AITime      int
	CreatedAt   time.Time
}

// TimeSaved is the minutes gained by doing the task with AI assistance.
// Negative when the AI path was slower.
func (t Task) TimeSaved() int {
	return t.HumanTime - t.AITime
}

// ProductivityGain is the relative speedup in percent. Zero when no human
// baseline exists.
func (t Task) ProductivityGain() float64 {
	if t.HumanTime <= 0 {
		return 0
	}
	return float64(t.HumanTime-t.AITime) / float64(t.HumanTime) * 100
}
