// Package tasks records completed tasks with their human-only and
// human+AI timings.
package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/asub927/human-vs-ai-app/internal/domain"
	"github.com/asub927/human-vs-ai-app/internal/observability"
)

var (
	ErrEmptyTaskName  = errors.New("task name cannot be empty")
	ErrNegativeMinute = errors.New("time values must be non-negative")
)

type Service struct {
	store    domain.TaskStore
	projects domain.ProjectStore
	now      func() time.Time
}

func NewService(store domain.TaskStore, projects domain.ProjectStore) *Service {
	return &Service{
		store:    store,
		projects: projects,
		now:      time.Now,
	}
}

// CreateTask records one completed task. Both timings are whole minutes
// and must be non-negative.
func (s *Service) CreateTask(ctx context.Context, userID domain.UserID, projectID domain.ProjectID, name string, humanTime, aiTime int) (*domain.Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyTaskName
	}
	if humanTime < 0 || aiTime < 0 {
		return nil, ErrNegativeMinute
	}

	project, err := s.projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:          domain.TaskID(ulid.Make().String()),
		UserID:      userID,
		ProjectID:   projectID,
		ProjectName: project.Name,
		Name:        name,
		HumanTime:   humanTime,
		AITime:      aiTime,
		CreatedAt:   s.now(),
	}

	if err := s.store.CreateTask(task); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to record task",
			"user_id", userID, "project_id", projectID, "error", err)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info("task recorded",
		"task_id", task.ID, "project_id", projectID,
		"human_time", humanTime, "ai_time", aiTime)
	return task, nil
}

func (s *Service) GetTask(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	return s.store.GetTask(id)
}

func (s *Service) ListTasks(ctx context.Context, userID domain.UserID) ([]*domain.Task, error) {
	return s.store.ListTasksByUser(userID)
}

func (s *Service) ListTasksByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error) {
	return s.store.ListTasksByProject(projectID)
}

// UpdateTask patches name and/or timings. Nil fields are left unchanged.
func (s *Service) UpdateTask(ctx context.Context, id domain.TaskID, name *string, humanTime, aiTime *int) (*domain.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, ErrEmptyTaskName
		}
		task.Name = *name
	}
	if humanTime != nil {
		if *humanTime < 0 {
			return nil, ErrNegativeMinute
		}
		task.HumanTime = *humanTime
	}
	if aiTime != nil {
		if *aiTime < 0 {
			return nil, ErrNegativeMinute
		}
		task.AITime = *aiTime
	}

	if err := s.store.UpdateTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, id domain.TaskID) error {
	return s.store.DeleteTask(id)
}
