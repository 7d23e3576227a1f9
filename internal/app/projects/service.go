// Package projects owns project lifecycle and task-definition management.
package projects

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
	ErrEmptyProjectName = errors.New("project name cannot be empty")
	ErrEmptyTaskName    = errors.New("task name cannot be empty")
)

type Service struct {
	store domain.ProjectStore
	now   func() time.Time
}

func NewService(store domain.ProjectStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// CreateProject creates a project with optional initial task definitions.
func (s *Service) CreateProject(ctx context.Context, userID domain.UserID, name string, taskNames []string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyProjectName
	}

	project := &domain.Project{
		ID:        domain.ProjectID(ulid.Make().String()),
		UserID:    userID,
		Name:      name,
		TaskNames: append([]string(nil), taskNames...),
		CreatedAt: s.now(),
	}

	if err := s.store.CreateProject(project); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to create project",
			"user_id", userID, "error", err)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info("project created",
		"project_id", project.ID, "user_id", userID)
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	return s.store.GetProject(id)
}

func (s *Service) ListProjects(ctx context.Context, userID domain.UserID) ([]*domain.Project, error) {
	return s.store.ListProjectsByUser(userID)
}

// AddTaskDefinition appends a task name to the project's definition list.
// The list is not deduplicated; the store is the source of truth.
func (s *Service) AddTaskDefinition(ctx context.Context, projectID domain.ProjectID, taskName string) (*domain.Project, error) {
	if strings.TrimSpace(taskName) == "" {
		return nil, ErrEmptyTaskName
	}

	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	project.TaskNames = append(project.TaskNames, taskName)
	if err := s.store.UpdateProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

// RemoveTaskDefinition removes every occurrence of taskName from the
// project's definition list.
func (s *Service) RemoveTaskDefinition(ctx context.Context, projectID domain.ProjectID, taskName string) (*domain.Project, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	kept := project.TaskNames[:0]
	for _, n := range project.TaskNames {
		if n != taskName {
			kept = append(kept, n)
		}
	}
	project.TaskNames = kept

	if err := s.store.UpdateProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

// RenameProject updates the project name.
func (s *Service) RenameProject(ctx context.Context, id domain.ProjectID, name string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyProjectName
	}

	project, err := s.store.GetProject(id)
	if err != nil {
		return nil, err
	}

	project.Name = name
	if err := s.store.UpdateProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) DeleteProject(ctx context.Context, id domain.ProjectID) error {
	return s.store.DeleteProject(id)
}
