package projects_test

import (
	"context"
	"errors"
	"testing"

	"github.com/asub927/human-vs-ai-app/internal/adapters/storage/memory"
	"github.com/asub927/human-vs-ai-app/internal/app/projects"
	"github.com/asub927/human-vs-ai-app/internal/domain"
)

func newService() *projects.Service {
	return projects.NewService(memory.NewProjectStore())
}

func TestCreateProject(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "u1", "Website", []string{"Design Homepage"})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if project.ID == "" {
		t.Fatal("expected a generated id")
	}
	if project.Name != "Website" {
		t.Fatalf("unexpected name %q", project.Name)
	}
	if len(project.TaskNames) != 1 || project.TaskNames[0] != "Design Homepage" {
		t.Fatalf("unexpected task names %v", project.TaskNames)
	}
}

func TestCreateProjectRejectsBlankName(t *testing.T) {
	svc := newService()

	_, err := svc.CreateProject(context.Background(), "u1", "   ", nil)
	if !errors.Is(err, projects.ErrEmptyProjectName) {
		t.Fatalf("expected ErrEmptyProjectName, got %v", err)
	}
}

func TestTaskDefinitions(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "u1", "Website", nil)
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	project, err = svc.AddTaskDefinition(ctx, project.ID, "Copywriting")
	if err != nil {
		t.Fatalf("AddTaskDefinition failed: %v", err)
	}
	if len(project.TaskNames) != 1 {
		t.Fatalf("expected one definition, got %v", project.TaskNames)
	}

	if _, err := svc.AddTaskDefinition(ctx, project.ID, "  "); !errors.Is(err, projects.ErrEmptyTaskName) {
		t.Fatalf("expected ErrEmptyTaskName, got %v", err)
	}

	project, err = svc.RemoveTaskDefinition(ctx, project.ID, "Copywriting")
	if err != nil {
		t.Fatalf("RemoveTaskDefinition failed: %v", err)
	}
	if len(project.TaskNames) != 0 {
		t.Fatalf("expected no definitions, got %v", project.TaskNames)
	}
}

func TestRenameAndDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, "u1", "Website", nil)
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	renamed, err := svc.RenameProject(ctx, project.ID, "Website v2")
	if err != nil {
		t.Fatalf("RenameProject failed: %v", err)
	}
	if renamed.Name != "Website v2" {
		t.Fatalf("unexpected name %q", renamed.Name)
	}

	if err := svc.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if _, err := svc.GetProject(ctx, project.ID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}
