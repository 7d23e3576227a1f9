package memory

import (
	"sort"
	"sync"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

type TaskStore struct {
	mu    sync.RWMutex
	tasks map[domain.TaskID]*domain.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[domain.TaskID]*domain.Task),
	}
}

func (s *TaskStore) CreateTask(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *TaskStore) GetTask(id domain.TaskID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

// ListTasksByUser returns the user's recorded tasks, newest first.
func (s *TaskStore) ListTasksByUser(userID domain.UserID) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Task
	for _, t := range s.tasks {
		if t.UserID == userID {
			result = append(result, cloneTask(t))
		}
	}
	sortTasks(result, false)
	return result, nil
}

// ListTasksByProject returns the project's recorded tasks, oldest first.
func (s *TaskStore) ListTasksByProject(projectID domain.ProjectID) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			result = append(result, cloneTask(t))
		}
	}
	sortTasks(result, true)
	return result, nil
}

func (s *TaskStore) UpdateTask(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *TaskStore) DeleteTask(id domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// cloneTask keeps stored tasks private to the store. Callers mutate their
// copy and write it back through UpdateTask.
func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	return &c
}

func sortTasks(tasks []*domain.Task, ascending bool) {
	sort.Slice(tasks, func(i, j int) bool {
		ti, tj := tasks[i], tasks[j]
		if ti.CreatedAt.Equal(tj.CreatedAt) {
			if ascending {
				return ti.ID < tj.ID
			}
			return ti.ID > tj.ID
		}
		if ascending {
			return ti.CreatedAt.Before(tj.CreatedAt)
		}
		return ti.CreatedAt.After(tj.CreatedAt)
	})
}
