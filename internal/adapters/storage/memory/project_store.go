package memory

import (
	"sort"
	"sync"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

type ProjectStore struct {
	mu       sync.RWMutex
	projects map[domain.ProjectID]*domain.Project
}

func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		projects: make(map[domain.ProjectID]*domain.Project),
	}
}

func (s *ProjectStore) CreateProject(project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[project.ID] = cloneProject(project)
	return nil
}

func (s *ProjectStore) GetProject(id domain.ProjectID) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return cloneProject(p), nil
}

// ListProjectsByUser returns the user's projects, newest first.
func (s *ProjectStore) ListProjectsByUser(userID domain.UserID) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Project
	for _, p := range s.projects {
		if p.UserID == userID {
			result = append(result, cloneProject(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *ProjectStore) UpdateProject(project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; !ok {
		return domain.ErrProjectNotFound
	}
	s.projects[project.ID] = cloneProject(project)
	return nil
}

func (s *ProjectStore) DeleteProject(id domain.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return domain.ErrProjectNotFound
	}
	delete(s.projects, id)
	return nil
}

// cloneProject keeps stored projects private to the store. Callers mutate
// their copy and write it back through UpdateProject.
func cloneProject(p *domain.Project) *domain.Project {
	c := *p
	c.TaskNames = append([]string(nil), p.TaskNames...)
	return &c
}
