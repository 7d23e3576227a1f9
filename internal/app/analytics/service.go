// Package analytics aggregates recorded tasks into the dashboard numbers.
package analytics

import (
	"context"
	"math"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

type Service struct {
	tasks    domain.TaskStore
	projects domain.ProjectStore
}

func NewService(tasks domain.TaskStore, projects domain.ProjectStore) *Service {
	return &Service{
		tasks:    tasks,
		projects: projects,
	}
}

type Overview struct {
	TotalTasks          int     `json:"totalTasks"`
	TotalProjects       int     `json:"totalProjects"`
	TotalTimeSaved      int     `json:"totalTimeSaved"`
	AvgProductivityGain float64 `json:"avgProductivityGain"`
}

// Overview returns the user-wide rollup. Time saved is Σ(human−ai) in
// minutes; the average gain is the mean of each task's relative speedup,
// rounded to one decimal.
func (s *Service) Overview(ctx context.Context, userID domain.UserID) (*Overview, error) {
	tasks, err := s.tasks.ListTasksByUser(userID)
	if err != nil {
		return nil, err
	}
	projects, err := s.projects.ListProjectsByUser(userID)
	if err != nil {
		return nil, err
	}

	saved, gain := rollup(tasks)
	return &Overview{
		TotalTasks:          len(tasks),
		TotalProjects:       len(projects),
		TotalTimeSaved:      saved,
		AvgProductivityGain: gain,
	}, nil
}

type ProjectSummary struct {
	ProjectID           domain.ProjectID `json:"projectId"`
	ProjectName         string           `json:"projectName"`
	TaskCount           int              `json:"taskCount"`
	TotalTimeSaved      int              `json:"totalTimeSaved"`
	AvgProductivityGain float64          `json:"avgProductivityGain"`
}

// ByProject returns the same rollup per project, over that project's
// recorded tasks.
func (s *Service) ByProject(ctx context.Context, userID domain.UserID) ([]ProjectSummary, error) {
	projects, err := s.projects.ListProjectsByUser(userID)
	if err != nil {
		return nil, err
	}

	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		tasks, err := s.tasks.ListTasksByProject(p.ID)
		if err != nil {
			return nil, err
		}
		saved, gain := rollup(tasks)
		out = append(out, ProjectSummary{
			ProjectID:           p.ID,
			ProjectName:         p.Name,
			TaskCount:           len(tasks),
			TotalTimeSaved:      saved,
			AvgProductivityGain: gain,
		})
	}
	return out, nil
}

type ChartRow struct {
	ID               domain.TaskID `json:"id"`
	Name             string        `json:"name"`
	HumanTime        int           `json:"humanTime"`
	AITime           int           `json:"aiTime"`
	ProductivityGain float64       `json:"productivityGain"`
	ProjectName      string        `json:"projectName"`
}

// ChartData returns one row per recorded task for the comparison chart.
func (s *Service) ChartData(ctx context.Context, userID domain.UserID) ([]ChartRow, error) {
	tasks, err := s.tasks.ListTasksByUser(userID)
	if err != nil {
		return nil, err
	}

	rows := make([]ChartRow, 0, len(tasks))
	for _, t := range tasks {
		name := t.ProjectName
		if name == "" {
			name = "Unknown"
		}
		rows = append(rows, ChartRow{
			ID:               t.ID,
			Name:             t.Name,
			HumanTime:        t.HumanTime,
			AITime:           t.AITime,
			ProductivityGain: t.ProductivityGain(),
			ProjectName:      name,
		})
	}
	return rows, nil
}

// rollup computes total minutes saved and the average productivity gain
// rounded to one decimal place.
func rollup(tasks []*domain.Task) (int, float64) {
	if len(tasks) == 0 {
		return 0, 0
	}

	saved := 0
	gainSum := 0.0
	for _, t := range tasks {
		saved += t.TimeSaved()
		gainSum += t.ProductivityGain()
	}

	avg := gainSum / float64(len(tasks))
	return saved, math.Round(avg*10) / 10
}
