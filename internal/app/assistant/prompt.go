package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

func chatSystemPrompt(userContext string) string {
	return fmt.Sprintf(`You are a helpful AI assistant for productivity tracking.

User Context:
%s

You can help users:
- Add tasks and projects
- Analyze their productivity data
- Answer questions about their work patterns
- Provide recommendations

Be concise and actionable in your responses.`, userContext)
}

// buildContext summarizes the user's stored data for the system preamble:
// aggregate counts, total time saved, and a short recent-task listing.
func buildContext(tasks []*domain.Task, projects []*domain.Project) string {
	totalTimeSaved := 0
	for _, t := range tasks {
		totalTimeSaved += t.TimeSaved()
	}

	recent := tasks
	if len(recent) > 5 {
		recent = recent[:5]
	}
	lines := make([]string, 0, len(recent))
	for _, t := range recent {
		lines = append(lines, fmt.Sprintf("- %s: %dmin (human) vs %dmin (AI)", t.Name, t.HumanTime, t.AITime))
	}

	return fmt.Sprintf(`
Total Projects: %d
Total Tasks: %d
Total Time Saved: %d minutes

Recent Tasks:
%s
`, len(projects), len(tasks), totalTimeSaved, strings.Join(lines, "\n"))
}

func estimatePrompt(description string, history []*domain.Task) string {
	return fmt.Sprintf(`You are a time estimation specialist.

Analyze this task description and provide estimates:
Task: %q

User's historical data:
%s

Provide estimates in JSON format:
{
  "humanTime": number (in minutes),
  "aiTime": number (in minutes),
  "confidence": number (0-100),
  "category": string,
  "reasoning": string
}`, description, tasksJSON(history))
}

func insightsPrompt(tasks []*domain.Task, projects []*domain.Project) string {
	return fmt.Sprintf(`You are a productivity insights analyst.

Analyze this user's data and provide insights:

Tasks: %s
Projects: %s

Provide insights in JSON format:
{
  "patterns": string[],
  "topAITasks": [{ "task": string, "gain": number }],
  "totalTimeSaved": number,
  "recommendations": string[],
  "trends": [{ "period": string, "metric": string, "value": number }]
}`, tasksJSON(tasks), projectsJSON(projects))
}

type taskSummary struct {
	Name        string `json:"name"`
	ProjectName string `json:"projectName"`
	HumanTime   int    `json:"humanTime"`
	AITime      int    `json:"aiTime"`
}

func tasksJSON(tasks []*domain.Task) string {
	out := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskSummary{
			Name:        t.Name,
			ProjectName: t.ProjectName,
			HumanTime:   t.HumanTime,
			AITime:      t.AITime,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

type projectSummary struct {
	Name      string   `json:"name"`
	TaskNames []string `json:"taskNames"`
}

func projectsJSON(projects []*domain.Project) string {
	out := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectSummary{Name: p.Name, TaskNames: p.TaskNames})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
