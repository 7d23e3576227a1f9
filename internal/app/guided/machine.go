// Package guided implements the conversational task-entry state machine:
// the logic that turns chat input into structured project/task records by
// walking the user through short guided flows, falling back to free-form
// AI chat between flows.
//
// The machine is pure: transitions take the current state plus one
// utterance and a point-in-time project snapshot, and return the next
// state, the assistant replies to append, and (on a terminal transition)
// a mutation request for the caller to execute. No I/O happens here.
package guided

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

// Mode is the state gating how the next utterance is interpreted.
type Mode string

const (
	ModeFreeChat           Mode = "chat"
	ModeProjectName        Mode = "create_project_name"
	ModeProjectInitialTask Mode = "create_project_task"
	ModeTaskProject        Mode = "add_task_select_project"
	ModeTaskName           Mode = "add_task_name"
	ModeFormProject        Mode = "fill_form_select_project"
	ModeFormTask           Mode = "fill_form_select_task"
	ModeFormHumanTime      Mode = "fill_form_human_time"
	ModeFormAITime         Mode = "fill_form_ai_time"
)

// Action is a quick-action selector from the chat surface.
type Action string

const (
	ActionCreateProject Action = "create_project"
	ActionAddTask       Action = "add_task"
	ActionFillForm      Action = "fill_form"
)

// ParseAction maps a wire string to an Action.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionCreateProject, ActionAddTask, ActionFillForm:
		return Action(s), true
	}
	return "", false
}

// ProjectDraft holds the fields collected by the create-project flow.
type ProjectDraft struct {
	Name string
}

// TaskDraft holds the fields collected by the add-task flow.
type TaskDraft struct {
	ProjectID   domain.ProjectID
	ProjectName string
}

// FormDraft holds the fields collected by the fill-form flow. Which fields
// are populated is implied by the mode: HumanTime is only meaningful once
// the mode has advanced past ModeFormHumanTime.
type FormDraft struct {
	ProjectID    domain.ProjectID
	ProjectName  string
	ProjectTasks []string
	TaskName     string
	HumanTime    int
}

// State is the session-scoped conversation state. Exactly one draft is
// non-nil while a flow is in progress; all are nil in free chat.
type State struct {
	Mode    Mode
	Project *ProjectDraft
	Task    *TaskDraft
	Form    *FormDraft
}

// NewState returns the initial free-chat state.
func NewState() State {
	return State{Mode: ModeFreeChat}
}

// InFlow reports whether a guided flow is in progress.
func (s State) InFlow() bool {
	return s.Mode != ModeFreeChat
}

// MutationKind tags a terminal transition's write request.
type MutationKind string

const (
	MutationCreateProject     MutationKind = "create_project"
	MutationAddTaskDefinition MutationKind = "add_task_definition"
	MutationRecordTask        MutationKind = "record_task"
)

// Mutation is the write request produced by a flow's terminal transition.
// The caller executes it exactly once and appends Confirmation on success.
type Mutation struct {
	Kind MutationKind

	ProjectName  string   // create_project
	InitialTasks []string // create_project

	ProjectID domain.ProjectID // add_task_definition, record_task
	TaskName  string           // add_task_definition, record_task

	HumanTime int // record_task, minutes
	AITime    int // record_task, minutes

	Confirmation string
}

// Result is the outcome of one transition. Forward means the utterance
// belongs to free chat and the caller should run the AI bridge with it.
type Result struct {
	State    State
	Replies  []string
	Forward  bool
	Mutation *Mutation
}

// Assistant message templates, verbatim from the chat surface.
const (
	msgProjectNamePrompt    = "Great! What should we name the new project?"
	msgNoProjects           = "You don't have any projects yet. Create one first!"
	msgFirstTaskPrompt      = "Got it. What is the first task for this project?"
	msgInvalidProjectChoice = "Invalid selection. Please type the number of the project."
	msgInvalidTaskChoice    = "Invalid selection. Please type the number of the task."
	msgProjectHasNoTasks    = "This project has no tasks. Please add a task first."
	msgInvalidMinutes       = "Please enter a valid number for minutes."
	msgNegativeMinutes      = "Minutes can't be negative. Please enter the number of minutes."
	msgAITimePrompt         = "And how many minutes for Human + AI?"
	msgTaskRecorded         = "Task added to the dashboard!"
	msgMutationFailed       = "Something went wrong while saving that. Please try again."
)

// Start begins a guided flow from a quick action. It is a no-op while a
// flow is already in progress (re-entrancy is unsupported). The projects
// snapshot is only consulted for the flows that need a selection list.
func Start(st State, action Action, projects []*domain.Project) (State, []string) {
	if st.InFlow() {
		return st, nil
	}

	switch action {
	case ActionCreateProject:
		st = State{Mode: ModeProjectName, Project: &ProjectDraft{}}
		return st, []string{msgProjectNamePrompt}

	case ActionAddTask:
		if len(projects) == 0 {
			return NewState(), []string{msgNoProjects}
		}
		st = State{Mode: ModeTaskProject, Task: &TaskDraft{}}
		prompt := "Which project would you like to add a task to? (Type the number)\n" + numberedProjects(projects)
		return st, []string{prompt}

	case ActionFillForm:
		if len(projects) == 0 {
			return NewState(), []string{msgNoProjects}
		}
		st = State{Mode: ModeFormProject, Form: &FormDraft{}}
		prompt := "Let's fill out the form. First, select a project: (Type the number)\n" + numberedProjects(projects)
		return st, []string{prompt}
	}

	return st, nil
}

// HandleInput consumes one non-empty, trimmed utterance and transitions
// the state. Empty input must be rejected by the caller.
func HandleInput(st State, utterance string, projects []*domain.Project) Result {
	switch st.Mode {
	case ModeFreeChat:
		return Result{State: st, Forward: true}

	case ModeProjectName:
		st.Project = &ProjectDraft{Name: utterance}
		st.Mode = ModeProjectInitialTask
		return Result{State: st, Replies: []string{msgFirstTaskPrompt}}

	case ModeProjectInitialTask:
		m := &Mutation{
			Kind:         MutationCreateProject,
			ProjectName:  st.Project.Name,
			InitialTasks: []string{utterance},
			Confirmation: fmt.Sprintf("Project %q created with task %q!", st.Project.Name, utterance),
		}
		return Result{State: NewState(), Mutation: m}

	case ModeTaskProject:
		idx, ok := parseSelection(utterance, len(projects))
		if !ok {
			return Result{State: st, Replies: []string{msgInvalidProjectChoice}}
		}
		p := projects[idx]
		st.Task = &TaskDraft{ProjectID: p.ID, ProjectName: p.Name}
		st.Mode = ModeTaskName
		return Result{State: st, Replies: []string{fmt.Sprintf("Okay, adding to %q. What is the task name?", p.Name)}}

	case ModeTaskName:
		m := &Mutation{
			Kind:         MutationAddTaskDefinition,
			ProjectID:    st.Task.ProjectID,
			TaskName:     utterance,
			Confirmation: fmt.Sprintf("Task %q added to project %q!", utterance, st.Task.ProjectName),
		}
		return Result{State: NewState(), Mutation: m}

	case ModeFormProject:
		idx, ok := parseSelection(utterance, len(projects))
		if !ok {
			return Result{State: st, Replies: []string{msgInvalidProjectChoice}}
		}
		p := projects[idx]
		if len(p.TaskNames) == 0 {
			// Nothing to record against; abort the flow.
			return Result{State: NewState(), Replies: []string{msgProjectHasNoTasks}}
		}
		st.Form = &FormDraft{
			ProjectID:    p.ID,
			ProjectName:  p.Name,
			ProjectTasks: append([]string(nil), p.TaskNames...),
		}
		st.Mode = ModeFormTask
		prompt := fmt.Sprintf("Great. Select a task from %q: (Type the number)\n%s", p.Name, numberedList(st.Form.ProjectTasks))
		return Result{State: st, Replies: []string{prompt}}

	case ModeFormTask:
		idx, ok := parseSelection(utterance, len(st.Form.ProjectTasks))
		if !ok {
			return Result{State: st, Replies: []string{msgInvalidTaskChoice}}
		}
		draft := *st.Form
		draft.TaskName = draft.ProjectTasks[idx]
		st.Form = &draft
		st.Mode = ModeFormHumanTime
		return Result{State: st, Replies: []string{fmt.Sprintf("Selected %q. How many minutes did it take the Human?", draft.TaskName)}}

	case ModeFormHumanTime:
		minutes, ok := parseMinutes(utterance)
		if !ok {
			return Result{State: st, Replies: []string{minutesError(utterance)}}
		}
		draft := *st.Form
		draft.HumanTime = minutes
		st.Form = &draft
		st.Mode = ModeFormAITime
		return Result{State: st, Replies: []string{msgAITimePrompt}}

	case ModeFormAITime:
		minutes, ok := parseMinutes(utterance)
		if !ok {
			return Result{State: st, Replies: []string{minutesError(utterance)}}
		}
		m := &Mutation{
			Kind:         MutationRecordTask,
			ProjectID:    st.Form.ProjectID,
			TaskName:     st.Form.TaskName,
			HumanTime:    st.Form.HumanTime,
			AITime:       minutes,
			Confirmation: msgTaskRecorded,
		}
		return Result{State: NewState(), Mutation: m}
	}

	// Unknown mode: recover to free chat rather than wedge the session.
	return Result{State: NewState(), Forward: true}
}

// FailureReply is the assistant message to append when executing a
// Mutation fails. The state returned alongside the mutation is already
// reset, so the session is never left awaiting input.
func FailureReply() string {
	return msgMutationFailed
}

// parseSelection converts a 1-based selection into a 0-based index.
// Strictly positional: the whole utterance must be an integer in
// [1, n].
func parseSelection(text string, n int) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

// parseMinutes accepts non-negative whole minutes. The direct form path
// rejects negative times, so the guided path does too.
func parseMinutes(text string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func minutesError(text string) string {
	if v, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && v < 0 {
		return msgNegativeMinutes
	}
	return msgInvalidMinutes
}

func numberedProjects(projects []*domain.Project) string {
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return numberedList(names)
}

func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, item)
	}
	return b.String()
}
