package model

import (
	"fmt"
	"strings"
	"time"
)

type TaskStatus int

const (
	StatusNotStarted TaskStatus = iota
	StatusInProgress
	StatusCompleted
	StatusCancelled
)

var taskStatusNames = []string{"not-started", "in-progress", "completed", "cancelled"}

func (s TaskStatus) String() string {
	if s < 0 || int(s) >= len(taskStatusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return taskStatusNames[s]
}

// IsEndState reports whether the status closes the task.
func (s TaskStatus) IsEndState() bool { return s == StatusCompleted || s == StatusCancelled }

func ParseTaskStatus(s string) (TaskStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "_", "-")
	for i, name := range taskStatusNames {
		if v == name || v == strings.ReplaceAll(name, "-", "") {
			return TaskStatus(i), nil
		}
	}
	switch v {
	case "todo":
		return StatusNotStarted, nil
	case "doing":
		return StatusInProgress, nil
	case "done":
		return StatusCompleted, nil
	}
	return 0, fmt.Errorf("invalid status: %q (expected not-started|in-progress|completed|cancelled)", s)
}

type TaskPriority int

const (
	PriorityLow TaskPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

var taskPriorityNames = []string{"low", "normal", "high", "critical"}

func (p TaskPriority) String() string {
	if p < 0 || int(p) >= len(taskPriorityNames) {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return taskPriorityNames[p]
}

func ParseTaskPriority(s string) (TaskPriority, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range taskPriorityNames {
		if v == name {
			return TaskPriority(i), nil
		}
	}
	return 0, fmt.Errorf("invalid priority: %q (expected low|normal|high|critical)", s)
}

type Project struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	DefaultTaskTypeID *int64     `json:"defaultTaskTypeId,omitempty"`
	Color             string     `json:"color,omitempty"`
	SortOrder         int        `json:"sortOrder"`
	Archived          bool       `json:"archived"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

func (p *Project) String() string { return fmt.Sprintf("project %d %q", p.ID, p.Name) }

type Task struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	ParentTaskID   *int64       `json:"parentTaskId,omitempty"`
	HierarchyLevel int          `json:"hierarchyLevel"`
	ProjectID      *int64       `json:"projectId,omitempty"`
	TaskTypeID     *int64       `json:"taskTypeId,omitempty"`
	MilestoneID    *int64       `json:"milestoneId,omitempty"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	StartDate      *time.Time   `json:"startDate,omitempty"`
	Priority       TaskPriority `json:"priority"`
	Status         TaskStatus   `json:"status"`
	SortOrder      int          `json:"sortOrder"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      *time.Time   `json:"updatedAt,omitempty"`

	// SubTasks is populated by loaders that need progress; it is not persisted as a column.
	SubTasks []*Task `json:"subTasks,omitempty"`
}

func (t *Task) String() string { return fmt.Sprintf("task %d %q", t.ID, t.Title) }

// Progress is the percentage of completed subtasks (0 when there are none).
func (t *Task) Progress() int {
	if len(t.SubTasks) == 0 {
		return 0
	}
	done := 0
	for _, st := range t.SubTasks {
		if st.Status == StatusCompleted {
			done++
		}
	}
	return done * 100 / len(t.SubTasks)
}

type Milestone struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"projectId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Color       string     `json:"color,omitempty"`
	SortOrder   int        `json:"sortOrder"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (m *Milestone) String() string { return fmt.Sprintf("milestone %d %q", m.ID, m.Name) }

type TaskType struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	ParentTypeID *int64     `json:"parentTypeId,omitempty"`
	Level        int        `json:"level"`
	Color        string     `json:"color,omitempty"`
	SortOrder    int        `json:"sortOrder"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

func (t *TaskType) String() string { return fmt.Sprintf("task type %d %q", t.ID, t.Name) }

func (s TaskStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *TaskStatus) UnmarshalText(b []byte) error {
	v, err := ParseTaskStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (p TaskPriority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *TaskPriority) UnmarshalText(b []byte) error {
	v, err := ParseTaskPriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
