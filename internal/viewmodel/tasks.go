package viewmodel

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/store"
)

type TaskSortBy int

const (
	TasksBySortOrder TaskSortBy = iota
	TasksByTitle
	TasksByPriority
	TasksByDueDate
	TasksByCreated
)

var taskSortNames = []string{"order", "title", "priority", "due", "created"}

func (s TaskSortBy) String() string {
	if s < 0 || int(s) >= len(taskSortNames) {
		return fmt.Sprintf("sort(%d)", int(s))
	}
	return taskSortNames[s]
}

func ParseTaskSortBy(s string) (TaskSortBy, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range taskSortNames {
		if v == name {
			return TaskSortBy(i), nil
		}
	}
	return 0, fmt.Errorf("invalid task sort: %q (expected order|title|priority|due|created)", s)
}

type TaskStore interface {
	SortOrderWriter
	ListTasksByProject(ctx context.Context, projectID int64) ([]*model.Task, error)
}

// ProjectPage lists one project's top-level tasks.
type ProjectPage struct {
	store     TaskStore
	logger    *slog.Logger
	projectID int64
	items     *orderedList[*model.Task]

	mu     sync.Mutex
	all    []*model.Task
	sortBy TaskSortBy
	dir    SortDirection
	query  string
	status *model.TaskStatus
}

func NewProjectPage(st TaskStore, projectID int64, logger *slog.Logger) *ProjectPage {
	return &ProjectPage{
		store:     st,
		logger:    loggerOrNop(logger),
		projectID: projectID,
		dir:       Ascending,
		items: newOrderedList(
			func(t *model.Task) int64 { return t.ID },
			func(t *model.Task, o int) { t.SortOrder = o },
		),
	}
}

func (p *ProjectPage) ProjectID() int64 { return p.projectID }

func (p *ProjectPage) Refresh(ctx context.Context) error {
	all, err := p.store.ListTasksByProject(ctx, p.projectID)
	if err != nil {
		p.logger.Warn("failed to refresh tasks", "project_id", p.projectID, "err", err)
		return err
	}
	p.mu.Lock()
	p.all = all
	p.mu.Unlock()
	p.apply()
	return nil
}

func (p *ProjectPage) apply() {
	p.mu.Lock()
	visible := make([]*model.Task, 0, len(p.all))
	for _, t := range p.all {
		if p.status != nil && t.Status != *p.status {
			continue
		}
		if !matchesWords(p.query, t.Title+" "+t.Description) {
			continue
		}
		visible = append(visible, t)
	}
	by, dir := p.sortBy, p.dir
	p.mu.Unlock()

	slices.SortStableFunc(visible, func(x, y *model.Task) int {
		var c int
		switch by {
		case TasksByTitle:
			c = strings.Compare(strings.ToLower(x.Title), strings.ToLower(y.Title))
		case TasksByPriority:
			// Highest priority first when ascending.
			c = cmpInt64(int64(y.Priority), int64(x.Priority))
		case TasksByDueDate:
			c = compareDue(x.DueDate, y.DueDate)
		case TasksByCreated:
			c = x.CreatedAt.Compare(y.CreatedAt)
		default:
			c = cmpInt64(int64(x.SortOrder), int64(y.SortOrder))
		}
		if c == 0 {
			c = cmpInt64(x.ID, y.ID)
		}
		if dir == Descending {
			c = -c
		}
		return c
	})
	p.items.Reset(visible)
}

// compareDue orders dated tasks before undated ones.
func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

func (p *ProjectPage) SetSort(by TaskSortBy, dir SortDirection) {
	p.mu.Lock()
	p.sortBy, p.dir = by, dir
	p.mu.Unlock()
	p.apply()
}

func (p *ProjectPage) CycleSort() TaskSortBy {
	p.mu.Lock()
	p.sortBy = (p.sortBy + 1) % TaskSortBy(len(taskSortNames))
	by := p.sortBy
	p.mu.Unlock()
	p.apply()
	return by
}

func (p *ProjectPage) SetQuery(q string) {
	p.mu.Lock()
	p.query = strings.TrimSpace(q)
	p.mu.Unlock()
	p.apply()
}

// SetStatusFilter limits the list to one status; nil shows every task.
func (p *ProjectPage) SetStatusFilter(status *model.TaskStatus) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
	p.apply()
}

func (p *ProjectPage) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

func (p *ProjectPage) Sort() (TaskSortBy, SortDirection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortBy, p.dir
}

func (p *ProjectPage) Tasks() []*model.Task { return p.items.Items() }

func (p *ProjectPage) CanReorder() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortBy == TasksBySortOrder && p.dir == Ascending && p.query == "" && p.status == nil
}

func (p *ProjectPage) Items() reorder.List[*model.Task] { return p.items }

func (p *ProjectPage) OnReorderCompleted(ctx context.Context, t *model.Task, oldIndex, newIndex int) error {
	err := persistOrder(ctx, p.store, store.KindTasks, p.items)
	if err != nil {
		return err
	}
	p.logger.Info("task reordered", "task", t.Title, "project_id", p.projectID, "from", oldIndex, "to", newIndex)
	return nil
}
