package viewmodel

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/store"
)

type ProjectSortBy int

const (
	ProjectsBySortOrder ProjectSortBy = iota
	ProjectsByName
	ProjectsByCreated
)

var projectSortNames = []string{"order", "name", "created"}

func (s ProjectSortBy) String() string {
	if s < 0 || int(s) >= len(projectSortNames) {
		return fmt.Sprintf("sort(%d)", int(s))
	}
	return projectSortNames[s]
}

func ParseProjectSortBy(s string) (ProjectSortBy, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range projectSortNames {
		if v == name {
			return ProjectSortBy(i), nil
		}
	}
	return 0, fmt.Errorf("invalid project sort: %q (expected order|name|created)", s)
}

type ProjectStore interface {
	SortOrderWriter
	ListProjects(ctx context.Context, includeArchived bool) ([]*model.Project, error)
}

// ProjectsBrowser is the project list with its sort, filter and archived toggle.
// Drag reordering is only offered while the list shows the stored order unfiltered.
type ProjectsBrowser struct {
	store  ProjectStore
	logger *slog.Logger
	items  *orderedList[*model.Project]

	mu           sync.Mutex
	all          []*model.Project
	sortBy       ProjectSortBy
	dir          SortDirection
	query        string
	showArchived bool
}

func NewProjectsBrowser(st ProjectStore, logger *slog.Logger) *ProjectsBrowser {
	return &ProjectsBrowser{
		store:  st,
		logger: loggerOrNop(logger),
		dir:    Ascending,
		items: newOrderedList(
			func(p *model.Project) int64 { return p.ID },
			func(p *model.Project, o int) { p.SortOrder = o },
		),
	}
}

// Refresh reloads every project from the store and rebuilds the visible list.
func (b *ProjectsBrowser) Refresh(ctx context.Context) error {
	all, err := b.store.ListProjects(ctx, true)
	if err != nil {
		b.logger.Warn("failed to refresh projects", "err", err)
		return err
	}
	b.mu.Lock()
	b.all = all
	b.mu.Unlock()
	b.apply()
	b.logger.Debug("projects refreshed", "count", len(all))
	return nil
}

func (b *ProjectsBrowser) apply() {
	b.mu.Lock()
	visible := make([]*model.Project, 0, len(b.all))
	for _, p := range b.all {
		if p.Archived && !b.showArchived {
			continue
		}
		if !matchesWords(b.query, p.Name+" "+p.Description) {
			continue
		}
		visible = append(visible, p)
	}
	by, dir := b.sortBy, b.dir
	b.mu.Unlock()

	slices.SortStableFunc(visible, func(x, y *model.Project) int {
		var c int
		switch by {
		case ProjectsByName:
			c = strings.Compare(strings.ToLower(x.Name), strings.ToLower(y.Name))
		case ProjectsByCreated:
			c = x.CreatedAt.Compare(y.CreatedAt)
		default:
			c = cmpInt64(int64(x.SortOrder), int64(y.SortOrder))
			if c == 0 {
				c = strings.Compare(x.Name, y.Name)
			}
		}
		if dir == Descending {
			c = -c
		}
		return c
	})
	b.items.Reset(visible)
}

func (b *ProjectsBrowser) SetSort(by ProjectSortBy, dir SortDirection) {
	b.mu.Lock()
	b.sortBy, b.dir = by, dir
	b.mu.Unlock()
	b.apply()
}

// CycleSort advances to the next sort key, keeping the direction.
func (b *ProjectsBrowser) CycleSort() ProjectSortBy {
	b.mu.Lock()
	b.sortBy = (b.sortBy + 1) % ProjectSortBy(len(projectSortNames))
	by := b.sortBy
	b.mu.Unlock()
	b.apply()
	return by
}

func (b *ProjectsBrowser) ToggleDirection() SortDirection {
	b.mu.Lock()
	b.dir = !b.dir
	dir := b.dir
	b.mu.Unlock()
	b.apply()
	return dir
}

func (b *ProjectsBrowser) SetQuery(q string) {
	b.mu.Lock()
	b.query = strings.TrimSpace(q)
	b.mu.Unlock()
	b.apply()
}

func (b *ProjectsBrowser) SetShowArchived(show bool) {
	b.mu.Lock()
	b.showArchived = show
	b.mu.Unlock()
	b.apply()
}

func (b *ProjectsBrowser) Sort() (ProjectSortBy, SortDirection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortBy, b.dir
}

func (b *ProjectsBrowser) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

func (b *ProjectsBrowser) ShowArchived() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.showArchived
}

// Projects is a copy of the visible list.
func (b *ProjectsBrowser) Projects() []*model.Project { return b.items.Items() }

func (b *ProjectsBrowser) CanReorder() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortBy == ProjectsBySortOrder && b.dir == Ascending && b.query == ""
}

func (b *ProjectsBrowser) Items() reorder.List[*model.Project] { return b.items }

func (b *ProjectsBrowser) OnReorderCompleted(ctx context.Context, p *model.Project, oldIndex, newIndex int) error {
	err := persistOrder(ctx, b.store, store.KindProjects, b.items)
	if err != nil {
		return err
	}
	b.logger.Info("project reordered", "project", p.Name, "from", oldIndex, "to", newIndex)
	return nil
}
