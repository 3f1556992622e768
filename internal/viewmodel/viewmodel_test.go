package viewmodel

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "vm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProjects(t *testing.T, s *store.Store, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, s.CreateProject(context.Background(), &model.Project{Name: n}))
	}
}

// failingWrites keeps the real reads but rejects every sort-order write.
type failingWrites struct {
	*store.Store
	err error
}

func (f failingWrites) ApplySortOrders(context.Context, store.Kind, map[int64]int) error { return f.err }

func projectNames(ps []*model.Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func settle[T comparable](t *testing.T, comp *reorder.Completion[T]) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := comp.Wait(ctx)
	require.False(t, errors.Is(err, context.DeadlineExceeded), "completion did not settle")
	return err
}

func TestProjectsBrowser_DragPersistsAffectedRange(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seedProjects(t, s, "A", "B", "C", "D", "E")

	b := NewProjectsBrowser(s, nil)
	require.NoError(t, b.Refresh(ctx))
	c := reorder.NewCoordinator[*model.Project](b, reorder.Options{})

	a := b.Projects()[0]
	comp, err := c.MoveTo(ctx, a, reorder.UniformGeometry(5, 1), 3)
	require.NoError(t, err)
	require.NoError(t, settle(t, comp))

	assert.Equal(t, []string{"B", "C", "D", "A", "E"}, projectNames(b.Projects()))

	stored, err := s.ListProjects(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D", "A", "E"}, projectNames(stored))
	for i, p := range stored {
		assert.Equal(t, i, p.SortOrder, p.Name)
	}
	assert.Nil(t, stored[4].UpdatedAt, "items outside the window are not rewritten")
}

func TestProjectsBrowser_MoveAfterDeleteMatchesScreen(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seedProjects(t, s, "A", "X1", "X2", "X3", "X4", "B", "C", "D")
	all, err := s.ListProjects(ctx, true)
	require.NoError(t, err)
	for _, p := range all {
		if strings.HasPrefix(p.Name, "X") {
			require.NoError(t, s.DeleteProject(ctx, p.ID))
		}
	}

	b := NewProjectsBrowser(s, nil)
	require.NoError(t, b.Refresh(ctx))
	c := reorder.NewCoordinator[*model.Project](b, reorder.Options{})

	comp, err := c.MoveTo(ctx, b.Projects()[3], reorder.UniformGeometry(4, 1), 2)
	require.NoError(t, err)
	require.NoError(t, settle(t, comp))

	assert.Equal(t, []string{"A", "B", "D", "C"}, projectNames(b.Projects()))
	stored, err := s.ListProjects(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D", "C"}, projectNames(stored))

	// The list stays consistent for the next move too.
	comp, err = c.MoveTo(ctx, b.Projects()[0], reorder.UniformGeometry(4, 1), 3)
	require.NoError(t, err)
	require.NoError(t, settle(t, comp))
	stored, err = s.ListProjects(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D", "C", "A"}, projectNames(stored))
	assert.Equal(t, projectNames(stored), projectNames(b.Projects()))
}

func TestProjectPage_MoveAfterDeleteMatchesScreen(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p := &model.Project{Name: "P"}
	require.NoError(t, s.CreateProject(ctx, p))
	var ids []int64
	for _, title := range []string{"one", "gone", "gone too", "two", "three", "four"} {
		tk := &model.Task{Title: title, ProjectID: &p.ID}
		require.NoError(t, s.CreateTask(ctx, tk))
		ids = append(ids, tk.ID)
	}
	require.NoError(t, s.DeleteTask(ctx, ids[1]))
	require.NoError(t, s.DeleteTask(ctx, ids[2]))

	page := NewProjectPage(s, p.ID, nil)
	require.NoError(t, page.Refresh(ctx))
	c := reorder.NewCoordinator[*model.Task](page, reorder.Options{})
	comp, err := c.MoveTo(ctx, page.Tasks()[3], reorder.UniformGeometry(4, 2), 2)
	require.NoError(t, err)
	require.NoError(t, settle(t, comp))

	stored, err := s.ListTasksByProject(ctx, p.ID)
	require.NoError(t, err)
	var titles []string
	for _, tk := range stored {
		titles = append(titles, tk.Title)
	}
	assert.Equal(t, []string{"one", "two", "four", "three"}, titles)
}

func TestProjectsBrowser_RebuildWhileSaving(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seedProjects(t, s, "A", "B", "C", "D")

	b := NewProjectsBrowser(s, nil)
	require.NoError(t, b.Refresh(ctx))
	c := reorder.NewCoordinator[*model.Project](b, reorder.Options{})

	comp, err := c.MoveTo(ctx, b.Projects()[0], reorder.UniformGeometry(4, 1), 2)
	require.NoError(t, err)
	// Rebuild the visible list over and over while the write runs on its own goroutine.
	for done := false; !done; {
		select {
		case <-comp.Done():
			done = true
		default:
			b.SetShowArchived(false)
		}
	}
	require.NoError(t, comp.Err())

	assert.Equal(t, []string{"B", "C", "A", "D"}, projectNames(b.Projects()))
	stored, err := s.ListProjects(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A", "D"}, projectNames(stored))
}

func TestProjectsBrowser_PersistFailureRefreshesFromStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seedProjects(t, s, "A", "B", "C")

	b := NewProjectsBrowser(failingWrites{Store: s, err: errors.New("disk full")}, nil)
	require.NoError(t, b.Refresh(ctx))
	c := reorder.NewCoordinator[*model.Project](b, reorder.Options{})

	var completedErr error
	c.OnCompleted(func(_ reorder.Outcome[*model.Project], err error) { completedErr = err })

	comp, err := c.MoveTo(ctx, b.Projects()[0], reorder.UniformGeometry(3, 1), 2)
	require.NoError(t, err)
	err = settle(t, comp)
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, err, completedErr)

	assert.Equal(t, []string{"A", "B", "C"}, projectNames(b.Projects()), "refresh restores the stored order")
}

func TestProjectsBrowser_CanReorderOnlyForStoredOrder(t *testing.T) {
	b := NewProjectsBrowser(openStore(t), nil)
	assert.True(t, b.CanReorder())

	b.SetSort(ProjectsByName, Ascending)
	assert.False(t, b.CanReorder())

	b.SetSort(ProjectsBySortOrder, Descending)
	assert.False(t, b.CanReorder())

	b.SetSort(ProjectsBySortOrder, Ascending)
	b.SetQuery("alpha")
	assert.False(t, b.CanReorder())

	b.SetQuery("  ")
	assert.True(t, b.CanReorder())
}

func TestProjectsBrowser_FilterSortAndArchived(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	seedProjects(t, s, "Garden plan", "Tax return", "Garden shed")
	all, err := s.ListProjects(ctx, true)
	require.NoError(t, err)
	require.NoError(t, s.SetProjectArchived(ctx, all[2].ID, true))

	b := NewProjectsBrowser(s, nil)
	require.NoError(t, b.Refresh(ctx))
	assert.Equal(t, []string{"Garden plan", "Tax return"}, projectNames(b.Projects()))

	b.SetShowArchived(true)
	b.SetQuery("garden")
	assert.Equal(t, []string{"Garden plan", "Garden shed"}, projectNames(b.Projects()))

	b.SetQuery("")
	b.SetSort(ProjectsByName, Descending)
	assert.Equal(t, []string{"Tax return", "Garden shed", "Garden plan"}, projectNames(b.Projects()))

	assert.Equal(t, ProjectsByCreated, b.CycleSort())
	assert.Equal(t, ProjectsBySortOrder, b.CycleSort())
	assert.Equal(t, Ascending, b.ToggleDirection())
}

func TestParseProjectSortBy(t *testing.T) {
	got, err := ParseProjectSortBy(" Name ")
	require.NoError(t, err)
	assert.Equal(t, ProjectsByName, got)
	_, err = ParseProjectSortBy("size")
	require.Error(t, err)
}

func TestProjectPage_ReorderAndStatusFilter(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p := &model.Project{Name: "P"}
	require.NoError(t, s.CreateProject(ctx, p))
	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		tk := &model.Task{Title: title, ProjectID: &p.ID}
		require.NoError(t, s.CreateTask(ctx, tk))
		ids = append(ids, tk.ID)
	}
	require.NoError(t, s.SetTaskStatus(ctx, ids[1], model.StatusCompleted))

	page := NewProjectPage(s, p.ID, nil)
	require.NoError(t, page.Refresh(ctx))
	require.Len(t, page.Tasks(), 3)

	c := reorder.NewCoordinator[*model.Task](page, reorder.Options{})
	comp, err := c.MoveTo(ctx, page.Tasks()[2], reorder.UniformGeometry(3, 2), 0)
	require.NoError(t, err)
	require.NoError(t, settle(t, comp))

	stored, err := s.ListTasksByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "one", "two"}, []string{stored[0].Title, stored[1].Title, stored[2].Title})

	done := model.StatusCompleted
	page.SetStatusFilter(&done)
	assert.False(t, page.CanReorder())
	require.Len(t, page.Tasks(), 1)
	assert.Equal(t, "two", page.Tasks()[0].Title)

	_, err = c.TryBegin(page.Tasks()[0], reorder.UniformGeometry(1, 2))
	require.ErrorIs(t, err, reorder.ErrReorderDisabled)
}

func TestProjectPage_SortModes(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p := &model.Project{Name: "P"}
	require.NoError(t, s.CreateProject(ctx, p))
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, tk := range []*model.Task{
		{Title: "b-low", Priority: model.PriorityLow},
		{Title: "a-crit", Priority: model.PriorityCritical},
		{Title: "c-due", Priority: model.PriorityNormal, DueDate: &due},
	} {
		tk.ProjectID = &p.ID
		require.NoError(t, s.CreateTask(ctx, tk))
	}

	page := NewProjectPage(s, p.ID, nil)
	require.NoError(t, page.Refresh(ctx))

	titles := func() []string {
		var out []string
		for _, t := range page.Tasks() {
			out = append(out, t.Title)
		}
		return out
	}

	page.SetSort(TasksByTitle, Ascending)
	assert.Equal(t, []string{"a-crit", "b-low", "c-due"}, titles())
	page.SetSort(TasksByPriority, Ascending)
	assert.Equal(t, []string{"a-crit", "c-due", "b-low"}, titles())
	page.SetSort(TasksByDueDate, Ascending)
	assert.Equal(t, "c-due", titles()[0])
	assert.False(t, page.CanReorder())
}

func TestMilestonesAndTaskTypes_Reorder(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p := &model.Project{Name: "P"}
	require.NoError(t, s.CreateProject(ctx, p))
	for _, n := range []string{"M1", "M2", "M3"} {
		require.NoError(t, s.CreateMilestone(ctx, &model.Milestone{ProjectID: p.ID, Name: n}))
	}
	for _, n := range []string{"Bug", "Feature"} {
		require.NoError(t, s.CreateTaskType(ctx, &model.TaskType{Name: n}))
	}

	ms := NewMilestones(s, p.ID, nil)
	require.NoError(t, ms.Refresh(ctx))
	mc := reorder.NewCoordinator[*model.Milestone](ms, reorder.Options{})
	comp, err := mc.MoveTo(ctx, ms.Milestones()[0], reorder.UniformGeometry(3, 1), 2)
	require.NoError(t, err)
	require.NoError(t, settle(t, comp))

	storedMs, err := s.ListMilestones(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "M1", storedMs[2].Name)

	tt := NewTaskTypes(s, nil)
	require.NoError(t, tt.Refresh(ctx))
	tc := reorder.NewCoordinator[*model.TaskType](tt, reorder.Options{})
	comp2, err := tc.MoveTo(ctx, tt.TaskTypes()[1], reorder.UniformGeometry(2, 1), 0)
	require.NoError(t, err)
	require.NoError(t, settle(t, comp2))

	storedTypes, err := s.ListTaskTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Feature", storedTypes[0].Name)
}

func TestMatchesWords(t *testing.T) {
	assert.True(t, matchesWords("", "anything"))
	assert.True(t, matchesWords("gar PLAN", "Garden plan"))
	assert.False(t, matchesWords("garden tax", "Garden plan"))
}
