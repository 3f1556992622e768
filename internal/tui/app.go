package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/store"
	"taskpilot/internal/viewmodel"
)

type view int

const (
	viewProjects view = iota
	viewTasks
	viewMilestones
	viewTypes
)

type inputMode int

const (
	inputNone inputMode = iota
	inputCreate
	inputFilter
	inputConfirmDelete
)

// Registry names, one per reorderable list.
const (
	listProjects   = "projects"
	listTasks      = "tasks"
	listMilestones = "milestones"
	listTypes      = "types"
)

// listTop is the screen line of the first list row: a header line and a spacer sit above it.
const listTop = 2

type appModel struct {
	ctx    context.Context
	st     *store.Store
	logger *slog.Logger
	opts   reorder.Options
	reg    *reorder.Registry

	keys keyMap
	help help.Model

	width, height int
	view          view
	showHelp      bool

	projects *viewmodel.ProjectsBrowser
	projList *reorderList[*model.Project]
	types    *viewmodel.TaskTypes
	typeList *reorderList[*model.TaskType]

	// Set while a project is open.
	project    *model.Project
	page       *viewmodel.ProjectPage
	taskList   *reorderList[*model.Task]
	milestones *viewmodel.Milestones
	msList     *reorderList[*model.Milestone]

	input     textinput.Model
	inputMode inputMode

	// Closed lists whose last move is still being written.
	closing []listView

	status    string
	statusErr bool
}

func newAppModel(ctx context.Context, st *store.Store, opts Options) (*appModel, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &appModel{
		ctx:    ctx,
		st:     st,
		logger: logger,
		opts:   reorder.Options{Logger: logger, PersistTimeout: opts.PersistTimeout},
		reg:    reorder.NewRegistry(),
		keys:   defaultKeyMap(),
		help:   help.New(),
		width:  80,
		height: 24,
	}

	m.input = textinput.New()
	m.input.CharLimit = 200
	m.input.Width = 40
	// A blinking cursor redraws the whole screen twice a second.
	m.input.Cursor.SetMode(cursor.CursorStatic)

	m.projects = viewmodel.NewProjectsBrowser(st, logger)
	if err := m.projects.Refresh(ctx); err != nil {
		return nil, err
	}
	m.types = viewmodel.NewTaskTypes(st, logger)
	if err := m.types.Refresh(ctx); err != nil {
		return nil, err
	}
	reorder.Register[*model.Project](m.reg, listProjects, m.projects)
	reorder.Register[*model.TaskType](m.reg, listTypes, m.types)

	var err error
	if m.projList, err = newReorderList(m.reg, listProjects, projectRow, m.opts); err != nil {
		return nil, err
	}
	if m.typeList, err = newReorderList(m.reg, listTypes, typeRow, m.opts); err != nil {
		return nil, err
	}
	m.layout()
	return m, nil
}

func (m *appModel) Init() tea.Cmd { return nil }

func (m *appModel) current() listView {
	switch m.view {
	case viewTasks:
		return m.taskList
	case viewMilestones:
		return m.msList
	case viewTypes:
		return m.typeList
	default:
		return m.projList
	}
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
	case tea.MouseMsg:
		if m.inputMode == inputNone {
			cmd = m.current().handleMouse(m.ctx, msg)
		}
	case tea.KeyMsg:
		if m.inputMode != inputNone {
			cmd = m.updateInput(msg)
		} else {
			cmd = m.updateKey(msg)
		}
	case reorderSettledMsg:
		m.onSettled(msg)
	case statusMsg:
		m.setStatus(msg.text, msg.err)
	}
	m.layout()
	return m, cmd
}

func (m *appModel) onSettled(msg reorderSettledMsg) {
	switch {
	case msg.cancelled:
		m.setStatus("move cancelled", false)
	case msg.err != nil:
		m.setStatus(fmt.Sprintf("move not saved, list reloaded: %v", msg.err), true)
	default:
		m.setStatus("moved", false)
	}
}

func (m *appModel) setStatus(text string, isErr bool) {
	m.status, m.statusErr = text, isErr
}

func (m *appModel) updateKey(msg tea.KeyMsg) tea.Cmd {
	l := m.current()
	if m.changesList(msg) && m.listLocked(l) {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closeAll()
		return tea.Quit
	case key.Matches(msg, m.keys.Back):
		if l.dragging() || l.busy() {
			if l.cancelDrag() {
				m.setStatus("move cancelled", false)
			}
			return nil
		}
		m.back()
	case key.Matches(msg, m.keys.Up):
		l.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		l.moveCursor(1)
	case key.Matches(msg, m.keys.MoveUp):
		return l.step(m.ctx, -1)
	case key.Matches(msg, m.keys.MoveDown):
		return l.step(m.ctx, 1)
	case key.Matches(msg, m.keys.Open):
		if m.view == viewProjects {
			if p, ok := m.projList.selected(); ok {
				m.openProject(p)
			}
		}
	case key.Matches(msg, m.keys.Milestones):
		if m.view == viewTasks {
			m.view = viewMilestones
			m.setStatus("", false)
		}
	case key.Matches(msg, m.keys.Types):
		if m.view == viewProjects {
			m.view = viewTypes
			m.setStatus("", false)
		}
	case key.Matches(msg, m.keys.Add):
		m.startInput(inputCreate, m.createPrompt(), "")
	case key.Matches(msg, m.keys.Filter):
		if m.view == viewProjects || m.view == viewTasks {
			m.startInput(inputFilter, "Filter: ", m.query())
		}
	case key.Matches(msg, m.keys.Delete):
		if name := m.selectedName(); name != "" {
			m.startInput(inputConfirmDelete, fmt.Sprintf("Delete %s? (y/n) ", name), "")
		}
	case key.Matches(msg, m.keys.Toggle):
		m.toggleSelected()
	case key.Matches(msg, m.keys.Sort):
		m.cycleSort()
	case key.Matches(msg, m.keys.Direction):
		if m.view == viewProjects {
			m.setStatus("order: "+m.projects.ToggleDirection().String(), false)
		}
	case key.Matches(msg, m.keys.Archived):
		if m.view == viewProjects {
			m.projects.SetShowArchived(!m.projects.ShowArchived())
		}
	case key.Matches(msg, m.keys.Reload):
		m.reload()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	}
	return nil
}

// changesList reports whether msg rebuilds or leaves the current list. Those keys wait
// until no move is in progress, since a move is tracked by index.
func (m *appModel) changesList(msg tea.KeyMsg) bool {
	k := m.keys
	return key.Matches(msg, k.Open, k.Milestones, k.Types, k.Add, k.Filter, k.Delete,
		k.Toggle, k.Sort, k.Direction, k.Archived, k.Reload)
}

// listLocked reports whether l has a drag or a save in progress, and says so.
func (m *appModel) listLocked(l listView) bool {
	switch {
	case l.dragging():
		m.setStatus("finish the move first (esc cancels)", true)
	case l.busy():
		m.setStatus("still saving the previous move", true)
	default:
		return false
	}
	return true
}

func (m *appModel) startInput(mode inputMode, prompt, value string) {
	m.inputMode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *appModel) stopInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *appModel) updateInput(msg tea.KeyMsg) tea.Cmd {
	if m.inputMode == inputConfirmDelete {
		if strings.EqualFold(msg.String(), "y") {
			m.deleteSelected()
		}
		m.stopInput()
		return nil
	}
	switch msg.String() {
	case "esc":
		m.stopInput()
		return nil
	case "enter":
		v := strings.TrimSpace(m.input.Value())
		mode := m.inputMode
		m.stopInput()
		if mode == inputFilter {
			m.setQuery(v)
		} else if v != "" {
			m.create(v)
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.inputMode == inputFilter {
		m.setQuery(m.input.Value())
	}
	return cmd
}

func (m *appModel) back() {
	switch m.view {
	case viewTasks:
		m.closeProject()
		m.view = viewProjects
	case viewMilestones:
		m.view = viewTasks
	case viewTypes:
		m.view = viewProjects
	}
	m.setStatus("", false)
}

func (m *appModel) openProject(p *model.Project) {
	page := viewmodel.NewProjectPage(m.st, p.ID, m.logger)
	milestones := viewmodel.NewMilestones(m.st, p.ID, m.logger)
	if err := page.Refresh(m.ctx); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if err := milestones.Refresh(m.ctx); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	reorder.Register[*model.Task](m.reg, listTasks, page)
	reorder.Register[*model.Milestone](m.reg, listMilestones, milestones)

	taskList, err := newReorderList(m.reg, listTasks, taskRow, m.opts)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	msList, err := newReorderList(m.reg, listMilestones, milestoneRow, m.opts)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.project, m.page, m.milestones = p, page, milestones
	m.taskList, m.msList = taskList, msList
	m.view = viewTasks
	m.logger.Debug("project opened", "id", p.ID)
}

func (m *appModel) closeProject() {
	if m.taskList != nil {
		m.release(m.taskList)
	}
	if m.msList != nil {
		m.release(m.msList)
	}
	m.reg.Unregister(listTasks)
	m.reg.Unregister(listMilestones)
	m.project, m.page, m.milestones, m.taskList, m.msList = nil, nil, nil, nil, nil
}

func (m *appModel) closeAll() {
	m.closeProject()
	m.release(m.projList)
	m.release(m.typeList)
}

// release closes l, remembering it while its last move is still being written.
func (m *appModel) release(l listView) {
	l.close()
	if l.busy() {
		m.closing = append(m.closing, l)
	}
}

// waitSaves blocks until moves still being written by closed lists have settled, or ctx is done.
func (m *appModel) waitSaves(ctx context.Context) {
	for _, l := range m.closing {
		l.wait(ctx)
	}
	m.closing = nil
}

func (m *appModel) reload() {
	var err error
	switch m.view {
	case viewProjects:
		err = m.projects.Refresh(m.ctx)
	case viewTasks:
		err = m.page.Refresh(m.ctx)
	case viewMilestones:
		err = m.milestones.Refresh(m.ctx)
	case viewTypes:
		err = m.types.Refresh(m.ctx)
	}
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus("reloaded", false)
}

func (m *appModel) createPrompt() string {
	switch m.view {
	case viewTasks:
		return "New task: "
	case viewMilestones:
		return "New milestone: "
	case viewTypes:
		return "New task type: "
	default:
		return "New project: "
	}
}

func (m *appModel) create(name string) {
	ctx := m.ctx
	var err error
	switch m.view {
	case viewProjects:
		p := &model.Project{Name: name}
		if err = m.st.CreateProject(ctx, p); err == nil {
			if err = m.projects.Refresh(ctx); err == nil {
				m.projList.selectItem(findByID(m.projects.Projects(), p.ID, func(x *model.Project) int64 { return x.ID }))
			}
		}
	case viewTasks:
		pid := m.project.ID
		t := &model.Task{Title: name, ProjectID: &pid, Priority: model.PriorityNormal}
		if err = m.st.CreateTask(ctx, t); err == nil {
			if err = m.page.Refresh(ctx); err == nil {
				m.taskList.selectItem(findByID(m.page.Tasks(), t.ID, func(x *model.Task) int64 { return x.ID }))
			}
		}
	case viewMilestones:
		ms := &model.Milestone{ProjectID: m.project.ID, Name: name}
		if err = m.st.CreateMilestone(ctx, ms); err == nil {
			if err = m.milestones.Refresh(ctx); err == nil {
				m.msList.selectItem(findByID(m.milestones.Milestones(), ms.ID, func(x *model.Milestone) int64 { return x.ID }))
			}
		}
	case viewTypes:
		tt := &model.TaskType{Name: name}
		if err = m.st.CreateTaskType(ctx, tt); err == nil {
			if err = m.types.Refresh(ctx); err == nil {
				m.typeList.selectItem(findByID(m.types.TaskTypes(), tt.ID, func(x *model.TaskType) int64 { return x.ID }))
			}
		}
	}
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("created %q", name), false)
}

func findByID[T any](items []T, id int64, idOf func(T) int64) T {
	var zero T
	for _, it := range items {
		if idOf(it) == id {
			return it
		}
	}
	return zero
}

func (m *appModel) selectedName() string {
	switch m.view {
	case viewProjects:
		if p, ok := m.projList.selected(); ok {
			return fmt.Sprintf("project %q", p.Name)
		}
	case viewTasks:
		if t, ok := m.taskList.selected(); ok {
			return fmt.Sprintf("task %q", t.Title)
		}
	case viewMilestones:
		if ms, ok := m.msList.selected(); ok {
			return fmt.Sprintf("milestone %q", ms.Name)
		}
	case viewTypes:
		if tt, ok := m.typeList.selected(); ok {
			return fmt.Sprintf("task type %q", tt.Name)
		}
	}
	return ""
}

func (m *appModel) deleteSelected() {
	if m.current().busy() {
		m.setStatus("still saving the previous move", true)
		return
	}
	ctx := m.ctx
	var err error
	switch m.view {
	case viewProjects:
		if p, ok := m.projList.selected(); ok {
			if err = m.st.DeleteProject(ctx, p.ID); err == nil {
				err = m.projects.Refresh(ctx)
			}
		}
	case viewTasks:
		if t, ok := m.taskList.selected(); ok {
			if err = m.st.DeleteTask(ctx, t.ID); err == nil {
				err = m.page.Refresh(ctx)
			}
		}
	case viewMilestones:
		if ms, ok := m.msList.selected(); ok {
			if err = m.st.DeleteMilestone(ctx, ms.ID); err == nil {
				err = m.milestones.Refresh(ctx)
			}
		}
	case viewTypes:
		if tt, ok := m.typeList.selected(); ok {
			if err = m.st.DeleteTaskType(ctx, tt.ID); err == nil {
				err = m.types.Refresh(ctx)
			}
		}
	}
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus("deleted", false)
}

// toggleSelected archives projects and completes tasks (or undoes either).
func (m *appModel) toggleSelected() {
	ctx := m.ctx
	var err error
	switch m.view {
	case viewProjects:
		if p, ok := m.projList.selected(); ok {
			if err = m.st.SetProjectArchived(ctx, p.ID, !p.Archived); err == nil {
				err = m.projects.Refresh(ctx)
			}
		}
	case viewTasks:
		if t, ok := m.taskList.selected(); ok {
			next := model.StatusCompleted
			if t.Status == model.StatusCompleted {
				next = model.StatusNotStarted
			}
			if err = m.st.SetTaskStatus(ctx, t.ID, next); err == nil {
				err = m.page.Refresh(ctx)
			}
		}
	default:
		return
	}
	if err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *appModel) cycleSort() {
	switch m.view {
	case viewProjects:
		m.setStatus("sort: "+m.projects.CycleSort().String(), false)
	case viewTasks:
		m.setStatus("sort: "+m.page.CycleSort().String(), false)
	}
}

func (m *appModel) query() string {
	if m.view == viewProjects {
		return m.projects.Query()
	}
	if m.view == viewTasks {
		return m.page.Query()
	}
	return ""
}

func (m *appModel) setQuery(q string) {
	switch m.view {
	case viewProjects:
		m.projects.SetQuery(q)
	case viewTasks:
		m.page.SetQuery(q)
	}
}

func (m *appModel) detailHeight() int {
	if m.view != viewTasks && m.view != viewProjects {
		return 0
	}
	if m.height < 16 {
		return 0
	}
	return min(8, m.height/3)
}

func (m *appModel) footerHeight() int {
	n := 2 // status + help
	if m.showHelp {
		n = 1 + len(m.keys.FullHelp()[0])
	}
	return n
}

func (m *appModel) listHeight() int {
	return max(m.height-listTop-m.footerHeight()-m.detailHeight(), rowHeight)
}

func (m *appModel) layout() {
	m.current().setBounds(listTop, m.width, m.listHeight())
}

func (m *appModel) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	body := m.current().view()
	lines := strings.Split(body, "\n")
	for len(lines) < m.listHeight() {
		lines = append(lines, "")
	}
	b.WriteString(strings.Join(lines[:m.listHeight()], "\n"))

	if h := m.detailHeight(); h > 0 {
		detail := strings.Split(m.detailView(), "\n")
		for len(detail) < h {
			detail = append(detail, "")
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(detail[:h], "\n"))
	}

	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	m.help.ShowAll = m.showHelp
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *appModel) headerView() string {
	crumbs := []string{"TaskPilot"}
	switch m.view {
	case viewProjects:
		crumbs = append(crumbs, "Projects")
	case viewTypes:
		crumbs = append(crumbs, "Task types")
	case viewTasks:
		crumbs = append(crumbs, m.project.Name, "Tasks")
	case viewMilestones:
		crumbs = append(crumbs, m.project.Name, "Milestones")
	}
	left := styleTitle().Render(strings.Join(crumbs, " "+glyphArrow()+" "))

	var info []string
	switch m.view {
	case viewProjects:
		by, dir := m.projects.Sort()
		info = append(info, fmt.Sprintf("sort: %s %s", by, dir))
		if m.projects.ShowArchived() {
			info = append(info, "archived shown")
		}
	case viewTasks:
		by, dir := m.page.Sort()
		info = append(info, fmt.Sprintf("sort: %s %s", by, dir))
	}
	if q := m.query(); q != "" {
		info = append(info, fmt.Sprintf("filter: %q", q))
	}
	right := styleChrome().Render(strings.Join(info, "  "))

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m *appModel) detailView() string {
	var desc string
	switch m.view {
	case viewProjects:
		if p, ok := m.projList.selected(); ok {
			desc = p.Description
		}
	case viewTasks:
		if t, ok := m.taskList.selected(); ok {
			desc = t.Description
		}
	}
	if strings.TrimSpace(desc) == "" {
		return styleMuted().Render("  no description")
	}
	return renderMarkdown(desc, m.width-2)
}

func (m *appModel) statusView() string {
	if m.inputMode != inputNone {
		return m.input.View()
	}
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return styleError().Render(m.status)
	}
	return styleMuted().Render(m.status)
}

func projectRow(p *model.Project) (string, string) {
	title := p.Name
	if p.Archived {
		title += " " + glyphArchived()
	}
	meta := firstLine(p.Description)
	if meta == "" {
		meta = "created " + p.CreatedAt.Local().Format("2006-01-02")
	}
	return title, meta
}

func taskRow(t *model.Task) (string, string) {
	title := glyphStatus(t.Status) + " " + t.Title
	switch t.Priority {
	case model.PriorityHigh:
		title += " !"
	case model.PriorityCritical:
		title += " !!"
	}
	meta := []string{t.Status.String(), t.Priority.String()}
	if t.DueDate != nil {
		meta = append(meta, "due "+t.DueDate.Local().Format("2006-01-02"))
	}
	if len(t.SubTasks) > 0 {
		meta = append(meta, fmt.Sprintf("%d subtasks, %d%%", len(t.SubTasks), t.Progress()))
	}
	return title, strings.Join(meta, " · ")
}

func milestoneRow(ms *model.Milestone) (string, string) {
	meta := "no due date"
	if ms.DueDate != nil {
		meta = "due " + ms.DueDate.Local().Format("2006-01-02")
	}
	return ms.Name, meta
}

func typeRow(tt *model.TaskType) (string, string) {
	return strings.Repeat("  ", max(tt.Level, 0)) + tt.Name, fmt.Sprintf("level %d", tt.Level)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
