package cli

import (
	"errors"
	"fmt"
	"strings"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/viewmodel"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Task commands",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksStatusCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksMoveCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var (
		projectID int64
		status    string
		sortBy    string
		desc      bool
		query     string
	)
	cmd := &cobra.Command{
		Use:   "list --project <project-id>",
		Short: "List a project's top-level tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			by, err := viewmodel.ParseTaskSortBy(sortBy)
			if err != nil {
				return writeErr(cmd, err)
			}
			var filter *model.TaskStatus
			if strings.TrimSpace(status) != "" {
				s, err := model.ParseTaskStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				filter = &s
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			ctx := ctxOf(cmd)
			if _, err := st.GetProject(ctx, projectID); err != nil {
				return writeErr(cmd, notFoundAs(err, "project", projectID))
			}
			page := viewmodel.NewProjectPage(st, projectID, app.logger)
			if err := page.Refresh(ctx); err != nil {
				return writeErr(cmd, err)
			}
			dir := viewmodel.Ascending
			if desc {
				dir = viewmodel.Descending
			}
			page.SetSort(by, dir)
			page.SetStatusFilter(filter)
			page.SetQuery(query)

			tasks := page.Tasks()
			if tasks == nil {
				tasks = []*model.Task{}
			}
			return writeOut(cmd, app, map[string]any{
				"data": tasks,
				"meta": map[string]any{"projectId": projectID, "sort": by.String(), "direction": dir.String(), "canReorder": page.CanReorder()},
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "Project id")
	cmd.Flags().StringVar(&status, "status", "", "Only tasks with this status")
	cmd.Flags().StringVar(&sortBy, "sort", "order", "Sort by order|title|priority|due|created")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().StringVar(&query, "query", "", "Only tasks whose title/description contain every word")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var (
		projectID   int64
		parentID    int64
		milestoneID int64
		typeID      int64
		title       string
		description string
		priority    string
		status      string
		due         string
		start       string
	)
	cmd := &cobra.Command{
		Use:   "create --title <title> (--project <id> | --parent <task-id>)",
		Short: "Create a task (appended to the end of its list)",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := &model.Task{
				Title:       strings.TrimSpace(title),
				Description: description,
				Priority:    model.PriorityNormal,
			}
			if projectID == 0 && parentID == 0 {
				return writeErr(cmd, errors.New("either --project or --parent is required"))
			}
			if projectID != 0 {
				t.ProjectID = &projectID
			}
			if parentID != 0 {
				t.ParentTaskID = &parentID
			}
			if milestoneID != 0 {
				t.MilestoneID = &milestoneID
			}
			if typeID != 0 {
				t.TaskTypeID = &typeID
			}
			var err error
			if priority != "" {
				if t.Priority, err = model.ParseTaskPriority(priority); err != nil {
					return writeErr(cmd, err)
				}
			}
			if status != "" {
				if t.Status, err = model.ParseTaskStatus(status); err != nil {
					return writeErr(cmd, err)
				}
			}
			if t.DueDate, err = parseDate(due); err != nil {
				return writeErr(cmd, err)
			}
			if t.StartDate, err = parseDate(start); err != nil {
				return writeErr(cmd, err)
			}

			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.CreateTask(ctxOf(cmd), t); err != nil {
				if parentID != 0 {
					err = notFoundAs(err, "parent task", parentID)
				}
				return writeErr(cmd, err)
			}
			app.logger.Info("task created", "id", t.ID, "title", t.Title)
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "Project id")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "Parent task id (creates a subtask)")
	cmd.Flags().Int64Var(&milestoneID, "milestone", 0, "Milestone id")
	cmd.Flags().Int64Var(&typeID, "type", 0, "Task type id")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "description", "", "Task description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", "", "low|normal|high|critical (default normal)")
	cmd.Flags().StringVar(&status, "status", "", "not-started|in-progress|completed|cancelled")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD, YYYY-MM-DD HH:MM, or RFC3339)")
	cmd.Flags().StringVar(&start, "start", "", "Start date (same formats as --due)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			ctx := ctxOf(cmd)
			t, err := st.GetTask(ctx, id)
			if err != nil {
				return writeErr(cmd, notFoundAs(err, "task", id))
			}
			if t.SubTasks, err = st.ListSubTasks(ctx, id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": t,
				"meta": map[string]any{"progress": t.Progress()},
			})
		},
	}
	return cmd
}

func newTasksStatusCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Set a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			status, err := model.ParseTaskStatus(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.SetTaskStatus(ctxOf(cmd), id, status); err != nil {
				return writeErr(cmd, notFoundAs(err, "task", id))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "status": status}})
		},
	}
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.DeleteTask(ctxOf(cmd), id); err != nil {
				return writeErr(cmd, notFoundAs(err, "task", id))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
	return cmd
}

func newTasksMoveCmd(app *App) *cobra.Command {
	var to int
	cmd := &cobra.Command{
		Use:   "move <task-id> --to <index>",
		Short: "Move a top-level task within its project (0 = top)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			ctx := ctxOf(cmd)
			t, err := st.GetTask(ctx, id)
			if err != nil {
				return writeErr(cmd, notFoundAs(err, "task", id))
			}
			if t.ProjectID == nil || t.ParentTaskID != nil {
				return writeErr(cmd, fmt.Errorf("task %d is not a top-level project task; only those can be moved", id))
			}

			page := viewmodel.NewProjectPage(st, *t.ProjectID, app.logger)
			reg := reorder.NewRegistry()
			reorder.Register[*model.Task](reg, "tasks", page)

			res, err := runMove(ctx, reg, "tasks", app.logger, app.cfg.PersistTimeout(),
				func(x *model.Task) bool { return x.ID == id },
				func(x *model.Task) int64 { return x.ID },
				to)
			if errors.Is(err, reorder.ErrItemNotFound) {
				err = errNotFound("task", id)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().IntVar(&to, "to", 0, "Target index (0-based)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
