package cli

import (
	"errors"
	"strings"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/viewmodel"

	"github.com/spf13/cobra"
)

func newMilestonesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "milestones",
		Aliases: []string{"milestone"},
		Short:   "Milestone commands",
	}
	cmd.AddCommand(newMilestonesListCmd(app))
	cmd.AddCommand(newMilestonesCreateCmd(app))
	cmd.AddCommand(newMilestonesDeleteCmd(app))
	cmd.AddCommand(newMilestonesMoveCmd(app))
	return cmd
}

func newMilestonesListCmd(app *App) *cobra.Command {
	var projectID int64
	cmd := &cobra.Command{
		Use:   "list --project <project-id>",
		Short: "List a project's milestones in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			ctx := ctxOf(cmd)
			if _, err := st.GetProject(ctx, projectID); err != nil {
				return writeErr(cmd, notFoundAs(err, "project", projectID))
			}
			ms := viewmodel.NewMilestones(st, projectID, app.logger)
			if err := ms.Refresh(ctx); err != nil {
				return writeErr(cmd, err)
			}
			out := ms.Milestones()
			if out == nil {
				out = []*model.Milestone{}
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "Project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newMilestonesCreateCmd(app *App) *cobra.Command {
	var (
		projectID   int64
		name        string
		description string
		due         string
		color       string
	)
	cmd := &cobra.Command{
		Use:   "create --project <project-id> --name <name>",
		Short: "Create a milestone (appended to the project's milestones)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dueAt, err := parseDate(due)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			m := &model.Milestone{
				ProjectID:   projectID,
				Name:        strings.TrimSpace(name),
				Description: description,
				DueDate:     dueAt,
				Color:       strings.TrimSpace(color),
			}
			if err := st.CreateMilestone(ctxOf(cmd), m); err != nil {
				return writeErr(cmd, notFoundAs(err, "project", projectID))
			}
			return writeOut(cmd, app, map[string]any{"data": m})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "Project id")
	cmd.Flags().StringVar(&name, "name", "", "Milestone name (unique per project)")
	cmd.Flags().StringVar(&description, "description", "", "Milestone description")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD, YYYY-MM-DD HH:MM, or RFC3339)")
	cmd.Flags().StringVar(&color, "color", "", "Milestone color (#rrggbb)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newMilestonesDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <milestone-id>",
		Short: "Delete a milestone (its tasks stay, unassigned)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("milestone", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.DeleteMilestone(ctxOf(cmd), id); err != nil {
				return writeErr(cmd, notFoundAs(err, "milestone", id))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
	return cmd
}

func newMilestonesMoveCmd(app *App) *cobra.Command {
	var to int
	cmd := &cobra.Command{
		Use:   "move <milestone-id> --to <index>",
		Short: "Move a milestone within its project (0 = first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("milestone", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			ctx := ctxOf(cmd)
			m, err := st.GetMilestone(ctx, id)
			if err != nil {
				return writeErr(cmd, notFoundAs(err, "milestone", id))
			}
			reg := reorder.NewRegistry()
			reorder.Register[*model.Milestone](reg, "milestones", viewmodel.NewMilestones(st, m.ProjectID, app.logger))

			res, err := runMove(ctx, reg, "milestones", app.logger, app.cfg.PersistTimeout(),
				func(x *model.Milestone) bool { return x.ID == id },
				func(x *model.Milestone) int64 { return x.ID },
				to)
			if errors.Is(err, reorder.ErrItemNotFound) {
				err = errNotFound("milestone", id)
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
