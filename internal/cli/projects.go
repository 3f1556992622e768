package cli

import (
	"errors"
	"strings"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/viewmodel"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsUpdateCmd(app))
	cmd.AddCommand(newProjectsArchiveCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	cmd.AddCommand(newProjectsMoveCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var (
		archived bool
		sortBy   string
		desc     bool
		query    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects (stored order by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			by, err := viewmodel.ParseProjectSortBy(sortBy)
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			b := viewmodel.NewProjectsBrowser(st, app.logger)
			if err := b.Refresh(ctxOf(cmd)); err != nil {
				return writeErr(cmd, err)
			}
			dir := viewmodel.Ascending
			if desc {
				dir = viewmodel.Descending
			}
			b.SetSort(by, dir)
			b.SetShowArchived(archived)
			b.SetQuery(query)

			projects := b.Projects()
			if projects == nil {
				projects = []*model.Project{}
			}
			return writeOut(cmd, app, map[string]any{
				"data": projects,
				"meta": map[string]any{"sort": by.String(), "direction": dir.String(), "canReorder": b.CanReorder()},
			})
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived projects")
	cmd.Flags().StringVar(&sortBy, "sort", "order", "Sort by order|name|created")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().StringVar(&query, "query", "", "Only projects whose name/description contain every word")
	return cmd
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var name, description, color string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project (appended to the end of the list)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			p := &model.Project{
				Name:        strings.TrimSpace(name),
				Description: description,
				Color:       strings.TrimSpace(color),
			}
			if err := st.CreateProject(ctxOf(cmd), p); err != nil {
				return writeErr(cmd, err)
			}
			app.logger.Info("project created", "id", p.ID, "name", p.Name)
			return writeOut(cmd, app, map[string]any{"data": p})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringVar(&description, "description", "", "Project description (markdown)")
	cmd.Flags().StringVar(&color, "color", "", "Project color (#rrggbb)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectsUpdateCmd(app *App) *cobra.Command {
	var name, description, color string

	cmd := &cobra.Command{
		Use:   "update <project-id>",
		Short: "Update a project's name, description or color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			ctx := ctxOf(cmd)
			p, err := st.GetProject(ctx, id)
			if err != nil {
				return writeErr(cmd, notFoundAs(err, "project", id))
			}
			changed := false
			if cmd.Flags().Changed("name") {
				p.Name, changed = name, true
			}
			if cmd.Flags().Changed("description") {
				p.Description, changed = description, true
			}
			if cmd.Flags().Changed("color") {
				p.Color, changed = strings.TrimSpace(color), true
			}
			if !changed {
				return writeErr(cmd, errors.New("nothing to update (use --name, --description or --color)"))
			}
			if err := st.UpdateProject(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": p})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description (markdown)")
	cmd.Flags().StringVar(&color, "color", "", "New color (#rrggbb)")
	return cmd
}

func newProjectsArchiveCmd(app *App) *cobra.Command {
	var unarchive bool

	cmd := &cobra.Command{
		Use:   "archive <project-id>",
		Short: "Archive (or with --undo, unarchive) a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.SetProjectArchived(ctxOf(cmd), id, !unarchive); err != nil {
				return writeErr(cmd, notFoundAs(err, "project", id))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "archived": !unarchive}})
		},
	}
	cmd.Flags().BoolVar(&unarchive, "undo", false, "Unarchive instead")
	return cmd
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project with its tasks and milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.DeleteProject(ctxOf(cmd), id); err != nil {
				return writeErr(cmd, notFoundAs(err, "project", id))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
	return cmd
}

func newProjectsMoveCmd(app *App) *cobra.Command {
	var (
		to       int
		archived bool
	)
	cmd := &cobra.Command{
		Use:   "move <project-id> --to <index>",
		Short: "Move a project to a position in the list (0 = top)",
		Long: strings.TrimSpace(`
Moves a project the way a drag in the TUI does. The index counts visible projects:
archived projects only count when --archived is set.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			b := viewmodel.NewProjectsBrowser(st, app.logger)
			b.SetShowArchived(archived)
			reg := reorder.NewRegistry()
			reorder.Register[*model.Project](reg, "projects", b)

			res, err := runMove(ctxOf(cmd), reg, "projects", app.logger, app.cfg.PersistTimeout(),
				func(p *model.Project) bool { return p.ID == id },
				func(p *model.Project) int64 { return p.ID },
				to)
			if errors.Is(err, reorder.ErrItemNotFound) {
				err = errNotFound("project", id)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().IntVar(&to, "to", 0, "Target index (0-based)")
	cmd.Flags().BoolVar(&archived, "archived", false, "Count archived projects too")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
