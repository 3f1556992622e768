package cli

import (
	"errors"
	"strings"

	"taskpilot/internal/model"
	"taskpilot/internal/reorder"
	"taskpilot/internal/viewmodel"

	"github.com/spf13/cobra"
)

func newTypesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "types",
		Aliases: []string{"type", "task-types"},
		Short:   "Task type commands",
	}
	cmd.AddCommand(newTypesListCmd(app))
	cmd.AddCommand(newTypesCreateCmd(app))
	cmd.AddCommand(newTypesDeleteCmd(app))
	cmd.AddCommand(newTypesMoveCmd(app))
	return cmd
}

func newTypesListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task types in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			v := viewmodel.NewTaskTypes(st, app.logger)
			if err := v.Refresh(ctxOf(cmd)); err != nil {
				return writeErr(cmd, err)
			}
			out := v.TaskTypes()
			if out == nil {
				out = []*model.TaskType{}
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
	return cmd
}

func newTypesCreateCmd(app *App) *cobra.Command {
	var (
		name     string
		parentID int64
		color    string
	)
	cmd := &cobra.Command{
		Use:   "create --name <name>",
		Short: "Create a task type",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			t := &model.TaskType{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)}
			if parentID != 0 {
				t.ParentTypeID = &parentID
			}
			if err := st.CreateTaskType(ctxOf(cmd), t); err != nil {
				return writeErr(cmd, notFoundAs(err, "task type", parentID))
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Type name (unique)")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "Parent type id")
	cmd.Flags().StringVar(&color, "color", "", "Type color (#rrggbb)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newTypesDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <type-id>",
		Short: "Delete a task type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task type", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.DeleteTaskType(ctxOf(cmd), id); err != nil {
				return writeErr(cmd, notFoundAs(err, "task type", id))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
	return cmd
}

func newTypesMoveCmd(app *App) *cobra.Command {
	var to int
	cmd := &cobra.Command{
		Use:   "move <type-id> --to <index>",
		Short: "Move a task type (0 = first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task type", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			reg := reorder.NewRegistry()
			reorder.Register[*model.TaskType](reg, "types", viewmodel.NewTaskTypes(st, app.logger))

			res, err := runMove(ctxOf(cmd), reg, "types", app.logger, app.cfg.PersistTimeout(),
				func(x *model.TaskType) bool { return x.ID == id },
				func(x *model.TaskType) int64 { return x.ID },
				to)
			if errors.Is(err, reorder.ErrItemNotFound) {
				err = errNotFound("task type", id)
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
