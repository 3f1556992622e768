package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func newDBCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(newDBBackupCmd(app))
	cmd.AddCommand(newDBVacuumCmd(app))
	return cmd
}

func newDBBackupCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup [dest]",
		Short: "Write a consistent copy of the database (default: next to it, timestamped)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			var dest string
			if len(args) == 1 {
				dest = args[0]
			} else {
				dest = filepath.Join(filepath.Dir(st.Path()), "backups",
					fmt.Sprintf("taskpilot-%s.db", time.Now().UTC().Format("20060102T150405Z")))
			}
			if err := st.Backup(ctxOf(cmd), dest); err != nil {
				return writeErr(cmd, err)
			}
			app.logger.Info("database backed up", "dest", dest)
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"backup": filepath.Clean(dest)}})
		},
	}
	return cmd
}

func newDBVacuumCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the database file",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			if err := st.Vacuum(ctxOf(cmd)); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"vacuumed": st.Path()}})
		},
	}
	return cmd
}
