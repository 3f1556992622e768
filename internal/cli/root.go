package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"taskpilot/internal/config"
	"taskpilot/internal/format"
	"taskpilot/internal/logging"
	"taskpilot/internal/store"
	"taskpilot/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	DBPath     string
	ConfigPath string
	PrettyJSON bool
	Format     string
	LogLevel   string

	cfg    *config.Config
	format format.Format
	level  slog.Level
	logger *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskpilot",
		Short:        "TaskPilot: projects, tasks and milestones you can reorder from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskpilot

  # Scriptable commands
  taskpilot projects list
  taskpilot tasks create --project 1 --title "Write release notes"

  # Move a project to the top of the list
  taskpilot projects move 3 --to 0
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd.ErrOrStderr())
	}

	cmd.PersistentFlags().StringVar(&app.DBPath, "db", "", "Path to the SQLite database (default: database from config, else <config dir>/taskpilot.db)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config.yaml (default: $TASKPILOT_CONFIG_DIR/config.yaml or ~/.taskpilot/config.yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|edn; default from config, else json)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error; default from config, else warn)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newMilestonesCmd(app))
	cmd.AddCommand(newTypesCmd(app))
	cmd.AddCommand(newDBCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// setup resolves flags against the config file (which already carries env overrides).
func (app *App) setup(logOut io.Writer) error {
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return err
	}
	app.cfg = cfg

	f := app.Format
	if f == "" {
		f = cfg.Format
	}
	if app.format, err = format.Parse(f); err != nil {
		return err
	}

	lvl := app.LogLevel
	if lvl == "" {
		lvl = cfg.LogLevel
	}
	if lvl == "" {
		// Keep scripted output quiet unless asked.
		lvl = "warn"
	}
	if app.level, err = logging.ParseLevel(lvl); err != nil {
		return err
	}
	app.logger = logging.New(app.level, logOut)
	return nil
}

func (app *App) dbPath() string {
	if p := strings.TrimSpace(app.DBPath); p != "" {
		return p
	}
	return app.cfg.DatabasePath()
}

func openStore(cmd *cobra.Command, app *App) (*store.Store, error) {
	return store.Open(ctxOf(cmd), app.dbPath())
}

func runTUI(cmd *cobra.Command, app *App) error {
	st, err := openStore(cmd, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer st.Close()

	// The TUI owns the terminal; logs go to a file.
	f, err := logging.OpenFile(app.cfg.LogFilePath())
	if err != nil {
		return writeErr(cmd, err)
	}
	defer f.Close()

	return tui.Run(ctxOf(cmd), st, tui.Options{
		Logger:         logging.New(app.level, f),
		Glyphs:         app.cfg.TUI.Glyphs,
		PersistTimeout: app.cfg.PersistTimeout(),
	})
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
