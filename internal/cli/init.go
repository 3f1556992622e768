package cli

import (
	"errors"
	"os"
	"strings"

	"taskpilot/internal/config"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database (and optionally a config file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer st.Close()

			version, err := st.SchemaVersion(ctxOf(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}

			cfgPath := strings.TrimSpace(app.ConfigPath)
			if cfgPath == "" {
				if cfgPath, err = config.DefaultPath(); err != nil {
					return writeErr(cmd, err)
				}
			}
			configWritten := false
			if writeConfig {
				// Never clobber an existing config.
				if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
					if err := config.Save(cfgPath, &config.Config{Database: st.Path()}); err != nil {
						return writeErr(cmd, err)
					}
					configWritten = true
				}
			}

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"database":      st.Path(),
					"schemaVersion": version,
					"config":        cfgPath,
					"configWritten": configWritten,
				},
			})
		},
	}
	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "Write a config.yaml pointing at this database if none exists")
	return cmd
}
