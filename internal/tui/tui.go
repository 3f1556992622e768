package tui

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"taskpilot/internal/reorder"
	"taskpilot/internal/store"
)

type Options struct {
	Logger *slog.Logger
	// Glyphs is "unicode" (default) or "ascii".
	Glyphs string
	// PersistTimeout bounds each reorder write; zero uses the reorder default.
	PersistTimeout time.Duration
}

// Run starts the interactive UI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, st *store.Store, opts Options) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference(opts.Glyphs)

	m, err := newAppModel(ctx, st, opts)
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	).Run()

	// A move released just before quitting is still written.
	m.closeAll()
	timeout := opts.PersistTimeout
	if timeout <= 0 {
		timeout = reorder.DefaultPersistTimeout
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()
	m.waitSaves(waitCtx)
	return err
}
