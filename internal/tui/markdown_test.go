package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	t.Setenv(envTheme, "dark")

	assert.Empty(t, renderMarkdown("  \n ", 40))

	out := renderMarkdown("# Release\n\nShip **v2** today.", 40)
	assert.Contains(t, out, "Release")
	assert.Contains(t, out, "Ship")
	assert.False(t, strings.HasSuffix(out, "\n"))

	mdRendererMu.Lock()
	_, cached := mdRenderers["dark:40"]
	mdRendererMu.Unlock()
	assert.True(t, cached)
}

func TestThemePreference(t *testing.T) {
	t.Setenv(envTheme, "")
	t.Setenv(envDarkBG, "")
	t.Setenv("COLORFGBG", "0;15")
	assert.Equal(t, "light", themePreference())

	t.Setenv(envDarkBG, "true")
	assert.Equal(t, "dark", themePreference())

	t.Setenv(envTheme, "light")
	assert.Equal(t, "light", themePreference())

	t.Setenv(envTheme, "")
	t.Setenv(envDarkBG, "")
	t.Setenv("COLORFGBG", "")
	assert.Equal(t, "", themePreference())
}
