package tui

import (
	"strings"
	"sync"

	"taskpilot/internal/model"
)

// Terminal apps can't change the user's font. Instead we choose between Unicode and ASCII
// glyph sets for affordances (drag handles, status marks) on terminals that render some
// glyphs badly.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

// applyGlyphPreference takes the tui.glyphs config value. Unknown values are ignored.
func applyGlyphPreference(v string) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

// glyphHandle marks the drag handle column.
func glyphHandle() string {
	if glyphs() == glyphSetASCII {
		return "="
	}
	return "⠿"
}

func glyphArrow() string {
	if glyphs() == glyphSetASCII {
		return ">"
	}
	return "›"
}

func glyphArchived() string {
	if glyphs() == glyphSetASCII {
		return "[a]"
	}
	return "⌂"
}

func glyphStatus(s model.TaskStatus) string {
	ascii := glyphs() == glyphSetASCII
	switch s {
	case model.StatusInProgress:
		if ascii {
			return "[~]"
		}
		return "◐"
	case model.StatusCompleted:
		if ascii {
			return "[x]"
		}
		return "●"
	case model.StatusCancelled:
		if ascii {
			return "[-]"
		}
		return "⊘"
	default:
		if ascii {
			return "[ ]"
		}
		return "○"
	}
}
