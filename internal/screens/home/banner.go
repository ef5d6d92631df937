package home

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/brigade/internal/ui/theme"
)

const bannerFull = `█▀▄ █▀█ █ █▀▀ ▄▀█ █▀▄ █▀▀
█▄█ █▀▄ █ █▄█ █▀█ █▄▀ ██▄`

const bannerCompact = "B · R · I · G · A · D · E"

// renderBanner returns the title block, or a one-line fallback.
func renderBanner(width int, compact bool) string {
	art := bannerFull
	if compact {
		art = bannerCompact
	}
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Bold(true).
		Render(art)
}
