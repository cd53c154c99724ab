// Package ui provides terminal styling for backport-tags output.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconWarn = "⚠"
	IconFail = "✗"
	Bullet   = "-"
)

// ColorDisabled reports whether NO_COLOR is set, to any value.
func ColorDisabled() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DisableColor makes every style render plain text.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func RenderWarn(s string) string { return WarnStyle.Render(s) }

func RenderFail(s string) string { return FailStyle.Render(s) }

func RenderMuted(s string) string { return MutedStyle.Render(s) }

func RenderHeader(s string) string { return HeaderStyle.Render(s) }
