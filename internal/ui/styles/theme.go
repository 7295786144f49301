// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile
	renderer     *lipgloss.Renderer

	// Header
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderModel lipgloss.Style

	// Message bubbles
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	Timestamp       lipgloss.Style
	Loading         lipgloss.Style

	// Input area
	Input       lipgloss.Style
	InputPrompt lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	VoiceOn      lipgloss.Style
	VoiceOff     lipgloss.Style
	Recording    lipgloss.Style

	// History pane
	ListTitle    lipgloss.Style
	ListItem     lipgloss.Style
	ListSelected lipgloss.Style
	Muted        lipgloss.Style

	// Notices
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	return NewThemeFor(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeFor creates a theme for an explicit profile and background.
func NewThemeFor(profile termenv.Profile, isDark bool) *Theme {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile, renderer: r}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = t.renderer.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = t.renderer.NewStyle().
		Bold(true).
		Foreground(Teal)
	t.HeaderModel = t.renderer.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.UserBubble = t.renderer.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)
	t.AssistantBubble = t.renderer.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)
	t.Timestamp = t.renderer.NewStyle().
		Foreground(TextMuted)
	t.Loading = t.renderer.NewStyle().
		Foreground(Lavender)

	t.Input = t.renderer.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = t.renderer.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.StatusBar = t.renderer.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ShortcutKey = t.renderer.NewStyle().
		Bold(true).
		Foreground(Teal).
		Background(SurfaceDim)
	t.ShortcutDesc = t.renderer.NewStyle().
		Foreground(TextMuted).
		Background(SurfaceDim)
	t.VoiceOn = t.renderer.NewStyle().
		Foreground(Emerald).
		Background(SurfaceDim)
	t.VoiceOff = t.renderer.NewStyle().
		Foreground(TextMuted).
		Background(SurfaceDim)
	t.Recording = t.renderer.NewStyle().
		Bold(true).
		Foreground(Rose)

	t.ListTitle = t.renderer.NewStyle().
		Bold(true).
		Foreground(Teal).
		MarginBottom(1)
	t.ListItem = t.renderer.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)
	t.ListSelected = t.renderer.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(Teal)
	t.Muted = t.renderer.NewStyle().
		Foreground(TextMuted)

	t.Warning = t.renderer.NewStyle().
		Foreground(Amber)
	t.Error = t.renderer.NewStyle().
		Foreground(Rose).
		Bold(true)
}

// BubbleWidth returns the maximum message bubble width for a terminal width.
func BubbleWidth(termWidth int) int {
	w := termWidth * 3 / 4
	if w < 20 {
		w = termWidth - 2
	}
	if w < 1 {
		w = 1
	}
	return w
}
