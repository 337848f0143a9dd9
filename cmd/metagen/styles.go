// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Terminal palette. Diagnostics reuse the status colors so a warning line and
// its code read as one unit.
var (
	purple = lipgloss.Color("#7C3AED")
	gray   = lipgloss.Color("#6B7280")
	silver = lipgloss.Color("#9CA3AF")
	green  = lipgloss.Color("#10B981")
	red    = lipgloss.Color("#EF4444")
	amber  = lipgloss.Color("#F59E0B")
	blue   = lipgloss.Color("#3B82F6")
)

var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(purple)
	SubtitleStyle = lipgloss.NewStyle().Foreground(gray)
	VerboseStyle  = lipgloss.NewStyle().Foreground(silver)
	SuccessStyle  = lipgloss.NewStyle().Foreground(green)
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(red)
	WarningStyle  = lipgloss.NewStyle().Foreground(amber)
	// CmdStyle marks identifiers, file names and commands.
	CmdStyle = lipgloss.NewStyle().Foreground(blue)

	codeStyle = WarningStyle.Bold(true)
)
