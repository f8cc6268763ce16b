// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output.
const (
	// ColorPrimary is used for titles and bun names.
	ColorPrimary = lipgloss.Color("#D97706")

	// ColorMuted is used for subtitles and de-emphasized content.
	ColorMuted = lipgloss.Color("#6B7280")

	// ColorSuccess is used for success states.
	ColorSuccess = lipgloss.Color("#10B981")

	// ColorError is used for errors and rejected inputs.
	ColorError = lipgloss.Color("#EF4444")

	// ColorWarning is used for warnings and skipped entries.
	ColorWarning = lipgloss.Color("#F59E0B")

	// ColorHighlight is used for commands, paths and versions.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// CmdStyle is for command names, paths and versions.
	CmdStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)

	// nameColumnStyle pads bun names in listings.
	nameColumnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Width(24)

	// versionColumnStyle pads versions in listings.
	versionColumnStyle = lipgloss.NewStyle().
				Foreground(ColorHighlight).
				Width(14)
)
