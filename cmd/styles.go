// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// https://github.com/charmbracelet/vhs/blob/main/themes.json
var (
	blue    = lipgloss.AdaptiveColor{Light: "#2e7de9", Dark: "#7aa2f7"}
	cyan    = lipgloss.AdaptiveColor{Light: "#007197", Dark: "#7dcfff"}
	amber   = lipgloss.AdaptiveColor{Light: "#8c6c3e", Dark: "#e0af68"}
	red     = lipgloss.AdaptiveColor{Light: "#f52a65", Dark: "#f7768e"}
	magenta = lipgloss.AdaptiveColor{Light: "#9854f1", Dark: "#bb9af7"}
	green   = lipgloss.AdaptiveColor{Light: "#587539", Dark: "#9ece6a"}
)

// DefaultStyles returns the default styles.
//
// Levels follow tokyonight, the rewritten directory is highlighted in green.
func DefaultStyles() *log.Styles {
	styles := log.DefaultStyles()

	styles.Levels[log.DebugLevel] = styles.Levels[log.DebugLevel].Foreground(blue)
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].Foreground(cyan)
	styles.Levels[log.WarnLevel] = styles.Levels[log.WarnLevel].Foreground(amber)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].Foreground(red)
	styles.Levels[log.FatalLevel] = styles.Levels[log.FatalLevel].Foreground(magenta)

	styles.Values["dir"] = lipgloss.NewStyle().Foreground(green)
	styles.Values["path"] = lipgloss.NewStyle().Faint(true)

	return styles
}
