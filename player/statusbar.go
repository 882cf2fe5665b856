package player

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const volumeBarWidth = 10

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	volumeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// StatusInfo is everything the status bar shows
type StatusInfo struct {
	Width       int // columns available to the bar
	Paused      bool
	Index       int
	TotalFrames int
	FPS         float64
	Duration    float64 // seconds
	Volume      float64
	Muted       bool
}

// StatusBar renders the one-line transport bar:
//
//	⏸ [██████------] 00:00:12 / 00:03:39 🔊[██████----]
func StatusBar(s StatusInfo) string {
	glyph := "⏸ "
	if s.Paused {
		glyph = "▶ "
	}

	elapsed := 0.0
	if s.FPS > 0 {
		elapsed = float64(s.Index) / s.FPS
	}
	timeStr := FormatTimestamp(elapsed) + " / " + FormatTimestamp(s.Duration)

	volIcon := "🔊"
	if s.Muted || s.Volume == 0 {
		volIcon = "🔇"
	}
	var volBar string
	if s.Muted {
		volBar = strings.Repeat("-", volumeBarWidth)
	} else {
		level := int(math.Round(s.Volume * volumeBarWidth))
		level = max(0, min(volumeBarWidth, level))
		volBar = strings.Repeat("█", level) + strings.Repeat("-", volumeBarWidth-level)
	}
	volStr := " " + volIcon + "[" + volBar + "]"

	// glyph, brackets and separating spaces
	fixed := 2 + 4 + lipgloss.Width(timeStr) + lipgloss.Width(volStr)
	barWidth := max(1, s.Width-fixed)

	pos := 0
	if s.TotalFrames > 1 {
		pos = int(float64(s.Index) / float64(s.TotalFrames-1) * float64(barWidth))
	}
	pos = max(0, min(barWidth, pos))
	bar := strings.Repeat("█", pos) + strings.Repeat("-", barWidth-pos)

	return fmt.Sprintf("%s[%s] %s%s", glyph, progressStyle.Render(bar), timeStr, volumeStyle.Render(volStr))
}

// FormatTimestamp formats seconds as HH:MM:SS, truncating fractions
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	t := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", t/3600, (t%3600)/60, t%60)
}
