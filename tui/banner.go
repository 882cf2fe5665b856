package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var logo = []string{
	" _____ ___ ___ __  __ __   __ ___ ___ ",
	"|_   _| __| _ \\  \\/  |\\ \\ / /|_ _|   \\",
	"  | | | _||   / |\\/| | \\ V /  | || |) |",
	"  |_| |___|_|_\\_|  |_|  \\_/  |___|___/",
}

var keyHelp = [][2]string{
	{"Space", "pause/play"},
	{"Q", "quit"},
	{"A/D", "seek 5s"},
	{"←/→", "seek 1s"},
	{"M", "mute"},
	{"+/-", "volume"},
}

// Banner is the start screen: logo, tagline and key help in a box
func Banner() string {
	var b strings.Builder
	for _, line := range logo {
		b.WriteString(titleStyle.Render(line))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(captionStyle.Render("Plays videos as colored terminal art, with sound."))
	b.WriteString("\n\n")

	rows := make([]string, 0, (len(keyHelp)+1)/2)
	for i := 0; i < len(keyHelp); i += 2 {
		row := helpEntry(keyHelp[i])
		if i+1 < len(keyHelp) {
			row = lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(24).Render(row), helpEntry(keyHelp[i+1]))
		}
		rows = append(rows, row)
	}
	b.WriteString(strings.Join(rows, "\n"))

	return "\n" + boxStyle.Render(b.String()) + "\n"
}

func helpEntry(e [2]string) string {
	return keyStyle.Render(e[0]) + navStyle.Render(" = "+e[1])
}

// Opening announces a video given on the command line
func Opening(name string) string {
	return promptStyle.Render("Opening: ") + name
}

// Notice formats a progress line
func Notice(msg string) string {
	return noticeStyle.Render(msg)
}

// Error formats err for the terminal
func Error(err error) string {
	return errorStyle.Render(fmt.Sprintf("Error: %v", err))
}
