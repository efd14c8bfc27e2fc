package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner with the version string.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Indigo to rose gradient, one color per line.
	lines := []struct {
		text  string
		color string
	}{
		{`                     _            `, "#818cf8"},
		{`  _ __   __ _ _ __ | | ___ _   _ `, "#a78bfa"},
		{` | '_ \ / _` + "`" + ` | '__|| |/ _ \ | | |`, "#c084fc"},
		{` | |_) | (_| | |   | |  __/ |_| |`, "#e879f9"},
		{` | .__/ \__,_|_|   |_|\___|\__, |`, "#f472b6"},
		{` |_|                       |___/ `, "#fb7185"},
	}

	fmt.Println()
	for _, line := range lines {
		fmt.Println(termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Printf("  v%s\n\n", strings.TrimSpace(version))
}
