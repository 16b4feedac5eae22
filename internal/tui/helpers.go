package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/tuningstudio/tuning/pkg/domain"
)

// formatTime renders a relative timestamp for topic and post listings.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatDate renders an event date as "02 Jan 2006 15:04".
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "date tbd"
	}
	return t.Local().Format("02 Jan 2006 15:04")
}

// formatPrice renders an amount in the shop currency.
func formatPrice(m domain.Money) string {
	return m.String() + " ₽"
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// cleanTitle strips markdown headers and collapses whitespace so list rows
// show the content instead of "# Header".
func cleanTitle(raw string) string {
	s := strings.ReplaceAll(raw, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")

	for strings.HasPrefix(s, "#") {
		s = strings.TrimLeft(s, "#")
		s = strings.TrimLeft(s, " ")
	}

	return strings.Join(strings.Fields(s), " ")
}

// wrapText hard-wraps body text to width, keeping paragraph breaks.
func wrapText(s string, width int) []string {
	if width < 10 {
		width = 10
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			switch {
			case line == "":
				line = w
			case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width:
				out = append(out, line)
				line = w
			default:
				line += " " + w
			}
		}
		out = append(out, line)
	}
	return out
}

// clampCursor keeps a list cursor within [0, n).
func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

// listWindow returns the [start, end) slice of n rows to show so the cursor
// stays visible in a window of visible rows.
func listWindow(cursor, n, visible int) (int, int) {
	if visible < 1 {
		visible = 1
	}
	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := min(start+visible, n)
	return start, end
}

// renderRow prefixes a list line with the cursor marker and highlights the
// selected row across the full width.
func renderRow(line string, selected bool, width int) string {
	if !selected {
		return "  " + line + "\n"
	}
	row := accentStyle.Render("▸") + " " + line
	padded := row + strings.Repeat(" ", max(width-lipgloss.Width(row), 0))
	return selectedRowBg.Render(padded) + "\n"
}

// separator draws a full-width rule.
func separator(width int) string {
	return " " + metaStyle.Render(strings.Repeat("─", max(width-2, 4))) + "\n"
}
