package main

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/charmbracelet/lipgloss"
)

var signOffs = [...]string{
	"See you at the next meet.",
	"Keep the revs up.",
	"The garage door is always open.",
	"Your cart stays on this device.",
	"Drive safe. Check your lug nuts.",
	"Come back when the new parts drop.",
	"Good luck at the track day.",
	"Check the forum for the next night run.",
}

func signOff() string {
	return signOffs[rand.Intn(len(signOffs))]
}

func printHelp(w io.Writer) {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fbbf24")).
		Bold(true).
		Render("T U N I N G   S T U D I O")

	tagline := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render("Parts, meets and builds from your terminal.")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"tuning", "Open the studio (interactive TUI)"},
		{"tuning login <user>", "Sign in, password read from stdin"},
		{"tuning logout", "Sign out and forget the saved session"},
		{"tuning cart", "Print the cart"},
		{"tuning version", "Show version"},
		{"tuning help", "You are here"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n", title, tagline)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}
	cfg := descStyle.Render("config: config.yaml in . ./etc ~/.tuning, .env, TUNING_* variables")
	fmt.Fprintf(w, "\n  %s\n\n", cfg)
}
