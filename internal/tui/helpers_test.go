package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/tuningstudio/tuning/pkg/domain"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"seconds", time.Now().Add(-10 * time.Second), "just now"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5m ago"},
		{"hours", time.Now().Add(-3 * time.Hour), "3h ago"},
		{"days", time.Now().Add(-50 * time.Hour), "2d ago"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatTime(tc.at); got != tc.want {
				t.Errorf("formatTime() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatPrice(t *testing.T) {
	if got := formatPrice(domain.NewMoney(1500)); got != "1500.00 ₽" {
		t.Errorf("formatPrice(1500) = %q", got)
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"too long here", 5, "too …"},
		{"Кузов", 3, "Ку…"},
		{"anything", 0, ""},
	}
	for _, tc := range tests {
		if got := truncStr(tc.in, tc.max); got != tc.want {
			t.Errorf("truncStr(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"# Turbo install", "Turbo install"},
		{"### Brakes\n\nupgrade", "Brakes upgrade"},
		{"  plain   text ", "plain text"},
	}
	for _, tc := range tests {
		if got := cleanTitle(tc.in); got != tc.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if got := strings.Join(lines, " "); got != "one two three four five six" {
		t.Errorf("wrapText lost words: %q", got)
	}
	if lines := wrapText("a\n\nb", 20); len(lines) != 3 || lines[1] != "" {
		t.Errorf("wrapText should keep blank paragraphs, got %q", lines)
	}
}

func TestClampCursor(t *testing.T) {
	if got := clampCursor(5, 3); got != 2 {
		t.Errorf("clampCursor(5,3) = %d", got)
	}
	if got := clampCursor(-1, 3); got != 0 {
		t.Errorf("clampCursor(-1,3) = %d", got)
	}
	if got := clampCursor(2, 0); got != 0 {
		t.Errorf("clampCursor(2,0) = %d", got)
	}
}
