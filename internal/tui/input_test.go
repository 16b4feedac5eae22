package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestEditRuneAddCharacters(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"append to empty", "", "a", "a"},
		{"append letter", "hel", "l", "hell"},
		{"append digit", "abc", "1", "abc1"},
		{"append space", "hello", " ", "hello "},
		{"append cyrillic", "Мото", "р", "Мотор"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editRune(tc.start, tc.key)
			if got != tc.want {
				t.Errorf("editRune(%q, %q) = %q, want %q", tc.start, tc.key, got, tc.want)
			}
		})
	}
}

func TestEditRuneBackspace(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"single char", "a", ""},
		{"longer string", "hello", "hell"},
		{"empty does nothing", "", ""},
		{"multi-byte rune", "hellé", "hell"},
		{"emoji", "ok\U0001f600", "ok"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editRune(tc.start, "backspace")
			if got != tc.want {
				t.Errorf("editRune(%q, 'backspace') = %q, want %q", tc.start, got, tc.want)
			}
		})
	}
}

func TestEditRuneIgnoresNamedKeys(t *testing.T) {
	for _, key := range []string{"enter", "esc", "up", "down", "ctrl+c", "ctrl+s", "tab", "shift+tab", "shift+enter"} {
		t.Run(key, func(t *testing.T) {
			if got := editRune("hello", key); got != "hello" {
				t.Errorf("editRune(%q, %q) = %q, want unchanged", "hello", key, got)
			}
		})
	}
}

func TestEditRuneMaxInputLen(t *testing.T) {
	atLimit := strings.Repeat("a", maxInputLen)
	if got := editRune(atLimit, "b"); got != atLimit {
		t.Error("editRune should reject input past maxInputLen")
	}
	if got := editRune(atLimit, "backspace"); len(got) != maxInputLen-1 {
		t.Error("backspace should still work at the limit")
	}
}

func TestEditKeyPaste(t *testing.T) {
	tests := []struct {
		name  string
		start string
		msg   tea.KeyMsg
		want  string
	}{
		{"runes", "hi ", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("there")}, "hi there"},
		{"paste", "", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+7 999 123-45-67"), Paste: true}, "+7 999 123-45-67"},
		{"space", "a", tea.KeyMsg{Type: tea.KeySpace}, "a "},
		{"backspace", "ab", tea.KeyMsg{Type: tea.KeyBackspace}, "a"},
		{"enter ignored", "ab", tea.KeyMsg{Type: tea.KeyEnter}, "ab"},
		{"clamped", strings.Repeat("a", maxInputLen-2), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("xyz")}, strings.Repeat("a", maxInputLen-2) + "xy"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := editKey(tc.start, tc.msg); got != tc.want {
				t.Errorf("editKey(%q) = %q, want %q", tc.start, got, tc.want)
			}
		})
	}
}

func TestTruncateToHeight(t *testing.T) {
	input := "line1\nline2\nline3\nline4\nline5\n"
	result := truncateToHeight(input, 3)
	if strings.Count(result, "\n") > 3 {
		t.Errorf("truncateToHeight(5 lines, 3) kept too much: %q", result)
	}
	if strings.Contains(result, "line4") {
		t.Errorf("truncateToHeight result should not contain line4: %q", result)
	}
	if got := truncateToHeight(input, 0); got != input {
		t.Errorf("maxLines=0 should return input unchanged, got %q", got)
	}
	if got := truncateToHeight(input, -1); got != input {
		t.Errorf("maxLines=-1 should return input unchanged, got %q", got)
	}
}

func TestRenderInput(t *testing.T) {
	if got := renderInput("search:", "", "type to filter", false, false); !strings.Contains(got, "type to filter") {
		t.Errorf("empty unfocused input should show placeholder: %q", got)
	}
	if got := renderInput("password:", "hunter2", "", true, true); strings.Contains(got, "hunter2") {
		t.Errorf("secret input leaked its value: %q", got)
	}
	if got := renderInput("reply:", "first\nsecond", "", false, false); strings.Contains(got, "second") {
		t.Errorf("unfocused input should collapse to first line: %q", got)
	}
	if got := renderInput("reply:", "hello ", "", true, false); !strings.Contains(got, "hello ") {
		t.Errorf("trailing space lost: %q", got)
	}
}
