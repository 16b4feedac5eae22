package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuningstudio/tuning/pkg/domain"
)

var eventsNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEventsModel() eventsModel {
	m := newEventsModel(newTestServices())
	m.width = 80
	m.height = 24
	m.loading = false
	m.now = func() time.Time { return eventsNow }
	return m
}

func testEvents() []domain.Event {
	limit := 30
	return []domain.Event{
		{ID: 1, Title: "Spring Track Day", EventDate: eventsNow.Add(72 * time.Hour), Location: "Moscow Raceway",
			Description: "Open pit lane, timing provided.", ParticipantsCount: 12, MaxParticipants: &limit, LikesCount: 12},
		{ID: 2, Title: "Winter Meet", EventDate: eventsNow.Add(-90 * 24 * time.Hour), LikesCount: 40},
	}
}

func TestEventsHidesPastByDefault(t *testing.T) {
	m := newTestEventsModel()
	m, _ = m.Update(eventsLoadedMsg{events: testEvents()})
	view := m.View()
	if !strings.Contains(view, "Spring Track Day") {
		t.Errorf("expected upcoming event, got:\n%s", view)
	}
	if strings.Contains(view, "Winter Meet") {
		t.Errorf("past event should be hidden, got:\n%s", view)
	}

	m, _ = m.Update(keyRunes("f"))
	if view := m.View(); !strings.Contains(view, "Winter Meet") {
		t.Errorf("f should show past events, got:\n%s", view)
	}
}

func TestEventsEmptyAndError(t *testing.T) {
	m := newTestEventsModel()
	m, _ = m.Update(eventsLoadedMsg{events: testEvents()[1:]})
	if view := m.View(); !strings.Contains(view, "nothing scheduled") {
		t.Errorf("expected empty upcoming state, got:\n%s", view)
	}
	m, _ = m.Update(eventsLoadedMsg{err: errors.New("timeout")})
	if view := m.View(); !strings.Contains(view, "error: timeout") {
		t.Errorf("expected error, got:\n%s", view)
	}
}

func TestEventsDetail(t *testing.T) {
	m := newTestEventsModel()
	m, _ = m.Update(eventsLoadedMsg{events: testEvents()})
	m, _ = m.Update(keyType(tea.KeyEnter))
	view := m.View()
	for _, want := range []string{"Moscow Raceway", "12 / 30 going", "Open pit lane"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in detail, got:\n%s", want, view)
		}
	}
	m, _ = m.Update(keyType(tea.KeyEsc))
	if m.detail {
		t.Error("esc should leave detail")
	}
}

func TestEventsLikeNeedsSignIn(t *testing.T) {
	m := newTestEventsModel()
	m, _ = m.Update(eventsLoadedMsg{events: testEvents()})
	m, cmd := m.Update(keyRunes("l"))
	if cmd != nil {
		t.Error("anonymous like should not call the API")
	}
	if !strings.Contains(m.View(), "sign in to join events") {
		t.Errorf("expected sign-in hint, got:\n%s", m.View())
	}
}

func TestEventsLikeToggle(t *testing.T) {
	m := newTestEventsModel()
	signIn(t, m.svc, alex)
	m, _ = m.Update(eventsLoadedMsg{events: testEvents()})

	m, cmd := m.Update(keyRunes("l"))
	if cmd == nil || !m.liking {
		t.Fatal("expected like command")
	}
	m, _ = m.Update(eventLikedMsg{eventID: 1, liked: true})
	if e := m.events[0]; !e.IsLiked || e.LikesCount != 13 {
		t.Errorf("after like: %+v", e)
	}
	// A repeated result for the same state must not double count.
	m, _ = m.Update(eventLikedMsg{eventID: 1, liked: true})
	if m.events[0].LikesCount != 13 {
		t.Errorf("duplicate like counted twice: %d", m.events[0].LikesCount)
	}
	m, _ = m.Update(eventLikedMsg{eventID: 1, liked: false})
	if e := m.events[0]; e.IsLiked || e.LikesCount != 12 {
		t.Errorf("after unlike: %+v", e)
	}
}

func TestEventsDetailRefreshesEvent(t *testing.T) {
	m := newTestEventsModel()
	signIn(t, m.svc, alex)
	m, _ = m.Update(eventsLoadedMsg{events: testEvents()})
	m, cmd := m.Update(keyType(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("opening detail should load the event")
	}

	fresh := testEvents()[0]
	fresh.ParticipantsCount = 29
	fresh.LikesCount = 29
	m, _ = m.Update(eventDetailLoadedMsg{event: &fresh, liked: true, signed: true})
	view := m.View()
	for _, want := range []string{"29 / 30 going", "you're going"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in detail, got:\n%s", want, view)
		}
	}

	// anonymous reloads keep the like state already shown
	fresh.ParticipantsCount = 30
	m, _ = m.Update(eventDetailLoadedMsg{event: &fresh})
	if e := m.events[0]; !e.IsLiked || e.ParticipantsCount != 30 {
		t.Errorf("after anonymous refresh: %+v", e)
	}

	m, _ = m.Update(eventDetailLoadedMsg{err: errors.New("timeout")})
	if !strings.Contains(m.View(), "refresh failed: timeout") {
		t.Errorf("expected refresh error, got:\n%s", m.View())
	}
}
