package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuningstudio/tuning/internal/browser"
	"github.com/tuningstudio/tuning/internal/query"
	"github.com/tuningstudio/tuning/pkg/domain"
)

type eventsModel struct {
	svc      *Services
	events   []domain.Event
	cursor   int
	detail   bool
	showPast bool
	liking   bool
	now      func() time.Time

	loading   bool
	err       error
	statusMsg string
	width     int
	height    int
}

type eventsLoadedMsg struct {
	events []domain.Event
	err    error
}

// eventDetailLoadedMsg carries the fresh copy of one event. liked is only
// meaningful when signed is set.
type eventDetailLoadedMsg struct {
	event  *domain.Event
	liked  bool
	signed bool
	err    error
}

type eventLikedMsg struct {
	eventID int64
	liked   bool
	err     error
}

func newEventsModel(svc *Services) eventsModel {
	return eventsModel{svc: svc, loading: true, now: time.Now}
}

func (m eventsModel) Init() tea.Cmd {
	return m.loadEvents()
}

func (m eventsModel) loadEvents() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		events, err := fetch(svc, "events", svc.Client.ListEvents)
		return eventsLoadedMsg{events: events, err: err}
	}
}

func (m eventsModel) loadDetail(id int64) tea.Cmd {
	svc := m.svc
	signed := svc.currentUser() != nil
	return func() tea.Msg {
		e, err := fetch(svc, query.Key("event", id), func(ctx context.Context) (*domain.Event, error) {
			return svc.Client.GetEvent(ctx, id)
		})
		if err != nil {
			return eventDetailLoadedMsg{err: err}
		}
		msg := eventDetailLoadedMsg{event: e, signed: signed}
		if signed {
			err := mutation(func(ctx context.Context) error {
				var err error
				msg.liked, err = svc.Client.IsEventLiked(ctx, id)
				return err
			})
			if err != nil {
				msg.signed = false
			}
		}
		return msg
	}
}

// visible returns the events shown under the current filter.
func (m eventsModel) visible() []domain.Event {
	if m.showPast {
		return m.events
	}
	now := m.now()
	out := make([]domain.Event, 0, len(m.events))
	for _, e := range m.events {
		if e.Upcoming(now) {
			out = append(out, e)
		}
	}
	return out
}

func (m eventsModel) selected() *domain.Event {
	vis := m.visible()
	if m.cursor >= len(vis) {
		return nil
	}
	return &vis[m.cursor]
}

func (m eventsModel) Update(msg tea.Msg) (eventsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case eventsLoadedMsg:
		m.loading = false
		m.events = msg.events
		m.err = msg.err
		m.cursor = clampCursor(m.cursor, len(m.visible()))
		return m, nil

	case eventDetailLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("refresh failed: %v", msg.err)
			return m, nil
		}
		fresh := *msg.event
		for i := range m.events {
			if m.events[i].ID != fresh.ID {
				continue
			}
			if msg.signed {
				fresh.IsLiked = msg.liked
			} else {
				fresh.IsLiked = m.events[i].IsLiked
			}
			m.events[i] = fresh
		}
		return m, nil

	case eventLikedMsg:
		m.liking = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("like failed: %v", msg.err)
			return m, nil
		}
		for i := range m.events {
			if m.events[i].ID != msg.eventID || m.events[i].IsLiked == msg.liked {
				continue
			}
			m.events[i].IsLiked = msg.liked
			if msg.liked {
				m.events[i].LikesCount++
			} else if m.events[i].LikesCount > 0 {
				m.events[i].LikesCount--
			}
		}
		m.svc.invalidate("events", query.Key("event", msg.eventID))
		if msg.liked {
			m.statusMsg = "you're going!"
		} else {
			m.statusMsg = "removed from your events"
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m eventsModel) updateKeys(msg tea.KeyMsg) (eventsModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if !m.detail && m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case "k", "up":
		if !m.detail && m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if e := m.selected(); e != nil && !m.detail {
			m.detail = true
			return m, m.loadDetail(e.ID)
		}
	case "esc":
		m.detail = false
	case "f":
		m.showPast = !m.showPast
		m.cursor = 0
		m.detail = false
	case "l", "L":
		return m.toggleLike(msg.String() == "L")
	case "o":
		if e := m.selected(); e != nil {
			url := browser.Join(m.svc.SiteURL, "events", fmt.Sprint(e.ID))
			return m, func() tea.Msg {
				_ = browser.Open(url)
				return nil
			}
		}
	case "r":
		m.loading = true
		m.svc.invalidate("events")
		return m, m.loadEvents()
	}
	return m, nil
}

func (m eventsModel) toggleLike(anonymous bool) (eventsModel, tea.Cmd) {
	e := m.selected()
	if e == nil || m.liking {
		return m, nil
	}
	if m.svc.currentUser() == nil {
		m.statusMsg = "sign in to join events (i)"
		return m, nil
	}
	m.liking = true
	svc, id, liked := m.svc, e.ID, e.IsLiked
	return m, func() tea.Msg {
		err := mutation(func(ctx context.Context) error {
			if liked {
				return svc.Client.UnlikeEvent(ctx, id)
			}
			_, err := svc.Client.LikeEvent(ctx, id, anonymous)
			return err
		})
		return eventLikedMsg{eventID: id, liked: !liked, err: err}
	}
}

func (m eventsModel) View() string {
	var b strings.Builder

	filter := "upcoming"
	if m.showPast {
		filter = "all"
	}
	b.WriteString(" " + searchStyle.Render("EVENTS") + "  " + dimStyle.Render("["+filter+"]") + " " + helpKeyStyle.Render("f") + "\n")
	b.WriteString(separator(m.width))

	if m.statusMsg != "" {
		b.WriteString(" " + statusStyle.Render(m.statusMsg) + "\n")
	}
	if m.loading {
		b.WriteString(" " + dimStyle.Render("loading..."))
		return b.String()
	}
	if m.err != nil {
		b.WriteString(" " + errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		return b.String()
	}

	vis := m.visible()
	if len(vis) == 0 {
		if m.showPast {
			b.WriteString(" " + dimStyle.Render("no events yet"))
		} else {
			b.WriteString(" " + dimStyle.Render("nothing scheduled. f shows past events"))
		}
		return b.String()
	}

	if m.detail {
		b.WriteString(m.viewDetail(vis[m.cursor]))
		return truncateToHeight(b.String(), m.height)
	}

	now := m.now()
	titleWidth := max(m.width-40, 12)
	start, end := listWindow(m.cursor, len(vis), m.height-4)
	for i := start; i < end; i++ {
		e := vis[i]
		style := normalStyle
		if !e.Upcoming(now) {
			style = dimStyle
		}
		heart := metaStyle.Render(fmt.Sprintf("♡%3d", e.LikesCount))
		if e.IsLiked {
			heart = likeStyle.Render(fmt.Sprintf("♥%3d", e.LikesCount))
		}
		line := metaStyle.Render(formatDate(e.EventDate)) + "  " +
			style.Render(fmt.Sprintf("%-*s", titleWidth, truncStr(e.Title, titleWidth))) + " " + heart
		b.WriteString(renderRow(line, i == m.cursor, m.width))
	}
	return truncateToHeight(b.String(), m.height)
}

func (m eventsModel) viewDetail(e domain.Event) string {
	var b strings.Builder
	b.WriteString(" " + selectedStyle.Render(e.Title) + "\n")
	meta := formatDate(e.EventDate)
	if e.Location != "" {
		meta += " · " + e.Location
	}
	if e.EventType != "" {
		meta += " · " + e.EventType
	}
	b.WriteString(" " + metaStyle.Render(meta) + "\n")

	seats := fmt.Sprintf("%d going", e.ParticipantsCount)
	if e.MaxParticipants != nil {
		seats = fmt.Sprintf("%d / %d going", e.ParticipantsCount, *e.MaxParticipants)
	}
	b.WriteString(" " + metaStyle.Render(seats))
	if e.RegistrationDeadline != nil {
		b.WriteString(metaStyle.Render(" · sign up by " + formatDate(*e.RegistrationDeadline)))
	}
	b.WriteString("\n")
	if e.IsLiked {
		b.WriteString(" " + likeStyle.Render(fmt.Sprintf("♥ %d · you're going", e.LikesCount)) + "\n")
	} else {
		b.WriteString(" " + metaStyle.Render(fmt.Sprintf("♡ %d", e.LikesCount)) + "\n")
	}
	b.WriteString("\n")

	for _, line := range wrapText(e.Description, max(m.width-4, 20)) {
		b.WriteString(" " + normalStyle.Render(line) + "\n")
	}
	return b.String()
}

func (m eventsModel) helpBar() string {
	h := helpEntry("l", "like") + "  " + helpEntry("L", "like anonymously") + "  " + helpEntry("o", "open")
	if m.detail {
		return h + "  " + helpEntry("esc", "back")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "details") + "  " + h + "  " + helpEntry("f", "past") + "  " + helpEntry("r", "refresh")
}
