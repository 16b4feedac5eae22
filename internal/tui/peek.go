package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tuningstudio/tuning/internal/browser"
	"github.com/tuningstudio/tuning/internal/query"
	"github.com/tuningstudio/tuning/pkg/domain"
)

type peekLoadedMsg struct {
	user *domain.User
	err  error
}

// peekModel is the profile card shown over a page when a forum author is peeked.
type peekModel struct {
	svc    *Services
	user   *domain.User
	closed bool
	err    string
	width  int
}

func newPeekModel(svc *Services) peekModel {
	return peekModel{svc: svc}
}

func (m peekModel) load(userID int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		u, err := fetch(svc, query.Key("user", userID), func(ctx context.Context) (*domain.User, error) {
			return svc.Client.GetUser(ctx, userID)
		})
		if err != nil {
			return peekLoadedMsg{err: fmt.Errorf("client.GetUser: %w", err)}
		}
		return peekLoadedMsg{user: u}
	}
}

func (m peekModel) Update(msg tea.Msg) (peekModel, tea.Cmd) {
	switch msg := msg.(type) {
	case peekLoadedMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		} else {
			m.user = msg.user
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			m.closed = true
		case "o":
			if m.user != nil && m.svc != nil && m.svc.SiteURL != "" {
				url := browser.Join(m.svc.SiteURL, "user", fmt.Sprint(m.user.ID))
				return m, func() tea.Msg {
					_ = browser.Open(url)
					return nil
				}
			}
		}
	}
	return m, nil
}

func (m peekModel) View() string {
	if m.err != "" {
		return "\n " + dimStyle.Render("peek error: "+m.err)
	}
	if m.user == nil {
		return "\n " + dimStyle.Render("loading...")
	}

	u := m.user
	cardWidth := min(50, m.width-4)
	if cardWidth < 30 {
		cardWidth = 30
	}
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Background(surfaceColor).
		Padding(1, 2).
		Width(cardWidth)

	var sb strings.Builder
	sb.WriteString(userStyle(u.IsStaff).Render(u.DisplayName()))
	if u.DisplayName() != u.Username {
		sb.WriteString("  " + metaStyle.Render("@"+u.Username))
	}
	if u.IsStaff {
		sb.WriteString("  " + staffStyle.Render("staff"))
	}
	sb.WriteString("\n")
	if !u.CreatedAt.IsZero() {
		sb.WriteString(metaStyle.Render("member since "+u.CreatedAt.Format("Jan 2006")) + "\n")
	}

	if u.Bio != "" {
		sb.WriteString("\n")
		for _, line := range wrapText(u.Bio, cardWidth-4) {
			sb.WriteString(commentTextStyle.Render(line) + "\n")
		}
	}

	var socials []string
	for _, s := range []struct{ name, handle string }{
		{"tg", u.Telegram}, {"ig", u.Instagram}, {"yt", u.YouTube}, {"vk", u.VK},
	} {
		if s.handle != "" {
			socials = append(socials, metaStyle.Render(s.name+" ")+normalStyle.Render(s.handle))
		}
	}
	if len(socials) > 0 {
		sb.WriteString("\n" + strings.Join(socials, "  ") + "\n")
	}

	if len(u.Cars) > 0 {
		sb.WriteString("\n" + sectionHeaderStyle.Render("── GARAGE ──") + "\n")
		for _, c := range u.Cars {
			sb.WriteString("  " + normalStyle.Render(c.Title()) + "\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(helpEntry("o", "open") + "  " + helpEntry("esc", "close"))

	return "\n" + border.Render(sb.String())
}
