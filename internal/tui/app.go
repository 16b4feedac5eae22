package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tuningstudio/tuning/internal/browser"
	"github.com/tuningstudio/tuning/internal/session"
	"github.com/tuningstudio/tuning/pkg/domain"
)

type view int

const (
	viewShop view = iota
	viewForum
	viewEvents
	viewGarage
	viewCart
)

// sessionChangedMsg relays a session store snapshot into the program.
type sessionChangedMsg struct {
	snap session.Snapshot
}

type signedOutMsg struct{ err error }

// chrome is header(2) + tabs(1) + status(1) + help(1).
const chrome = 5

// App is the root Bubbletea model.
type App struct {
	svc  *Services
	view view

	shop   shopModel
	forum  forumModel
	events eventsModel
	garage garageModel
	cart   cartModel

	peek       peekModel
	peekOpen   bool
	auth       authModel
	authOpen   bool
	helpOpen   bool
	helpCursor int
	help       []helpItem

	user      *domain.User
	statusMsg string
	width     int
	height    int
	frame     int // logo shimmer animation frame
}

// New creates the TUI application over svc.
func New(svc *Services) App {
	a := App{
		svc:    svc,
		shop:   newShopModel(svc),
		forum:  newForumModel(svc),
		events: newEventsModel(svc),
		garage: newGarageModel(svc),
		cart:   newCartModel(svc),
		peek:   newPeekModel(svc),
		help:   helpLinks(svc.SiteURL),
	}
	a.user = svc.currentUser()
	return a
}

// Bind forwards session and cart changes to p. Listeners fire from command
// goroutines, never from Update, so Send is safe to call inline.
func Bind(p *tea.Program, svc *Services) func() {
	var unsubs []func()
	if svc.Session != nil {
		unsubs = append(unsubs, svc.Session.Subscribe(func(s session.Snapshot) {
			p.Send(sessionChangedMsg{snap: s})
		}))
	}
	if svc.Cart != nil {
		unsubs = append(unsubs, svc.Cart.Subscribe(func(items []domain.LineItem) {
			p.Send(cartChangedMsg{items: items})
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.shop.Init(), shimmerTickCmd(), a.initSession())
}

func (a App) initSession() tea.Cmd {
	st := a.svc.Session
	if st == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		st.Initialize(ctx)
		return nil
	}
}

func (a App) signOut() tea.Cmd {
	st := a.svc.Session
	return func() tea.Msg {
		return signedOutMsg{err: mutation(st.SignOut)}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - chrome}
		a.shop, _ = a.shop.Update(bodyMsg)
		a.forum, _ = a.forum.Update(bodyMsg)
		a.events, _ = a.events.Update(bodyMsg)
		a.garage, _ = a.garage.Update(bodyMsg)
		a.cart, _ = a.cart.Update(bodyMsg)
		a.peek, _ = a.peek.Update(bodyMsg)
		a.auth, _ = a.auth.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case sessionChangedMsg:
		if !msg.snap.Loading {
			a.user = msg.snap.User
		}
		var cmd tea.Cmd
		a.garage, cmd = a.garage.Update(msg)
		return a, cmd

	case cartChangedMsg:
		var cmd tea.Cmd
		a.cart, cmd = a.cart.Update(msg)
		return a, cmd

	case orderPlacedMsg:
		var c1, c2 tea.Cmd
		a.cart, c1 = a.cart.Update(msg)
		a.garage, c2 = a.garage.Update(msg)
		return a, tea.Batch(c1, c2)

	case signedOutMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("signed out locally (%v)", msg.err)
		} else {
			a.statusMsg = "signed out"
		}
		return a, nil

	case authDoneMsg:
		var cmd tea.Cmd
		a.auth, cmd = a.auth.Update(msg)
		if a.auth.closed {
			a.authOpen = false
			if msg.user != nil {
				a.user = msg.user
				a.statusMsg = "welcome, " + msg.user.DisplayName()
			}
		}
		return a, cmd

	case showPeekMsg:
		a.peekOpen = true
		a.peek = newPeekModel(a.svc)
		a.peek.width = a.width
		return a, a.peek.load(msg.userID)

	case peekLoadedMsg:
		var cmd tea.Cmd
		a.peek, cmd = a.peek.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.updateKeys(msg)
	}

	return a.routeAll(msg)
}

// routeAll hands async results to every page; each ignores what isn't its own.
func (a App) routeAll(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 5)
	a.shop, cmds[0] = a.shop.Update(msg)
	a.forum, cmds[1] = a.forum.Update(msg)
	a.events, cmds[2] = a.events.Update(msg)
	a.garage, cmds[3] = a.garage.Update(msg)
	a.cart, cmds[4] = a.cart.Update(msg)
	return a, tea.Batch(cmds...)
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	// Help overlay captures all keys when open
	if a.helpOpen {
		switch msg.String() {
		case "h", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		case "j", "down":
			if a.helpCursor < len(a.help)-1 {
				a.helpCursor++
			}
		case "k", "up":
			if a.helpCursor > 0 {
				a.helpCursor--
			}
		case "enter":
			if a.helpCursor < len(a.help) {
				url := a.help[a.helpCursor].url
				return a, func() tea.Msg {
					_ = browser.Open(url)
					return nil
				}
			}
		}
		return a, nil
	}

	if a.authOpen {
		var cmd tea.Cmd
		a.auth, cmd = a.auth.Update(msg)
		if a.auth.closed {
			a.authOpen = false
		}
		return a, cmd
	}

	if a.peekOpen {
		var cmd tea.Cmd
		a.peek, cmd = a.peek.Update(msg)
		if a.peek.closed {
			a.peekOpen = false
		}
		return a, cmd
	}

	if !a.isEditing() {
		a.statusMsg = ""
		switch msg.String() {
		case "h":
			a.helpOpen = true
			a.helpCursor = 0
			return a, nil
		case "q":
			return a, tea.Quit
		case "1":
			return a.switchTo(viewShop)
		case "2":
			return a.switchTo(viewForum)
		case "3":
			return a.switchTo(viewEvents)
		case "4":
			return a.switchTo(viewGarage)
		case "5":
			return a.switchTo(viewCart)
		case "i":
			if a.user != nil {
				a.statusMsg = "signed in as @" + a.user.Username + ". I signs out"
				return a, nil
			}
			a.authOpen = true
			a.auth = newAuthModel(a.svc, authSignIn)
			a.auth.width = a.width
			return a, nil
		case "I":
			if a.user == nil || a.svc.Session == nil {
				a.statusMsg = "not signed in"
				return a, nil
			}
			return a, a.signOut()
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewShop:
		a.shop, cmd = a.shop.Update(msg)
	case viewForum:
		a.forum, cmd = a.forum.Update(msg)
	case viewEvents:
		a.events, cmd = a.events.Update(msg)
	case viewGarage:
		a.garage, cmd = a.garage.Update(msg)
	case viewCart:
		a.cart, cmd = a.cart.Update(msg)
	}
	return a, cmd
}

func (a App) switchTo(v view) (tea.Model, tea.Cmd) {
	if a.view == v {
		return a, nil
	}
	a.view = v
	switch v {
	case viewShop:
		return a, a.shop.Init()
	case viewForum:
		return a, a.forum.Init()
	case viewEvents:
		return a, a.events.Init()
	case viewGarage:
		return a, a.garage.Init()
	}
	return a, nil
}

func (a App) isEditing() bool {
	switch a.view {
	case viewShop:
		return a.shop.isEditing()
	case viewForum:
		return a.forum.isEditing()
	case viewGarage:
		return a.garage.isEditing()
	case viewCart:
		return a.cart.isEditing()
	}
	return false
}

func centered(s string, width int) string {
	pad := max((width-lipgloss.Width(s))/2, 0)
	return strings.Repeat(" ", pad) + s
}

func (a App) View() string {
	header := centered(renderShimmerLogo(a.frame), a.width)

	who := dimStyle.Render("guest") + metaStyle.Render(" · i sign in")
	if a.user != nil {
		who = userStyle(a.user.CanModerate()).Render(a.user.DisplayName())
	}
	stats := who
	if n := a.cart.count(); n > 0 {
		stats += metaStyle.Render(fmt.Sprintf(" · %d in cart · ", n)) + priceStyle.Render(formatPrice(a.cart.total()))
	}
	header += "\n" + centered(stats, a.width)

	tabs := []struct {
		key  string
		name string
		v    view
	}{
		{"1", "Shop", viewShop},
		{"2", "Forum", viewForum},
		{"3", "Events", viewEvents},
		{"4", "Garage", viewGarage},
		{"5", "Cart", viewCart},
	}
	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		if t.v == viewCart && a.cart.count() > 0 {
			label += " " + badgeStyle.Render(fmt.Sprintf("(%d)", a.cart.count()))
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max((colWidth-labelWidth)/2, 0)
		rightPad := max(colWidth-labelWidth-leftPad, 0)
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}

	var body, help string
	switch a.view {
	case viewShop:
		body, help = a.shop.View(), a.shop.helpBar()
	case viewForum:
		body, help = a.forum.View(), a.forum.helpBar()
	case viewEvents:
		body, help = a.events.View(), a.events.helpBar()
	case viewGarage:
		body, help = a.garage.View(), a.garage.helpBar()
	case viewCart:
		body, help = a.cart.View(), a.cart.helpBar()
	}
	if !a.isEditing() {
		help = helpEntry("1-5", "tabs") + "  " + help + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
	}

	switch {
	case a.helpOpen:
		body = helpView(a.help, a.helpCursor)
		help = helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("esc", "close")
	case a.authOpen:
		body = "\n" + lipgloss.PlaceHorizontal(a.width, lipgloss.Center, a.auth.View())
		help = helpEntry("ctrl+r", "switch") + "  " + helpEntry("esc", "close")
	case a.peekOpen:
		body = a.peek.View()
		help = helpEntry("o", "open profile") + "  " + helpEntry("esc", "close")
	}

	status := ""
	if a.statusMsg != "" {
		status = " " + statusStyle.Render(a.statusMsg)
	}

	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n%s\n %s", header, tabBar.String(), body, status, help)
}
