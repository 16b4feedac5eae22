package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuningstudio/tuning/internal/session"
	"github.com/tuningstudio/tuning/pkg/domain"
)

func newTestApp() App {
	a := New(newTestServices())
	model, _ := a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return model.(App)
}

func press(a App, key string) (App, tea.Cmd) {
	model, cmd := a.Update(keyRunes(key))
	return model.(App), cmd
}

func TestAppTabSwitching(t *testing.T) {
	tests := []struct {
		key      string
		wantView view
	}{
		{"1", viewShop},
		{"2", viewForum},
		{"3", viewEvents},
		{"4", viewGarage},
		{"5", viewCart},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			a := newTestApp()
			a.view = viewCart
			a, _ = press(a, tc.key)
			if a.view != tc.wantView {
				t.Errorf("after key %q: expected view=%d, got %d", tc.key, tc.wantView, a.view)
			}
		})
	}
}

func TestAppSwitchLoadsPage(t *testing.T) {
	a := newTestApp()
	a, cmd := press(a, "2")
	if cmd == nil {
		t.Error("switching to the forum should load categories")
	}
	if _, cmd = press(a, "2"); cmd != nil {
		t.Error("pressing the current tab again should do nothing")
	}
}

func TestAppWindowSizePropagates(t *testing.T) {
	a := newTestApp()
	if a.shop.height != 30-chrome || a.cart.height != 30-chrome {
		t.Errorf("body height: shop=%d cart=%d, want %d", a.shop.height, a.cart.height, 30-chrome)
	}
	if a.garage.width != 100 {
		t.Errorf("garage width = %d", a.garage.width)
	}
}

func TestAppGlobalKeysSuppressedWhileEditing(t *testing.T) {
	a := newTestApp()
	signIn(t, a.svc, alex)
	if err := a.svc.Cart.AddItem(context.Background(), testCap, 1, nil); err != nil {
		t.Fatal(err)
	}
	a.cart, _ = a.cart.Update(cartChangedMsg{items: a.svc.Cart.Items()})
	a.view = viewCart
	model, _ := a.Update(keyType(tea.KeyEnter))
	a = model.(App)
	if !a.isEditing() {
		t.Fatal("expected checkout form")
	}

	a, _ = press(a, "2")
	if a.view != viewCart {
		t.Error("digits must go to the form while editing")
	}
	a, cmd := press(a, "q")
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Error("q must not quit while editing")
		}
	}
	a, _ = press(a, "h")
	if a.helpOpen {
		t.Error("h must not open help while editing")
	}

	_, cmd = a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should always quit")
	}
	if _, quit := cmd().(tea.QuitMsg); !quit {
		t.Error("ctrl+c should return tea.Quit")
	}
}

func TestAppHelpOverlay(t *testing.T) {
	a := newTestApp()
	a, _ = press(a, "h")
	if !a.helpOpen {
		t.Fatal("expected help overlay")
	}
	if view := a.View(); !strings.Contains(view, "T U N I N G") || !strings.Contains(view, "tuning.example/forum") {
		t.Errorf("help overlay missing content:\n%s", view)
	}
	for i := 0; i < 20; i++ {
		a, _ = press(a, "j")
	}
	if a.helpCursor != len(a.help)-1 {
		t.Errorf("cursor = %d, want clamp at %d", a.helpCursor, len(a.help)-1)
	}
	if _, cmd := a.Update(keyType(tea.KeyEnter)); cmd == nil {
		t.Error("enter should open the selected link")
	}
	model, _ := a.Update(keyType(tea.KeyEsc))
	if model.(App).helpOpen {
		t.Error("esc should close help")
	}
}

func TestAppPeekOverlayOpenAndClose(t *testing.T) {
	a := newTestApp()
	model, cmd := a.Update(showPeekMsg{userID: 7})
	a = model.(App)
	if !a.peekOpen || cmd == nil {
		t.Fatal("expected peek overlay and a load command")
	}

	model, _ = a.Update(peekLoadedMsg{user: alex})
	a = model.(App)
	if view := a.View(); !strings.Contains(view, "@alex") {
		t.Errorf("expected peek card, got:\n%s", view)
	}

	model, _ = a.Update(keyType(tea.KeyEsc))
	if model.(App).peekOpen {
		t.Error("esc should close peek")
	}
}

func TestAppSignInOverlay(t *testing.T) {
	a := newTestApp()
	a.svc.Session = session.New(&stubAuth{user: alex}, nil)

	a, _ = press(a, "i")
	if !a.authOpen {
		t.Fatal("i should open sign-in for a guest")
	}
	if !strings.Contains(a.View(), "SIGN IN") {
		t.Error("expected sign-in form in view")
	}

	a.auth.form.SetValue("username", "alex")
	a.auth.form.SetValue("password", "hunter2")
	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	a = model.(App)
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	model, _ = a.Update(cmd())
	a = model.(App)
	if a.authOpen {
		t.Error("successful sign-in should close the overlay")
	}
	if a.user == nil || a.user.Username != "alex" {
		t.Fatalf("user = %+v", a.user)
	}
	if !strings.Contains(a.View(), "welcome, Alex") {
		t.Error("expected welcome status")
	}

	a, _ = press(a, "i")
	if a.authOpen {
		t.Error("i should not reopen sign-in while signed in")
	}
}

func TestAppSignOut(t *testing.T) {
	a := newTestApp()
	a, _ = press(a, "I")
	if a.statusMsg != "not signed in" {
		t.Errorf("guest sign-out status = %q", a.statusMsg)
	}

	signIn(t, a.svc, alex)
	model, _ := a.Update(sessionChangedMsg{snap: session.Snapshot{User: alex, Event: session.EventSignIn}})
	a = model.(App)
	a, cmd := press(a, "I")
	if cmd == nil {
		t.Fatal("I should sign out")
	}
	msg := cmd()
	if a.svc.Session.IsAuthenticated() {
		t.Error("session should be cleared")
	}
	model, _ = a.Update(msg)
	model, _ = model.Update(sessionChangedMsg{snap: session.Snapshot{Event: session.EventSignOut}})
	a = model.(App)
	if a.user != nil {
		t.Error("sign-out snapshot should clear the user")
	}
	if !strings.Contains(a.View(), "guest") {
		t.Error("header should show guest")
	}
}

func TestAppSessionSnapshotUpdatesHeader(t *testing.T) {
	a := newTestApp()
	model, _ := a.Update(sessionChangedMsg{snap: session.Snapshot{Loading: true}})
	a = model.(App)
	if a.user != nil {
		t.Error("loading snapshots should not change the user")
	}
	model, _ = a.Update(sessionChangedMsg{snap: session.Snapshot{User: mod, Event: session.EventInitialize}})
	a = model.(App)
	if !strings.Contains(a.View(), mod.DisplayName()) {
		t.Errorf("expected %q in header", mod.DisplayName())
	}
}

func TestAppCartBadge(t *testing.T) {
	a := newTestApp()
	if strings.Contains(a.View(), "Cart (") {
		t.Error("empty cart should show no badge")
	}
	items := []domain.LineItem{
		{Product: testCap, Quantity: 2},
		{Product: testDecal, Quantity: 1},
	}
	model, _ := a.Update(cartChangedMsg{items: items})
	a = model.(App)
	view := a.View()
	if !strings.Contains(view, "Cart (3)") {
		t.Errorf("expected cart badge, got:\n%s", view)
	}
	if !strings.Contains(view, "3 in cart") || !strings.Contains(view, "2700.00 ₽") {
		t.Errorf("expected cart summary in header, got:\n%s", view)
	}
}

func TestAppOrderPlacedReachesCartAndGarage(t *testing.T) {
	a := newTestApp()
	signIn(t, a.svc, alex)
	model, cmd := a.Update(orderPlacedMsg{order: &domain.Order{ID: 5}})
	a = model.(App)
	if a.cart.state != cartOrdered {
		t.Error("cart page should show the confirmation")
	}
	if cmd == nil {
		t.Error("expected cart clear and garage reload commands")
	}
}

func TestAppRoutesAsyncResultsToHiddenPages(t *testing.T) {
	a := newTestApp()
	a.view = viewCart
	model, _ := a.Update(eventsLoadedMsg{events: []domain.Event{{ID: 1, Title: "Night meet"}}})
	a = model.(App)
	if a.events.loading || len(a.events.events) != 1 {
		t.Error("events page should receive its result while hidden")
	}
}

func TestAppViewShowsTabs(t *testing.T) {
	view := newTestApp().View()
	for _, tab := range []string{"Shop", "Forum", "Events", "Garage", "Cart", "guest"} {
		if !strings.Contains(view, tab) {
			t.Errorf("expected %q in view", tab)
		}
	}
}
