package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

type cartState int

const (
	cartBrowsing cartState = iota
	cartConfirmClear
	cartCheckout
	cartOrdered
)

type cartModel struct {
	svc    *Services
	state  cartState
	items  []domain.LineItem
	cursor int
	busy   bool

	checkout formModel
	order    *domain.Order

	statusMsg string
	width     int
	height    int
}

// cartChangedMsg carries the cart lines after any change.
type cartChangedMsg struct {
	items []domain.LineItem
}

type cartOpMsg struct {
	op  string
	err error
}

type orderPlacedMsg struct {
	order *domain.Order
	err   error
}

type orderCopiedMsg struct{ err error }

func newCartModel(svc *Services) cartModel {
	return cartModel{svc: svc, items: svc.Cart.Items(), checkout: newCheckoutForm(nil)}
}

func newCheckoutForm(u *domain.User) formModel {
	f := newForm("CHECKOUT",
		formField{key: "customer_first_name", label: "first name"},
		formField{key: "customer_last_name", label: "last name"},
		formField{key: "customer_middle_name", label: "middle name", placeholder: "optional"},
		formField{key: "customer_phone", label: "phone", placeholder: "+7 900 000-00-00"},
		formField{key: "delivery_method", label: "delivery", choices: []string{domain.DeliveryPickup, domain.DeliveryDelivery}},
		formField{key: "delivery_address", label: "address", placeholder: "required for delivery"},
		formField{key: "notes", label: "notes", placeholder: "optional", multiline: true},
	)
	if u != nil {
		f.SetValue("customer_first_name", u.FirstName)
		f.SetValue("customer_last_name", u.LastName)
		f.SetValue("customer_phone", u.Phone)
	}
	return f
}

func (m cartModel) Init() tea.Cmd {
	return nil
}

func (m cartModel) Update(msg tea.Msg) (cartModel, tea.Cmd) {
	switch msg := msg.(type) {
	case cartChangedMsg:
		m.items = msg.items
		m.cursor = clampCursor(m.cursor, len(m.items))
		return m, nil

	case cartOpMsg:
		m.busy = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		}
		return m, nil

	case orderPlacedMsg:
		if msg.err != nil {
			m.checkout.ApplyError(msg.err)
			return m, nil
		}
		m.state = cartOrdered
		m.order = msg.order
		m.checkout = newCheckoutForm(m.svc.currentUser())
		return m, m.cartOp("clear", func(ctx context.Context) error {
			return m.svc.Cart.Clear(ctx)
		})

	case orderCopiedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.statusMsg = "order number copied!"
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		switch m.state {
		case cartCheckout:
			return m.updateCheckout(msg)
		case cartConfirmClear:
			return m.updateConfirmClear(msg)
		case cartOrdered:
			return m.updateOrdered(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m cartModel) cartOp(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return cartOpMsg{op: op, err: mutation(fn)}
	}
}

func (m cartModel) updateBrowsing(msg tea.KeyMsg) (cartModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "+", "=":
		return m.setQuantity(1)
	case "-":
		return m.setQuantity(-1)
	case "x", "delete":
		if m.cursor < len(m.items) && !m.busy {
			li := m.items[m.cursor]
			m.busy = true
			return m, m.cartOp("remove", func(ctx context.Context) error {
				return m.svc.Cart.RemoveItem(ctx, li.Product.ID, li.VariantID(), serverID(li))
			})
		}
	case "C":
		if len(m.items) > 0 {
			m.state = cartConfirmClear
		}
	case "enter":
		switch {
		case m.svc.currentUser() == nil:
			m.statusMsg = "sign in to check out (i)"
		case len(m.items) == 0:
			m.statusMsg = "cart is empty"
		default:
			m.state = cartCheckout
			m.checkout = newCheckoutForm(m.svc.currentUser())
		}
	}
	return m, nil
}

func (m cartModel) setQuantity(delta int) (cartModel, tea.Cmd) {
	if m.cursor >= len(m.items) || m.busy {
		return m, nil
	}
	li := m.items[m.cursor]
	qty := li.Quantity + delta
	m.busy = true
	return m, m.cartOp("update", func(ctx context.Context) error {
		return m.svc.Cart.UpdateQuantity(ctx, li.Product.ID, qty, li.VariantID(), serverID(li))
	})
}

// serverID is the server line id, or 0 for a local line.
func serverID(li domain.LineItem) int64 {
	if li.ID == nil {
		return 0
	}
	return *li.ID
}

func (m cartModel) updateConfirmClear(msg tea.KeyMsg) (cartModel, tea.Cmd) {
	switch msg.String() {
	case "y":
		m.state = cartBrowsing
		m.busy = true
		return m, m.cartOp("clear", func(ctx context.Context) error {
			return m.svc.Cart.Clear(ctx)
		})
	case "n", "esc":
		m.state = cartBrowsing
	}
	return m, nil
}

func (m cartModel) updateCheckout(msg tea.KeyMsg) (cartModel, tea.Cmd) {
	var act formAction
	m.checkout, act = m.checkout.Update(msg)
	switch act {
	case formCancel:
		m.state = cartBrowsing
	case formSubmit:
		req, ok := m.orderRequest()
		if !ok {
			return m, nil
		}
		m.checkout.submitting = true
		svc := m.svc
		return m, func() tea.Msg {
			var order *domain.Order
			err := mutation(func(ctx context.Context) error {
				var err error
				order, err = svc.Client.CreateOrder(ctx, req)
				return err
			})
			return orderPlacedMsg{order: order, err: err}
		}
	}
	return m, nil
}

// orderRequest validates the checkout form and builds the order payload.
func (m *cartModel) orderRequest() (client.CreateOrderRequest, bool) {
	f := &m.checkout
	f.ClearErrors()
	if m.svc.currentUser() == nil {
		f.general = "sign in to check out"
		return client.CreateOrderRequest{}, false
	}
	if len(m.items) == 0 {
		f.general = "cart is empty"
		return client.CreateOrderRequest{}, false
	}
	ok := f.Require("customer_first_name", "customer_last_name", "customer_phone")
	method := f.Value("delivery_method")
	if method == domain.DeliveryDelivery && !f.Require("delivery_address") {
		ok = false
	}
	if !ok {
		return client.CreateOrderRequest{}, false
	}

	lines := make([]client.OrderLine, 0, len(m.items))
	for _, li := range m.items {
		lines = append(lines, client.OrderLine{ProductID: li.Product.ID, Quantity: li.Quantity})
	}
	req := client.CreateOrderRequest{
		DeliveryMethod:     method,
		CustomerFirstName:  f.Value("customer_first_name"),
		CustomerLastName:   f.Value("customer_last_name"),
		CustomerMiddleName: f.Value("customer_middle_name"),
		CustomerPhone:      f.Value("customer_phone"),
		Notes:              f.Value("notes"),
		Items:              lines,
	}
	if method == domain.DeliveryDelivery {
		req.DeliveryAddress = f.Value("delivery_address")
	}
	return req, true
}

func (m cartModel) updateOrdered(msg tea.KeyMsg) (cartModel, tea.Cmd) {
	switch msg.String() {
	case "c":
		if m.order != nil {
			id := fmt.Sprint(m.order.ID)
			return m, func() tea.Msg {
				return orderCopiedMsg{err: clipboard.WriteAll(id)}
			}
		}
	case "esc", "enter":
		m.state = cartBrowsing
		m.order = nil
	}
	return m, nil
}

func (m cartModel) isEditing() bool {
	return m.state == cartCheckout
}

func (m cartModel) total() domain.Money {
	var sum domain.Money
	for _, li := range m.items {
		sum = sum.Add(li.Total())
	}
	return sum
}

func (m cartModel) count() int {
	n := 0
	for _, li := range m.items {
		n += li.Quantity
	}
	return n
}

func (m cartModel) View() string {
	var b strings.Builder

	tier := "saved on this device"
	if m.svc.Cart.Authenticated() {
		tier = "synced with your account"
	}
	b.WriteString(" " + searchStyle.Render("CART") + "  " + dimStyle.Render(tier) + "\n")
	b.WriteString(separator(m.width))

	if m.statusMsg != "" {
		b.WriteString(" " + statusStyle.Render(m.statusMsg) + "\n")
	}

	switch m.state {
	case cartOrdered:
		b.WriteString(m.viewOrdered())
		return b.String()
	case cartCheckout:
		b.WriteString(" " + metaStyle.Render(fmt.Sprintf("%d items · ", m.count())) + priceStyle.Render(formatPrice(m.total())) + "\n\n")
		b.WriteString(m.checkout.View())
		return truncateToHeight(b.String(), m.height)
	}

	if len(m.items) == 0 {
		b.WriteString(" " + dimStyle.Render("your cart is empty. find something in the shop (1)"))
		return b.String()
	}

	nameWidth := max(m.width-40, 14)
	start, end := listWindow(m.cursor, len(m.items), m.height-7)
	for i := start; i < end; i++ {
		li := m.items[i]
		name := li.Product.Name
		if li.Variant != nil && li.Variant.Label() != "" {
			name += " · " + li.Variant.Label()
		}
		line := normalStyle.Render(fmt.Sprintf("%-*s", nameWidth, truncStr(name, nameWidth))) +
			metaStyle.Render(fmt.Sprintf(" %3d × %-12s", li.Quantity, formatPrice(li.UnitPrice()))) +
			priceStyle.Render(fmt.Sprintf("%14s", formatPrice(li.Total())))
		b.WriteString(renderRow(line, i == m.cursor, m.width))
	}

	b.WriteString(separator(m.width))
	b.WriteString(" " + metaStyle.Render(fmt.Sprintf("%d items", m.count())) + "   " +
		selectedStyle.Render("total ") + priceStyle.Render(formatPrice(m.total())) + "\n")

	switch {
	case m.state == cartConfirmClear:
		b.WriteString(" " + errorStyle.Render("empty the cart? y/n") + "\n")
	case m.busy:
		b.WriteString(" " + dimStyle.Render("updating...") + "\n")
	}
	return truncateToHeight(b.String(), m.height)
}

func (m cartModel) viewOrdered() string {
	var b strings.Builder
	b.WriteString("\n " + priceStyle.Render("Order placed!") + "\n\n")
	if m.order != nil {
		b.WriteString(" " + metaStyle.Render("order number ") + selectedStyle.Render(fmt.Sprintf("#%d", m.order.ID)) + "\n")
		b.WriteString(" " + metaStyle.Render("total        ") + priceStyle.Render(formatPrice(m.order.TotalPrice)) + "\n")
		if m.order.DeliveryMethod == domain.DeliveryDelivery && m.order.DeliveryAddress != nil {
			b.WriteString(" " + metaStyle.Render("delivery to  ") + normalStyle.Render(*m.order.DeliveryAddress) + "\n")
		} else {
			b.WriteString(" " + metaStyle.Render("pickup at the studio") + "\n")
		}
	}
	b.WriteString("\n " + dimStyle.Render("we will call you to confirm. track it in the garage (4)") + "\n")
	return b.String()
}

func (m cartModel) helpBar() string {
	switch m.state {
	case cartCheckout:
		return helpEntry("tab", "next field") + "  " + helpEntry("h/l", "delivery") + "  " + helpEntry("ctrl+s", "place order") + "  " + helpEntry("esc", "back")
	case cartConfirmClear:
		return helpEntry("y", "empty cart") + "  " + helpEntry("n", "keep")
	case cartOrdered:
		return helpEntry("c", "copy order number") + "  " + helpEntry("esc", "back")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("+/-", "qty") + "  " + helpEntry("x", "remove") +
		"  " + helpEntry("C", "clear") + "  " + helpEntry("enter", "checkout")
}
