package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuningstudio/tuning/internal/browser"
	"github.com/tuningstudio/tuning/internal/query"
	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

type shopLevel int

const (
	shopLevelShops shopLevel = iota
	shopLevelProducts
	shopLevelDetail
)

type shopModel struct {
	svc   *Services
	level shopLevel

	shops      []domain.Shop
	shopCursor int

	brand         string // shop slug; "" lists every product
	brandName     string
	categories    []domain.Category
	category      string // category slug; "" is every category
	products      []domain.Product
	productCursor int
	search        string
	editing       bool

	product    *domain.Product
	variantIdx int
	qty        int

	loading   bool
	adding    bool
	err       error
	statusMsg string
	width     int
	height    int
}

type shopsLoadedMsg struct {
	shops []domain.Shop
	err   error
}

type categoriesLoadedMsg struct {
	categories []domain.Category
	err        error
}

type productsLoadedMsg struct {
	brand    string
	category string
	search   string
	products []domain.Product
	err      error
}

type productLoadedMsg struct {
	product *domain.Product
	err     error
}

type cartAddedMsg struct {
	name string
	qty  int
	err  error
}

type copyResultMsg struct{ err error }

func newShopModel(svc *Services) shopModel {
	return shopModel{svc: svc, loading: true, qty: 1}
}

func (m shopModel) Init() tea.Cmd {
	return tea.Batch(m.loadShops(), m.loadCategories())
}

func (m shopModel) loadCategories() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		cats, err := fetch(svc, "categories", svc.Client.ListCategories)
		return categoriesLoadedMsg{categories: cats, err: err}
	}
}

func (m shopModel) loadShops() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		shops, err := fetch(svc, "shops", svc.Client.ListShops)
		return shopsLoadedMsg{shops: shops, err: err}
	}
}

func (m shopModel) loadProducts() tea.Cmd {
	svc, brand, category, search := m.svc, m.brand, m.category, m.search
	return func() tea.Msg {
		products, err := fetch(svc, query.Key("products", brand, category, search), func(ctx context.Context) ([]domain.Product, error) {
			return svc.Client.ListProducts(ctx, client.ProductFilter{Brand: brand, Category: category, Search: search})
		})
		return productsLoadedMsg{brand: brand, category: category, search: search, products: products, err: err}
	}
}

func (m shopModel) loadProduct(id int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		p, err := fetch(svc, query.Key("product", id), func(ctx context.Context) (*domain.Product, error) {
			return svc.Client.GetProduct(ctx, id)
		})
		return productLoadedMsg{product: p, err: err}
	}
}

func (m shopModel) reload() tea.Cmd {
	switch m.level {
	case shopLevelProducts:
		m.svc.invalidate(query.Key("products", m.brand, m.category, m.search))
		return m.loadProducts()
	case shopLevelDetail:
		if m.product != nil {
			m.svc.invalidate(query.Key("product", m.product.ID))
			return m.loadProduct(m.product.ID)
		}
		return nil
	default:
		m.svc.invalidate("shops")
		return m.loadShops()
	}
}

func (m shopModel) Update(msg tea.Msg) (shopModel, tea.Cmd) {
	switch msg := msg.(type) {
	case shopsLoadedMsg:
		m.loading = false
		m.shops = msg.shops
		m.err = msg.err
		m.shopCursor = clampCursor(m.shopCursor, len(m.shops))
		return m, nil

	case categoriesLoadedMsg:
		// the filter is optional; a failed load just leaves it empty
		if msg.err == nil {
			m.categories = msg.categories
		}
		return m, nil

	case productsLoadedMsg:
		if msg.brand != m.brand || msg.category != m.category || msg.search != m.search {
			return m, nil // stale response for an earlier filter
		}
		m.loading = false
		m.products = msg.products
		m.err = msg.err
		m.productCursor = clampCursor(m.productCursor, len(m.products))
		return m, nil

	case productLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.product = msg.product
			m.variantIdx = clampCursor(m.variantIdx, len(msg.product.Variants))
		}
		return m, nil

	case cartAddedMsg:
		m.adding = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("add failed: %v", msg.err)
		} else {
			m.statusMsg = fmt.Sprintf("added %d × %s", msg.qty, msg.name)
			m.qty = 1
		}
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("copy failed: %v", msg.err)
		} else {
			m.statusMsg = "link copied!"
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		if m.editing {
			return m.updateSearch(msg)
		}
		switch m.level {
		case shopLevelDetail:
			return m.updateDetail(msg)
		case shopLevelProducts:
			return m.updateProducts(msg)
		default:
			return m.updateShops(msg)
		}
	}
	return m, nil
}

func (m shopModel) updateSearch(msg tea.KeyMsg) (shopModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.editing = false
		m.loading = true
		m.productCursor = 0
		return m, m.loadProducts()
	case "esc":
		m.editing = false
		m.search = ""
		m.loading = true
		return m, m.loadProducts()
	default:
		m.search = editKey(m.search, msg)
	}
	return m, nil
}

func (m shopModel) updateShops(msg tea.KeyMsg) (shopModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.shopCursor < len(m.shops)-1 {
			m.shopCursor++
		}
	case "k", "up":
		if m.shopCursor > 0 {
			m.shopCursor--
		}
	case "enter":
		if m.shopCursor < len(m.shops) {
			s := m.shops[m.shopCursor]
			return m.openProducts(s.Slug, s.Name)
		}
	case "a":
		return m.openProducts("", "All products")
	case "/":
		next, cmd := m.openProducts("", "All products")
		next.editing = true
		return next, cmd
	case "r":
		m.loading = true
		return m, m.reload()
	}
	return m, nil
}

func (m shopModel) openProducts(brand, name string) (shopModel, tea.Cmd) {
	m.level = shopLevelProducts
	m.brand = brand
	m.brandName = name
	m.search = ""
	m.category = ""
	m.products = nil
	m.productCursor = 0
	m.loading = true
	m.err = nil
	return m, m.loadProducts()
}

func (m shopModel) updateProducts(msg tea.KeyMsg) (shopModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.productCursor < len(m.products)-1 {
			m.productCursor++
		}
	case "k", "up":
		if m.productCursor > 0 {
			m.productCursor--
		}
	case "enter":
		if m.productCursor < len(m.products) {
			p := m.products[m.productCursor]
			m.level = shopLevelDetail
			m.product = &p
			m.variantIdx = 0
			m.qty = 1
			m.loading = true
			return m, m.loadProduct(p.ID)
		}
	case "/":
		m.editing = true
	case "t", "T":
		if len(m.categories) == 0 {
			m.statusMsg = "no categories to filter by"
			return m, nil
		}
		step := 1
		if msg.String() == "T" {
			step = -1
		}
		m.category = m.nextCategory(step)
		m.productCursor = 0
		m.loading = true
		return m, m.loadProducts()
	case "esc":
		m.level = shopLevelShops
		m.err = nil
	case "r":
		m.loading = true
		return m, m.reload()
	}
	return m, nil
}

func (m shopModel) updateDetail(msg tea.KeyMsg) (shopModel, tea.Cmd) {
	if m.product == nil {
		if msg.String() == "esc" {
			m.level = shopLevelProducts
		}
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.level = shopLevelProducts
		m.err = nil
	case "v", "right":
		if n := len(m.product.Variants); n > 0 {
			m.variantIdx = (m.variantIdx + 1) % n
		}
	case "V", "left":
		if n := len(m.product.Variants); n > 0 {
			m.variantIdx = (m.variantIdx - 1 + n) % n
		}
	case "+", "=":
		m.qty++
	case "-":
		if m.qty > 1 {
			m.qty--
		}
	case "a", "enter":
		if m.adding {
			return m, nil
		}
		m.adding = true
		return m, m.addToCart()
	case "c":
		link := m.productURL()
		return m, func() tea.Msg {
			return copyResultMsg{err: clipboard.WriteAll(link)}
		}
	case "o":
		link := m.productURL()
		return m, func() tea.Msg {
			_ = browser.Open(link)
			return nil
		}
	case "r":
		m.loading = true
		return m, m.reload()
	}
	return m, nil
}

// nextCategory steps through "", then every category slug, and wraps.
func (m shopModel) nextCategory(step int) string {
	slugs := make([]string, 0, len(m.categories)+1)
	slugs = append(slugs, "")
	for _, c := range m.categories {
		slugs = append(slugs, c.Slug)
	}
	return cycle(slugs, m.category, step)
}

func (m shopModel) categoryName() string {
	for _, c := range m.categories {
		if c.Slug == m.category {
			return c.Name
		}
	}
	return "all types"
}

func (m shopModel) selectedVariant() *domain.Variant {
	if m.product == nil || len(m.product.Variants) == 0 {
		return nil
	}
	v := m.product.Variants[m.variantIdx]
	return &v
}

func (m shopModel) addToCart() tea.Cmd {
	svc, product, variant, qty := m.svc, *m.product, m.selectedVariant(), m.qty
	return func() tea.Msg {
		err := svc.Cart.AddItem(context.Background(), product, qty, variant)
		return cartAddedMsg{name: product.Name, qty: qty, err: err}
	}
}

func (m shopModel) productURL() string {
	return browser.Join(m.svc.SiteURL, "shop", "product", fmt.Sprint(m.product.ID))
}

// isEditing reports whether the page is capturing text input.
func (m shopModel) isEditing() bool {
	return m.editing
}

func (m shopModel) View() string {
	var b strings.Builder

	crumb := " " + searchStyle.Render("SHOP")
	if m.level >= shopLevelProducts {
		crumb += dimStyle.Render(" / ") + normalStyle.Render(m.brandName)
	}
	if m.level == shopLevelProducts && len(m.categories) > 0 {
		crumb += "  " + dimStyle.Render("["+m.categoryName()+"]") + " " + helpKeyStyle.Render("t")
	}
	if m.level == shopLevelDetail && m.product != nil {
		crumb += dimStyle.Render(" / ") + normalStyle.Render(truncStr(m.product.Name, 40))
	}
	b.WriteString(crumb + "\n")

	if m.level == shopLevelProducts {
		switch {
		case m.editing:
			b.WriteString(" " + searchStyle.Render("/ "+m.search+"█") + "\n")
		case m.search != "":
			b.WriteString(" " + searchStyle.Render("/ "+m.search) + "\n")
		default:
			b.WriteString(" " + dimStyle.Render("/ search...") + "\n")
		}
	}
	b.WriteString(separator(m.width))

	if m.statusMsg != "" {
		b.WriteString(" " + statusStyle.Render(m.statusMsg) + "\n")
	}

	if m.loading && (m.level != shopLevelDetail || m.product == nil) {
		b.WriteString(" " + dimStyle.Render("loading..."))
		return b.String()
	}
	if m.err != nil {
		b.WriteString(" " + errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		return b.String()
	}

	switch m.level {
	case shopLevelDetail:
		b.WriteString(m.viewDetail())
	case shopLevelProducts:
		b.WriteString(m.viewProducts())
	default:
		b.WriteString(m.viewShops())
	}
	return truncateToHeight(b.String(), m.height)
}

func (m shopModel) viewShops() string {
	if len(m.shops) == 0 {
		return " " + dimStyle.Render("no shops yet")
	}
	var b strings.Builder
	start, end := listWindow(m.shopCursor, len(m.shops), m.height-6)
	for i := start; i < end; i++ {
		s := m.shops[i]
		line := normalStyle.Render(fmt.Sprintf("%-24s", truncStr(s.Name, 24)))
		if s.Description != "" {
			line += " " + metaStyle.Render(truncStr(cleanTitle(s.Description), max(m.width-32, 10)))
		}
		b.WriteString(renderRow(line, i == m.shopCursor, m.width))
	}
	b.WriteString("\n " + dimStyle.Render("a: all products  /: search everything"))
	return b.String()
}

func (m shopModel) viewProducts() string {
	if len(m.products) == 0 {
		if m.search != "" {
			return " " + dimStyle.Render("nothing matches \""+m.search+"\"")
		}
		return " " + dimStyle.Render("no products in this shop")
	}
	var b strings.Builder
	nameWidth := max(m.width-30, 12)
	start, end := listWindow(m.productCursor, len(m.products), m.height-7)
	for i := start; i < end; i++ {
		p := m.products[i]
		line := normalStyle.Render(fmt.Sprintf("%-*s", nameWidth, truncStr(p.Name, nameWidth)))
		line += " " + priceStyle.Render(fmt.Sprintf("%12s", formatPrice(p.Price)))
		if n := m.svc.Cart.ItemQuantity(p.ID, 0); n > 0 {
			line += " " + badgeStyle.Render(fmt.Sprintf("×%d", n))
		}
		b.WriteString(renderRow(line, i == m.productCursor, m.width))
	}
	return b.String()
}

func (m shopModel) viewDetail() string {
	p := m.product
	if p == nil {
		return ""
	}
	var b strings.Builder
	variant := m.selectedVariant()
	unit := domain.LineItem{Product: *p, Variant: variant}.UnitPrice()

	b.WriteString(" " + selectedStyle.Render(p.Name) + "\n")
	meta := formatPrice(unit)
	if p.Category != nil && p.Category.Name != "" {
		meta += metaStyle.Render("  · " + p.Category.Name)
	}
	b.WriteString(" " + priceStyle.Render(meta) + "\n\n")

	if p.Description != "" {
		for _, line := range wrapText(p.Description, max(m.width-4, 20)) {
			b.WriteString(" " + commentTextStyle.Render(line) + "\n")
		}
		b.WriteString("\n")
	}

	if len(p.Variants) > 0 {
		b.WriteString(" " + sectionHeaderStyle.Render("── VARIANTS ──") + "\n")
		for i, v := range p.Variants {
			label := v.Label()
			if label == "" {
				label = fmt.Sprintf("#%d", v.ID)
			}
			if v.FinalPrice != nil && !v.FinalPrice.IsZero() {
				label += "  " + formatPrice(*v.FinalPrice)
			}
			if i == m.variantIdx {
				b.WriteString(" " + accentStyle.Render("▸ ") + selectedStyle.Render(label) + "\n")
			} else {
				b.WriteString("   " + dimStyle.Render(label) + "\n")
			}
		}
		b.WriteString("\n")
	}

	var variantID int64
	if variant != nil {
		variantID = variant.ID
	}
	b.WriteString(" " + metaStyle.Render("quantity ") + selectedStyle.Render(fmt.Sprintf("%d", m.qty)))
	if n := m.svc.Cart.ItemQuantity(p.ID, variantID); n > 0 {
		b.WriteString("   " + badgeStyle.Render(fmt.Sprintf("%d in cart", n)))
	}
	b.WriteString("\n")
	if m.adding {
		b.WriteString(" " + dimStyle.Render("adding...") + "\n")
	}
	return b.String()
}

func (m shopModel) helpBar() string {
	switch {
	case m.editing:
		return helpEntry("enter", "search") + "  " + helpEntry("esc", "clear")
	case m.level == shopLevelDetail:
		return helpEntry("v", "variant") + "  " + helpEntry("+/-", "qty") + "  " + helpEntry("a", "add to cart") +
			"  " + helpEntry("c", "copy link") + "  " + helpEntry("o", "open") + "  " + helpEntry("esc", "back")
	case m.level == shopLevelProducts:
		return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "view") + "  " + helpEntry("/", "search") +
			"  " + helpEntry("t", "type") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("esc", "shops")
	default:
		return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("a", "all") + "  " + helpEntry("r", "refresh")
	}
}
