package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tuningstudio/tuning/pkg/domain"
)

var (
	// ErrNoServerItem means no in-memory line carries a server id for the key.
	ErrNoServerItem = errors.New("cart: no server item for line")
	// ErrInvalidItem rejects an add without a product id or a positive quantity.
	ErrInvalidItem = errors.New("cart: product id and positive quantity required")
)

// DefaultTimeout bounds each server-backed operation.
const DefaultTimeout = 10 * time.Second

// Option configures a Cart.
type Option func(*Cart)

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cart) {
		if log != nil {
			c.log = log
		}
	}
}

// WithTimeout bounds each server-backed operation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Cart) { c.timeout = d }
}

// WithClock sets the clock stamping new local lines.
func WithClock(now func() time.Time) Option {
	return func(c *Cart) {
		if now != nil {
			c.now = now
		}
	}
}

type listener struct {
	id int
	fn func([]domain.LineItem)
}

// Cart is the reconciling facade over the local and remote tiers.
//
// Mutations and authentication changes run one at a time under opMu, so
// server round trips complete in issue order. The line items themselves sit
// behind mu, which is never held across a network call; readers do not wait
// on the server.
type Cart struct {
	local   Repository
	remote  RemoteRepository
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time

	opMu sync.Mutex

	mu            sync.RWMutex
	items         []domain.LineItem
	authenticated bool

	subMu     sync.Mutex
	listeners []listener
	nextID    int
}

// New builds an empty anonymous cart. Call Load to read the local slot.
func New(local Repository, remote RemoteRepository, opts ...Option) *Cart {
	c := &Cart{
		local:   local,
		remote:  remote,
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load replaces the in-memory cart with the valid contents of the local slot.
func (c *Cart) Load(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	items, err := c.local.Load(ctx)
	if err != nil {
		return fmt.Errorf("cart.Load: %w", err)
	}
	c.replace(items)
	c.log.Debug("cart_loaded", zap.Int("lines", len(items)))
	return nil
}

// SetAuthenticated is the explicit authentication input. Becoming
// authenticated replaces the cart with the server cart and mirrors it
// locally; becoming anonymous reloads the local slot. Nothing is merged in
// either direction, and reloaded lines lose any server line id. If the
// server cart cannot be fetched the current lines stay and the error is
// returned.
func (c *Cart) SetAuthenticated(ctx context.Context, authenticated bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	was := c.authenticated
	c.authenticated = authenticated
	c.mu.Unlock()

	switch {
	case authenticated && !was:
		sctx, cancel := c.bound(ctx)
		defer cancel()
		items, err := c.remote.Fetch(sctx)
		if err != nil {
			c.log.Warn("cart_server_fetch_failed", zap.Error(err))
			return fmt.Errorf("cart.SetAuthenticated: %w", err)
		}
		c.replace(items)
		c.mirror(ctx)
		c.log.Info("cart_switched_to_server", zap.Int("lines", len(items)))
	case !authenticated && was:
		items, err := c.local.Load(ctx)
		if err != nil {
			c.replace(nil)
			return fmt.Errorf("cart.SetAuthenticated: %w", err)
		}
		// the slot may still hold the signed-in mirror; its server ids
		// mean nothing to an anonymous cart
		stripped := false
		for i := range items {
			if items[i].ID != nil {
				items[i].ID = nil
				stripped = true
			}
		}
		c.replace(items)
		if stripped {
			if err := c.local.Save(ctx, c.Items()); err != nil {
				c.log.Warn("cart_local_save_failed", zap.Error(err))
			}
		}
		c.log.Info("cart_switched_to_local", zap.Int("lines", len(items)))
	}
	return nil
}

// AddItem adds quantity of product (and variant, when not nil). Signed in,
// the server is told and the cart re-read from it; any server failure falls
// back to the local mutation. The returned error only reports a failure to
// persist the local slot while anonymous.
func (c *Cart) AddItem(ctx context.Context, product domain.Product, quantity int, variant *domain.Variant) error {
	if product.ID == 0 || quantity < 1 {
		return ErrInvalidItem
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.Authenticated() {
		var variantID *int64
		if variant != nil {
			id := variant.ID
			variantID = &id
		}
		err := c.serverOp(ctx, "add", func(ctx context.Context) error {
			return c.remote.Add(ctx, product.ID, variantID, quantity)
		})
		if err == nil {
			return nil
		}
	}

	c.mutate(func(items []domain.LineItem) []domain.LineItem {
		key := domain.LineKey{ProductID: product.ID}
		if variant != nil {
			key.VariantID = variant.ID
		}
		for i := range items {
			if items[i].Key() == key {
				items[i].Quantity += quantity
				return items
			}
		}
		var v *domain.Variant
		if variant != nil {
			cp := *variant
			v = &cp
		}
		return append(items, domain.LineItem{
			Product:  product,
			Variant:  v,
			Quantity: quantity,
			AddedAt:  c.now().UTC(),
		})
	})
	return c.persist(ctx)
}

// RemoveItem drops the line keyed exactly by productID/variantID. A zero
// variantID names the variant-less line only, never other variants of the
// product. itemID, when non-zero, names the server line directly.
func (c *Cart) RemoveItem(ctx context.Context, productID, variantID, itemID int64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.removeLocked(ctx, productID, variantID, itemID)
}

// UpdateQuantity sets the quantity of one line. A quantity of zero or less
// removes the line.
func (c *Cart) UpdateQuantity(ctx context.Context, productID int64, quantity int, variantID, itemID int64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if quantity <= 0 {
		return c.removeLocked(ctx, productID, variantID, itemID)
	}

	if c.Authenticated() {
		if id, err := c.serverItemID(productID, variantID, itemID); err == nil {
			err = c.serverOp(ctx, "update", func(ctx context.Context) error {
				return c.remote.UpdateQuantity(ctx, id, quantity)
			})
			if err == nil {
				return nil
			}
		} else {
			c.log.Debug("cart_update_local_only", zap.Int64("product_id", productID), zap.Error(err))
		}
	}

	c.mutate(func(items []domain.LineItem) []domain.LineItem {
		if i := findLine(items, productID, variantID, itemID); i >= 0 {
			items[i].Quantity = quantity
		}
		return items
	})
	return c.persist(ctx)
}

// Clear empties the cart and erases the local slot. Signed in, the server
// cart is cleared first on a best-effort basis.
func (c *Cart) Clear(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.Authenticated() {
		sctx, cancel := c.bound(ctx)
		if err := c.remote.Clear(sctx); err != nil {
			c.log.Warn("cart_server_clear_failed", zap.Error(err))
		}
		cancel()
	}
	c.replace(nil)
	if err := c.local.Clear(ctx); err != nil {
		return fmt.Errorf("cart.Clear: %w", err)
	}
	return nil
}

// Items returns a copy of the current lines in insertion order.
func (c *Cart) Items() []domain.LineItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyLines(c.items)
}

// TotalItems is the sum of quantities.
func (c *Cart) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, li := range c.items {
		n += li.Quantity
	}
	return n
}

// TotalPrice is the sum of unit price × quantity.
func (c *Cart) TotalPrice() domain.Money {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := domain.NewMoney(0)
	for _, li := range c.items {
		total = total.Add(li.Total())
	}
	return total
}

// IsInCart reports whether a line matches. A zero variantID matches any
// line of the product.
func (c *Cart) IsInCart(productID, variantID int64) bool {
	return c.ItemQuantity(productID, variantID) > 0
}

// ItemQuantity returns the quantity of the first matching line, or 0.
func (c *Cart) ItemQuantity(productID, variantID int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, li := range c.items {
		if li.Matches(productID, variantID) {
			return li.Quantity
		}
	}
	return 0
}

// Authenticated reports which tier is authoritative.
func (c *Cart) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// Subscribe registers fn to receive the lines after every change. fn runs
// synchronously and must not call mutating Cart methods.
func (c *Cart) Subscribe(fn func([]domain.LineItem)) func() {
	c.subMu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener{id: id, fn: fn})
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Cart) removeLocked(ctx context.Context, productID, variantID, itemID int64) error {
	if c.Authenticated() {
		if id, err := c.serverItemID(productID, variantID, itemID); err == nil {
			err = c.serverOp(ctx, "remove", func(ctx context.Context) error {
				return c.remote.Remove(ctx, id)
			})
			if err == nil {
				return nil
			}
		} else {
			c.log.Debug("cart_remove_local_only", zap.Int64("product_id", productID), zap.Error(err))
		}
	}

	c.mutate(func(items []domain.LineItem) []domain.LineItem {
		if i := findLine(items, productID, variantID, itemID); i >= 0 {
			return append(items[:i], items[i+1:]...)
		}
		return items
	})
	return c.persist(ctx)
}

// serverOp runs mutate against the server and then replaces the cart with
// the server's copy, all within one bounded context. A non-nil error means
// the caller should fall back to the local path.
func (c *Cart) serverOp(ctx context.Context, op string, mutate func(context.Context) error) error {
	sctx, cancel := c.bound(ctx)
	defer cancel()

	if err := mutate(sctx); err != nil {
		c.log.Warn("cart_server_"+op+"_failed", zap.Error(err))
		return err
	}
	items, err := c.remote.Fetch(sctx)
	if err != nil {
		c.log.Warn("cart_server_refetch_failed", zap.String("op", op), zap.Error(err))
		return err
	}
	c.replace(items)
	c.mirror(ctx)
	return nil
}

func (c *Cart) serverItemID(productID, variantID, itemID int64) (int64, error) {
	if itemID != 0 {
		return itemID, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := findLine(c.items, productID, variantID, 0); i >= 0 && c.items[i].ID != nil {
		return *c.items[i].ID, nil
	}
	return 0, ErrNoServerItem
}

func (c *Cart) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// persist writes the lines to the local slot. Anonymous, the slot is the
// cart and failures are returned; signed in, it is only a mirror.
func (c *Cart) persist(ctx context.Context) error {
	if c.Authenticated() {
		c.mirror(ctx)
		return nil
	}
	if err := c.local.Save(ctx, c.Items()); err != nil {
		c.log.Error("cart_local_save_failed", zap.Error(err))
		return fmt.Errorf("cart.persist: %w", err)
	}
	return nil
}

func (c *Cart) mirror(ctx context.Context) {
	if err := c.local.Save(ctx, c.Items()); err != nil {
		c.log.Warn("cart_local_mirror_failed", zap.Error(err))
	}
}

func (c *Cart) replace(items []domain.LineItem) {
	c.mu.Lock()
	c.items = copyLines(items)
	c.mu.Unlock()
	c.notify()
}

func (c *Cart) mutate(fn func([]domain.LineItem) []domain.LineItem) {
	c.mu.Lock()
	c.items = fn(c.items)
	c.mu.Unlock()
	c.notify()
}

func (c *Cart) notify() {
	items := c.Items()
	c.subMu.Lock()
	ls := append([]listener(nil), c.listeners...)
	c.subMu.Unlock()
	for _, l := range ls {
		l.fn(items)
	}
}

// findLine locates the line a write addresses: the server line itemID
// when present, else the exact key. A zero variant is not a wildcard here.
func findLine(items []domain.LineItem, productID, variantID, itemID int64) int {
	if itemID != 0 {
		for i, li := range items {
			if li.ID != nil && *li.ID == itemID {
				return i
			}
		}
	}
	exact := domain.LineKey{ProductID: productID, VariantID: variantID}
	for i, li := range items {
		if li.Key() == exact {
			return i
		}
	}
	return -1
}

func copyLines(items []domain.LineItem) []domain.LineItem {
	if len(items) == 0 {
		return []domain.LineItem{}
	}
	return append([]domain.LineItem(nil), items...)
}
