package cart

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuningstudio/tuning/internal/apitest"
	"github.com/tuningstudio/tuning/internal/storage"
	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

const userID = 7

var tee = domain.Product{ID: 3, Name: "Tee", Price: domain.NewMoney(30), Variants: []domain.Variant{*sizeS, *sizeM}}

type fixture struct {
	srv   *apitest.Server
	api   *client.Client
	slots *storage.MemorySlots
	cart  *Cart
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("secret", domain.User{ID: userID, Username: "alex"})
	srv.AddProduct(hoodie)
	srv.AddProduct(beanie)
	srv.AddProduct(tee)

	api := client.New(srv.URL(), client.WithTimeout(2*time.Second))
	_, err := api.Login(context.Background(), client.Credentials{Username: "alex", Password: "secret"})
	require.NoError(t, err)

	slots := storage.NewMemorySlots()
	c := New(NewLocalCartStore(slots, slot, nil), NewRemoteCartStore(api), opts...)
	require.NoError(t, c.Load(context.Background()))
	return &fixture{srv: srv, api: api, slots: slots, cart: c}
}

func seedLine(id int64, p domain.Product, qty int) domain.ServerCartItem {
	return domain.ServerCartItem{ID: id, Product: p, Quantity: qty, CreatedAt: time.Now().UTC()}
}

func TestSignInReplacesWithServerCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.AddItem(ctx, hoodie, 5, nil))
	f.srv.SeedCart(userID, seedLine(501, beanie, 2))

	require.NoError(t, f.cart.SetAuthenticated(ctx, true))

	items := f.cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, beanie.ID, items[0].Product.ID)
	assert.Equal(t, 2, items[0].Quantity)
	require.NotNil(t, items[0].ID)
	assert.Equal(t, int64(501), *items[0].ID)
	assert.False(t, f.cart.IsInCart(hoodie.ID, 0))
	assert.Len(t, f.srv.CartItems(userID), 1, "local lines must not be pushed to the server")

	mirrored, err := NewLocalCartStore(f.slots, slot, nil).Load(ctx)
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
	assert.Equal(t, beanie.ID, mirrored[0].Product.ID)
}

func TestSignOutReloadsLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.SeedCart(userID, seedLine(501, beanie, 2))
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))

	require.NoError(t, f.slots.Put(ctx, slot, []byte(`[{"product":{"id":1,"price":"100"},"variant":null,"quantity":1}]`)))
	require.NoError(t, f.cart.SetAuthenticated(ctx, false))

	assert.False(t, f.cart.Authenticated())
	assert.Equal(t, 1, f.cart.ItemQuantity(hoodie.ID, 0))
	assert.False(t, f.cart.IsInCart(beanie.ID, 0))
}

func TestSignOutDropsServerLineIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.SeedCart(userID, seedLine(501, beanie, 2), seedLine(502, hoodie, 1))
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))
	for _, li := range f.cart.Items() {
		require.NotNil(t, li.ID)
	}

	// the mirror written while signed in becomes the anonymous cart
	require.NoError(t, f.cart.SetAuthenticated(ctx, false))
	items := f.cart.Items()
	require.Len(t, items, 2)
	for _, li := range items {
		assert.Nil(t, li.ID, "product %d", li.Product.ID)
	}

	saved, err := NewLocalCartStore(f.slots, slot, nil).Load(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	for _, li := range saved {
		assert.Nil(t, li.ID)
	}

	// a later sign-in still addresses server lines by their fresh ids
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))
	require.NoError(t, f.cart.RemoveItem(ctx, beanie.ID, 0, 0))
	assert.Len(t, f.srv.CartItems(userID), 1)
}

func TestSignInFetchFailureKeepsLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.AddItem(ctx, hoodie, 1, nil))
	f.srv.Fail(http.MethodGet, "/shop/cart/", http.StatusBadGateway)

	err := f.cart.SetAuthenticated(ctx, true)
	assert.True(t, client.IsStatus(err, http.StatusBadGateway))
	assert.True(t, f.cart.Authenticated())
	assert.Equal(t, 1, f.cart.ItemQuantity(hoodie.ID, 0))
}

func TestServerAddRefetches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))

	require.NoError(t, f.cart.AddItem(ctx, hoodie, 1, nil))
	require.NoError(t, f.cart.AddItem(ctx, hoodie, 2, nil))

	server := f.srv.CartItems(userID)
	require.Len(t, server, 1)
	assert.Equal(t, 3, server[0].Quantity)

	items := f.cart.Items()
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ID)
	assert.Equal(t, server[0].ID, *items[0].ID)
	assert.Equal(t, "300.00", f.cart.TotalPrice().String())

	calls := f.srv.Calls()
	assert.Equal(t, "GET /shop/cart/", calls[len(calls)-1])
}

func TestServerVariantAdd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))
	tee := domain.Product{ID: 3, Price: domain.NewMoney(30)}

	require.NoError(t, f.cart.AddItem(ctx, tee, 1, sizeS))
	require.NoError(t, f.cart.AddItem(ctx, tee, 1, sizeM))

	assert.Len(t, f.srv.CartItems(userID), 2)
	assert.Equal(t, 2, f.cart.TotalItems())
	assert.Equal(t, 1, f.cart.ItemQuantity(3, sizeM.ID))
}

func TestServerUpdateAndRemoveUseLineID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.SeedCart(userID, seedLine(501, hoodie, 1), seedLine(502, beanie, 1))
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))

	require.NoError(t, f.cart.UpdateQuantity(ctx, hoodie.ID, 4, 0, 0))
	assert.Contains(t, f.srv.Calls(), "PATCH /shop/cart/items/501/")
	assert.Equal(t, 4, f.cart.ItemQuantity(hoodie.ID, 0))

	require.NoError(t, f.cart.RemoveItem(ctx, beanie.ID, 0, 0))
	assert.Contains(t, f.srv.Calls(), "DELETE /shop/cart/items/502/")
	assert.Len(t, f.srv.CartItems(userID), 1)

	require.NoError(t, f.cart.UpdateQuantity(ctx, hoodie.ID, 0, 0, 501))
	assert.Empty(t, f.srv.CartItems(userID))
	assert.Empty(t, f.cart.Items())
}

func TestServerFallbackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))
	f.srv.Fail(http.MethodPost, "/shop/cart/add_item/", http.StatusInternalServerError)

	require.NoError(t, f.cart.AddItem(ctx, hoodie, 2, nil))

	assert.Equal(t, 2, f.cart.ItemQuantity(hoodie.ID, 0))
	assert.Empty(t, f.srv.CartItems(userID))

	mirrored, err := NewLocalCartStore(f.slots, slot, nil).Load(ctx)
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
}

func TestServerRemoveFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.SeedCart(userID, seedLine(501, hoodie, 1))
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))
	f.srv.Fail("", "/shop/cart/items/", http.StatusInternalServerError)

	require.NoError(t, f.cart.RemoveItem(ctx, hoodie.ID, 0, 0))
	assert.False(t, f.cart.IsInCart(hoodie.ID, 0))
}

func TestServerTimeoutFallsBack(t *testing.T) {
	f := newFixture(t, WithTimeout(50*time.Millisecond))
	ctx := context.Background()
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))
	f.srv.Stall(http.MethodPost, "/shop/cart/add_item/", time.Second)

	start := time.Now()
	require.NoError(t, f.cart.AddItem(ctx, beanie, 1, nil))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, f.cart.ItemQuantity(beanie.ID, 0))
}

func TestServerClearIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.srv.SeedCart(userID, seedLine(501, hoodie, 1))
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))
	f.srv.Fail(http.MethodDelete, "/shop/cart/clear/", http.StatusInternalServerError)

	require.NoError(t, f.cart.Clear(ctx))
	assert.Empty(t, f.cart.Items())
	_, err := f.slots.Get(ctx, slot)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	f.srv.Heal()
	require.NoError(t, f.cart.Clear(ctx))
	assert.Empty(t, f.srv.CartItems(userID))
}

func TestServerOpsAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.SetAuthenticated(ctx, true))

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() { done <- f.cart.AddItem(ctx, hoodie, 1, nil) }()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, 10, f.cart.ItemQuantity(hoodie.ID, 0))
	assert.Equal(t, 10, f.srv.CartItems(userID)[0].Quantity)
}

func TestVariantlessWritesMatchOnBothPaths(t *testing.T) {
	ctx := context.Background()
	anon := newFixture(t)
	signed := newFixture(t)
	require.NoError(t, signed.cart.SetAuthenticated(ctx, true))

	for _, f := range []*fixture{anon, signed} {
		require.NoError(t, f.cart.AddItem(ctx, tee, 1, sizeS))
		require.NoError(t, f.cart.AddItem(ctx, tee, 2, sizeM))
	}
	require.Len(t, signed.srv.CartItems(userID), 2)

	for name, f := range map[string]*fixture{"anonymous": anon, "signed in": signed} {
		require.NoError(t, f.cart.RemoveItem(ctx, tee.ID, 0, 0), name)
		require.NoError(t, f.cart.UpdateQuantity(ctx, tee.ID, 0, 0, 0), name)
		require.NoError(t, f.cart.UpdateQuantity(ctx, tee.ID, 5, 0, 0), name)

		items := f.cart.Items()
		require.Len(t, items, 2, name)
		assert.Equal(t, 1, f.cart.ItemQuantity(tee.ID, sizeS.ID), name)
		assert.Equal(t, 2, f.cart.ItemQuantity(tee.ID, sizeM.ID), name)
	}
	assert.Len(t, signed.srv.CartItems(userID), 2)

	// a concrete variant removes just that line on either path
	for name, f := range map[string]*fixture{"anonymous": anon, "signed in": signed} {
		require.NoError(t, f.cart.RemoveItem(ctx, tee.ID, sizeS.ID, 0), name)
		assert.False(t, f.cart.IsInCart(tee.ID, sizeS.ID), name)
		assert.Equal(t, 2, f.cart.ItemQuantity(tee.ID, sizeM.ID), name)
	}
	assert.Len(t, signed.srv.CartItems(userID), 1)
}
