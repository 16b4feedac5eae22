package apitest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

func newFixture(t *testing.T) (*Server, *client.Client) {
	t.Helper()
	srv := New()
	t.Cleanup(srv.Close)
	srv.AddUser("secret", domain.User{ID: 7, Username: "alex", Email: "alex@example.com"})
	srv.AddProduct(domain.Product{ID: 1, Name: "Hoodie", Price: domain.NewMoney(100)})
	return srv, client.New(srv.URL(), client.WithTimeout(2*time.Second))
}

func TestLoginStartsSession(t *testing.T) {
	_, c := newFixture(t)
	ctx := context.Background()

	_, err := c.Me(ctx)
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))

	u, err := c.Login(ctx, client.Credentials{Username: "alex", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.True(t, c.HasSession())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alex", me.Username)

	require.NoError(t, c.Logout(ctx))
	_, err = c.Me(ctx)
	assert.True(t, client.IsUnauthorized(err))
}

func TestLoginWrongPassword(t *testing.T) {
	_, c := newFixture(t)
	_, err := c.Login(context.Background(), client.Credentials{Username: "alex", Password: "nope"})
	apiErr := client.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid username or password.", apiErr.General())
}

func TestRegisterFieldErrors(t *testing.T) {
	_, c := newFixture(t)
	_, err := c.Register(context.Background(), client.Registration{Username: "alex", Email: "bad"})
	apiErr := client.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, "A user with that username already exists.", apiErr.Field("username"))
	assert.Equal(t, "Enter a valid email address.", apiErr.Field("email"))
}

func TestCartMergesSameLine(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()
	_, err := c.Login(ctx, client.Credentials{Username: "alex", Password: "secret"})
	require.NoError(t, err)

	require.NoError(t, c.AddCartItem(ctx, 1, nil, 1))
	require.NoError(t, c.AddCartItem(ctx, 1, nil, 2))

	cart, err := c.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "300.00", cart.TotalPrice.String())

	require.NoError(t, c.UpdateCartItem(ctx, cart.Items[0].ID, 0))
	assert.Empty(t, srv.CartItems(7))
}

func TestFailAndHeal(t *testing.T) {
	srv, c := newFixture(t)
	ctx := context.Background()
	_, err := c.Login(ctx, client.Credentials{Username: "alex", Password: "secret"})
	require.NoError(t, err)

	srv.Fail(http.MethodGet, "/shop/cart/", http.StatusInternalServerError)
	_, err = c.GetCart(ctx)
	assert.True(t, client.IsStatus(err, http.StatusInternalServerError))

	srv.Heal()
	_, err = c.GetCart(ctx)
	assert.NoError(t, err)
	assert.Contains(t, srv.Calls(), "GET /shop/cart/")
}

func TestStallHonoursContext(t *testing.T) {
	srv, c := newFixture(t)
	srv.Stall("", "/shop/products/", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.ListProducts(ctx, client.ProductFilter{})
	assert.Error(t, err)
}
