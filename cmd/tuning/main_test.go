package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tuningstudio/tuning/internal/apitest"
	"github.com/tuningstudio/tuning/internal/config"
	"github.com/tuningstudio/tuning/internal/storage"
	"github.com/tuningstudio/tuning/pkg/domain"
)

var testHoodie = domain.Product{ID: 1, Name: "Studio Hoodie", Price: domain.NewMoney(3500)}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API:     config.APIConfig{BaseURL: baseURL, Timeout: 2 * time.Second, RequestTimeout: 2 * time.Second},
		Cart:    config.SlotConfig{Slot: "cart"},
		Session: config.SlotConfig{Slot: "session"},
		Query:   config.QueryConfig{TTL: time.Minute},
		Site:    config.SiteConfig{URL: "https://tuning.example"},
	}
}

func newServer(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("secret", domain.User{ID: 7, Username: "alex", FirstName: "Alex"})
	srv.AddProduct(testHoodie)
	return srv
}

func TestReadPassword(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"line", "hunter2\n", "hunter2", false},
		{"crlf", "hunter2\r\n", "hunter2", false},
		{"no newline", "hunter2", "hunter2", false},
		{"first line only", "one\ntwo\n", "one", false},
		{"keeps spaces", "  pw  \n", "  pw  ", false},
		{"empty", "\n", "", true},
		{"eof", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPassword(strings.NewReader(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintCart(t *testing.T) {
	var buf bytes.Buffer
	printCart(&buf, nil, false)
	assert.Equal(t, "your cart is empty\n", buf.String())

	buf.Reset()
	printCart(&buf, []domain.LineItem{
		{Product: testHoodie, Variant: &domain.Variant{ID: 5, Size: "M"}, Quantity: 2},
		{Product: domain.Product{ID: 2, Name: "Decal Pack", Price: domain.NewMoney(300)}, Quantity: 1},
	}, true)
	out := buf.String()
	assert.Contains(t, out, "synced with your account")
	assert.Contains(t, out, "Studio Hoodie · M")
	assert.Contains(t, out, "7000.00")
	assert.Contains(t, out, "3 items, total 7300.00 ₽")
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	printHelp(&buf)
	for _, cmd := range []string{"tuning login <user>", "tuning logout", "tuning cart", "tuning version"} {
		assert.Contains(t, buf.String(), cmd)
	}
}

func TestSignOffPicksKnownLine(t *testing.T) {
	got := signOff()
	assert.Contains(t, signOffs[:], got)
}

func TestLoginPersistsAcrossRestart(t *testing.T) {
	srv := newServer(t)
	srv.SeedCart(7, domain.ServerCartItem{ID: 11, Product: testHoodie, Quantity: 2, CreatedAt: time.Now().UTC()})
	cfg := testConfig(srv.URL())
	slots := storage.NewMemorySlots()
	ctx := context.Background()

	first, err := wire(ctx, cfg, slots, zap.NewNop())
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, runLogin(ctx, first, &out, "alex", strings.NewReader("secret\n")))
	assert.Contains(t, out.String(), "signed in as Alex (@alex)")
	assert.Contains(t, out.String(), "2 items waiting")
	assert.True(t, first.cart.Authenticated(), "cart follows the session")

	second, err := wire(ctx, cfg, slots, zap.NewNop())
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, runCart(ctx, second, &out))
	assert.True(t, second.session.IsAuthenticated(), "saved cookies restore the session")
	assert.Contains(t, out.String(), "synced with your account")
	assert.Contains(t, out.String(), "Studio Hoodie")

	out.Reset()
	require.NoError(t, runLogout(ctx, second, &out))
	assert.Contains(t, out.String(), "signed out.")

	third, err := wire(ctx, cfg, slots, zap.NewNop())
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, runLogout(ctx, third, &out))
	assert.Equal(t, "not signed in\n", out.String())
}

func TestLoginRejected(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	s, err := wire(ctx, testConfig(srv.URL()), storage.NewMemorySlots(), zap.NewNop())
	require.NoError(t, err)

	var out bytes.Buffer
	err = runLogin(ctx, s, &out, "alex", strings.NewReader("wrong\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign in")
	assert.False(t, s.session.IsAuthenticated())
	assert.False(t, s.cart.Authenticated())
	assert.Empty(t, out.String())
}

func TestAnonymousCartPrintsLocalLines(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	s, err := wire(ctx, testConfig(srv.URL()), storage.NewMemorySlots(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.cart.AddItem(ctx, testHoodie, 1, nil))

	var out bytes.Buffer
	require.NoError(t, runCart(ctx, s, &out))
	assert.Contains(t, out.String(), "saved on this device")
	assert.Contains(t, out.String(), "1 items, total 3500.00 ₽")
}
