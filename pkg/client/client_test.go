package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/tuningstudio/tuning/pkg/domain"
)

func TestMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/me/" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(domain.User{ID: 7, Username: "drift"}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if me.Username != "drift" {
		t.Errorf("Username = %q, want %q", me.Username, "drift")
	}
	if me.ID != 7 {
		t.Errorf("ID = %d, want %d", me.ID, 7)
	}
}

func TestMe_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Authentication credentials were not provided."}) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	_, err := c.Me(context.Background())
	if err == nil {
		t.Fatal("expected error for unauthenticated request")
	}
	if got := err.Error(); !strings.Contains(got, "HTTP 403") {
		t.Errorf("error = %q, want it to contain 'HTTP 403'", got)
	}
	if !IsUnauthorized(err) {
		t.Error("IsUnauthorized() = false, want true")
	}
	apiErr := AsAPIError(err)
	if apiErr == nil || apiErr.Message != "Authentication credentials were not provided." {
		t.Errorf("AsAPIError().Message = %+v", apiErr)
	}
}

func TestCSRFHeaderFromCookie(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/me/":
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-1", Path: "/"})
			json.NewEncoder(w).Encode(domain.User{ID: 1}) //nolint:errcheck
		case "/api/auth/logout/":
			gotToken = r.Header.Get("X-CSRFToken")
			w.WriteHeader(http.StatusNoContent)
		case "/api/csrf-token/":
			t.Error("csrf endpoint should not be called when the cookie is present")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if gotToken != "tok-1" {
		t.Errorf("X-CSRFToken = %q, want %q", gotToken, "tok-1")
	}
}

func TestCSRFFetchedWhenMissing(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/csrf-token/":
			json.NewEncoder(w).Encode(map[string]string{"csrftoken": "fresh"}) //nolint:errcheck
		case "/api/shop/cart/clear/":
			gotToken = r.Header.Get("X-CSRFToken")
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	if err := c.ClearCart(context.Background()); err != nil {
		t.Fatalf("ClearCart() error: %v", err)
	}
	if gotToken != "fresh" {
		t.Errorf("X-CSRFToken = %q, want %q", gotToken, "fresh")
	}
}

func TestRequestIDHeader(t *testing.T) {
	var ids []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Request-ID"))
		mu.Unlock()
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	for i := 0; i < 2; i++ {
		if _, err := c.ListShops(context.Background()); err != nil {
			t.Fatalf("ListShops() error: %v", err)
		}
	}
	if len(ids) != 2 {
		t.Fatalf("got %d requests, want 2", len(ids))
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("X-Request-ID %q is not a uuid: %v", id, err)
		}
	}
	if ids[0] == ids[1] {
		t.Error("expected a fresh request id per request")
	}
}

func TestListProducts(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare array", `[{"id":1,"name":"Cap","price":"25.00"},{"id":2,"name":"Tee","price":"30.00"}]`},
		{"paginated", `{"count":2,"next":null,"results":[{"id":1,"name":"Cap","price":"25.00"},{"id":2,"name":"Tee","price":"30.00"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/shop/products/" {
					http.NotFound(w, r)
					return
				}
				gotQuery = r.URL.RawQuery
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			c := New(srv.URL + "/api")
			products, err := c.ListProducts(context.Background(), ProductFilter{Brand: "hks", ProductType: "merch"})
			if err != nil {
				t.Fatalf("ListProducts() error: %v", err)
			}
			if len(products) != 2 {
				t.Fatalf("len(products) = %d, want 2", len(products))
			}
			if products[1].Price.String() != "30.00" {
				t.Errorf("products[1].Price = %q, want %q", products[1].Price.String(), "30.00")
			}
			if gotQuery != "brand=hks&product_type=merch" {
				t.Errorf("query = %q, want %q", gotQuery, "brand=hks&product_type=merch")
			}
		})
	}
}

func TestCartEndpoints(t *testing.T) {
	type call struct {
		method string
		path   string
		body   string
	}
	var mu sync.Mutex
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/csrf-token/" {
			json.NewEncoder(w).Encode(map[string]string{"csrftoken": "x"}) //nolint:errcheck
			return
		}
		body, _ := io.ReadAll(r.Body) //nolint:errcheck
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path, strings.TrimSpace(string(body))})
		mu.Unlock()
		w.Write([]byte(`{"items":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	ctx := context.Background()
	variant := int64(9)
	if _, err := c.GetCart(ctx); err != nil {
		t.Fatalf("GetCart() error: %v", err)
	}
	if err := c.AddCartItem(ctx, 3, &variant, 2); err != nil {
		t.Fatalf("AddCartItem() error: %v", err)
	}
	if err := c.AddCartItem(ctx, 4, nil, 1); err != nil {
		t.Fatalf("AddCartItem() error: %v", err)
	}
	if err := c.UpdateCartItem(ctx, 11, 5); err != nil {
		t.Fatalf("UpdateCartItem() error: %v", err)
	}
	if err := c.RemoveCartItem(ctx, 11); err != nil {
		t.Fatalf("RemoveCartItem() error: %v", err)
	}
	if err := c.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart() error: %v", err)
	}

	want := []call{
		{http.MethodGet, "/api/shop/cart/", ""},
		{http.MethodPost, "/api/shop/cart/add_item/", `{"product_id":3,"variant_id":9,"quantity":2}`},
		{http.MethodPost, "/api/shop/cart/add_item/", `{"product_id":4,"variant_id":null,"quantity":1}`},
		{http.MethodPatch, "/api/shop/cart/items/11/", `{"quantity":5}`},
		{http.MethodDelete, "/api/shop/cart/items/11/", ""},
		{http.MethodDelete, "/api/shop/cart/clear/", ""},
	}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d: %+v", len(calls), len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestLoginValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/csrf-token/" {
			json.NewEncoder(w).Encode(map[string]string{"csrftoken": "x"}) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"username":["This field is required."],"non_field_errors":["Invalid credentials"]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	_, err := c.Login(context.Background(), Credentials{Password: "x"})
	apiErr := AsAPIError(err)
	if apiErr == nil {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Field("username") != "This field is required." {
		t.Errorf("Field(username) = %q", apiErr.Field("username"))
	}
	if apiErr.Message != "Invalid credentials" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "Invalid credentials")
	}
}

func TestSessionExportImport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s3cret", Path: "/"})
			json.NewEncoder(w).Encode(domain.User{ID: 1, Username: "drift"}) //nolint:errcheck
		case "/api/auth/me/":
			ck, err := r.Cookie("sessionid")
			if err != nil || ck.Value != "s3cret" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			json.NewEncoder(w).Encode(domain.User{ID: 1, Username: "drift"}) //nolint:errcheck
		case "/api/csrf-token/":
			json.NewEncoder(w).Encode(map[string]string{"csrftoken": "x"}) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	first := New(srv.URL + "/api")
	if _, err := first.Login(context.Background(), Credentials{Username: "drift", Password: "pw"}); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if !first.HasSession() {
		t.Fatal("HasSession() = false after login")
	}
	data, err := first.ExportSession()
	if err != nil {
		t.Fatalf("ExportSession() error: %v", err)
	}

	second := New(srv.URL + "/api")
	if err := second.ImportSession(data); err != nil {
		t.Fatalf("ImportSession() error: %v", err)
	}
	if _, err := second.Me(context.Background()); err != nil {
		t.Fatalf("Me() with restored session error: %v", err)
	}

	second.ResetSession()
	if second.HasSession() {
		t.Error("HasSession() = true after ResetSession")
	}
	if _, err := second.Me(context.Background()); !IsUnauthorized(err) {
		t.Errorf("Me() after reset error = %v, want 403", err)
	}
}

func TestGarageEndpoints(t *testing.T) {
	var gotUpdate, gotPrimary, gotCarQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/csrf-token/":
			json.NewEncoder(w).Encode(map[string]string{"csrftoken": "x"}) //nolint:errcheck
		case r.Method == http.MethodGet && r.URL.Path == "/api/auth/cars/4/":
			json.NewEncoder(w).Encode(domain.Car{ID: 4, Brand: "BMW", Model: "M3", VIN: "WBSBL93"}) //nolint:errcheck
		case r.Method == http.MethodPatch && r.URL.Path == "/api/auth/cars/4/":
			body, _ := io.ReadAll(r.Body) //nolint:errcheck
			gotUpdate = strings.TrimSpace(string(body))
			json.NewEncoder(w).Encode(domain.Car{ID: 4, Brand: "BMW", Model: "M3", Color: "blue"}) //nolint:errcheck
		case r.Method == http.MethodGet && r.URL.Path == "/api/auth/car-photos/":
			gotCarQuery = r.URL.Query().Get("car_id")
			w.Write([]byte(`{"count":2,"results":[{"id":31,"is_primary":true},{"id":32,"is_primary":false}]}`)) //nolint:errcheck
		case r.Method == http.MethodPatch && r.URL.Path == "/api/auth/car-photos/32/":
			body, _ := io.ReadAll(r.Body) //nolint:errcheck
			gotPrimary = strings.TrimSpace(string(body))
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	ctx := context.Background()

	car, err := c.GetCar(ctx, 4)
	if err != nil {
		t.Fatalf("GetCar() error: %v", err)
	}
	if car.VIN != "WBSBL93" {
		t.Errorf("VIN = %q", car.VIN)
	}

	car, err = c.UpdateCar(ctx, 4, CarRequest{Brand: "BMW", Model: "M3", Year: 2004, Color: "blue"})
	if err != nil {
		t.Fatalf("UpdateCar() error: %v", err)
	}
	if car.Color != "blue" {
		t.Errorf("Color = %q", car.Color)
	}
	if want := `{"brand":"BMW","model":"M3","year":2004,"color":"blue"}`; gotUpdate != want {
		t.Errorf("update body = %s, want %s", gotUpdate, want)
	}

	photos, err := c.ListCarPhotos(ctx, 4)
	if err != nil {
		t.Fatalf("ListCarPhotos() error: %v", err)
	}
	if gotCarQuery != "4" {
		t.Errorf("car_id = %q, want 4", gotCarQuery)
	}
	if len(photos) != 2 || !photos[0].IsPrimary || photos[1].ID != 32 {
		t.Errorf("photos = %+v", photos)
	}

	if err := c.SetPrimaryCarPhoto(ctx, 32); err != nil {
		t.Fatalf("SetPrimaryCarPhoto() error: %v", err)
	}
	if gotPrimary != `{"is_primary":true}` {
		t.Errorf("primary body = %s", gotPrimary)
	}

	if _, err := c.GetCar(ctx, 99); !IsStatus(err, http.StatusNotFound) {
		t.Errorf("GetCar(99) error = %v, want 404", err)
	}
}

func TestEventDetailEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/events/events/2/":
			json.NewEncoder(w).Encode(domain.Event{ID: 2, Title: "Track Day", ParticipantsCount: 12}) //nolint:errcheck
		case "/api/events/events/2/is_liked/":
			w.Write([]byte(`{"is_liked":true}`)) //nolint:errcheck
		case "/api/events/events/3/is_liked/":
			w.Write([]byte(`{"is_liked":false}`)) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	ctx := context.Background()

	e, err := c.GetEvent(ctx, 2)
	if err != nil {
		t.Fatalf("GetEvent() error: %v", err)
	}
	if e.Title != "Track Day" || e.ParticipantsCount != 12 {
		t.Errorf("event = %+v", e)
	}
	for id, want := range map[int64]bool{2: true, 3: false} {
		liked, err := c.IsEventLiked(ctx, id)
		if err != nil {
			t.Fatalf("IsEventLiked(%d) error: %v", id, err)
		}
		if liked != want {
			t.Errorf("IsEventLiked(%d) = %v, want %v", id, liked, want)
		}
	}
	if _, err := c.IsEventLiked(ctx, 9); err == nil {
		t.Error("expected error for a missing event")
	}
}

func TestCategoriesAndPostLikes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/shop/categories/":
			w.Write([]byte(`[{"id":1,"name":"Apparel","slug":"apparel"},{"id":2,"name":"Parts","slug":"parts"}]`)) //nolint:errcheck
		case "/api/forum/posts/100/likes/":
			w.Write([]byte(`{"count":1,"results":[{"id":5,"user":{"id":7,"username":"alex"}}]}`)) //nolint:errcheck
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	ctx := context.Background()

	cats, err := c.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error: %v", err)
	}
	if len(cats) != 2 || cats[1].Slug != "parts" {
		t.Errorf("categories = %+v", cats)
	}

	likes, err := c.ListPostLikes(ctx, 100)
	if err != nil {
		t.Fatalf("ListPostLikes() error: %v", err)
	}
	if len(likes) != 1 || likes[0].User == nil || likes[0].User.Username != "alex" {
		t.Errorf("likes = %+v", likes)
	}
}
