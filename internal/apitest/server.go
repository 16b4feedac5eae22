// Package apitest runs an in-process fake of the studio API for tests. It
// keeps users, sessions, products and per-user carts in memory and can be
// told to fail or stall chosen routes.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/tuningstudio/tuning/pkg/domain"
)

type account struct {
	password string
	user     domain.User
}

type rule struct {
	method string
	prefix string
	status int
	delay  time.Duration
}

// Server is the fake API. Its handlers live under /api.
type Server struct {
	srv *httptest.Server

	mu         sync.Mutex
	accounts   map[string]*account
	sessions   map[string]int64
	products   map[int64]domain.Product
	shops      []domain.Shop
	carts      map[int64][]domain.ServerCartItem
	orders     map[int64][]domain.Order
	events     []domain.Event
	categories []domain.ForumCategory
	topics     []domain.TopicDetail
	nextID     int64
	rules      []rule
	calls      []string
}

// New starts a fake API server. Close it with Close.
func New() *Server {
	s := &Server{
		accounts: make(map[string]*account),
		sessions: make(map[string]int64),
		products: make(map[int64]domain.Product),
		carts:    make(map[int64][]domain.ServerCartItem),
		orders:   make(map[int64][]domain.Order),
		nextID:   1000,
	}
	s.srv = httptest.NewServer(s.routes())
	return s
}

// URL returns the API base URL to hand to client.New.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers an account that can sign in.
func (s *Server) AddUser(password string, u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[u.Username] = &account{password: password, user: u}
}

// AddProduct makes a product available to the catalogue and the cart.
func (s *Server) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// AddShop adds a storefront.
func (s *Server) AddShop(sh domain.Shop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shops = append(s.shops, sh)
}

// AddEvent adds an event.
func (s *Server) AddEvent(e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// AddForumCategory adds a forum section.
func (s *Server) AddForumCategory(c domain.ForumCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// AddTopic adds a forum topic.
func (s *Server) AddTopic(t domain.TopicDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, t)
}

// SeedCart replaces a user's server cart.
func (s *Server) SeedCart(userID int64, items ...domain.ServerCartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append([]domain.ServerCartItem(nil), items...)
}

// CartItems returns a copy of a user's server cart.
func (s *Server) CartItems(userID int64) []domain.ServerCartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ServerCartItem(nil), s.carts[userID]...)
}

// Orders returns a user's placed orders.
func (s *Server) Orders(userID int64) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.orders[userID]...)
}

// Fail makes requests whose method matches (empty = any) and whose path,
// relative to /api, starts with prefix answer with status.
func (s *Server) Fail(method, prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{method: method, prefix: prefix, status: status})
}

// Stall delays matching requests by d before handling them.
func (s *Server) Stall(method, prefix string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{method: method, prefix: prefix, delay: d})
}

// Heal drops every Fail and Stall rule.
func (s *Server) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = nil
}

// Calls lists "METHOD /path" for every request after the CSRF handshake.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.record, s.inject, s.csrf)

		r.Get("/csrf-token/", s.handleCSRF)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/me/", s.withUser(s.handleMe))
			r.Post("/login/", s.handleLogin)
			r.Post("/logout/", s.handleLogout)
			r.Post("/register/", s.handleRegister)
			r.Patch("/update_profile/", s.withUser(s.handleUpdateProfile))
		})

		r.Route("/shop", func(r chi.Router) {
			r.Get("/shops/", s.handleShops)
			r.Get("/products/", s.handleProducts)
			r.Get("/products/{id}/", s.handleProduct)
			r.Post("/orders/", s.withUser(s.handleCreateOrder))
			r.Get("/orders/", s.withUser(s.handleOrders))

			r.Get("/cart/", s.withUser(s.handleCart))
			r.Post("/cart/add_item/", s.withUser(s.handleAddItem))
			r.Patch("/cart/items/{id}/", s.withUser(s.handleUpdateItem))
			r.Delete("/cart/items/{id}/", s.withUser(s.handleRemoveItem))
			r.Delete("/cart/clear/", s.withUser(s.handleClear))
		})

		r.Get("/forum/categories/", s.handleForumCategories)
		r.Get("/forum/topics/", s.handleTopics)
		r.Get("/events/events/", s.handleEvents)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		if path != "/csrf-token/" {
			s.mu.Lock()
			s.calls = append(s.calls, r.Method+" "+path)
			s.mu.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		s.mu.Lock()
		var matched []rule
		for _, rl := range s.rules {
			if (rl.method == "" || rl.method == r.Method) && strings.HasPrefix(path, rl.prefix) {
				matched = append(matched, rl)
			}
		}
		s.mu.Unlock()
		for _, rl := range matched {
			if rl.delay > 0 {
				select {
				case <-time.After(rl.delay):
				case <-r.Context().Done():
					return
				}
			}
			if rl.status != 0 {
				writeJSON(w, rl.status, map[string]string{"error": "injected failure"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// csrf enforces the double-submit check the real API applies to unsafe methods.
func (s *Server) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		ck, err := r.Cookie("csrftoken")
		if err != nil || ck.Value == "" || r.Header.Get("X-CSRFToken") != ck.Value {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "CSRF Failed: CSRF token missing or incorrect."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.sessionUser(r)
		if !ok {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		h(w, r, id)
	}
}

func (s *Server) sessionUser(r *http.Request) (int64, bool) {
	ck, err := r.Cookie("sessionid")
	if err != nil {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[ck.Value]
	return id, ok
}

func (s *Server) userByID(id int64) (domain.User, bool) {
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return domain.User{}, false
}

func (s *Server) startSession(w http.ResponseWriter, userID int64) {
	sid := uuid.NewString()
	s.sessions[sid] = userID
	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: sid, Path: "/", HttpOnly: true})
}

func (s *Server) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token := uuid.NewString()
	if ck, err := r.Cookie("csrftoken"); err == nil && ck.Value != "" {
		token = ck.Value
	}
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: token, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"csrftoken": token})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, userID int64) {
	s.mu.Lock()
	u, ok := s.userByID(userID)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	fields := map[string][]string{}
	if req.Username == "" {
		fields["username"] = []string{"This field is required."}
	}
	if req.Password == "" {
		fields["password"] = []string{"This field is required."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[req.Username]
	if !ok || a.password != req.Password {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid username or password."}})
		return
	}
	s.startSession(w, a.user.ID)
	writeJSON(w, http.StatusOK, a.user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if ck, err := r.Cookie("sessionid"); err == nil {
		s.mu.Lock()
		delete(s.sessions, ck.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fields := map[string][]string{}
	if req.Username == "" {
		fields["username"] = []string{"This field is required."}
	} else if _, taken := s.accounts[req.Username]; taken {
		fields["username"] = []string{"A user with that username already exists."}
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	if req.Password != req.PasswordConfirm {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Passwords do not match."}})
		return
	}

	s.nextID++
	u := domain.User{
		ID:        s.nextID,
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[u.Username] = &account{password: req.Password, user: u}
	s.startSession(w, u.ID)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.ID != userID {
			continue
		}
		if v, ok := req["first_name"].(string); ok {
			a.user.FirstName = v
		}
		if v, ok := req["last_name"].(string); ok {
			a.user.LastName = v
		}
		if v, ok := req["bio"].(string); ok {
			a.user.Bio = v
		}
		if v, ok := req["phone"].(string); ok {
			a.user.Phone = v
		}
		writeJSON(w, http.StatusOK, a.user)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleShops(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]domain.Shop{}, s.shops...))
}

// handleProducts answers with the paginated shape to exercise both list forms.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	brand := r.URL.Query().Get("brand")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Product{}
	for _, p := range s.products {
		if brand != "" && p.Brand != brand {
			continue
		}
		out = append(out, p)
	}
	sortProducts(out)
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "next": nil, "previous": nil, "results": out})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	p, found := s.products[id]
	s.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCart(w http.ResponseWriter, _ *http.Request, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.cartLocked(userID))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		ProductID int64  `json:"product_id"`
		VariantID *int64 `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"quantity": {"Ensure this value is greater than or equal to 1."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[req.ProductID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Product not found"})
		return
	}
	var variant *domain.Variant
	var wantVariant int64
	if req.VariantID != nil {
		wantVariant = *req.VariantID
		for i := range p.Variants {
			if p.Variants[i].ID == wantVariant {
				v := p.Variants[i]
				variant = &v
			}
		}
		if variant == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Variant not found"})
			return
		}
	}

	items := s.carts[userID]
	for i := range items {
		var have int64
		if items[i].Variant != nil {
			have = items[i].Variant.ID
		}
		if items[i].Product.ID == req.ProductID && have == wantVariant {
			items[i].Quantity += req.Quantity
			writeJSON(w, http.StatusOK, s.cartLocked(userID))
			return
		}
	}
	s.nextID++
	s.carts[userID] = append(items, domain.ServerCartItem{
		ID:        s.nextID,
		Product:   p,
		Variant:   variant,
		Quantity:  req.Quantity,
		CreatedAt: time.Now().UTC(),
	})
	writeJSON(w, http.StatusCreated, s.cartLocked(userID))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	for i := range items {
		if items[i].ID == id {
			if req.Quantity < 1 {
				s.carts[userID] = append(items[:i:i], items[i+1:]...)
			} else {
				items[i].Quantity = req.Quantity
			}
			writeJSON(w, http.StatusOK, s.cartLocked(userID))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Item not found"})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	for i := range items {
		if items[i].ID == id {
			s.carts[userID] = append(items[:i:i], items[i+1:]...)
			writeJSON(w, http.StatusOK, s.cartLocked(userID))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Item not found"})
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	writeJSON(w, http.StatusOK, s.cartLocked(userID))
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		DeliveryMethod    string `json:"delivery_method"`
		DeliveryAddress   string `json:"delivery_address"`
		CustomerFirstName string `json:"customer_first_name"`
		CustomerLastName  string `json:"customer_last_name"`
		CustomerPhone     string `json:"customer_phone"`
		Items             []struct {
			ProductID int64 `json:"product_id"`
			Quantity  int   `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	fields := map[string][]string{}
	if req.DeliveryMethod != domain.DeliveryPickup && req.DeliveryMethod != domain.DeliveryDelivery {
		fields["delivery_method"] = []string{"Select a valid choice."}
	}
	if req.CustomerFirstName == "" {
		fields["customer_first_name"] = []string{"This field may not be blank."}
	}
	if req.CustomerPhone == "" {
		fields["customer_phone"] = []string{"This field may not be blank."}
	}
	if len(req.Items) == 0 {
		fields["items"] = []string{"Ensure this field has at least 1 elements."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	order := domain.Order{
		ID:                s.nextID,
		Status:            "pending",
		DeliveryMethod:    req.DeliveryMethod,
		CustomerFirstName: req.CustomerFirstName,
		CustomerLastName:  req.CustomerLastName,
		CustomerPhone:     req.CustomerPhone,
		CreatedAt:         time.Now().UTC(),
	}
	if req.DeliveryAddress != "" {
		addr := req.DeliveryAddress
		order.DeliveryAddress = &addr
	}
	total := domain.Money{}
	for _, it := range req.Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"items": {"Product " + strconv.FormatInt(it.ProductID, 10) + " not found"}})
			return
		}
		s.nextID++
		line := domain.OrderItem{ID: s.nextID, Product: p, Quantity: it.Quantity, Price: p.Price, Total: p.Price.Times(it.Quantity)}
		total = total.Add(line.Total)
		order.Items = append(order.Items, line)
	}
	order.TotalPrice = total
	s.orders[userID] = append(s.orders[userID], order)
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleOrders(w http.ResponseWriter, _ *http.Request, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]domain.Order{}, s.orders[userID]...))
}

func (s *Server) handleForumCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]domain.ForumCategory{}, s.categories...))
}

func (s *Server) handleTopics(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		out = append(out, t.Topic)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(s.events), "results": append([]domain.Event{}, s.events...)})
}

func (s *Server) cartLocked(userID int64) domain.ServerCart {
	items := append([]domain.ServerCartItem{}, s.carts[userID]...)
	total := domain.Money{}
	count := 0
	for _, it := range items {
		total = total.Add(it.LineItem().Total())
		count += it.Quantity
	}
	return domain.ServerCart{ID: userID, Items: items, TotalItems: count, TotalPrice: &total}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
