package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func moneyPtr(units int64) *Money {
	m := NewMoney(units)
	return &m
}

func TestLineItemUnitPrice(t *testing.T) {
	product := Product{ID: 1, Price: NewMoney(100)}
	tests := []struct {
		name    string
		variant *Variant
		want    string
	}{
		{"no variant", nil, "100.00"},
		{"variant without override", &Variant{ID: 2}, "100.00"},
		{"variant override", &Variant{ID: 2, FinalPrice: moneyPtr(150)}, "150.00"},
		{"zero override falls back", &Variant{ID: 2, FinalPrice: moneyPtr(0)}, "100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			li := LineItem{Product: product, Variant: tt.variant, Quantity: 2}
			if got := li.UnitPrice().String(); got != tt.want {
				t.Errorf("UnitPrice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineItemTotal(t *testing.T) {
	li := LineItem{Product: Product{ID: 1, Price: NewMoney(100)}, Quantity: 3}
	if got := li.Total().String(); got != "300.00" {
		t.Errorf("Total() = %q, want %q", got, "300.00")
	}
}

func TestLineItemValid(t *testing.T) {
	tests := []struct {
		name string
		li   LineItem
		want bool
	}{
		{"valid", LineItem{Product: Product{ID: 1}, Quantity: 1}, true},
		{"missing product id", LineItem{Quantity: 1}, false},
		{"zero quantity", LineItem{Product: Product{ID: 1}}, false},
		{"negative quantity", LineItem{Product: Product{ID: 1}, Quantity: -2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.li.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineItemMatches(t *testing.T) {
	plain := LineItem{Product: Product{ID: 1}, Quantity: 1}
	sized := LineItem{Product: Product{ID: 1}, Variant: &Variant{ID: 7}, Quantity: 1}

	if !plain.Matches(1, 0) {
		t.Error("plain line should match a lookup without variant")
	}
	if plain.Matches(1, 7) {
		t.Error("plain line should not match a specific variant")
	}
	if !sized.Matches(1, 0) {
		t.Error("variant line should match a lookup without variant")
	}
	if !sized.Matches(1, 7) {
		t.Error("variant line should match its own variant")
	}
	if sized.Matches(2, 7) {
		t.Error("different product should not match")
	}
	if plain.Key() == sized.Key() {
		t.Error("plain and variant lines should have distinct keys")
	}
}

func TestLineItemJSONShape(t *testing.T) {
	li := LineItem{
		Product:  Product{ID: 5, Name: "Hoodie", Price: NewMoney(50)},
		Quantity: 2,
		AddedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(li)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	for _, key := range []string{"product", "variant", "quantity", "addedAt"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in %s", key, data)
		}
	}
	if _, ok := raw["id"]; ok {
		t.Errorf("local line should not carry an id, got %s", data)
	}
}

func TestServerCartLineItems(t *testing.T) {
	body := `{"items":[
		{"id":11,"product":{"id":1,"name":"Cap","price":"25.00"},"variant":null,"quantity":2},
		{"id":12,"product":{"id":2,"name":"Tee","price":"30.00"},"variant":{"id":9,"size":"M","final_price":"35.00"},"quantity":1},
		{"id":13,"product":{"id":0},"variant":null,"quantity":1}
	]}`
	var sc ServerCart
	if err := json.Unmarshal([]byte(body), &sc); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	items := sc.LineItems()
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID == nil || *items[0].ID != 11 {
		t.Errorf("items[0].ID = %v, want 11", items[0].ID)
	}
	if got := items[1].UnitPrice().String(); got != "35.00" {
		t.Errorf("items[1].UnitPrice() = %q, want %q", got, "35.00")
	}
}
