package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tuningstudio/tuning/pkg/domain"
)

// ProductFilter narrows a product listing. Empty fields are not sent.
type ProductFilter struct {
	Brand       string
	ProductType string
	Category    string
	Search      string
}

func (f ProductFilter) query() string {
	params := url.Values{}
	if f.Brand != "" {
		params.Set("brand", f.Brand)
	}
	if f.ProductType != "" {
		params.Set("product_type", f.ProductType)
	}
	if f.Category != "" {
		params.Set("category", f.Category)
	}
	if f.Search != "" {
		params.Set("search", f.Search)
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

// OrderLine is one {product_id, quantity} entry of a new order.
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	DeliveryMethod     string      `json:"delivery_method"`
	DeliveryAddress    string      `json:"delivery_address,omitempty"`
	CustomerFirstName  string      `json:"customer_first_name"`
	CustomerLastName   string      `json:"customer_last_name"`
	CustomerMiddleName string      `json:"customer_middle_name,omitempty"`
	CustomerPhone      string      `json:"customer_phone"`
	Notes              string      `json:"notes,omitempty"`
	Items              []OrderLine `json:"items"`
}

// ListShops returns the active brand storefronts.
func (c *Client) ListShops(ctx context.Context) ([]domain.Shop, error) {
	var shops []domain.Shop
	if err := c.getList(ctx, "/shop/shops/", &shops); err != nil {
		return nil, fmt.Errorf("client.ListShops: %w", err)
	}
	return shops, nil
}

// ListCategories returns the product categories.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cats []domain.Category
	if err := c.getList(ctx, "/shop/categories/", &cats); err != nil {
		return nil, fmt.Errorf("client.ListCategories: %w", err)
	}
	return cats, nil
}

// ListProducts fetches products matching f.
func (c *Client) ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.getList(ctx, "/shop/products/"+f.query(), &products); err != nil {
		return nil, fmt.Errorf("client.ListProducts: %w", err)
	}
	return products, nil
}

// GetProduct fetches a single product with its variants.
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := c.get(ctx, "/shop/products/"+strconv.FormatInt(id, 10)+"/", &p); err != nil {
		return nil, fmt.Errorf("client.GetProduct: %w", err)
	}
	return &p, nil
}

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	var o domain.Order
	if err := c.post(ctx, "/shop/orders/", req, &o); err != nil {
		return nil, fmt.Errorf("client.CreateOrder: %w", err)
	}
	return &o, nil
}

// ListOrders returns the signed-in user's orders.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := c.getList(ctx, "/shop/orders/", &orders); err != nil {
		return nil, fmt.Errorf("client.ListOrders: %w", err)
	}
	return orders, nil
}
