package domain

import (
	"strings"
	"time"
)

// Product is a shop catalogue entry.
type Product struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Brand           string    `json:"brand,omitempty"` // shop slug
	ProductType     string    `json:"product_type,omitempty"`
	IsClothing      bool      `json:"is_clothing,omitempty"`
	Category        *Category `json:"category,omitempty"`
	Price           Money     `json:"price"`
	Image           *string   `json:"image,omitempty"`
	StockQuantity   int       `json:"stock_quantity,omitempty"`
	IsAvailable     bool      `json:"is_available,omitempty"`
	IsFeatured      bool      `json:"is_featured,omitempty"`
	Variants        []Variant `json:"variants,omitempty"`
	InStock         bool      `json:"in_stock,omitempty"`
	AvailableSizes  []string  `json:"available_sizes,omitempty"`
	AvailableColors []string  `json:"available_colors,omitempty"`
}

// HasVariants reports whether the product must be bought as a specific variant.
func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// Variant is a size/colour sub-selection of a product.
type Variant struct {
	ID            int64  `json:"id"`
	Size          string `json:"size,omitempty"`
	Color         string `json:"color,omitempty"`
	ColorHex      string `json:"color_hex,omitempty"`
	StockQuantity int    `json:"stock_quantity,omitempty"`
	PriceModifier *Money `json:"price_modifier,omitempty"`
	IsAvailable   bool   `json:"is_available,omitempty"`
	FinalPrice    *Money `json:"final_price,omitempty"` // overrides the product price when non-zero
	InStock       bool   `json:"in_stock,omitempty"`
}

// Label renders "M / Black" style variant names.
func (v Variant) Label() string {
	var parts []string
	if v.Size != "" {
		parts = append(parts, v.Size)
	}
	if v.Color != "" {
		parts = append(parts, v.Color)
	}
	return strings.Join(parts, " / ")
}

// Category groups products.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

// Shop is a brand storefront inside the studio shop.
type Shop struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
	Order       int     `json:"order,omitempty"`
	IsActive    bool    `json:"is_active"`
}

// Delivery methods accepted by the order endpoint.
const (
	DeliveryPickup   = "pickup"
	DeliveryDelivery = "delivery"
)

// Order is a placed order.
type Order struct {
	ID                 int64       `json:"id"`
	User               string      `json:"user,omitempty"`
	Status             string      `json:"status"` // "pending", "processing", "shipped", "delivered", "cancelled"
	DeliveryMethod     string      `json:"delivery_method"`
	DeliveryAddress    *string     `json:"delivery_address,omitempty"`
	CustomerFirstName  string      `json:"customer_first_name"`
	CustomerLastName   string      `json:"customer_last_name"`
	CustomerMiddleName *string     `json:"customer_middle_name,omitempty"`
	CustomerPhone      string      `json:"customer_phone"`
	TotalPrice         Money       `json:"total_price"`
	Notes              *string     `json:"notes,omitempty"`
	Items              []OrderItem `json:"items,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Price    Money   `json:"price"`
	Total    Money   `json:"total"`
}
