package domain

import "time"

// LineKey identifies a cart line. VariantID 0 means the line has no variant.
type LineKey struct {
	ProductID int64
	VariantID int64
}

// LineItem is one (product, optional variant, quantity) entry in a cart.
// ID is only set when the line came from the server cart.
type LineItem struct {
	ID       *int64    `json:"id,omitempty"`
	Product  Product   `json:"product"`
	Variant  *Variant  `json:"variant"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"addedAt"`
}

// Key returns the line's identity within a cart.
func (li LineItem) Key() LineKey {
	k := LineKey{ProductID: li.Product.ID}
	if li.Variant != nil {
		k.VariantID = li.Variant.ID
	}
	return k
}

// VariantID returns the variant id or 0.
func (li LineItem) VariantID() int64 {
	if li.Variant == nil {
		return 0
	}
	return li.Variant.ID
}

// Matches reports whether the line answers a lookup for productID/variantID.
// A zero variantID matches any line of the product.
func (li LineItem) Matches(productID, variantID int64) bool {
	if li.Product.ID != productID {
		return false
	}
	return variantID == 0 || li.VariantID() == variantID
}

// UnitPrice is the variant's final price when set and non-zero, else the product price.
func (li LineItem) UnitPrice() Money {
	if li.Variant != nil && li.Variant.FinalPrice != nil && !li.Variant.FinalPrice.IsZero() {
		return *li.Variant.FinalPrice
	}
	return li.Product.Price
}

// Total is UnitPrice × Quantity.
func (li LineItem) Total() Money {
	return li.UnitPrice().Times(li.Quantity)
}

// Valid reports whether the line has a product id and a positive quantity.
func (li LineItem) Valid() bool {
	return li.Product.ID != 0 && li.Quantity >= 1
}

// ServerCart is the body of every cart endpoint response.
type ServerCart struct {
	ID         int64            `json:"id,omitempty"`
	Items      []ServerCartItem `json:"items"`
	TotalItems int              `json:"total_items,omitempty"`
	TotalPrice *Money           `json:"total_price,omitempty"`
}

// ServerCartItem is a cart line as the server reports it.
type ServerCartItem struct {
	ID        int64     `json:"id"`
	Product   Product   `json:"product"`
	Variant   *Variant  `json:"variant"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// LineItem maps the server item to the client line shape.
func (si ServerCartItem) LineItem() LineItem {
	id := si.ID
	return LineItem{
		ID:       &id,
		Product:  si.Product,
		Variant:  si.Variant,
		Quantity: si.Quantity,
		AddedAt:  si.CreatedAt,
	}
}

// LineItems maps every server item, skipping any the server returned malformed.
func (sc ServerCart) LineItems() []LineItem {
	items := make([]LineItem, 0, len(sc.Items))
	for _, si := range sc.Items {
		li := si.LineItem()
		if !li.Valid() {
			continue
		}
		items = append(items, li)
	}
	return items
}
