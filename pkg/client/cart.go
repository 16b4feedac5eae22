package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tuningstudio/tuning/pkg/domain"
)

// AddCartItemRequest is the add_item payload.
type AddCartItemRequest struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart fetches the signed-in user's server cart.
func (c *Client) GetCart(ctx context.Context) (*domain.ServerCart, error) {
	var cart domain.ServerCart
	if err := c.get(ctx, "/shop/cart/", &cart); err != nil {
		return nil, fmt.Errorf("client.GetCart: %w", err)
	}
	return &cart, nil
}

// AddCartItem adds quantity of a product (and optional variant) to the server cart.
func (c *Client) AddCartItem(ctx context.Context, productID int64, variantID *int64, quantity int) error {
	req := AddCartItemRequest{ProductID: productID, VariantID: variantID, Quantity: quantity}
	if err := c.post(ctx, "/shop/cart/add_item/", req, nil); err != nil {
		return fmt.Errorf("client.AddCartItem: %w", err)
	}
	return nil
}

// UpdateCartItem sets the quantity of a server cart line.
func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	if err := c.patch(ctx, cartItemPath(itemID), quantityRequest{Quantity: quantity}, nil); err != nil {
		return fmt.Errorf("client.UpdateCartItem: %w", err)
	}
	return nil
}

// RemoveCartItem deletes a server cart line.
func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) error {
	if err := c.del(ctx, cartItemPath(itemID), nil); err != nil {
		return fmt.Errorf("client.RemoveCartItem: %w", err)
	}
	return nil
}

// ClearCart empties the server cart.
func (c *Client) ClearCart(ctx context.Context) error {
	if err := c.del(ctx, "/shop/cart/clear/", nil); err != nil {
		return fmt.Errorf("client.ClearCart: %w", err)
	}
	return nil
}

func cartItemPath(itemID int64) string {
	return "/shop/cart/items/" + strconv.FormatInt(itemID, 10) + "/"
}
