// Package cart keeps one logical cart per visitor across the anonymous and
// signed-in states. The server cart is authoritative once signed in; the
// local slot is authoritative otherwise and mirrors the server cart while
// signed in.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tuningstudio/tuning/internal/storage"
	"github.com/tuningstudio/tuning/pkg/domain"
)

// Repository is the local tier.
type Repository interface {
	Load(ctx context.Context) ([]domain.LineItem, error)
	Save(ctx context.Context, items []domain.LineItem) error
	Clear(ctx context.Context) error
}

// RemoteRepository is the server tier. Fetch returns the full server cart.
type RemoteRepository interface {
	Fetch(ctx context.Context) ([]domain.LineItem, error)
	Add(ctx context.Context, productID int64, variantID *int64, quantity int) error
	UpdateQuantity(ctx context.Context, itemID int64, quantity int) error
	Remove(ctx context.Context, itemID int64) error
	Clear(ctx context.Context) error
}

// LocalCartStore keeps the cart as a JSON array in one storage slot.
type LocalCartStore struct {
	slots storage.Slots
	slot  string
	log   *zap.Logger
}

// NewLocalCartStore binds the store to the named slot.
func NewLocalCartStore(slots storage.Slots, slot string, log *zap.Logger) *LocalCartStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalCartStore{slots: slots, slot: slot, log: log}
}

// Load reads the slot and keeps only valid entries. Entries that do not
// decode, lack a product id or have a quantity below one are dropped;
// repeated keys are merged. If nothing valid remains the slot is erased.
func (s *LocalCartStore) Load(ctx context.Context) ([]domain.LineItem, error) {
	data, err := s.slots.Get(ctx, s.slot)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart.LocalCartStore.Load: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("cart_local_corrupt", zap.String("slot", s.slot), zap.Error(err))
		return nil, s.Clear(ctx)
	}

	items := make([]domain.LineItem, 0, len(raw))
	index := make(map[domain.LineKey]int, len(raw))
	dropped := 0
	for _, r := range raw {
		var li domain.LineItem
		if err := json.Unmarshal(r, &li); err != nil || !li.Valid() {
			dropped++
			continue
		}
		if i, ok := index[li.Key()]; ok {
			items[i].Quantity += li.Quantity
			continue
		}
		index[li.Key()] = len(items)
		items = append(items, li)
	}
	if dropped > 0 {
		s.log.Info("cart_local_dropped_invalid", zap.Int("dropped", dropped), zap.Int("kept", len(items)))
	}
	if len(items) == 0 {
		return nil, s.Clear(ctx)
	}
	return items, nil
}

// Save writes items to the slot. An empty cart erases the slot.
func (s *LocalCartStore) Save(ctx context.Context, items []domain.LineItem) error {
	if len(items) == 0 {
		return s.Clear(ctx)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cart.LocalCartStore.Save: %w", err)
	}
	if err := s.slots.Put(ctx, s.slot, data); err != nil {
		return fmt.Errorf("cart.LocalCartStore.Save: %w", err)
	}
	return nil
}

// Clear erases the slot.
func (s *LocalCartStore) Clear(ctx context.Context) error {
	if err := s.slots.Delete(ctx, s.slot); err != nil {
		return fmt.Errorf("cart.LocalCartStore.Clear: %w", err)
	}
	return nil
}

// API is the cart surface of the REST client.
type API interface {
	GetCart(ctx context.Context) (*domain.ServerCart, error)
	AddCartItem(ctx context.Context, productID int64, variantID *int64, quantity int) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

// RemoteCartStore maps repository calls one-to-one onto the cart endpoints.
type RemoteCartStore struct {
	api API
}

// NewRemoteCartStore wraps api.
func NewRemoteCartStore(api API) *RemoteCartStore {
	return &RemoteCartStore{api: api}
}

func (r *RemoteCartStore) Fetch(ctx context.Context) ([]domain.LineItem, error) {
	sc, err := r.api.GetCart(ctx)
	if err != nil {
		return nil, err
	}
	return sc.LineItems(), nil
}

func (r *RemoteCartStore) Add(ctx context.Context, productID int64, variantID *int64, quantity int) error {
	return r.api.AddCartItem(ctx, productID, variantID, quantity)
}

func (r *RemoteCartStore) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	return r.api.UpdateCartItem(ctx, itemID, quantity)
}

func (r *RemoteCartStore) Remove(ctx context.Context, itemID int64) error {
	return r.api.RemoveCartItem(ctx, itemID)
}

func (r *RemoteCartStore) Clear(ctx context.Context) error {
	return r.api.ClearCart(ctx)
}
