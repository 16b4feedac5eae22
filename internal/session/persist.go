package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tuningstudio/tuning/internal/storage"
)

// CookieCarrier is implemented by the API client.
type CookieCarrier interface {
	ExportSession() ([]byte, error)
	ImportSession(data []byte) error
	ResetSession()
}

// Persistence keeps the API session cookies in a storage slot so a restart
// stays signed in.
type Persistence struct {
	slots   storage.Slots
	slot    string
	carrier CookieCarrier
	log     *zap.Logger
}

// NewPersistence binds carrier to the named slot.
func NewPersistence(slots storage.Slots, slot string, carrier CookieCarrier, log *zap.Logger) *Persistence {
	if log == nil {
		log = zap.NewNop()
	}
	return &Persistence{slots: slots, slot: slot, carrier: carrier, log: log}
}

// Restore loads saved cookies into the carrier. A missing slot is not an
// error; a corrupt one is dropped.
func (p *Persistence) Restore(ctx context.Context) error {
	data, err := p.slots.Get(ctx, p.slot)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session.Restore: %w", err)
	}
	if err := p.carrier.ImportSession(data); err != nil {
		p.log.Warn("session_cookies_corrupt", zap.Error(err))
		if derr := p.slots.Delete(ctx, p.slot); derr != nil {
			p.log.Warn("session_cookies_delete_failed", zap.Error(derr))
		}
		return nil
	}
	return nil
}

// Save writes the carrier's current cookies to the slot.
func (p *Persistence) Save(ctx context.Context) error {
	data, err := p.carrier.ExportSession()
	if err != nil {
		return fmt.Errorf("session.Save: %w", err)
	}
	if err := p.slots.Put(ctx, p.slot, data); err != nil {
		return fmt.Errorf("session.Save: %w", err)
	}
	return nil
}

// Forget drops the cookies from both the carrier and the slot.
func (p *Persistence) Forget(ctx context.Context) error {
	p.carrier.ResetSession()
	if err := p.slots.Delete(ctx, p.slot); err != nil {
		return fmt.Errorf("session.Forget: %w", err)
	}
	return nil
}

// Attach subscribes p to st. Sign-in, registration and a successful
// initialize save cookies; sign-out forgets them. Failed refreshes keep the
// saved cookies so an offline start does not lose the session.
func (p *Persistence) Attach(st *Store) func() {
	return st.Subscribe(func(snap Snapshot) {
		if snap.Loading {
			return
		}
		ctx := context.Background()
		var err error
		switch {
		case snap.Event == EventSignOut:
			err = p.Forget(ctx)
		case snap.Authenticated():
			err = p.Save(ctx)
		}
		if err != nil {
			p.log.Warn("session_cookies_sync_failed", zap.String("event", string(snap.Event)), zap.Error(err))
		}
	})
}
