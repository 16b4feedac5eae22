package tui

import (
	"context"
	"time"

	"github.com/tuningstudio/tuning/internal/cart"
	"github.com/tuningstudio/tuning/internal/query"
	"github.com/tuningstudio/tuning/internal/session"
	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

// Services is everything the pages talk to.
type Services struct {
	Client  *client.Client
	Session *session.Store
	Cart    *cart.Cart
	Cache   *query.Cache // nil disables caching
	SiteURL string
	Version string
}

// requestTimeout bounds every page query and mutation.
const requestTimeout = 15 * time.Second

// fetch loads key through the query cache when one is configured.
func fetch[T any](s *Services, key string, load func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if s.Cache == nil {
		return load(ctx)
	}
	return query.Fetch(ctx, s.Cache, key, load)
}

// invalidate drops cached queries after a mutation.
func (s *Services) invalidate(prefixes ...string) {
	if s.Cache == nil || len(prefixes) == 0 {
		return
	}
	s.Cache.Invalidate(prefixes...)
}

// mutation runs fn with the request timeout.
func mutation(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return fn(ctx)
}

// currentUser is the signed-in user, or nil.
func (s *Services) currentUser() *domain.User {
	if s.Session == nil {
		return nil
	}
	return s.Session.Current()
}
