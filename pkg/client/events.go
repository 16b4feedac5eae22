package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tuningstudio/tuning/pkg/domain"
)

type likeEventRequest struct {
	IsAnonymous bool `json:"is_anonymous"`
}

// ListEvents returns the studio's events.
func (c *Client) ListEvents(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	if err := c.getList(ctx, "/events/events/", &events); err != nil {
		return nil, fmt.Errorf("client.ListEvents: %w", err)
	}
	return events, nil
}

// GetEvent fetches one event.
func (c *Client) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	var e domain.Event
	if err := c.get(ctx, eventPath(id), &e); err != nil {
		return nil, fmt.Errorf("client.GetEvent: %w", err)
	}
	return &e, nil
}

// LikeEvent marks the signed-in user as going to the event.
func (c *Client) LikeEvent(ctx context.Context, id int64, anonymous bool) (*domain.EventRegistration, error) {
	var reg domain.EventRegistration
	if err := c.post(ctx, eventPath(id)+"like/", likeEventRequest{IsAnonymous: anonymous}, &reg); err != nil {
		return nil, fmt.Errorf("client.LikeEvent: %w", err)
	}
	return &reg, nil
}

// UnlikeEvent withdraws the signed-in user's like.
func (c *Client) UnlikeEvent(ctx context.Context, id int64) error {
	if err := c.del(ctx, eventPath(id)+"like/", nil); err != nil {
		return fmt.Errorf("client.UnlikeEvent: %w", err)
	}
	return nil
}

// IsEventLiked reports whether the signed-in user liked the event.
func (c *Client) IsEventLiked(ctx context.Context, id int64) (bool, error) {
	var res struct {
		IsLiked bool `json:"is_liked"`
	}
	if err := c.get(ctx, eventPath(id)+"is_liked/", &res); err != nil {
		return false, fmt.Errorf("client.IsEventLiked: %w", err)
	}
	return res.IsLiked, nil
}

func eventPath(id int64) string {
	return "/events/events/" + strconv.FormatInt(id, 10) + "/"
}
