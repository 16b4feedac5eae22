package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tuningstudio/tuning/pkg/domain"
)

// CreateTopicRequest is the payload for a new forum topic.
type CreateTopicRequest struct {
	Category int64  `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// CreatePostRequest is the payload for a reply.
type CreatePostRequest struct {
	Topic   int64  `json:"topic"`
	Content string `json:"content"`
}

// ListForumCategories returns the forum sections.
func (c *Client) ListForumCategories(ctx context.Context) ([]domain.ForumCategory, error) {
	var cats []domain.ForumCategory
	if err := c.getList(ctx, "/forum/categories/", &cats); err != nil {
		return nil, fmt.Errorf("client.ListForumCategories: %w", err)
	}
	return cats, nil
}

// ListTopics returns topics, optionally limited to one category (0 = all).
func (c *Client) ListTopics(ctx context.Context, categoryID int64) ([]domain.Topic, error) {
	path := "/forum/topics/"
	if categoryID != 0 {
		params := url.Values{}
		params.Set("category", strconv.FormatInt(categoryID, 10))
		path += "?" + params.Encode()
	}
	var topics []domain.Topic
	if err := c.getList(ctx, path, &topics); err != nil {
		return nil, fmt.Errorf("client.ListTopics: %w", err)
	}
	return topics, nil
}

// GetTopic fetches a topic with its posts.
func (c *Client) GetTopic(ctx context.Context, id int64) (*domain.TopicDetail, error) {
	var t domain.TopicDetail
	if err := c.get(ctx, topicPath(id), &t); err != nil {
		return nil, fmt.Errorf("client.GetTopic: %w", err)
	}
	return &t, nil
}

// CreateTopic opens a new topic.
func (c *Client) CreateTopic(ctx context.Context, req CreateTopicRequest) (*domain.Topic, error) {
	var t domain.Topic
	if err := c.post(ctx, "/forum/topics/", req, &t); err != nil {
		return nil, fmt.Errorf("client.CreateTopic: %w", err)
	}
	return &t, nil
}

// DeleteTopic removes a topic.
func (c *Client) DeleteTopic(ctx context.Context, id int64) error {
	if err := c.del(ctx, topicPath(id), nil); err != nil {
		return fmt.Errorf("client.DeleteTopic: %w", err)
	}
	return nil
}

// TogglePin pins or unpins a topic. Moderators only.
func (c *Client) TogglePin(ctx context.Context, id int64) error {
	if err := c.post(ctx, topicPath(id)+"toggle_pin/", nil, nil); err != nil {
		return fmt.Errorf("client.TogglePin: %w", err)
	}
	return nil
}

// ToggleLock locks or unlocks a topic. Moderators only.
func (c *Client) ToggleLock(ctx context.Context, id int64) error {
	if err := c.post(ctx, topicPath(id)+"toggle_lock/", nil, nil); err != nil {
		return fmt.Errorf("client.ToggleLock: %w", err)
	}
	return nil
}

// CreatePost replies to a topic.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*domain.Post, error) {
	var p domain.Post
	if err := c.post(ctx, "/forum/posts/", req, &p); err != nil {
		return nil, fmt.Errorf("client.CreatePost: %w", err)
	}
	return &p, nil
}

// DeletePost removes a reply.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	if err := c.del(ctx, postPath(id), nil); err != nil {
		return fmt.Errorf("client.DeletePost: %w", err)
	}
	return nil
}

// TogglePostLike likes a post, or removes the like if already set.
func (c *Client) TogglePostLike(ctx context.Context, id int64) (*domain.LikeResult, error) {
	var res domain.LikeResult
	if err := c.post(ctx, postPath(id)+"like/", nil, &res); err != nil {
		return nil, fmt.Errorf("client.TogglePostLike: %w", err)
	}
	return &res, nil
}

// ListPostLikes returns who liked a post.
func (c *Client) ListPostLikes(ctx context.Context, id int64) ([]domain.Like, error) {
	var likes []domain.Like
	if err := c.getList(ctx, postPath(id)+"likes/", &likes); err != nil {
		return nil, fmt.Errorf("client.ListPostLikes: %w", err)
	}
	return likes, nil
}

func topicPath(id int64) string {
	return "/forum/topics/" + strconv.FormatInt(id, 10) + "/"
}

func postPath(id int64) string {
	return "/forum/posts/" + strconv.FormatInt(id, 10) + "/"
}
