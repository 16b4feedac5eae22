package domain

import "time"

// ForumCategory is a top-level forum section.
type ForumCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Slug        string    `json:"slug"`
	Order       int       `json:"order,omitempty"`
	IsActive    bool      `json:"is_active"`
	TopicsCount int       `json:"topics_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Topic is a forum thread as listed in a category.
type Topic struct {
	ID             int64          `json:"id"`
	Category       int64          `json:"category"`
	CategoryDetail *ForumCategory `json:"category_detail,omitempty"`
	Author         *User          `json:"author,omitempty"`
	Title          string         `json:"title"`
	Content        string         `json:"content"`
	IsPinned       bool           `json:"is_pinned"`
	IsLocked       bool           `json:"is_locked"`
	ViewsCount     int            `json:"views_count"`
	PostsCount     int            `json:"posts_count"`
	LastPostAuthor *string        `json:"last_post_author,omitempty"`
	LastPostDate   *time.Time     `json:"last_post_date,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TopicDetail is a topic with its posts and images.
type TopicDetail struct {
	Topic
	Posts  []Post       `json:"posts"`
	Images []ForumImage `json:"images,omitempty"`
}

// Post is a reply inside a topic.
type Post struct {
	ID         int64        `json:"id"`
	Topic      int64        `json:"topic"`
	Author     *User        `json:"author,omitempty"`
	Content    string       `json:"content"`
	IsEdited   bool         `json:"is_edited"`
	EditedAt   *time.Time   `json:"edited_at,omitempty"`
	LikesCount int          `json:"likes_count"`
	IsLiked    bool         `json:"is_liked"`
	Images     []ForumImage `json:"images,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ForumImage is an image attached to a topic or post.
type ForumImage struct {
	ID        int64     `json:"id"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Topic     *int64    `json:"topic,omitempty"`
	Post      *int64    `json:"post,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Like is a user's like on a post.
type Like struct {
	ID        int64     `json:"id"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeResult is returned by the like toggle endpoints.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}
