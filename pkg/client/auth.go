package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tuningstudio/tuning/pkg/domain"
)

// Credentials is the sign-in payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the account creation payload.
type Registration struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Instagram      *string `json:"instagram,omitempty"`
	Telegram       *string `json:"telegram,omitempty"`
	YouTube        *string `json:"youtube,omitempty"`
	VK             *string `json:"vk,omitempty"`
	IsPhonePrivate *bool   `json:"is_phone_private,omitempty"`
	IsEmailPrivate *bool   `json:"is_email_private,omitempty"`
	IsNamePrivate  *bool   `json:"is_name_private,omitempty"`
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/auth/me/", &u); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &u, nil
}

// Login signs in and returns the user. The session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, creds Credentials) (*domain.User, error) {
	var u domain.User
	if err := c.post(ctx, "/auth/login/", creds, &u); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &u, nil
}

// Register creates an account; the server signs the new user in.
func (c *Client) Register(ctx context.Context, reg Registration) (*domain.User, error) {
	var u domain.User
	if err := c.post(ctx, "/auth/register/", reg, &u); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return &u, nil
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.post(ctx, "/auth/logout/", nil, nil); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	return nil
}

// UpdateProfile saves profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*domain.User, error) {
	var u domain.User
	if err := c.patch(ctx, "/auth/update_profile/", upd, &u); err != nil {
		return nil, fmt.Errorf("client.UpdateProfile: %w", err)
	}
	return &u, nil
}

// GetUser fetches a public profile.
func (c *Client) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/auth/users/"+strconv.FormatInt(id, 10)+"/", &u); err != nil {
		return nil, fmt.Errorf("client.GetUser: %w", err)
	}
	return &u, nil
}
