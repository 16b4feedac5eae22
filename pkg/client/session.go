package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// savedCookie is the persisted form of one API cookie.
type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HasSession reports whether the jar holds a server session cookie.
func (c *Client) HasSession() bool {
	return c.cookie(sessionCookieName) != ""
}

// ExportSession serializes the cookies the jar holds for the API host.
func (c *Client) ExportSession() ([]byte, error) {
	saved := []savedCookie{}
	if c.base != nil {
		for _, ck := range c.jar.Cookies(c.base) {
			saved = append(saved, savedCookie{Name: ck.Name, Value: ck.Value})
		}
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("client.ExportSession: %w", err)
	}
	return data, nil
}

// ImportSession loads cookies produced by ExportSession into the jar.
func (c *Client) ImportSession(data []byte) error {
	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("client.ImportSession: %w", err)
	}
	if c.base == nil || len(saved) == 0 {
		return nil
	}
	root := *c.base
	root.Path = "/"
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		if s.Name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.jar.SetCookies(&root, cookies)
	return nil
}

// ResetSession expires every API cookie, leaving the client anonymous.
func (c *Client) ResetSession() {
	if c.base == nil {
		return
	}
	root := *c.base
	root.Path = "/"
	existing := c.jar.Cookies(c.base)
	expired := make([]*http.Cookie, 0, len(existing))
	for _, ck := range existing {
		expired = append(expired, &http.Cookie{Name: ck.Name, Value: "", Path: "/", MaxAge: -1})
	}
	c.jar.SetCookies(&root, expired)
}
