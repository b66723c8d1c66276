// Package identity talks to the auth collaborator. Token verification
// prefers a local HS256 check when a shared secret is configured and
// falls back to the remote verify endpoint otherwise; user resolution
// is always a batched remote call.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/httpclient"
)

const RoleAdmin = "admin"

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

func (u User) Privileged() bool { return u.Role == RoleAdmin }

type Client struct {
	http     *httpclient.Client
	baseURL  string
	hsSecret []byte
}

func NewClient(hc *httpclient.Client, baseURL, hsSecret string) *Client {
	c := &Client{http: hc, baseURL: baseURL}
	if hsSecret != "" {
		c.hsSecret = []byte(hsSecret)
	}
	return c
}

type tokenClaims struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
	jwt.RegisteredClaims
}

// VerifyToken resolves a bearer token to its user. Inactive users are
// rejected the same way as bad tokens.
func (c *Client) VerifyToken(ctx context.Context, token string) (*User, error) {
	var u *User
	var err error
	if c.hsSecret != nil {
		u, err = c.verifyLocal(token)
	} else {
		u, err = c.verifyRemote(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("user %s inactive: %w", u.ID, apperr.ErrUnauthenticated)
	}
	return u, nil
}

func (c *Client) verifyLocal(token string) (*User, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.hsSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", apperr.ErrUnauthenticated)
	}
	return &User{ID: claims.Subject, Name: claims.Name, Role: claims.Role, IsActive: claims.IsActive}, nil
}

func (c *Client) verifyRemote(ctx context.Context, token string) (*User, error) {
	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/v1/verify", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("identity verify: %w", apperr.ErrUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity status %d: %w", resp.StatusCode, apperr.ErrUnauthenticated)
	}
	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}
	return &u, nil
}

// ResolveUsers fetches display users for ids in one batched call.
// Unknown ids are simply absent from the result.
func (c *Client) ResolveUsers(ctx context.Context, ids []string) (map[string]User, error) {
	if len(ids) == 0 {
		return map[string]User{}, nil
	}
	body, _ := json.Marshal(map[string][]string{"ids": ids})
	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/users/batch", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("identity batch: %w", apperr.ErrUnavailable)
	}
	defer resp.Body.Close()
	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make(map[string]User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
