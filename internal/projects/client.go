// Package projects talks to the project directory collaborator.
package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/httpclient"
)

// Statuses whose projects get a group conversation healed on admin
// listing.
var HealableStatuses = []string{"active", "on-hold", "draft"}

type Project struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	ClientID     string   `json:"clientId"`
	ManagerID    string   `json:"managerId"`
	DeveloperIDs []string `json:"developerIds"`
	CreatedBy    string   `json:"createdBy"`
}

// StakeholderIDs returns the deduplicated stakeholder set; these are
// the users seeded as conversation participants.
func (p Project) StakeholderIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(p.ClientID)
	add(p.ManagerID)
	for _, d := range p.DeveloperIDs {
		add(d)
	}
	add(p.CreatedBy)
	return out
}

func (p Project) HasStakeholder(userID string) bool {
	for _, id := range p.StakeholderIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

type Client struct {
	http    *httpclient.Client
	baseURL string
}

func NewClient(hc *httpclient.Client, baseURL string) *Client {
	return &Client{http: hc, baseURL: baseURL}
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("project directory: %w", apperr.ErrUnavailable)
	}
	return resp, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	resp, err := c.get(ctx, "/v1/projects/"+url.PathEscape(projectID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	var p Project
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}

// ListByStatus returns projects in any of the given statuses.
func (c *Client) ListByStatus(ctx context.Context, statuses []string) ([]Project, error) {
	q := url.Values{}
	for _, s := range statuses {
		q.Add("status", s)
	}
	resp, err := c.get(ctx, "/v1/projects?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out []Project
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return out, nil
}

// ListForUser returns projects where the user holds a stakeholder
// relationship (client, manager or developer).
func (c *Client) ListForUser(ctx context.Context, userID string) ([]Project, error) {
	resp, err := c.get(ctx, "/v1/users/"+url.PathEscape(userID)+"/projects")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out []Project
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return out, nil
}
