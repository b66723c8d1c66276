package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/cache"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/projects"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/repository"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/service"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/ws"
)

// stubAuth accepts exactly one token.
type stubAuth struct{ user identity.User }

func (a stubAuth) VerifyToken(_ context.Context, token string) (*identity.User, error) {
	if token != "good-token" {
		return nil, apperr.ErrUnauthenticated
	}
	u := a.user
	return &u, nil
}

// emptyStore satisfies both store interfaces with a vacant dataset so
// routing, auth, and error mapping can be exercised end to end.
type emptyStore struct{}

func (emptyStore) EnsureProjectGroup(_ context.Context, c *models.Conversation) (*models.Conversation, error) {
	return c, nil
}

func (emptyStore) Get(_ context.Context, id string) (*models.Conversation, error) {
	return nil, apperr.NotFoundf("conversation %s", id)
}

func (emptyStore) ListAll(context.Context) ([]*models.Conversation, error) { return nil, nil }
func (emptyStore) ListForUser(context.Context, string) ([]*models.Conversation, error) {
	return nil, nil
}
func (emptyStore) ListForProjects(context.Context, []string) ([]*models.Conversation, error) {
	return nil, nil
}
func (emptyStore) AddParticipant(context.Context, string, models.Participant) error { return nil }
func (emptyStore) AdvanceLastRead(context.Context, string, string, time.Time) error { return nil }
func (emptyStore) SetLastMessage(context.Context, string, *models.LastMessage) error {
	return nil
}

type emptyMsgStore struct{}

func (emptyMsgStore) Insert(context.Context, *models.Message) error { return nil }
func (emptyMsgStore) ListPage(context.Context, string, int, int) ([]*models.Message, *repository.Page, error) {
	return nil, &repository.Page{Page: 1, Limit: 50}, nil
}
func (emptyMsgStore) Get(_ context.Context, id string) (*models.Message, error) {
	return nil, apperr.NotFoundf("message %s", id)
}
func (emptyMsgStore) Edit(_ context.Context, id string, _ string, _ time.Time) (*models.Message, error) {
	return nil, apperr.NotFoundf("message %s", id)
}
func (emptyMsgStore) SoftDelete(_ context.Context, id string) error {
	return apperr.NotFoundf("message %s", id)
}
func (emptyMsgStore) BackfillSeen(context.Context, string, string, time.Time) error { return nil }
func (emptyMsgStore) CountUnread(context.Context, string, string, time.Time) (int64, error) {
	return 0, nil
}
func (emptyMsgStore) LatestVisible(_ context.Context, convID string) (*models.Message, error) {
	return nil, apperr.NotFoundf("messages in conversation %s", convID)
}

type emptyDirectory struct{}

func (emptyDirectory) GetProject(_ context.Context, id string) (*projects.Project, error) {
	return nil, apperr.NotFoundf("project %s", id)
}
func (emptyDirectory) ListByStatus(context.Context, []string) ([]projects.Project, error) {
	return nil, nil
}
func (emptyDirectory) ListForUser(context.Context, string) ([]projects.Project, error) {
	return nil, nil
}
func (emptyDirectory) ResolveUsers(context.Context, []string) (map[string]identity.User, error) {
	return map[string]identity.User{}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

func doReq(t *testing.T, method, path, token string) (*http.Response, map[string]any) {
	t.Helper()
	log := zap.NewNop().Sugar()
	chat := service.New(emptyStore{}, emptyMsgStore{}, emptyDirectory{}, emptyDirectory{}, cache.NewUnreadCache(nil, "test"), nopPublisher{}, log)
	auth := stubAuth{user: identity.User{ID: "u1", Name: "Tess", Role: "developer", IsActive: true}}
	hub := ws.NewHub(ws.NewMemoryRegistry(), nil, log)
	wsrv := ws.NewServer(hub, auth, chat, ws.Timeouts{}, log)
	app := NewServer(chat, wsrv, auth)

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var body map[string]any
	b, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(b, &body)
	return resp, body
}

func TestHealthz(t *testing.T) {
	resp, body := doReq(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	resp, _ := doReq(t, http.MethodGet, "/conversations", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doReq(t, http.MethodGet, "/conversations", "bad-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListConversationsEmpty(t *testing.T) {
	resp, body := doReq(t, http.MethodGet, "/conversations", "good-token")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, body["conversations"])
}

func TestNotFoundMapping(t *testing.T) {
	resp, body := doReq(t, http.MethodGet, "/conversations/ghost/messages", "good-token")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "conversation")

	resp, _ = doReq(t, http.MethodDelete, "/messages/ghost", "good-token")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnreadCountEmpty(t *testing.T) {
	resp, body := doReq(t, http.MethodGet, "/unread-count", "good-token")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["total"])
}
