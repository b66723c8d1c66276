package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/projects"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/repository"
)

// fakeStore backs both store interfaces with maps, mirroring the
// conditional-update semantics of the Mongo repos.
type fakeStore struct {
	mu    sync.Mutex
	convs map[string]*models.Conversation
	msgs  map[string]*models.Message
	seq   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		convs: make(map[string]*models.Conversation),
		msgs:  make(map[string]*models.Message),
	}
}

func cloneConv(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = append([]models.Participant(nil), c.Participants...)
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	return &cp
}

func cloneMsg(m *models.Message) *models.Message {
	cp := *m
	cp.SeenBy = append([]models.Seen(nil), m.SeenBy...)
	cp.Attachments = append([]models.Attachment(nil), m.Attachments...)
	return &cp
}

func (f *fakeStore) EnsureProjectGroup(_ context.Context, conv *models.Conversation) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if c.ProjectID == conv.ProjectID && c.Kind == models.KindProjectGroup {
			return cloneConv(c), nil
		}
	}
	f.convs[conv.ID] = cloneConv(conv)
	return cloneConv(conv), nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, apperr.NotFoundf("conversation %s", id)
	}
	return cloneConv(c), nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conversation
	for _, c := range f.convs {
		out = append(out, cloneConv(c))
	}
	return out, nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID string) ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conversation
	for _, c := range f.convs {
		if c.Participant(userID) != nil {
			out = append(out, cloneConv(c))
		}
	}
	return out, nil
}

func (f *fakeStore) ListForProjects(_ context.Context, projectIDs []string) ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conversation
	for _, c := range f.convs {
		for _, pid := range projectIDs {
			if c.ProjectID == pid && c.Kind == models.KindProjectGroup {
				out = append(out, cloneConv(c))
			}
		}
	}
	return out, nil
}

func (f *fakeStore) AddParticipant(_ context.Context, convID string, p models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[convID]
	if !ok {
		return apperr.NotFoundf("conversation %s", convID)
	}
	if c.Participant(p.UserID) != nil {
		return nil
	}
	c.Participants = append(c.Participants, p)
	return nil
}

func (f *fakeStore) AdvanceLastRead(_ context.Context, convID, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[convID]
	if !ok {
		return apperr.NotFoundf("conversation %s", convID)
	}
	p := c.Participant(userID)
	if p == nil {
		return apperr.NotFoundf("participant %s in conversation %s", userID, convID)
	}
	if at.After(p.LastReadAt) {
		p.LastReadAt = at
	}
	return nil
}

func (f *fakeStore) SetLastMessage(_ context.Context, convID string, lm *models.LastMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[convID]
	if !ok {
		return apperr.NotFoundf("conversation %s", convID)
	}
	c.LastMessage = lm
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeStore) Insert(_ context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	m.Seq = f.seq
	f.msgs[m.ID] = cloneMsg(m)
	return nil
}

func (f *fakeStore) visible(convID string) []*models.Message {
	var out []*models.Message
	for _, m := range f.msgs {
		if m.ConversationID == convID && !m.IsDeleted {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (f *fakeStore) ListPage(_ context.Context, convID string, page, limit int) ([]*models.Message, *repository.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.visible(convID)
	total := int64(len(all))

	// page 1 is the newest window; chronological inside the page
	end := len(all) - (page-1)*limit
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]*models.Message, 0, end-start)
	for _, m := range all[start:end] {
		out = append(out, cloneMsg(m))
	}
	pg := &repository.Page{Page: page, Limit: limit, Total: total, TotalPages: (total + int64(limit) - 1) / int64(limit)}
	return out, pg, nil
}

func (f *fakeStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return nil, apperr.NotFoundf("message %s", id)
	}
	return cloneMsg(m), nil
}

func (f *fakeStore) Edit(_ context.Context, id, body string, at time.Time) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return nil, apperr.NotFoundf("message %s", id)
	}
	m.Body = body
	m.IsEdited = true
	m.EditedAt = &at
	return cloneMsg(m), nil
}

func (f *fakeStore) SoftDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return apperr.NotFoundf("message %s", id)
	}
	m.IsDeleted = true
	return nil
}

func (f *fakeStore) BackfillSeen(_ context.Context, convID, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ConversationID != convID || m.IsDeleted || m.SenderID == userID {
			continue
		}
		if m.SeenByUser(userID) {
			continue
		}
		m.SeenBy = append(m.SeenBy, models.Seen{UserID: userID, SeenAt: at})
	}
	return nil
}

func (f *fakeStore) CountUnread(_ context.Context, convID, userID string, after time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.visible(convID) {
		if m.SenderID != userID && m.CreatedAt.After(after) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) LatestVisible(_ context.Context, convID string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.visible(convID)
	if len(all) == 0 {
		return nil, apperr.NotFoundf("messages in conversation %s", convID)
	}
	return cloneMsg(all[len(all)-1]), nil
}

// messageStoreAdapter renames GetMessage to Get so fakeStore can back
// both interfaces without a method clash with ConversationStore.Get.
type messageStoreAdapter struct{ *fakeStore }

func (a messageStoreAdapter) Get(ctx context.Context, id string) (*models.Message, error) {
	return a.GetMessage(ctx, id)
}

// fakeDirectory serves both the project and user collaborators.
type fakeDirectory struct {
	mu    sync.Mutex
	projs map[string]projects.Project
	users map[string]identity.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		projs: make(map[string]projects.Project),
		users: make(map[string]identity.User),
	}
}

func (d *fakeDirectory) addUser(u identity.User) { d.users[u.ID] = u }

func (d *fakeDirectory) addProject(p projects.Project) { d.projs[p.ID] = p }

func (d *fakeDirectory) GetProject(_ context.Context, id string) (*projects.Project, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.projs[id]
	if !ok {
		return nil, apperr.NotFoundf("project %s", id)
	}
	return &p, nil
}

func (d *fakeDirectory) ListByStatus(_ context.Context, statuses []string) ([]projects.Project, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []projects.Project
	for _, p := range d.projs {
		for _, s := range statuses {
			if p.Status == s {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (d *fakeDirectory) ListForUser(_ context.Context, userID string) ([]projects.Project, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []projects.Project
	for _, p := range d.projs {
		if p.HasStakeholder(userID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *fakeDirectory) ResolveUsers(_ context.Context, ids []string) (map[string]identity.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]identity.User)
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// recordingPublisher captures room events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Room    string
	Event   string
	Payload any
}

func (p *recordingPublisher) Publish(roomID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Room: roomID, Event: event, Payload: payload})
}

func (p *recordingPublisher) byEvent(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
