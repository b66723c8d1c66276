// Package service implements the messaging core: conversation
// provisioning, send/list/edit/delete, and read reconciliation. The
// store is the source of truth; the realtime publisher and kafka
// mirror are best-effort side channels.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/cache"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/projects"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/repository"
)

// ConversationStore is the slice of the store the service needs for
// conversations; *repository.ConversationRepo satisfies it.
type ConversationStore interface {
	EnsureProjectGroup(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	Get(ctx context.Context, id string) (*models.Conversation, error)
	ListAll(ctx context.Context) ([]*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	ListForProjects(ctx context.Context, projectIDs []string) ([]*models.Conversation, error)
	AddParticipant(ctx context.Context, convID string, p models.Participant) error
	AdvanceLastRead(ctx context.Context, convID, userID string, at time.Time) error
	SetLastMessage(ctx context.Context, convID string, lm *models.LastMessage) error
}

// MessageStore is satisfied by *repository.MessageRepo.
type MessageStore interface {
	Insert(ctx context.Context, m *models.Message) error
	ListPage(ctx context.Context, convID string, page, limit int) ([]*models.Message, *repository.Page, error)
	Get(ctx context.Context, id string) (*models.Message, error)
	Edit(ctx context.Context, id, body string, at time.Time) (*models.Message, error)
	SoftDelete(ctx context.Context, id string) error
	BackfillSeen(ctx context.Context, convID, userID string, at time.Time) error
	CountUnread(ctx context.Context, convID, userID string, after time.Time) (int64, error)
	LatestVisible(ctx context.Context, convID string) (*models.Message, error)
}

// ProjectDirectory is the project collaborator surface used here.
type ProjectDirectory interface {
	GetProject(ctx context.Context, projectID string) (*projects.Project, error)
	ListByStatus(ctx context.Context, statuses []string) ([]projects.Project, error)
	ListForUser(ctx context.Context, userID string) ([]projects.Project, error)
}

// UserDirectory resolves user ids in one batched call.
type UserDirectory interface {
	ResolveUsers(ctx context.Context, ids []string) (map[string]identity.User, error)
}

// Publisher fans an event out to a conversation's room. At-most-once,
// no ack, no retry; an empty room is a silent no-op.
type Publisher interface {
	Publish(roomID, event string, payload any)
}

type ChatService struct {
	convs    ConversationStore
	msgs     MessageStore
	projects ProjectDirectory
	users    UserDirectory
	unread   *cache.UnreadCache
	pub      Publisher
	log      *zap.SugaredLogger
}

func New(convs ConversationStore, msgs MessageStore, pd ProjectDirectory, ud UserDirectory, unread *cache.UnreadCache, pub Publisher, log *zap.SugaredLogger) *ChatService {
	return &ChatService{
		convs:    convs,
		msgs:     msgs,
		projects: pd,
		users:    ud,
		unread:   unread,
		pub:      pub,
		log:      log,
	}
}
