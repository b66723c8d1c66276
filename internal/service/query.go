package service

import (
	"context"
	"errors"
	"time"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessagePage struct {
	Messages   []*models.Message `json:"messages"`
	Pagination *repository.Page  `json:"pagination"`
}

// GetMessages returns page N of the conversation, oldest to newest
// within the page, tombstones excluded.
//
// Fetching is also marking read: every call, whatever the page,
// advances the caller's watermark and adds them to seen_by of all
// visible messages from other senders. Clients rely on this coupling;
// do not split it.
func (s *ChatService) GetMessages(ctx context.Context, convID string, caller identity.User, page, limit int) (*MessagePage, error) {
	conv, err := s.convs.Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	participant := conv.Participant(caller.ID)
	if participant == nil && !caller.Privileged() {
		return nil, apperr.Forbiddenf("user %s is not a participant of %s", caller.ID, convID)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	msgs, pg, err := s.msgs.ListPage(ctx, convID, page, limit)
	if err != nil {
		return nil, err
	}

	if participant != nil {
		now := time.Now().UTC()
		if err := s.convs.AdvanceLastRead(ctx, convID, caller.ID, now); err != nil {
			s.log.Warnw("advance watermark", "conversation", convID, "user", caller.ID, "err", err)
		}
		if err := s.msgs.BackfillSeen(ctx, convID, caller.ID, now); err != nil {
			s.log.Warnw("seen backfill", "conversation", convID, "user", caller.ID, "err", err)
		}
		s.unread.Invalidate(ctx, caller.ID)
	}

	return &MessagePage{Messages: msgs, Pagination: pg}, nil
}

// GetMessage resolves a single message by id, tombstoned or not.
func (s *ChatService) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	return s.msgs.Get(ctx, messageID)
}

// rebuildSnapshot recomputes last_message from the newest visible
// message. Best-effort: the snapshot is only a cache.
func (s *ChatService) rebuildSnapshot(ctx context.Context, convID string) {
	latest, err := s.msgs.LatestVisible(ctx, convID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			if err := s.convs.SetLastMessage(ctx, convID, nil); err != nil {
				s.log.Warnw("clear snapshot", "conversation", convID, "err", err)
			}
			return
		}
		s.log.Warnw("rebuild snapshot", "conversation", convID, "err", err)
		return
	}
	lm := &models.LastMessage{Text: snapshotText(latest), SenderID: latest.SenderID, SentAt: latest.CreatedAt}
	if err := s.convs.SetLastMessage(ctx, convID, lm); err != nil {
		s.log.Warnw("rebuild snapshot", "conversation", convID, "err", err)
	}
}
