package service

import (
	"context"
	"errors"
	"time"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/cache"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/ws"
)

// UnreadCounts reports how many visible messages sit past the user's
// watermark in each of their conversations. A user's own messages
// never count against them. Served from the Redis cache when fresh.
func (s *ChatService) UnreadCounts(ctx context.Context, user identity.User) (*cache.UnreadSummary, error) {
	if hit, ok := s.unread.Get(ctx, user.ID); ok {
		return hit, nil
	}

	var convs []*models.Conversation
	var err error
	if user.Privileged() {
		convs, err = s.convs.ListAll(ctx)
	} else {
		convs, err = s.convs.ListForUser(ctx, user.ID)
	}
	if err != nil {
		return nil, err
	}

	summary := &cache.UnreadSummary{PerConversation: make(map[string]int64, len(convs))}
	for _, c := range convs {
		// a privileged non-participant has no watermark; the zero time
		// counts everything they did not send
		var after time.Time
		if p := c.Participant(user.ID); p != nil {
			after = p.LastReadAt
		}
		n, err := s.msgs.CountUnread(ctx, c.ID, user.ID, after)
		if err != nil {
			return nil, err
		}
		summary.PerConversation[c.ID] = n
		summary.Total += n
	}

	s.unread.Set(ctx, user.ID, summary)
	return summary, nil
}

// MarkAsRead moves the caller's watermark to now and backfills seen_by,
// then tells the room so senders can render receipts. Forward-only:
// a stale call can never regress the watermark. Idempotent while no
// new messages arrive.
func (s *ChatService) MarkAsRead(ctx context.Context, convID string, user identity.User) error {
	if _, err := s.convs.Get(ctx, convID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.convs.AdvanceLastRead(ctx, convID, user.ID, now); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Forbiddenf("user %s is not a participant of %s", user.ID, convID)
		}
		return err
	}
	if err := s.msgs.BackfillSeen(ctx, convID, user.ID, now); err != nil {
		return err
	}
	s.unread.Invalidate(ctx, user.ID)

	s.pub.Publish(convID, ws.EvMessagesRead, ws.ReadPayload{
		ConversationID: convID,
		UserID:         user.ID,
		UserName:       user.Name,
		ReadAt:         now,
	})
	return nil
}
