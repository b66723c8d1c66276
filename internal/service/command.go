package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/ws"
)

type SendMessageInput struct {
	ConversationID string
	Sender         identity.User
	Kind           models.MessageKind
	Body           string
	Attachments    []models.Attachment
	ReplyTo        string
}

// SendMessage persists a message and then notifies the room. The
// durable write always completes before any publish: a client that
// observes message:new can immediately fetch the message.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	conv, err := s.convs.Get(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}

	if !conv.IsActiveParticipant(in.Sender.ID) {
		if !in.Sender.Privileged() {
			return nil, apperr.Forbiddenf("user %s is not a participant of %s", in.Sender.ID, conv.ID)
		}
		// privileged callers are enrolled on the fly rather than refused
		p := models.Participant{
			UserID:     in.Sender.ID,
			Role:       in.Sender.Role,
			JoinedAt:   time.Now().UTC(),
			LastReadAt: time.Now().UTC(),
			IsActive:   true,
		}
		if err := s.convs.AddParticipant(ctx, conv.ID, p); err != nil {
			return nil, err
		}
		conv.Participants = append(conv.Participants, p)
	}

	if in.Kind == "" {
		in.Kind = models.MsgText
	}
	if !in.Kind.Valid() {
		return nil, apperr.Validationf("unknown message type %q", in.Kind)
	}
	if in.Body == "" && len(in.Attachments) == 0 {
		return nil, apperr.Validationf("message body or attachments required")
	}
	if in.ReplyTo != "" {
		ref, err := s.msgs.Get(ctx, in.ReplyTo)
		if err != nil {
			return nil, apperr.Validationf("reply target %s", in.ReplyTo)
		}
		if ref.ConversationID != conv.ID {
			return nil, apperr.Validationf("reply target %s belongs to another conversation", in.ReplyTo)
		}
	}

	m := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       in.Sender.ID,
		Kind:           in.Kind,
		Body:           in.Body,
		Attachments:    in.Attachments,
		ReplyTo:        in.ReplyTo,
		SeenBy:         []models.Seen{},
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.msgs.Insert(ctx, m); err != nil {
		return nil, err
	}

	lm := &models.LastMessage{Text: snapshotText(m), SenderID: m.SenderID, SentAt: m.CreatedAt}
	if err := s.convs.SetLastMessage(ctx, conv.ID, lm); err != nil {
		// snapshot is a cache; the message itself is already durable
		s.log.Warnw("update last-message snapshot", "conversation", conv.ID, "err", err)
	}

	s.invalidateUnread(ctx, conv)

	s.pub.Publish(conv.ID, ws.EvMessageNew, map[string]any{
		"conversationId": conv.ID,
		"message":        m,
	})
	s.pub.Publish(conv.ID, ws.EvConversationUpdated, map[string]any{
		"conversationId": conv.ID,
		"lastMessage":    lm,
	})
	return m, nil
}

func snapshotText(m *models.Message) string {
	if m.Body != "" {
		return m.Body
	}
	return fmt.Sprintf("📎 %d attachment(s)", len(m.Attachments))
}

// EditMessage is author-only; privileged callers get no exception
// here.
func (s *ChatService) EditMessage(ctx context.Context, messageID string, requester identity.User, newBody string) (*models.Message, error) {
	m, err := s.msgs.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.SenderID != requester.ID {
		return nil, apperr.Forbiddenf("only the author can edit message %s", messageID)
	}
	if newBody == "" {
		return nil, apperr.Validationf("message body required")
	}

	updated, err := s.msgs.Edit(ctx, messageID, newBody, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.pub.Publish(updated.ConversationID, ws.EvMessageEdited, map[string]any{
		"conversationId": updated.ConversationID,
		"message":        updated,
	})
	return updated, nil
}

// DeleteMessage tombstones the message; the record survives for
// by-id lookups. The event carries only the id so deleted text never
// leaves the store again.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID string, requester identity.User) error {
	m, err := s.msgs.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.SenderID != requester.ID && !requester.Privileged() {
		return apperr.Forbiddenf("user %s cannot delete message %s", requester.ID, messageID)
	}

	if err := s.msgs.SoftDelete(ctx, messageID); err != nil {
		return err
	}

	if conv, err := s.convs.Get(ctx, m.ConversationID); err == nil {
		s.invalidateUnread(ctx, conv)
	}
	s.rebuildSnapshot(ctx, m.ConversationID)

	s.pub.Publish(m.ConversationID, ws.EvMessageDeleted, map[string]any{
		"conversationId": m.ConversationID,
		"messageId":      messageID,
	})
	return nil
}

func (s *ChatService) invalidateUnread(ctx context.Context, conv *models.Conversation) {
	ids := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		ids = append(ids, p.UserID)
	}
	s.unread.Invalidate(ctx, ids...)
}
