package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/projects"
)

// EnsureProjectConversation materializes the project's group
// conversation. Idempotent: concurrent first access resolves to a
// single conversation through the store's conditional upsert. The
// initial roster is the project's stakeholders intersected with users
// the identity directory actually knows.
func (s *ChatService) EnsureProjectConversation(ctx context.Context, projectID string) (*models.Conversation, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	known, err := s.users.ResolveUsers(ctx, project.StakeholderIDs())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	participants := make([]models.Participant, 0, len(known))
	for _, id := range project.StakeholderIDs() {
		u, ok := known[id]
		if !ok {
			continue
		}
		participants = append(participants, models.Participant{
			UserID:     u.ID,
			Role:       u.Role,
			JoinedAt:   now,
			LastReadAt: now,
			IsActive:   true,
		})
	}

	conv := &models.Conversation{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Kind:         models.KindProjectGroup,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.convs.EnsureProjectGroup(ctx, conv)
}

// ListConversations returns the caller's conversations. Admin callers
// see everything, after healing any healable project that still lacks
// a group conversation. Other callers get their stakeholder projects'
// conversations and are appended to rosters they are missing from
// (assignment may postdate conversation creation).
func (s *ChatService) ListConversations(ctx context.Context, user identity.User) ([]*models.Conversation, error) {
	if user.Privileged() {
		return s.listAdmin(ctx)
	}
	return s.listStakeholder(ctx, user)
}

func (s *ChatService) listAdmin(ctx context.Context) ([]*models.Conversation, error) {
	projs, err := s.projects.ListByStatus(ctx, projects.HealableStatuses)
	if err != nil {
		return nil, err
	}
	for _, p := range projs {
		if _, err := s.EnsureProjectConversation(ctx, p.ID); err != nil {
			s.log.Warnw("heal conversation", "project", p.ID, "err", err)
		}
	}
	return s.convs.ListAll(ctx)
}

func (s *ChatService) listStakeholder(ctx context.Context, user identity.User) ([]*models.Conversation, error) {
	projs, err := s.projects.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(projs))
	for i, p := range projs {
		ids[i] = p.ID
	}

	convs, err := s.convs.ListForProjects(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		if c.Participant(user.ID) != nil {
			continue
		}
		p := models.Participant{
			UserID:     user.ID,
			Role:       user.Role,
			JoinedAt:   time.Now().UTC(),
			LastReadAt: time.Now().UTC(),
			IsActive:   true,
		}
		if err := s.convs.AddParticipant(ctx, c.ID, p); err != nil {
			s.log.Warnw("self-heal membership", "conversation", c.ID, "user", user.ID, "err", err)
			continue
		}
		c.Participants = append(c.Participants, p)
	}
	return convs, nil
}
