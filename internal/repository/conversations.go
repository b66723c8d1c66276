package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
)

const opTimeout = 5 * time.Second

type ConversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	coll := db.Collection("conversations")
	// Partial unique index keeps one group conversation per project even
	// under concurrent first access.
	_, _ = coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "kind", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"kind": models.KindProjectGroup}).
			SetName("project_group_unique"),
	})
	_, _ = coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "participants.user_id", Value: 1}},
		Options: options.Index().SetName("participants_idx"),
	})
	return &ConversationRepo{coll: coll}
}

// EnsureProjectGroup inserts the conversation if no group conversation
// exists for its project yet, otherwise returns the existing one. The
// whole check-and-insert is a single conditional update.
func (r *ConversationRepo) EnsureProjectGroup(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"project_id": conv.ProjectID, "kind": models.KindProjectGroup}
	res := r.coll.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$setOnInsert": conv},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var out models.Conversation
	if err := res.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var c models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("conversation %s", id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepo) GetByProject(ctx context.Context, projectID string) (*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var c models.Conversation
	err := r.coll.FindOne(ctx, bson.M{"project_id": projectID, "kind": models.KindProjectGroup}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("conversation for project %s", projectID)
		}
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepo) ListAll(ctx context.Context) ([]*models.Conversation, error) {
	return r.list(ctx, bson.M{})
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return r.list(ctx, bson.M{"participants.user_id": userID})
}

// ListForProjects returns group conversations for the given project
// ids regardless of membership; provisioning appends missing callers.
func (r *ConversationRepo) ListForProjects(ctx context.Context, projectIDs []string) ([]*models.Conversation, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, bson.M{
		"project_id": bson.M{"$in": projectIDs},
		"kind":       models.KindProjectGroup,
	})
}

func (r *ConversationRepo) list(ctx context.Context, filter bson.M) ([]*models.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*models.Conversation
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

// AddParticipant appends the participant unless an entry for the user
// is already present; uniqueness is part of the filter, not a later
// cleanup.
func (r *ConversationRepo) AddParticipant(ctx context.Context, convID string, p models.Participant) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": convID, "participants.user_id": bson.M{"$ne": p.UserID}},
		bson.M{
			"$push": bson.M{"participants": p},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

// AdvanceLastRead moves the user's watermark forward; $max keeps a
// stale caller from regressing it.
func (r *ConversationRepo) AdvanceLastRead(ctx context.Context, convID, userID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": convID, "participants.user_id": userID},
		bson.M{"$max": bson.M{"participants.$.last_read_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("participant %s in conversation %s", userID, convID)
	}
	return nil
}

// SetLastMessage refreshes the sidebar snapshot. The snapshot is a
// cache; failures here are tolerated by callers.
func (r *ConversationRepo) SetLastMessage(ctx context.Context, convID string, lm *models.LastMessage) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": convID},
		bson.M{"$set": bson.M{"last_message": lm, "updated_at": time.Now().UTC()}},
	)
	return err
}
