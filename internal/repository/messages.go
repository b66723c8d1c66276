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

type MessageRepo struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	coll := db.Collection("messages")
	_, _ = coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetName("conv_chrono_idx"),
	})
	return &MessageRepo{coll: coll, counters: db.Collection("counters")}
}

// nextSeq hands out the per-conversation insertion sequence used to
// break created_at ties.
func (r *MessageRepo) nextSeq(ctx context.Context, convID string) (int64, error) {
	res := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "msg:" + convID},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	var doc struct {
		Value int64 `bson:"value"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Value, nil
}

func (r *MessageRepo) Insert(ctx context.Context, m *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	seq, err := r.nextSeq(ctx, m.ConversationID)
	if err != nil {
		return err
	}
	m.Seq = seq
	if m.SeenBy == nil {
		m.SeenBy = []models.Seen{}
	}
	_, err = r.coll.InsertOne(ctx, m)
	return err
}

type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// ListPage returns page N of the conversation's visible messages. Page
// 1 holds the most recent window; within every page messages run
// oldest to newest.
func (r *MessageRepo) ListPage(ctx context.Context, convID string, page, limit int) ([]*models.Message, *Page, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"conversation_id": convID, "is_deleted": false}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, nil, err
	}
	defer cur.Close(ctx)

	out := []*models.Message{}
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, nil, err
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, nil, err
	}
	// chronological within the page
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	pg := &Page{Page: page, Limit: limit, Total: total, TotalPages: (total + int64(limit) - 1) / int64(limit)}
	return out, pg, nil
}

// Get resolves a message by id, tombstoned or not.
func (r *MessageRepo) Get(ctx context.Context, id string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var m models.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("message %s", id)
		}
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) Edit(ctx context.Context, id, body string, at time.Time) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"body": body, "is_edited": true, "edited_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var m models.Message
	if err := res.Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("message %s", id)
		}
		return nil, err
	}
	return &m, nil
}

// SoftDelete tombstones the message; the record stays resolvable by id.
func (r *MessageRepo) SoftDelete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_deleted": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("message %s", id)
	}
	return nil
}

// BackfillSeen adds the reader to seen_by of every visible message in
// the conversation sent by someone else that they have not seen yet.
// The $ne filter gives seen_by set semantics per user.
func (r *MessageRepo) BackfillSeen(ctx context.Context, convID, userID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.coll.UpdateMany(ctx,
		bson.M{
			"conversation_id": convID,
			"is_deleted":      false,
			"sender_id":       bson.M{"$ne": userID},
			"seen_by.user_id": bson.M{"$ne": userID},
		},
		bson.M{"$push": bson.M{"seen_by": models.Seen{UserID: userID, SeenAt: at}}},
	)
	return err
}

// CountUnread counts visible messages newer than the watermark that
// the user did not send themselves.
func (r *MessageRepo) CountUnread(ctx context.Context, convID, userID string, after time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.coll.CountDocuments(ctx, bson.M{
		"conversation_id": convID,
		"is_deleted":      false,
		"sender_id":       bson.M{"$ne": userID},
		"created_at":      bson.M{"$gt": after},
	})
}

// LatestVisible returns the newest non-deleted message, used to
// rebuild the conversation snapshot after a partial failure.
func (r *MessageRepo) LatestVisible(ctx context.Context, convID string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}})
	var m models.Message
	err := r.coll.FindOne(ctx, bson.M{"conversation_id": convID, "is_deleted": false}, opts).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFoundf("messages in conversation %s", convID)
		}
		return nil, err
	}
	return &m, nil
}
