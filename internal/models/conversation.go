package models

import "time"

// ConversationKind is a closed set; reject anything else at the edges.
type ConversationKind string

const (
	KindProjectGroup ConversationKind = "project_group"
	KindDirect       ConversationKind = "direct"
)

func (k ConversationKind) Valid() bool {
	return k == KindProjectGroup || k == KindDirect
}

// Participant is owned by its Conversation. LastReadAt is the read
// watermark; it only ever moves forward.
type Participant struct {
	UserID     string    `bson:"user_id" json:"userId"`
	Role       string    `bson:"role" json:"role"`
	JoinedAt   time.Time `bson:"joined_at" json:"joinedAt"`
	LastReadAt time.Time `bson:"last_read_at" json:"lastReadAt"`
	IsActive   bool      `bson:"is_active" json:"isActive"`
}

// LastMessage is a denormalized snapshot for sidebar rendering. It is
// a cache: the source of truth is always the messages collection.
type LastMessage struct {
	Text     string    `bson:"text" json:"text"`
	SenderID string    `bson:"sender_id" json:"senderId"`
	SentAt   time.Time `bson:"sent_at" json:"sentAt"`
}

type Conversation struct {
	ID           string           `bson:"_id" json:"id"`
	ProjectID    string           `bson:"project_id,omitempty" json:"projectId,omitempty"`
	Kind         ConversationKind `bson:"kind" json:"kind"`
	Participants []Participant    `bson:"participants" json:"participants"`
	LastMessage  *LastMessage     `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	CreatedAt    time.Time        `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updatedAt"`
}

// Participant returns the participant entry for userID, or nil.
func (c *Conversation) Participant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

func (c *Conversation) IsActiveParticipant(userID string) bool {
	p := c.Participant(userID)
	return p != nil && p.IsActive
}
