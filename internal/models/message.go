package models

import "time"

type MessageKind string

const (
	MsgText   MessageKind = "text"
	MsgFile   MessageKind = "file"
	MsgImage  MessageKind = "image"
	MsgSystem MessageKind = "system"
)

func (k MessageKind) Valid() bool {
	switch k {
	case MsgText, MsgFile, MsgImage, MsgSystem:
		return true
	}
	return false
}

// Attachment holds blob-storage metadata only; the bytes live with the
// storage collaborator.
type Attachment struct {
	Name     string `bson:"name" json:"name"`
	URL      string `bson:"url" json:"url"`
	MimeType string `bson:"mime_type" json:"mimeType"`
	Size     int64  `bson:"size" json:"size"`
}

// Seen records a single reader; at most one entry per user on a
// message.
type Seen struct {
	UserID string    `bson:"user_id" json:"userId"`
	SeenAt time.Time `bson:"seen_at" json:"seenAt"`
}

// Message is never hard-deleted: IsDeleted tombstones it out of list
// reads while keeping it resolvable by id. Seq breaks created-at ties
// inside a conversation.
type Message struct {
	ID             string       `bson:"_id" json:"id"`
	ConversationID string       `bson:"conversation_id" json:"conversationId"`
	SenderID       string       `bson:"sender_id" json:"senderId"`
	Kind           MessageKind  `bson:"kind" json:"kind"`
	Body           string       `bson:"body" json:"body"`
	Attachments    []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	ReplyTo        string       `bson:"reply_to,omitempty" json:"replyTo,omitempty"`
	IsEdited       bool         `bson:"is_edited" json:"isEdited"`
	EditedAt       *time.Time   `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	IsDeleted      bool         `bson:"is_deleted" json:"isDeleted"`
	SeenBy         []Seen       `bson:"seen_by" json:"seenBy"`
	CreatedAt      time.Time    `bson:"created_at" json:"createdAt"`
	Seq            int64        `bson:"seq" json:"-"`
}

func (m *Message) SeenByUser(userID string) bool {
	for _, s := range m.SeenBy {
		if s.UserID == userID {
			return true
		}
	}
	return false
}
