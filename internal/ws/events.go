package ws

import "time"

// Server→client event names. Room-scoped unless noted.
const (
	EvMessageNew          = "message:new"
	EvMessageEdited       = "message:edited"
	EvMessageDeleted      = "message:deleted"
	EvConversationUpdated = "conversation:updated"
	EvMessagesRead        = "messages:read"
	EvTypingStart         = "typing:start"
	EvTypingStop          = "typing:stop"
	EvUserOnline          = "user:online"  // global
	EvUserOffline         = "user:offline" // global
)

// Client→server command names.
const (
	CmdJoin        = "conversation:join"
	CmdLeave       = "conversation:leave"
	CmdTypingStart = "typing:start"
	CmdTypingStop  = "typing:stop"
	CmdRead        = "messages:read"
)

type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type command struct {
	Event string `json:"event"`
	Data  struct {
		ConversationID string `json:"conversationId"`
	} `json:"data"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
}

type ReadPayload struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName"`
	ReadAt         time.Time `json:"readAt"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}
