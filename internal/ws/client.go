package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
)

// Timeouts tuned for browser clients behind proxies.
type Timeouts struct {
	PingInterval  time.Duration
	WriteDeadline time.Duration
	ReadDeadline  time.Duration
	MaxMessageLen int64
}

// Client is one websocket connection of one authenticated user. A user
// may hold many clients at once (multi-device).
type Client struct {
	ID   string
	User identity.User

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	to   Timeouts
}

func NewClient(id string, user identity.User, conn *websocket.Conn, hub *Hub, to Timeouts) *Client {
	return &Client{
		ID:   id,
		User: user,
		conn: conn,
		send: make(chan []byte, 256),
		hub:  hub,
		to:   to,
	}
}

// Send queues a frame; slow consumers get frames dropped rather than
// stalling the hub.
func (c *Client) Send(b []byte) {
	select {
	case c.send <- b:
	default:
	}
}

// readPump consumes client commands until the socket errors, then
// unregisters. Unknown or malformed commands are ignored.
func (c *Client) readPump(reader Reader) {
	// send is never closed: the hub may race a publish against
	// teardown. writePump exits on its own once the conn is gone.
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(c.to.MaxMessageLen)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.to.ReadDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.to.ReadDeadline))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		convID := cmd.Data.ConversationID
		if convID == "" {
			continue
		}
		switch cmd.Event {
		case CmdJoin:
			c.hub.Join(convID, c.ID)
		case CmdLeave:
			c.hub.Leave(convID, c.ID)
		case CmdTypingStart:
			c.hub.PublishExcept(convID, c.ID, EvTypingStart, TypingPayload{
				ConversationID: convID, UserID: c.User.ID, UserName: c.User.Name,
			})
		case CmdTypingStop:
			c.hub.PublishExcept(convID, c.ID, EvTypingStop, TypingPayload{
				ConversationID: convID, UserID: c.User.ID, UserName: c.User.Name,
			})
		case CmdRead:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := reader.MarkAsRead(ctx, convID, c.User); err != nil {
				c.hub.log.Debugw("ws mark read", "conversation", convID, "user", c.User.ID, "err", err)
			}
			cancel()
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.to.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.to.WriteDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.to.WriteDeadline))
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
