package ws

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/identity"
)

// Reader is the slice of the messaging core the transport needs for
// the messages:read command.
type Reader interface {
	MarkAsRead(ctx context.Context, conversationID string, user identity.User) error
}

type Authenticator interface {
	VerifyToken(ctx context.Context, token string) (*identity.User, error)
}

type Server struct {
	hub    *Hub
	auth   Authenticator
	reader Reader
	to     Timeouts
	log    *zap.SugaredLogger
}

func NewServer(hub *Hub, auth Authenticator, reader Reader, to Timeouts, log *zap.SugaredLogger) *Server {
	return &Server{hub: hub, auth: auth, reader: reader, to: to, log: log}
}

func (s *Server) Hub() *Hub { return s.hub }

// HandleWS authenticates the handshake and runs the connection pumps.
// A bad token or inactive user is refused before the connection ever
// registers with the hub.
func (s *Server) HandleWS() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		token := conn.Query("token")
		if token == "" {
			_ = conn.Close()
			return
		}
		user, err := s.auth.VerifyToken(context.Background(), token)
		if err != nil {
			s.log.Debugw("ws handshake refused", "err", err)
			_ = conn.Close()
			return
		}

		c := NewClient(uuid.NewString(), *user, conn, s.hub, s.to)
		s.hub.Register(c)
		go c.writePump()
		c.readPump(s.reader)
	}
}
