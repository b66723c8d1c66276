package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberws "github.com/gofiber/websocket/v2"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/service"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/ws"
)

type Server struct {
	chat *service.ChatService
	ws   *ws.Server
	app  *fiber.App
}

// NewServer wires the REST surface and the websocket upgrade route.
func NewServer(chat *service.ChatService, wsrv *ws.Server, auth ws.Authenticator) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	s := &Server{chat: chat, ws: wsrv, app: app}

	app.Use(logger.New())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ws handshake carries its own token; REST routes use the bearer
	// middleware
	app.Get("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, fiberws.New(wsrv.HandleWS()))

	// routes live at the root; the bearer check is bound per route so
	// /healthz and the ws handshake stay outside it
	mw := AuthMiddleware(auth)
	app.Get("/conversations", mw, s.listConversations)
	app.Post("/conversations/project/:projectId", mw, s.ensureConversation)
	app.Get("/conversations/:id/messages", mw, s.getMessages)
	app.Post("/conversations/:id/messages", mw, s.sendMessage)
	app.Get("/unread-count", mw, s.unreadCount)
	app.Post("/conversations/:id/read", mw, s.markAsRead)
	app.Put("/messages/:id", mw, s.editMessage)
	app.Delete("/messages/:id", mw, s.deleteMessage)

	return app
}
