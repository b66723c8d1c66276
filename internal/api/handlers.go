package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deepak748030/agencyflow-crm-sub001/internal/apperr"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/models"
	"github.com/deepak748030/agencyflow-crm-sub001/internal/service"
)

func fail(c *fiber.Ctx, err error) error {
	code := apperr.StatusCode(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		// keep store details out of client responses
		msg = "internal error"
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func (s *Server) listConversations(c *fiber.Ctx) error {
	convs, err := s.chat.ListConversations(c.Context(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	return c.JSON(fiber.Map{"conversations": convs})
}

func (s *Server) ensureConversation(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return fail(c, apperr.Validationf("missing projectId"))
	}
	conv, err := s.chat.EnsureProjectConversation(c.Context(), projectID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(conv)
}

func (s *Server) getMessages(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 0)
	out, err := s.chat.GetMessages(c.Context(), c.Params("id"), currentUser(c), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

type sendMessageReq struct {
	Message     string              `json:"message"`
	Type        string              `json:"type"`
	Attachments []models.Attachment `json:"attachments"`
	ReplyTo     string              `json:"replyTo"`
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.Validationf("invalid payload"))
	}
	msg, err := s.chat.SendMessage(c.Context(), service.SendMessageInput{
		ConversationID: c.Params("id"),
		Sender:         currentUser(c),
		Kind:           models.MessageKind(req.Type),
		Body:           req.Message,
		Attachments:    req.Attachments,
		ReplyTo:        req.ReplyTo,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (s *Server) unreadCount(c *fiber.Ctx) error {
	summary, err := s.chat.UnreadCounts(c.Context(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(summary)
}

func (s *Server) markAsRead(c *fiber.Ctx) error {
	if err := s.chat.MarkAsRead(c.Context(), c.Params("id"), currentUser(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

type editMessageReq struct {
	Message string `json:"message"`
}

func (s *Server) editMessage(c *fiber.Ctx) error {
	var req editMessageReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, apperr.Validationf("invalid payload"))
	}
	msg, err := s.chat.EditMessage(c.Context(), c.Params("id"), currentUser(c), req.Message)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(msg)
}

func (s *Server) deleteMessage(c *fiber.Ctx) error {
	if err := s.chat.DeleteMessage(c.Context(), c.Params("id"), currentUser(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}
