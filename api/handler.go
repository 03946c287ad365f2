// Package api provides HTTP handlers for the chat service.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/chatd/chat"
	"github.com/xiaot623/chatd/config"
	"github.com/xiaot623/chatd/domain"
	"github.com/xiaot623/chatd/policy"
)

// Handler handles HTTP requests.
type Handler struct {
	service *chat.Service
	policy  *policy.Engine
	config  *config.Config
}

// NewHandler creates a new handler.
func NewHandler(service *chat.Service, policyEngine *policy.Engine, config *config.Config) *Handler {
	return &Handler{
		service: service,
		policy:  policyEngine,
		config:  config,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation
	e.POST("/chat/prompt", h.Prompt)
	e.POST("/chat/streaming/prompt", h.StreamPrompt)
	e.GET("/chat/streaming/heartbeat", h.Heartbeat)
	e.GET("/chat/models", h.ListModels)

	// Chat management
	e.GET("/chat/chats", h.ListChats)
	e.POST("/chat/chats", h.CreateChat)
	e.GET("/chat/history/:chat_id", h.ChatHistory)
	e.PUT("/chat/chats/:chat_id/title", h.RenameChat)
	e.PUT("/chat/chats/:chat_id/archive", h.ArchiveChat)
	e.DELETE("/chat/chats/:chat_id", h.DeleteChat)

	// Export
	e.GET("/api/export/chats/json", h.ExportChatsJSON)
	e.GET("/api/export/messages/json", h.ExportMessagesJSON)
	e.GET("/api/export/messages/csv", h.ExportMessagesCSV)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// httpError maps domain errors onto status codes.
func httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "chat not found"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
