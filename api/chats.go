package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// ListChats returns a page of chats, active ones by default.
func (h *Handler) ListChats(c echo.Context) error {
	page := queryInt(c, "page", 0)
	size := queryInt(c, "size", 10)
	activeOnly := c.QueryParam("activeOnly") != "false"

	result, err := h.service.ListChats(c.Request().Context(), page, size, activeOnly)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// CreateChat creates a new empty chat.
func (h *Handler) CreateChat(c echo.Context) error {
	var body struct {
		Model string `json:"model"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	chat, err := h.service.CreateChat(c.Request().Context(), body.Model)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, chat)
}

// ChatHistory returns a page of messages for one chat in chronological order.
func (h *Handler) ChatHistory(c echo.Context) error {
	chatID := c.Param("chat_id")
	page := queryInt(c, "page", 0)
	size := queryInt(c, "size", 20)

	result, err := h.service.ChatHistory(c.Request().Context(), chatID, page, size)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// RenameChat updates a chat title.
func (h *Handler) RenameChat(c echo.Context) error {
	var body struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	chat, err := h.service.RenameChat(c.Request().Context(), c.Param("chat_id"), body.Title)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, chat)
}

// ArchiveChat marks a chat inactive without deleting its history.
func (h *Handler) ArchiveChat(c echo.Context) error {
	if err := h.service.ArchiveChat(c.Request().Context(), c.Param("chat_id")); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "archived"})
}

// DeleteChat removes a chat, its messages, and their stored attachments.
func (h *Handler) DeleteChat(c echo.Context) error {
	if err := h.service.DeleteChat(c.Request().Context(), c.Param("chat_id")); err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) export(c echo.Context, run func() (string, error)) error {
	path, err := run()
	if err != nil {
		log.Printf("ERROR: export failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "export failed",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "success",
		"filePath": path,
	})
}

// ExportChatsJSON writes all chats to a JSON file and returns its path.
func (h *Handler) ExportChatsJSON(c echo.Context) error {
	return h.export(c, func() (string, error) {
		return h.service.ExportChatsJSON(c.Request().Context())
	})
}

// ExportMessagesJSON writes all messages to a JSON file and returns its path.
func (h *Handler) ExportMessagesJSON(c echo.Context) error {
	return h.export(c, func() (string, error) {
		return h.service.ExportMessagesJSON(c.Request().Context())
	})
}

// ExportMessagesCSV writes all messages to a CSV file and returns its path.
func (h *Handler) ExportMessagesCSV(c echo.Context) error {
	return h.export(c, func() (string, error) {
		return h.service.ExportMessagesCSV(c.Request().Context())
	})
}
