package api

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/chatd/domain"
	"github.com/xiaot623/chatd/policy"
)

// parsePromptRequest extracts a prompt request from a multipart or form body.
func parsePromptRequest(c echo.Context) (*domain.PromptRequest, error) {
	req := &domain.PromptRequest{
		Model:  strings.TrimSpace(c.FormValue("model")),
		Prompt: strings.TrimSpace(c.FormValue("prompt")),
		Role:   strings.TrimSpace(c.FormValue("role")),
		ChatID: strings.TrimSpace(c.FormValue("chatId")),
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"model", req.Model},
		{"prompt", req.Prompt},
		{"role", req.Role},
	} {
		if field.value == "" {
			return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field.name)
		}
	}
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return req, nil
	}
	for _, fh := range form.File["attachments"] {
		f, err := fh.Open()
		if err != nil {
			log.Printf("WARN: failed to open attachment %s: %v", fh.Filename, err)
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			log.Printf("WARN: failed to read attachment %s: %v", fh.Filename, err)
			continue
		}
		req.Attachments = append(req.Attachments, domain.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return req, nil
}

// checkPolicy evaluates the request against the policy engine and writes
// the rejection response when it must not proceed. ok is false once a
// response has been written; the handler must stop there.
func (h *Handler) checkPolicy(c echo.Context, req *domain.PromptRequest) (ok bool, resp error) {
	input := policy.Input{
		Model: req.Model,
		Role:  req.Role,
	}
	for _, up := range req.Attachments {
		input.Attachments = append(input.Attachments, policy.AttachmentInput{
			Filename:    up.Filename,
			ContentType: up.ContentType,
		})
	}
	decision, err := h.policy.Evaluate(c.Request().Context(), input)
	if err != nil {
		log.Printf("ERROR: policy evaluation failed: %v", err)
		return false, c.JSON(http.StatusInternalServerError, map[string]string{"error": "policy evaluation failed"})
	}
	if decision == policy.DecisionBlock {
		return false, c.JSON(http.StatusForbidden, map[string]string{"error": "request blocked by policy"})
	}
	return true, nil
}

// Prompt handles a blocking prompt request and returns the full completion.
func (h *Handler) Prompt(c echo.Context) error {
	req, err := parsePromptRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if ok, resp := h.checkPolicy(c, req); !ok {
		return resp
	}

	result, err := h.service.Prompt(c.Request().Context(), req)
	if err != nil {
		log.Printf("ERROR: prompt failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "model invocation failed"})
	}
	return c.JSON(http.StatusOK, result)
}

// ListModels returns the models available on the backend.
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.Models(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: failed to list models: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "model backend unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"models": models})
}

// StreamPrompt handles a prompt request and streams the completion as
// server-sent events.
func (h *Handler) StreamPrompt(c echo.Context) error {
	req, err := parsePromptRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if ok, resp := h.checkPolicy(c, req); !ok {
		return resp
	}

	w := c.Response().Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
	}

	setSSEHeaders(c)
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(ev domain.StreamEvent) error {
		return writeSSE(w, flusher, ev)
	}
	return h.service.StreamPrompt(c.Request().Context(), req, emit)
}

// Heartbeat streams periodic heartbeat events until the client disconnects.
func (h *Handler) Heartbeat(c echo.Context) error {
	w := c.Response().Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
	}

	setSSEHeaders(c)
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	seq := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ev := domain.StreamEvent{
				ID:    strconv.Itoa(seq),
				Event: domain.StreamEventHeartbeat,
				Data:  "ping",
			}
			if err := writeSSE(w, flusher, ev); err != nil {
				return nil
			}
			seq++
		}
	}
}

func setSSEHeaders(c echo.Context) {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// writeSSE writes one server-sent event. Data containing newlines is split
// into multiple data lines so the event stays a single SSE frame.
func writeSSE(w io.Writer, flusher http.Flusher, ev domain.StreamEvent) error {
	if ev.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.ID); err != nil {
			return err
		}
	}
	if ev.Event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", ev.Event); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
