package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/chatd/chat"
	"github.com/xiaot623/chatd/config"
	"github.com/xiaot623/chatd/filestore"
	"github.com/xiaot623/chatd/llm"
	"github.com/xiaot623/chatd/policy"
	"github.com/xiaot623/chatd/tests/helpers"
)

func newTestHandler(t *testing.T, backend llm.Backend) *Handler {
	t.Helper()

	st := helpers.NewTestSQLiteStore(t)
	fs, err := filestore.New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	cfg := &config.Config{
		DefaultModel:      "llama3.2:3b",
		HistoryWindow:     10,
		LLMTimeout:        time.Minute,
		StreamTimeout:     time.Minute,
		HeartbeatInterval: 20 * time.Millisecond,
		ExportDir:         filepath.Join(t.TempDir(), "exports"),
	}
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to build policy engine: %v", err)
	}
	return NewHandler(chat.New(st, fs, backend, cfg), engine, cfg)
}

type testUpload struct {
	name        string
	contentType string
	data        []byte
}

func newPromptRequest(t *testing.T, path string, fields map[string]string, uploads ...testUpload) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for _, up := range uploads {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="attachments"; filename="%s"`, up.name))
		header.Set("Content-Type", up.contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(up.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}
