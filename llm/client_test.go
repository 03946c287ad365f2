package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"llama3.2:3b","message":{"role":"assistant","content":"hi there"},"done":true}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	completion, err := client.Chat(context.Background(), &ChatRequest{
		Model:    "llama3.2:3b",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if completion != "hi there" {
		t.Fatalf("unexpected completion: %q", completion)
	}
}

func TestClientChatBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'missing' not found"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Chat(context.Background(), &ChatRequest{
		Model:    "missing",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model 'missing' not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"Hel"},"done":false}`+"\n")
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"lo"},"done":false}`+"\n")
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":""},"done":true}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	var chunks []string
	err := client.ChatStream(context.Background(), &ChatRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if strings.Join(chunks, "") != "Hello" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestClientChatStreamMidStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"par"},"done":false}`+"\n")
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"tial"},"done":false}`+"\n")
		fmt.Fprint(w, `{"error":"backend exploded"}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	var chunks []string
	err := client.ChatStream(context.Background(), &ChatRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err == nil {
		t.Fatalf("expected mid-stream error")
	}
	// Increments delivered before the failure stay with the caller.
	if strings.Join(chunks, "") != "partial" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestClientChatStreamCallbackAbort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for i := 0; i < 100; i++ {
			fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"x"},"done":false}`+"\n")
		}
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":""},"done":true}`+"\n")
	}))
	defer server.Close()

	abort := fmt.Errorf("client went away")
	client := NewClient(server.URL, time.Second)
	count := 0
	err := client.ChatStream(context.Background(), &ChatRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	}, func(chunk string) error {
		count++
		if count == 3 {
			return abort
		}
		return nil
	})
	if err != abort {
		t.Fatalf("expected callback error to surface, got %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 callbacks, got %d", count)
	}
}

func TestClientListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"models":[{"name":"llama3.2:3b"},{"name":"qwen2.5:7b"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3.2:3b" {
		t.Fatalf("unexpected models: %+v", models)
	}
}
