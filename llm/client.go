package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the Ollama HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout: streaming responses stay open
	// for as long as the caller's context allows.
	streamClient *http.Client
}

// Ensure Client implements Backend.
var _ Backend = (*Client)(nil)

// NewClient creates a new Ollama client. The timeout bounds blocking calls
// only; streaming calls are bounded by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

// chatResponse is one response object from /api/chat. In streaming mode the
// backend emits one of these per line, with Done on the final line.
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Chat sends a blocking chat request and returns the full completion.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	req.Stream = false

	resp, err := c.post(ctx, c.httpClient, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("model backend error: %s", result.Error)
	}

	return result.Message.Content, nil
}

// ChatStream sends a streaming chat request. Each text increment is passed
// to the callback in arrival order. An error return means the stream died;
// increments already delivered are the caller's to keep.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest, callback StreamCallback) error {
	req.Stream = true

	resp, err := c.post(ctx, c.streamClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Stream ended without a done marker; treat a clean EOF
				// after the last full line as completion.
				if strings.TrimSpace(line) == "" {
					return nil
				}
				return fmt.Errorf("stream truncated: %w", io.ErrUnexpectedEOF)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("model backend error: %s", chunk.Error)
		}

		if chunk.Message.Content != "" {
			if err := callback(chunk.Message.Content); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
}

// tagsResponse is the response from /api/tags.
type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ListModels retrieves the models known to the backend.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model backend error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result tagsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Models, nil
}

func (c *Client) post(ctx context.Context, client *http.Client, req *ChatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("model backend error [%d]: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("model backend error [%d]: %s", resp.StatusCode, string(respBody))
	}

	return resp, nil
}
