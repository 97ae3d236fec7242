package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"lmrelay/internal/models"
)

const (
	systemPrompt = "You are a helpful assistant."
	temperature  = 0.7

	// maxResponseBytes caps how much of a completion body is read.
	maxResponseBytes = 8 << 20
)

var errNoContent = errors.New("response has no choices[0].message.content")

// LMStudioClient calls the chat-completion endpoint of a local LM Studio server.
type LMStudioClient struct {
	url    string
	model  string
	client *http.Client
}

func NewLMStudioClient(url, model string, timeout time.Duration) *LMStudioClient {
	return &LMStudioClient{
		url:    url,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

// buildRequest returns the completion payload for one prompt. The system
// message always comes first.
func (c *LMStudioClient) buildRequest(prompt string) models.LMStudioChatRequest {
	return models.LMStudioChatRequest{
		Model: c.model,
		Messages: []models.LMStudioMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
	}
}

// Complete sends a single chat-completion request and returns the content of
// the first choice. Every failure is an *UpstreamError.
func (c *LMStudioClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(c.buildRequest(prompt))
	if err != nil {
		return "", &UpstreamError{Kind: UpstreamUnreachable, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &UpstreamError{Kind: UpstreamUnreachable, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &UpstreamError{Kind: UpstreamUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", &UpstreamError{
			Kind: UpstreamProtocol,
			Err:  fmt.Errorf("%s returned status %s", c.url, resp.Status),
		}
	}

	// The client timeout also bounds reading the body.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &UpstreamError{Kind: UpstreamUnreachable, Err: fmt.Errorf("read response: %w", err)}
	}

	return extractContent(raw)
}

// extractContent decodes a completion body and returns choices[0].message.content.
func extractContent(raw []byte) (string, error) {
	var data models.LMStudioChatResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", &UpstreamError{Kind: UpstreamShape, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(data.Choices) == 0 || data.Choices[0].Message == nil || data.Choices[0].Message.Content == nil {
		return "", &UpstreamError{Kind: UpstreamShape, Err: errNoContent}
	}
	return *data.Choices[0].Message.Content, nil
}
