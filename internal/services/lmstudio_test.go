package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmrelay/internal/models"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// The server only notices a client disconnect once the body is read.
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func requireUpstreamKind(t *testing.T, err error, kind UpstreamKind) *UpstreamError {
	t.Helper()
	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr), "expected *UpstreamError, got %T", err)
	assert.Equal(t, kind, upErr.Kind)
	assert.Contains(t, upErr.Error(), "LM Studio call failed: ")
	return upErr
}

func TestLMStudioClient_SendsChatCompletionRequest(t *testing.T) {
	var got models.LMStudioChatRequest
	var contentType, method string
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		method = r.Method
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi there"}}]}`))
	})

	c := NewLMStudioClient(srv.URL, "humanizerai", time.Second)
	reply, err := c.Complete(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, "Hi there", reply)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "humanizerai", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, models.LMStudioMessage{Role: "system", Content: "You are a helpful assistant."}, got.Messages[0])
	assert.Equal(t, models.LMStudioMessage{Role: "user", Content: "Hello"}, got.Messages[1])
}

func TestLMStudioClient_ForwardsEmptyPrompt(t *testing.T) {
	var got models.LMStudioChatRequest
	srv, calls := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	})

	reply, err := NewLMStudioClient(srv.URL, "m", time.Second).Complete(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "", got.Messages[1].Content)
}

func TestLMStudioClient_OnlyFirstChoiceIsUsed(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"first"}},{"message":{"content":"second"}}]}`))
	})

	reply, err := NewLMStudioClient(srv.URL, "m", time.Second).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "first", reply)
}

func TestLMStudioClient_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, calls := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				w.Write([]byte(`{"error":"model not loaded"}`))
			})

			_, err := NewLMStudioClient(srv.URL, "m", time.Second).Complete(context.Background(), "p")
			upErr := requireUpstreamKind(t, err, UpstreamProtocol)
			assert.Contains(t, upErr.Error(), http.StatusText(status))
			assert.Equal(t, int32(1), calls.Load(), "no retry on non-2xx")
		})
	}
}

func TestLMStudioClient_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"empty object", `{}`},
		{"null body", `null`},
		{"no choices", `{"choices":[]}`},
		{"choices wrong type", `{"choices":"nope"}`},
		{"choice without message", `{"choices":[{}]}`},
		{"message without content", `{"choices":[{"message":{"role":"assistant"}}]}`},
		{"null content", `{"choices":[{"message":{"content":null}}]}`},
		{"numeric content", `{"choices":[{"message":{"content":42}}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})

			_, err := NewLMStudioClient(srv.URL, "m", time.Second).Complete(context.Background(), "p")
			requireUpstreamKind(t, err, UpstreamShape)
		})
	}
}

func TestLMStudioClient_Timeout(t *testing.T) {
	srv, calls := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	start := time.Now()
	_, err := NewLMStudioClient(srv.URL, "m", 100*time.Millisecond).Complete(context.Background(), "p")
	requireUpstreamKind(t, err, UpstreamUnreachable)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLMStudioClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewLMStudioClient(url, "m", time.Second).Complete(context.Background(), "test")
	upErr := requireUpstreamKind(t, err, UpstreamUnreachable)
	assert.Contains(t, upErr.Error(), "connection refused")
}

func TestLMStudioClient_CancelledContext(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := NewLMStudioClient(srv.URL, "m", 5*time.Second).Complete(ctx, "p")
	upErr := requireUpstreamKind(t, err, UpstreamUnreachable)
	assert.ErrorIs(t, upErr, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUpstreamKindString(t *testing.T) {
	assert.Equal(t, "unreachable", UpstreamUnreachable.String())
	assert.Equal(t, "protocol", UpstreamProtocol.String())
	assert.Equal(t, "shape", UpstreamShape.String())
	assert.Equal(t, "unknown", UpstreamKind(99).String())
}
