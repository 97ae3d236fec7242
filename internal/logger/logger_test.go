package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{"logfmt default", "", `msg=hello`},
		{"logfmt", "logfmt", `msg=hello`},
		{"json", "json", `"msg":"hello"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, closeFn, err := newLogger(Options{Level: "info", Format: tc.format}, &buf)
			require.NoError(t, err)

			l.Info("hello", zap.String("k", "v"))
			closeFn()

			assert.Contains(t, buf.String(), tc.want)
		})
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, closeFn, err := newLogger(Options{Level: "warn"}, &buf)
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept")
	closeFn()

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLogger_InvalidOptions(t *testing.T) {
	_, _, err := newLogger(Options{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, _, err = newLogger(Options{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewLogger_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lmrelay.log")

	l, closeFn, err := newLogger(Options{File: path}, &bytes.Buffer{})
	require.NoError(t, err)
	l.Info("to file")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestMiddleware_LogsCompletedRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := zap.New(core)

	h := chimiddleware.RequestID(Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request completed", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "GET", fields["method"])
	assert.NotEmpty(t, fields["request-id"])
}
