package logger

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	logfmt "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 50
	defaultMaxAgeDays = 30
	defaultMaxBackups = 3
)

type Options struct {
	Level  string
	Format string // "logfmt" or "json"
	// File enables an additional rotated JSON log when non-empty.
	File string
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// New builds the process logger. Output always goes to stdout; the returned
// func flushes and closes any file sink.
func New(opts Options) (*zap.Logger, func(), error) {
	return newLogger(opts, os.Stdout)
}

func newLogger(opts Options, stdout io.Writer) (*zap.Logger, func(), error) {
	if opts.Level == "" {
		opts.Level = "info"
	}
	lvl, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	atom := zap.NewAtomicLevelAt(lvl)

	var enc zapcore.Encoder
	switch opts.Format {
	case "", "logfmt":
		enc = logfmt.NewEncoder(encoderConfig())
	case "json":
		enc = zapcore.NewJSONEncoder(encoderConfig())
	default:
		return nil, nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(stdout)), atom)}

	var rotator *lumberjack.Logger
	if opts.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(rotator), atom))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).With(
		zap.String("goversion", runtime.Version()),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH),
	)

	closeFn := func() {
		_ = l.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return l, closeFn, nil
}

// Middleware logs one line per completed request. It expects chi's RequestID
// middleware to run first.
func Middleware(l *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			latency := time.Since(start)
			fields := []zap.Field{
				zap.Int("status", ww.Status()),
				zap.Duration("took", latency),
				zap.String("remote", r.RemoteAddr),
				zap.String("request", r.RequestURI),
				zap.String("method", r.Method),
			}
			if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
				fields = append(fields, zap.String("request-id", reqID))
			}
			l.Info("request completed", fields...)
		}
		return http.HandlerFunc(fn)
	}
}
