package services

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lmrelay/internal/events"
	"lmrelay/internal/models"
)

const outcomeSuccess = "success"

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type upstreamObserver interface {
	ObserveUpstream(outcome string, took time.Duration)
}

// RelayService turns one prompt into one reply. It holds no per-request state
// and is safe for concurrent use.
type RelayService struct {
	upstream  completer
	observer  upstreamObserver
	publisher events.Publisher
	logger    *zap.Logger
	newID     func() string

	// pending tracks exchange events still being published.
	pending sync.WaitGroup
}

func NewRelayService(upstream completer, observer upstreamObserver, publisher events.Publisher, logger *zap.Logger) *RelayService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &RelayService{
		upstream:  upstream,
		observer:  observer,
		publisher: publisher,
		logger:    logger.Named("relay"),
		newID:     uuid.NewString,
	}
}

// Handle makes exactly one upstream call. Any failure is returned as an
// *UpstreamError.
func (s *RelayService) Handle(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	start := time.Now()
	reply, err := s.upstream.Complete(ctx, req.Prompt)
	took := time.Since(start)

	if err != nil {
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			upErr = &UpstreamError{Kind: UpstreamUnreachable, Err: err}
		}
		s.logger.Warn("upstream call failed",
			zap.String("kind", upErr.Kind.String()),
			zap.Duration("took", took),
			zap.Error(upErr.Err),
		)
		s.record(ctx, "", req.Prompt, upErr.Kind.String(), took)
		return nil, upErr
	}

	resp := &models.ChatResponse{
		ID:       s.newID(),
		Prompt:   req.Prompt,
		Response: reply,
	}
	s.logger.Debug("upstream call succeeded", zap.String("id", resp.ID), zap.Duration("took", took))
	s.record(ctx, resp.ID, req.Prompt, outcomeSuccess, took)
	return resp, nil
}

func (s *RelayService) record(ctx context.Context, id, prompt, outcome string, took time.Duration) {
	if s.observer != nil {
		s.observer.ObserveUpstream(outcome, took)
	}

	ev := models.ExchangeEvent{
		ID:          id,
		PromptChars: utf8.RuneCountInString(prompt),
		Outcome:     outcome,
		DurationMS:  took.Milliseconds(),
		At:          time.Now().UTC(),
	}
	// Publishing happens off the request path; the reply never waits on Redis.
	pubCtx := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.publisher.Publish(pubCtx, ev); err != nil {
			s.logger.Warn("failed to publish exchange event", zap.String("outcome", ev.Outcome), zap.Error(err))
		}
	}()
}

// Wait blocks until every exchange event dispatched so far has been
// published or has failed.
func (s *RelayService) Wait() {
	s.pending.Wait()
}
