// Package commandservice runs pipeline commands through the per-user queue,
// deduplicates retried submissions and announces board mutations.
package commandservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/canvasai/internal/apperr"
	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/checksum"
	"github.com/starford/canvasai/internal/pipeline"
	"github.com/starford/canvasai/internal/queue"
)

// DefaultCacheSize is the number of idempotent results kept.
const DefaultCacheSize = 1024

// Publisher broadcasts board events.
type Publisher interface {
	PublishBoardEvent(board string, data any)
}

// Router routes one command.
type Router interface {
	Route(ctx context.Context, cmd pipeline.Command) pipeline.Result
}

// MutationEvent is the payload of a board.mutated event.
type MutationEvent struct {
	BoardID    string          `json:"boardId"`
	UserID     string          `json:"userId"`
	Objects    []canvas.Object `json:"objects"`
	DeletedIDs []string        `json:"deletedIds"`
	Message    string          `json:"message"`
	IsTemplate bool            `json:"isTemplate"`
}

// Service coordinates the queue, router, cache and publisher.
type Service struct {
	router    Router
	queue     *queue.Registry
	cache     *lru.Cache[string, pipeline.Result]
	publisher Publisher
	logger    *slog.Logger
	cacheSize int
}

// Option is a functional option for configuring a Service.
type Option func(*Service)

// WithPublisher sets where board.mutated events go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithQueue shares a queue registry between services.
func WithQueue(q *queue.Registry) Option {
	return func(s *Service) {
		s.queue = q
	}
}

// WithCacheSize sets the idempotency cache capacity.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		s.cacheSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New returns a service routing through router.
func New(router Router, opts ...Option) (*Service, error) {
	s := &Service{router: router, logger: slog.Default(), cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = queue.NewRegistry()
	}
	if s.cacheSize <= 0 {
		s.cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, pipeline.Result](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("commandservice: create cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Pending returns the number of users with a queued or running command.
func (s *Service) Pending() int {
	return s.queue.Len()
}

// Submit queues cmd behind the user's earlier commands and waits for the
// result. A non-empty idempotencyKey returns the stored result of an
// earlier submission with the same board, user and key.
func (s *Service) Submit(ctx context.Context, cmd pipeline.Command, idempotencyKey string) (pipeline.Result, error) {
	if strings.TrimSpace(cmd.BoardID) == "" || strings.TrimSpace(cmd.UserID) == "" {
		return pipeline.Result{}, fmt.Errorf("commandservice: board and user are required: %w", apperr.ErrInvalidInput)
	}

	var cacheKey string
	if idempotencyKey != "" {
		cacheKey = checksum.Sum([]byte(cmd.BoardID + "\x00" + cmd.UserID + "\x00" + idempotencyKey))
		if res, ok := s.cache.Get(cacheKey); ok {
			return res, nil
		}
	}

	// Queued work outlives a disconnected caller so later commands of the
	// same user observe its effects in order.
	taskCtx := context.WithoutCancel(ctx)
	f := queue.Enqueue(s.queue, cmd.UserID, func() (pipeline.Result, error) {
		if cacheKey != "" {
			if res, ok := s.cache.Get(cacheKey); ok {
				return res, nil
			}
		}
		res := s.router.Route(taskCtx, cmd)
		if cacheKey != "" {
			s.cache.Add(cacheKey, res)
		}
		s.publish(cmd, res)
		return res, nil
	})
	return f.Wait(ctx)
}

func (s *Service) publish(cmd pipeline.Command, res pipeline.Result) {
	if s.publisher == nil || !res.Success || (len(res.Objects) == 0 && len(res.DeletedIDs) == 0) {
		return
	}
	deleted := res.DeletedIDs
	if deleted == nil {
		deleted = []string{}
	}
	s.publisher.PublishBoardEvent(cmd.BoardID, MutationEvent{
		BoardID:    cmd.BoardID,
		UserID:     cmd.UserID,
		Objects:    res.Objects,
		DeletedIDs: deleted,
		Message:    res.Message,
		IsTemplate: res.IsTemplate,
	})
	s.logger.Debug("board mutation published",
		slog.String("board_id", cmd.BoardID),
		slog.Int("objects", len(res.Objects)),
		slog.Int("deleted", len(deleted)))
}
