package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"kasirbutik/backend/internal/domain"
	"kasirbutik/backend/internal/imagestore"
	"kasirbutik/backend/internal/lock"
	"kasirbutik/backend/internal/logger"
	"kasirbutik/backend/internal/metrics"
	"kasirbutik/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Options carries the collaborators of a Service. Zero values get
// single-process defaults.
type Options struct {
	Locker   lock.Locker
	Images   imagestore.Uploader
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	repo    store.Repository
	locker  lock.Locker
	images  imagestore.Uploader
	metrics *metrics.Metrics
	log     *zap.Logger
	loc     *time.Location
	now     func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	s := &Service{
		repo:    repo,
		locker:  opts.Locker,
		images:  opts.Images,
		metrics: opts.Metrics,
		log:     opts.Logger,
		loc:     opts.Location,
		now:     opts.Now,
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.images == nil {
		s.images = imagestore.NewMemory("pos-products")
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// clock is the current time in the shop's timezone.
func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) today() string {
	return s.clock().Format(domain.DateLayout)
}

func (s *Service) logger(ctx context.Context) *zap.Logger {
	log := logger.FromContext(ctx, s.log)
	if actor, ok := ActorFromContext(ctx); ok {
		log = log.With(zap.String("actor", actor.Username))
	}
	return log
}

func (s *Service) parseDate(field string, raw string) (time.Time, error) {
	t, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(raw), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", store.ErrValidation, field)
	}
	return t, nil
}

func lockKey(kind string, id string) string {
	return kind + ":" + id
}
