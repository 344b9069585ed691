package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// notifiedTTL срок хранения отметки об отправленной сводке.
const notifiedTTL = 36 * time.Hour

// SubscriptionRepository определяет методы выборки подписок для рассылки.
type SubscriptionRepository interface {
	ListActive(ctx context.Context) ([]models.Subscription, error)
}

// Publisher публикует сообщение в очередь уведомлений.
type Publisher interface {
	Publish(ctx context.Context, msg models.PushMessage) error
}

// Marker хранит отметки об уже отправленных сводках.
type Marker interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// SchedulerService раз в интервал выбирает активные подписки, собирает
// сводку на сегодня и завтра для каждого владельца и публикует её в очередь.
type SchedulerService struct {
	repo      SubscriptionRepository
	publisher Publisher
	marker    Marker
	loc       *time.Location
	interval  time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
// marker может быть nil, тогда повторный запуск в тот же день отправит сводку снова.
func NewSchedulerService(repo SubscriptionRepository, publisher Publisher, marker Marker, loc *time.Location, interval time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		marker:    marker,
		loc:       loc,
		interval:  interval,
		now:       time.Now,
		log:       log,
	}
}

// Run выполняет рассылку сразу и затем раз в интервал до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	s.runLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *SchedulerService) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("notification run failed", sl.Err(err))
	}
}

// RunOnce выполняет одну рассылку и возвращает число опубликованных сводок.
func (s *SchedulerService) RunOnce(ctx context.Context) (int, error) {
	const op = "services.SchedulerService.RunOnce"
	log := s.log.With(slog.String("op", op))

	log.Info("starting search for upcoming payments")
	subs, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().In(s.loc)
	day := now.Format(checkDayLayout)

	byOwner := lo.GroupBy(
		lo.Filter(subs, func(sub models.Subscription, _ int) bool { return !sub.Owner.IsLocal() }),
		func(sub models.Subscription) string {
			id, _ := sub.Owner.AccountID()
			return id
		},
	)
	owners := lo.Keys(byOwner)
	sort.Strings(owners)

	published := 0
	for _, ownerID := range owners {
		payload, ok := BuildPayload(Upcoming(byOwner[ownerID], now))
		if !ok {
			continue
		}
		key := "notified:" + ownerID + ":" + day
		if s.alreadyNotified(ctx, key) {
			log.Debug("digest already sent today", slog.String("owner_id", ownerID))
			continue
		}
		if err := s.publisher.Publish(ctx, models.PushMessage{OwnerID: ownerID, Payload: payload}); err != nil {
			log.Error("failed to publish message", slog.String("owner_id", ownerID), sl.Err(err))
			continue
		}
		published++
		s.markNotified(ctx, key)
	}

	log.Info("upcoming payments published", slog.Int("owners", len(owners)), slog.Int("published", published))
	return published, nil
}

func (s *SchedulerService) alreadyNotified(ctx context.Context, key string) bool {
	if s.marker == nil {
		return false
	}
	var sent bool
	found, err := s.marker.Get(ctx, key, &sent)
	if err != nil {
		s.log.Warn("failed to read notification mark", slog.String("key", key), sl.Err(err))
		return false
	}
	return found && sent
}

func (s *SchedulerService) markNotified(ctx context.Context, key string) {
	if s.marker == nil {
		return
	}
	if err := s.marker.Set(ctx, key, true, notifiedTTL); err != nil {
		s.log.Warn("failed to store notification mark", slog.String("key", key), sl.Err(err))
	}
}
