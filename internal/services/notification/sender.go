package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/lib/webpush"
	"github.com/magabrotheeeer/sublist/internal/models"
)

const maxParallelSends = 4

// PushRepository определяет методы хранилища push-подписок браузеров.
type PushRepository interface {
	ListPushEndpoints(ctx context.Context, ownerID string) ([]models.PushEndpoint, error)
	DeletePushEndpoint(ctx context.Context, id string) error
}

// SenderService доставляет уведомления на все браузеры владельца.
type SenderService struct {
	repo   PushRepository
	sender webpush.Sender
	log    *slog.Logger
	sent   *prometheus.CounterVec
}

// NewSenderService создает новый экземпляр SenderService.
// Счётчики регистрируются в reg, при reg == nil не регистрируются.
func NewSenderService(repo PushRepository, sender webpush.Sender, log *slog.Logger, reg prometheus.Registerer) *SenderService {
	return &SenderService{
		repo:   repo,
		sender: sender,
		log:    log,
		sent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "sublist",
			Subsystem: "push",
			Name:      "notifications_total",
			Help:      "Web Push deliveries by outcome.",
		}, []string{"outcome"}),
	}
}

// HandleMessage обрабатывает сообщение очереди уведомлений.
// Ошибка возвращается, только если сообщение стоит доставить повторно.
func (s *SenderService) HandleMessage(ctx context.Context, body []byte) error {
	const op = "services.SenderService.HandleMessage"

	var msg models.PushMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		// повтор не поможет
		s.log.Error("failed to unmarshal message body", slog.String("op", op), sl.Err(err))
		return nil
	}
	if msg.OwnerID == "" {
		s.log.Warn("message without owner dropped", slog.String("op", op))
		return nil
	}

	sent, err := s.Deliver(ctx, msg.OwnerID, msg.Payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("notification delivered",
		slog.String("op", op),
		slog.String("owner_id", msg.OwnerID),
		slog.Int("sent", sent),
	)
	return nil
}

// Deliver отправляет payload на каждый endpoint владельца и возвращает число
// успешных отправок. Endpoint-ы, на которые push-сервис ответил 404 или 410,
// удаляются. Ошибки отдельных отправок только логируются.
func (s *SenderService) Deliver(ctx context.Context, ownerID string, p models.PushPayload) (int, error) {
	const op = "services.SenderService.Deliver"
	log := s.log.With(slog.String("op", op), slog.String("owner_id", ownerID))

	endpoints, err := s.repo.ListPushEndpoints(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(endpoints) == 0 {
		log.Debug("owner has no push endpoints")
		return 0, nil
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var sent int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSends)
	for _, ep := range endpoints {
		g.Go(func() error {
			status, err := s.sender.Send(gctx, ep, payload)
			switch {
			case err == nil:
				atomic.AddInt64(&sent, 1)
				s.sent.WithLabelValues("sent").Inc()
			case webpush.IsGone(status):
				s.sent.WithLabelValues("gone").Inc()
				if delErr := s.repo.DeletePushEndpoint(gctx, ep.ID); delErr != nil {
					log.Error("failed to delete stale push endpoint", slog.String("endpoint_id", ep.ID), sl.Err(delErr))
				} else {
					log.Info("stale push endpoint removed", slog.String("endpoint_id", ep.ID))
				}
			default:
				s.sent.WithLabelValues("failed").Inc()
				log.Warn("failed to send push", slog.String("endpoint_id", ep.ID), slog.Int("status", status), sl.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(sent), nil
}
