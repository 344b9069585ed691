// Package services регистрирует push-подписки браузеров для уведомлений
// о предстоящих оплатах.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

var (
	// ErrRegistrationTimeout возвращается, если хранилище не ответило за отведённое время.
	ErrRegistrationTimeout = errors.New("push registration timed out, please retry")
	// ErrNotAuthenticated возвращается для локальной сессии без входа.
	ErrNotAuthenticated = errors.New("push registration requires a signed-in account")
)

// DefaultRegisterTimeout время ожидания ответа хранилища при регистрации.
const DefaultRegisterTimeout = 2 * time.Second

// Repository определяет метод сохранения push-подписки.
type Repository interface {
	// UpsertPushEndpoint сохраняет подписку; запись с тем же Endpoint перезаписывается.
	UpsertPushEndpoint(ctx context.Context, ep models.PushEndpoint) error
}

// PushService регистрирует браузеры владельца для Web Push.
type PushService struct {
	repo    Repository
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// NewPushService создает новый экземпляр PushService. timeout <= 0 заменяется
// на DefaultRegisterTimeout.
func NewPushService(repo Repository, timeout time.Duration, log *slog.Logger) *PushService {
	if timeout <= 0 {
		timeout = DefaultRegisterTimeout
	}
	return &PushService{
		repo:    repo,
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}
}

// Register сохраняет push-подписку браузера для владельца.
func (s *PushService) Register(ctx context.Context, owner models.Owner, dummy models.DummyPushEndpoint) (models.PushEndpoint, error) {
	const op = "services.PushService.Register"

	if owner.IsLocal() {
		return models.PushEndpoint{}, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	ep := models.PushEndpoint{
		ID:       uuid.NewString(),
		Owner:    owner,
		Endpoint: dummy.Endpoint,
		Keys: models.PushKeys{
			P256dh: dummy.Keys.P256dh,
			Auth:   dummy.Keys.Auth,
		},
		CreatedAt: s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// хранилище может не учитывать ctx, поэтому ждём результат отдельно
	result := make(chan error, 1)
	go func() {
		result <- s.repo.UpsertPushEndpoint(ctx, ep)
	}()

	select {
	case err := <-result:
		if errors.Is(err, context.DeadlineExceeded) {
			return models.PushEndpoint{}, s.timedOut(op, owner)
		}
		if err != nil {
			return models.PushEndpoint{}, fmt.Errorf("%s: %w", op, err)
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.PushEndpoint{}, s.timedOut(op, owner)
		}
		return models.PushEndpoint{}, fmt.Errorf("%s: %w", op, ctx.Err())
	}

	s.log.Info("push endpoint registered", slog.String("op", op), sl.Owner(owner))
	return ep, nil
}

func (s *PushService) timedOut(op string, owner models.Owner) error {
	s.log.Warn("push registration timed out",
		slog.String("op", op),
		sl.Owner(owner),
		slog.Duration("timeout", s.timeout),
	)
	return fmt.Errorf("%s: %w", op, ErrRegistrationTimeout)
}
