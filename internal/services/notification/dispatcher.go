package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// ErrNoChannel возвращается, если ни один канал доставки недоступен.
var ErrNoChannel = errors.New("no notification channel available")

// Channel канал доставки уведомления.
type Channel interface {
	Name() string
	Available(ctx context.Context, owner models.Owner) bool
	Deliver(ctx context.Context, owner models.Owner, p models.PushPayload) error
}

// Dispatcher доставляет уведомление через предпочтительный канал, если он
// доступен, иначе через запасной. Одно событие уходит ровно в один канал:
// ошибка предпочтительного канала не приводит к повтору через запасной.
type Dispatcher struct {
	preferred Channel
	fallback  Channel
	log       *slog.Logger
}

// NewDispatcher создает новый экземпляр Dispatcher.
func NewDispatcher(preferred, fallback Channel, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		preferred: preferred,
		fallback:  fallback,
		log:       log,
	}
}

// Dispatch возвращает имя канала, через который ушло уведомление.
func (d *Dispatcher) Dispatch(ctx context.Context, owner models.Owner, p models.PushPayload) (string, error) {
	const op = "services.Dispatcher.Dispatch"

	ch := d.pick(ctx, owner)
	if ch == nil {
		return "", fmt.Errorf("%s: %w", op, ErrNoChannel)
	}
	if err := ch.Deliver(ctx, owner, p); err != nil {
		d.log.Error("failed to deliver notification",
			slog.String("op", op),
			slog.String("channel", ch.Name()),
			sl.Owner(owner),
			sl.Err(err),
		)
		return ch.Name(), fmt.Errorf("%s: %w", op, err)
	}
	return ch.Name(), nil
}

func (d *Dispatcher) pick(ctx context.Context, owner models.Owner) Channel {
	if d.preferred != nil && d.preferred.Available(ctx, owner) {
		return d.preferred
	}
	if d.fallback != nil && d.fallback.Available(ctx, owner) {
		return d.fallback
	}
	return nil
}

// InPageQueue запасной канал: уведомления копятся в памяти и забираются
// страницей при следующем запросе.
type InPageQueue struct {
	mu      sync.Mutex
	pending []models.PushPayload
}

// NewInPageQueue создает новый экземпляр InPageQueue.
func NewInPageQueue() *InPageQueue {
	return &InPageQueue{}
}

func (q *InPageQueue) Name() string { return "in_page" }

func (q *InPageQueue) Available(_ context.Context, _ models.Owner) bool { return true }

func (q *InPageQueue) Deliver(_ context.Context, _ models.Owner, p models.PushPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, p)
	return nil
}

// Drain забирает накопленные уведомления.
func (q *InPageQueue) Drain() []models.PushPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	if out == nil {
		out = []models.PushPayload{}
	}
	return out
}

// PushChannel предпочтительный канал: Web Push на зарегистрированные
// браузеры владельца через SenderService.
type PushChannel struct {
	sender *SenderService
}

// NewPushChannel создает новый экземпляр PushChannel.
func NewPushChannel(sender *SenderService) *PushChannel {
	return &PushChannel{sender: sender}
}

func (c *PushChannel) Name() string { return "push" }

// Available доступен только аккаунту хотя бы с одним зарегистрированным браузером.
func (c *PushChannel) Available(ctx context.Context, owner models.Owner) bool {
	ownerID, ok := owner.AccountID()
	if !ok {
		return false
	}
	endpoints, err := c.sender.repo.ListPushEndpoints(ctx, ownerID)
	if err != nil {
		c.sender.log.Warn("failed to list push endpoints", sl.Owner(owner), sl.Err(err))
		return false
	}
	return len(endpoints) > 0
}

func (c *PushChannel) Deliver(ctx context.Context, owner models.Owner, p models.PushPayload) error {
	ownerID, ok := owner.AccountID()
	if !ok {
		return ErrNoChannel
	}
	sent, err := c.sender.Deliver(ctx, ownerID, p)
	if err != nil {
		return err
	}
	if sent == 0 {
		return fmt.Errorf("push delivered to no endpoint of %s", ownerID)
	}
	return nil
}
