package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// Create добавляет подписку в начало списка с временным ID.
// Для аккаунта запись отправляется в удалённое хранилище; при успехе временная
// запись заменяется подтверждённой на той же позиции, при ошибке удаляется.
func (s *Store) Create(ctx context.Context, draft models.Draft) Result {
	const op = "services.Store.Create"

	select {
	case <-ctx.Done():
		return Result{Err: fmt.Errorf("%s: %w", op, ctx.Err())}
	default:
	}

	owner := s.Owner()
	rec := draft.Normalize().Build(s.newID(), owner, s.now())

	_, unlock := s.lockID(rec.ID)
	defer unlock()

	var out models.Subscription
	cmd := s.createCommand(rec, !owner.IsLocal(), &out)
	if err := s.run(ctx, cmd); err != nil {
		return Result{Err: err}
	}

	s.log.Debug("subscription created", slog.String("op", op), sl.ID(out.ID), sl.Owner(owner))
	return Result{Subscription: &out}
}

// Update применяет патч к подписке. При ошибке удалённого хранилища
// запись возвращается в прежнее состояние.
func (s *Store) Update(ctx context.Context, id models.ID, patch models.Patch) Result {
	const op = "services.Store.Update"

	select {
	case <-ctx.Done():
		return Result{Err: fmt.Errorf("%s: %w", op, ctx.Err())}
	default:
	}

	id, unlock := s.lockID(id)
	defer unlock()

	prev, idx, ok := s.lookup(id)
	if !ok {
		return Result{Err: fmt.Errorf("%s: %w", op, ErrNotFound)}
	}
	patch = patch.Normalize()

	cmd := s.updateCommand(prev, idx, patch, s.syncable(prev))
	if err := s.run(ctx, cmd); err != nil {
		return Result{Err: err}
	}

	updated := patch.Apply(prev)
	return Result{Subscription: &updated}
}

// Remove удаляет подписку. При ошибке удалённого хранилища запись
// возвращается на прежнюю позицию.
func (s *Store) Remove(ctx context.Context, id models.ID) Result {
	const op = "services.Store.Remove"

	select {
	case <-ctx.Done():
		return Result{Err: fmt.Errorf("%s: %w", op, ctx.Err())}
	default:
	}

	id, unlock := s.lockID(id)
	defer unlock()

	prev, idx, ok := s.lookup(id)
	if !ok {
		return Result{Err: fmt.Errorf("%s: %w", op, ErrNotFound)}
	}

	cmd := s.removeCommand(prev, idx, s.syncable(prev))
	if err := s.run(ctx, cmd); err != nil {
		return Result{Err: err}
	}
	return Result{Subscription: &prev}
}

// ResetAll очищает список, а для аккаунта удаляет все его записи удалённо.
// Локальный список не восстанавливается при ошибке удалённого удаления.
func (s *Store) ResetAll(ctx context.Context) Result {
	const op = "services.Store.ResetAll"

	select {
	case <-ctx.Done():
		return Result{Err: fmt.Errorf("%s: %w", op, ctx.Err())}
	default:
	}

	owner := s.Owner()
	if err := s.run(ctx, s.resetCommand(owner)); err != nil {
		return Result{Err: err}
	}
	s.log.Info("all subscriptions removed", slog.String("op", op), sl.Owner(owner))
	return Result{}
}

func (s *Store) lookup(id models.ID) (models.Subscription, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Subscription{}, -1, false
	}
	return s.subs[i].Clone(), i, true
}

// syncable сообщает, нужно ли отправлять изменение записи в удалённое хранилище.
// Записи без аккаунта и записи с неподтверждённым ID остаются локальными.
func (s *Store) syncable(sub models.Subscription) bool {
	return !s.Owner().IsLocal() && !sub.Owner.IsLocal() && !sub.ID.IsTemporary()
}
