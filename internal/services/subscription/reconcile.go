package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// ReconcileOnLogin переносит локальные записи в аккаунт и заменяет список
// записями аккаунта из удалённого хранилища.
//
// Порядок:
//  1. локальные записи отделяются от записей аккаунта, владелец меняется;
//  2. локальные записи вставляются в удалённое хранилище одним запросом;
//  3. список аккаунта запрашивается заново и заменяет локальный.
//
// Если вставка не удалась, запрос списка всё равно выполняется, а локальные
// записи остаются в списке без владельца-аккаунта до следующего входа.
// Повторная вставка может дать дубликат, но не потерю данных.
// Если не удался запрос списка, в списке остаются уже известные записи.
func (s *Store) ReconcileOnLogin(ctx context.Context, account models.AccountInfo) Result {
	const op = "services.Store.ReconcileOnLogin"

	log := s.log.With(slog.String("op", op), slog.String("account_id", account.ID))

	select {
	case <-ctx.Done():
		return Result{Err: fmt.Errorf("%s: %w", op, ctx.Err())}
	default:
	}

	owner := account.Owner()

	var locals []models.Subscription
	s.commit(func() {
		kept := s.subs[:0:0]
		for _, sub := range s.subs {
			if sub.Owner.IsLocal() {
				locals = append(locals, sub.Clone())
				continue
			}
			kept = append(kept, sub)
		}
		s.subs = kept
		s.owner = owner
	})

	var (
		inserted  []models.Subscription
		insertErr error
	)
	if len(locals) > 0 {
		reowned := make([]models.Subscription, len(locals))
		for i, sub := range locals {
			reowned[i] = sub.Clone()
			reowned[i].Owner = owner
		}
		inserted, insertErr = s.remote.Insert(ctx, reowned, account.ID)
		if insertErr != nil {
			s.metrics.observe("reconcile_insert", outcomeFailed)
			log.Error("failed to move local subscriptions to account",
				slog.Int("count", len(locals)), sl.Err(insertErr))
		} else {
			s.metrics.reconciled.Add(float64(len(inserted)))
			log.Info("local subscriptions moved to account", slog.Int("count", len(inserted)))
		}
	}

	remote, queryErr := s.remote.Query(ctx, account.ID)
	if queryErr != nil {
		s.metrics.observe("reconcile_query", outcomeFailed)
		log.Error("failed to fetch account subscriptions", sl.Err(queryErr))

		s.commit(func() {
			merged := models.CloneAll(s.subs)
			if insertErr != nil {
				merged = append(merged, models.CloneAll(locals)...)
			} else {
				merged = append(merged, models.CloneAll(inserted)...)
			}
			sortNewestFirst(merged)
			s.subs = merged
		})
		return Result{Err: fmt.Errorf("%s: %w", op, errors.Join(insertErr, queryErr))}
	}

	s.commit(func() {
		merged := models.CloneAll(remote)
		if merged == nil {
			merged = []models.Subscription{}
		}
		if insertErr != nil {
			merged = append(merged, models.CloneAll(locals)...)
			sortNewestFirst(merged)
		}
		s.subs = merged
		s.aliases = make(map[models.ID]models.ID)
	})
	s.metrics.observe("reconcile", outcomeSynced)

	if insertErr != nil {
		return Result{Err: fmt.Errorf("%s: %w", op, insertErr)}
	}
	return Result{}
}
