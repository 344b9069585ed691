package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/sublist/internal/lib/sl"
	"github.com/magabrotheeeer/sublist/internal/models"
)

// command одна изменяющая операция: локальный шаг, удалённый шаг
// и шаги подтверждения или компенсации.
// Локальные шаги выполняются под s.mu через commit.
type command struct {
	op         string
	forward    func()
	remote     func(ctx context.Context) error
	confirm    func()
	compensate func()
}

// run применяет forward, затем remote. При ошибке remote применяет compensate,
// если она задана, и возвращает ошибку с контекстом операции.
// Компенсация пропускается, если список был очищен после forward.
// Без remote команда считается чисто локальной.
func (s *Store) run(ctx context.Context, cmd command) error {
	log := s.log.With(slog.String("op", cmd.op))

	var epoch uint64
	s.commit(func() {
		cmd.forward()
		epoch = s.epoch
	})

	if cmd.remote == nil {
		s.metrics.observe(cmd.op, outcomeLocal)
		return nil
	}

	if err := cmd.remote(ctx); err != nil {
		if cmd.compensate != nil {
			cleared := false
			s.commit(func() {
				if s.epoch != epoch {
					cleared = true
					return
				}
				cmd.compensate()
			})
			if cleared {
				s.metrics.observe(cmd.op, outcomeFailed)
				log.Warn("remote call failed, list was cleared meanwhile, nothing to roll back", sl.Err(err))
				return fmt.Errorf("%s: %w", cmd.op, err)
			}
			s.metrics.observe(cmd.op, outcomeRolledBack)
			log.Warn("remote call failed, local change rolled back", sl.Err(err))
		} else {
			s.metrics.observe(cmd.op, outcomeFailed)
			log.Error("remote call failed, local change kept", sl.Err(err))
		}
		return fmt.Errorf("%s: %w", cmd.op, err)
	}

	if cmd.confirm != nil {
		s.commit(cmd.confirm)
	}
	s.metrics.observe(cmd.op, outcomeSynced)
	return nil
}

// createCommand вставляет запись с временным ID в начало списка и заменяет её
// подтверждённой записью после успешной вставки.
func (s *Store) createCommand(rec models.Subscription, sync bool, out *models.Subscription) command {
	tempID := rec.ID
	cmd := command{
		op: "services.Store.Create",
		forward: func() {
			s.subs = insertAt(s.subs, 0, rec.Clone())
		},
		compensate: func() {
			if i := s.indexLocked(tempID); i >= 0 {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
			}
		},
	}
	*out = rec.Clone()
	if !sync {
		return cmd
	}

	ownerID, _ := rec.Owner.AccountID()
	var confirmed models.Subscription
	cmd.remote = func(ctx context.Context) error {
		inserted, err := s.remote.Insert(ctx, []models.Subscription{rec.Clone()}, ownerID)
		if err != nil {
			return err
		}
		if len(inserted) != 1 {
			return fmt.Errorf("remote returned %d records for one insert", len(inserted))
		}
		confirmed = inserted[0]
		return nil
	}
	cmd.confirm = func() {
		if i := s.indexLocked(tempID); i >= 0 {
			s.subs[i] = confirmed.Clone()
		}
		s.aliases[tempID] = confirmed.ID
		*out = confirmed.Clone()
	}
	return cmd
}

// updateCommand заменяет запись на prev с применённым патчем; компенсация
// возвращает prev на его место.
func (s *Store) updateCommand(prev models.Subscription, idx int, patch models.Patch, sync bool) command {
	next := patch.Apply(prev)
	cmd := command{
		op: "services.Store.Update",
		forward: func() {
			if i := s.indexLocked(prev.ID); i >= 0 {
				s.subs[i] = next.Clone()
			}
		},
		compensate: func() {
			if i := s.indexLocked(prev.ID); i >= 0 {
				s.subs[i] = prev.Clone()
				return
			}
			s.subs = insertAt(s.subs, idx, prev.Clone())
		},
	}
	if sync {
		cmd.remote = func(ctx context.Context) error {
			return s.remote.Update(ctx, prev.ID, patch)
		}
	}
	return cmd
}

// removeCommand убирает запись; компенсация возвращает её на прежнюю позицию.
func (s *Store) removeCommand(prev models.Subscription, idx int, sync bool) command {
	cmd := command{
		op: "services.Store.Remove",
		forward: func() {
			if i := s.indexLocked(prev.ID); i >= 0 {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
			}
		},
		compensate: func() {
			if s.indexLocked(prev.ID) >= 0 {
				return
			}
			s.subs = insertAt(s.subs, idx, prev.Clone())
		},
	}
	if sync {
		cmd.remote = func(ctx context.Context) error {
			return s.remote.Delete(ctx, prev.ID)
		}
	}
	return cmd
}

// resetCommand очищает список. Компенсации нет: при ошибке удалённого
// удаления локальный список остаётся пустым, ошибка только сообщается.
func (s *Store) resetCommand(owner models.Owner) command {
	cmd := command{
		op: "services.Store.ResetAll",
		forward: func() {
			s.subs = []models.Subscription{}
			s.aliases = make(map[models.ID]models.ID)
			s.epoch++
		},
	}
	if ownerID, ok := owner.AccountID(); ok {
		cmd.remote = func(ctx context.Context) error {
			return s.remote.BulkDelete(ctx, ownerID)
		}
	}
	return cmd
}
