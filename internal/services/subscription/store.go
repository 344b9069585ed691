// Package services содержит хранилище состояния подписок клиента:
// оптимистичные изменения локального списка, синхронизацию с удалённым
// хранилищем и откат при ошибке.
package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/sublist/internal/models"
)

// ErrNotFound возвращается, если подписки с указанным ID нет в локальном списке.
var ErrNotFound = errors.New("subscription not found")

// RemoteStore определяет методы удалённого хранилища подписок.
type RemoteStore interface {
	// Insert сохраняет записи для владельца и возвращает их с выданными ID
	// в том же порядке.
	Insert(ctx context.Context, records []models.Subscription, ownerID string) ([]models.Subscription, error)
	// Update применяет патч к записи.
	Update(ctx context.Context, id models.ID, patch models.Patch) error
	// Delete удаляет запись.
	Delete(ctx context.Context, id models.ID) error
	// BulkDelete удаляет все записи владельца.
	BulkDelete(ctx context.Context, ownerID string) error
	// Query возвращает записи владельца, новые первыми.
	Query(ctx context.Context, ownerID string) ([]models.Subscription, error)
}

// State снимок состояния хранилища, передаваемый подписчикам и в локальный снимок.
type State struct {
	Subscriptions []models.Subscription `json:"subscriptions"`
	Owner         models.Owner          `json:"owner"`
	Preferences   models.Preferences    `json:"preferences"`
}

// Listener получает новое состояние после каждого локального изменения.
type Listener func(State)

// Result итог операции. Ошибка удалённого хранилища уже обработана
// (локальное состояние откатено, где это предусмотрено) и только сообщается.
type Result struct {
	Subscription *models.Subscription
	Err          error
}

// OK сообщает, что операция завершилась без ошибки.
func (r Result) OK() bool {
	return r.Err == nil
}

// Store единственный владелец списка подписок клиента.
// Все изменения списка проходят через его методы.
type Store struct {
	remote  RemoteStore
	log     *slog.Logger
	metrics *Metrics
	now     func() time.Time
	newID   func() models.ID

	mu      sync.RWMutex
	subs    []models.Subscription
	owner   models.Owner
	prefs   models.Preferences
	aliases map[models.ID]models.ID // временный ID -> подтверждённый
	version uint64
	epoch   uint64 // растёт при каждой очистке списка

	locks *keyedMutex

	notifyMu     sync.Mutex
	published    uint64
	listeners    []listenerEntry
	nextListener int
}

type listenerEntry struct {
	id int
	fn Listener
}

// Option настраивает Store.
type Option func(*Store)

// WithClock задаёт источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator задаёт генератор временных ID.
func WithIDGenerator(gen func() models.ID) Option {
	return func(s *Store) { s.newID = gen }
}

// WithMetrics подключает счётчики Prometheus.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithState задаёт начальное состояние, например загруженное из локального снимка.
func WithState(st State) Option {
	return func(s *Store) {
		s.subs = models.CloneAll(st.Subscriptions)
		s.owner = st.Owner
		s.prefs = st.Preferences
	}
}

// NewStore создает новый экземпляр Store.
func NewStore(remote RemoteStore, log *slog.Logger, opts ...Option) *Store {
	s := &Store{
		remote:  remote,
		log:     log,
		now:     time.Now,
		newID:   models.NewTemporaryID,
		owner:   models.LocalOnly(),
		aliases: make(map[models.ID]models.ID),
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// Subscriptions возвращает копию текущего списка.
func (s *Store) Subscriptions() []models.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := models.CloneAll(s.subs)
	if out == nil {
		out = []models.Subscription{}
	}
	return out
}

// Owner возвращает текущего владельца.
func (s *Store) Owner() models.Owner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Preferences возвращает пользовательские настройки.
func (s *Store) Preferences() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// State возвращает полный снимок состояния.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Find возвращает подписку по ID, в том числе по уже подтверждённому временному ID.
func (s *Store) Find(id models.ID) (models.Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id = s.resolveLocked(id)
	if i := s.indexLocked(id); i >= 0 {
		return s.subs[i].Clone(), true
	}
	return models.Subscription{}, false
}

// Subscribe регистрирует слушателя изменений и возвращает функцию отписки.
func (s *Store) Subscribe(fn Listener) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetPreferences сохраняет пользовательские настройки.
func (s *Store) SetPreferences(p models.Preferences) {
	s.commit(func() {
		s.prefs = p
	})
}

// SignOut возвращает хранилище к локальной сессии: записи аккаунта убираются
// из локального состояния, локальные записи остаются.
func (s *Store) SignOut() {
	s.commit(func() {
		kept := s.subs[:0:0]
		for _, sub := range s.subs {
			if sub.Owner.IsLocal() {
				kept = append(kept, sub)
			}
		}
		s.subs = kept
		s.owner = models.LocalOnly()
		s.aliases = make(map[models.ID]models.ID)
		s.epoch++
	})
	s.log.Info("signed out, account records dropped from local state")
}

// commit выполняет изменение под блокировкой и уведомляет слушателей
// до того, как вызывающий продолжит работу.
func (s *Store) commit(mutate func()) {
	s.mu.Lock()
	mutate()
	s.version++
	v := s.version
	st := s.stateLocked()
	s.mu.Unlock()

	s.publish(v, st)
}

func (s *Store) publish(v uint64, st State) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	// более новое состояние уже доставлено
	if v <= s.published {
		return
	}
	s.published = v
	for _, l := range s.listeners {
		l.fn(st)
	}
}

func (s *Store) stateLocked() State {
	subs := models.CloneAll(s.subs)
	if subs == nil {
		subs = []models.Subscription{}
	}
	return State{
		Subscriptions: subs,
		Owner:         s.owner,
		Preferences:   s.prefs,
	}
}

func (s *Store) indexLocked(id models.ID) int {
	for i, sub := range s.subs {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) resolveLocked(id models.ID) models.ID {
	for {
		next, ok := s.aliases[id]
		if !ok {
			return id
		}
		id = next
	}
}

// lockID берёт блокировку ID; если временный ID уже подтверждён,
// блокировка переходит на подтверждённый ID.
func (s *Store) lockID(id models.ID) (models.ID, func()) {
	for {
		unlock := s.locks.Lock(id)
		s.mu.RLock()
		next, ok := s.aliases[id]
		s.mu.RUnlock()
		if !ok {
			return id, unlock
		}
		unlock()
		id = next
	}
}

func sortNewestFirst(subs []models.Subscription) {
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}

func insertAt(subs []models.Subscription, idx int, sub models.Subscription) []models.Subscription {
	if idx < 0 {
		idx = 0
	}
	if idx > len(subs) {
		idx = len(subs)
	}
	subs = append(subs, models.Subscription{})
	copy(subs[idx+1:], subs[idx:])
	subs[idx] = sub
	return subs
}
