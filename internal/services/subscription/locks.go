package services

import (
	"sync"

	"github.com/magabrotheeeer/sublist/internal/models"
)

// keyedMutex сериализует операции над одной записью, не блокируя остальные.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[models.ID]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[models.ID]*refLock)}
}

// Lock блокирует ключ и возвращает функцию разблокировки.
func (k *keyedMutex) Lock(id models.ID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
