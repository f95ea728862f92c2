package middleware

import (
	"sync"
	"time"
)

// RecentTracker помнит недавно зарегистрированных игроков, чтобы авторегистрация
// не ходила в базу на каждое действие. Это только подсказка: промах или потеря записи
// безопасны, потому что регистрация в базе идемпотентна.
type RecentTracker struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRecentTracker создаёт трекер и запускает фоновую очистку.
func NewRecentTracker(ttl time.Duration) *RecentTracker {
	rt := &RecentTracker{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	go rt.cleanup()
	return rt
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (rt *RecentTracker) Close() {
	rt.stopOnce.Do(func() { close(rt.stopCh) })
}

// Mark отмечает игрока как недавно зарегистрированного.
func (rt *RecentTracker) Mark(userID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.seen[userID] = rt.now()
}

// Seen — отмечался ли игрок в пределах ttl.
func (rt *RecentTracker) Seen(userID string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	at, ok := rt.seen[userID]
	if !ok {
		return false
	}
	if rt.now().Sub(at) >= rt.ttl {
		delete(rt.seen, userID)
		return false
	}
	return true
}

// Forget убирает игрока (например, после сброса данных).
func (rt *RecentTracker) Forget(userID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.seen, userID)
}

// Reset очищает трекер целиком.
func (rt *RecentTracker) Reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.seen = make(map[string]time.Time)
}

func (rt *RecentTracker) sweep() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	cutoff := rt.now().Add(-rt.ttl)
	for id, at := range rt.seen {
		if !at.After(cutoff) {
			delete(rt.seen, id)
		}
	}
}

func (rt *RecentTracker) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rt.stopCh:
			return
		case <-ticker.C:
			rt.sweep()
		}
	}
}
