package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
)

// MemoryRepository хранит корзины и сессии в памяти процесса. Используется, когда
// DATABASE_URI не задан.
type MemoryRepository struct {
	mu       sync.RWMutex
	carts    map[string]model.Cart
	sessions map[string]apiclient.Session
	now      func() time.Time
}

// NewMemoryRepository создаёт пустое хранилище.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts:    make(map[string]model.Cart),
		sessions: make(map[string]apiclient.Session),
		now:      time.Now,
	}
}

// Close ничего не делает.
func (m *MemoryRepository) Close() error { return nil }

// GetCart возвращает копию корзины.
func (m *MemoryRepository) GetCart(_ context.Context, id string) (*model.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[id]
	if !ok {
		return nil, ErrCartNotFound
	}
	c.Items = append([]model.CartItem{}, c.Items...)
	return &c, nil
}

// SaveCart создаёт или заменяет корзину.
func (m *MemoryRepository) SaveCart(_ context.Context, c model.Cart) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.Items = append([]model.CartItem{}, c.Items...)
	c.UpdatedAt = m.now().UTC()
	m.carts[c.ID] = c

	out := c
	out.Items = append([]model.CartItem{}, c.Items...)
	return &out, nil
}

// DeleteCart удаляет корзину.
func (m *MemoryRepository) DeleteCart(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[id]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, id)
	return nil
}

// SaveSession сохраняет сессию.
func (m *MemoryRepository) SaveSession(_ context.Context, id string, s *apiclient.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = *s
	return nil
}

// GetSession возвращает сессию, если она существует и не истекла.
func (m *MemoryRepository) GetSession(_ context.Context, id string) (*apiclient.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || s.Expired(m.now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// DeleteSession удаляет сессию.
func (m *MemoryRepository) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
