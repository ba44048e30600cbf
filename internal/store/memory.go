package store

import (
	"context"
	"sync"
	"time"

	"github.com/ArtemDzuba/bakery-bot/internal/bakery"
	"github.com/ArtemDzuba/bakery-bot/internal/seed"
)

// MemoryStore keeps the catalog and conversations in process. Suitable for
// development and tests; state is lost on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	categories    []bakery.Category
	products      []bakery.Product
	conversations map[int64]bakery.Conversation
	open          int
	now           func() time.Time
}

// NewMemory builds a MemoryStore serving cat.
func NewMemory(cat seed.Catalog) *MemoryStore {
	return &MemoryStore{
		categories:    append([]bakery.Category(nil), cat.Categories...),
		products:      append([]bakery.Product(nil), cat.Products...),
		conversations: make(map[int64]bakery.Conversation),
		now:           time.Now,
	}
}

// Acquire returns a session over the shared maps.
func (m *MemoryStore) Acquire(context.Context) (Session, error) {
	m.mu.Lock()
	m.open++
	m.mu.Unlock()
	return &memorySession{m: m}, nil
}

// OpenSessions reports how many sessions have not been closed yet.
func (m *MemoryStore) OpenSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

// Len reports how many users have a stored conversation.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

type memorySession struct {
	m    *MemoryStore
	once sync.Once
}

func (s *memorySession) Close() error {
	s.once.Do(func() {
		s.m.mu.Lock()
		s.m.open--
		s.m.mu.Unlock()
	})
	return nil
}

func (s *memorySession) ListCategories(context.Context) ([]bakery.Category, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	return append([]bakery.Category(nil), s.m.categories...), nil
}

func (s *memorySession) ListProducts(_ context.Context, categoryID int64) ([]bakery.Product, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var out []bakery.Product
	for _, p := range s.m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memorySession) GetProduct(_ context.Context, id int64) (bakery.Product, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, p := range s.m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return bakery.Product{}, bakery.ErrNotFound
}

func (s *memorySession) FindProduct(_ context.Context, name string, categoryID int64) (bakery.Product, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	var (
		found bakery.Product
		n     int
	)
	for _, p := range s.m.products {
		if p.CategoryID == categoryID && p.Name == name {
			found = p
			n++
		}
	}
	if n != 1 {
		return bakery.Product{}, bakery.ErrNotFound
	}
	return found, nil
}

func (s *memorySession) ReadConversation(_ context.Context, userID int64) (bakery.Conversation, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	if conv, ok := s.m.conversations[userID]; ok {
		return conv, nil
	}
	return bakery.NewConversation(userID), nil
}

func (s *memorySession) WriteConversation(_ context.Context, conv bakery.Conversation) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if conv.State == nil {
		conv.State = bakery.Main{}
	}
	conv.UpdatedAt = s.m.now()
	s.m.conversations[conv.UserID] = conv
	return nil
}
