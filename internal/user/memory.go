package user

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore はプロセス内メモリにユーザーを保持する Store 実装です（開発・テスト用）。
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

// Create はユーザーを保存します。
func (s *MemoryStore) Create(_ context.Context, u *User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	Prepare(u)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return ErrDuplicateKey
	}
	if _, exists := s.byID[u.ID]; exists {
		return ErrDuplicateKey
	}

	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

// FindByID は ID でユーザーを検索します。
func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// Len は保存済みユーザー数を返します。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
