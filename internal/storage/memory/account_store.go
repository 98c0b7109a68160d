// Package memory provides in-memory store implementations, used by tests and
// by any deployment that does not need durable files.
package memory

import (
	"context"
	"sync"

	"blibank/internal/domain"
)

// AccountStore keeps the last saved snapshot in memory. FailNextSave makes
// the next Save return an injected error, so write-through rollback paths
// can be exercised.
type AccountStore struct {
	mu       sync.RWMutex
	snapshot []domain.Account
	saves    int
	failErr  error
}

func NewAccountStore() *AccountStore {
	return &AccountStore{}
}

func (s *AccountStore) Load(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, len(s.snapshot))
	copy(out, s.snapshot)
	return out, nil
}

func (s *AccountStore) Save(ctx context.Context, accounts []domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		err := s.failErr
		s.failErr = nil
		return err
	}

	s.snapshot = make([]domain.Account, len(accounts))
	copy(s.snapshot, accounts)
	s.saves++
	return nil
}

func (s *AccountStore) FailNextSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Saves reports how many snapshots were written, letting tests assert
// write-through happened (or did not).
func (s *AccountStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
