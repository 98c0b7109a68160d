package memory

import (
	"context"
	"sync"

	"blibank/internal/domain"
)

type StatementStore struct {
	mu         sync.RWMutex
	statements map[string][]domain.PurchaseRecord
	failErr    error
}

func NewStatementStore() *StatementStore {
	return &StatementStore{
		statements: make(map[string][]domain.PurchaseRecord),
	}
}

func (s *StatementStore) Append(ctx context.Context, email string, rec domain.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		err := s.failErr
		s.failErr = nil
		return err
	}

	key := domain.NormalizeEmail(email)
	s.statements[key] = append(s.statements[key], rec)
	return nil
}

func (s *StatementStore) Load(ctx context.Context, email string) (*domain.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.statements[domain.NormalizeEmail(email)]
	statement := &domain.Statement{Records: make([]domain.PurchaseRecord, len(recs))}
	copy(statement.Records, recs)
	return statement, nil
}

func (s *StatementStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.statements, domain.NormalizeEmail(email))
	return nil
}

func (s *StatementStore) FailNextAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}
