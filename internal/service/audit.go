package service

import (
	"context"
	"time"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

// AuditService is the append-only audit trail. Business logic never reads it.
type AuditService struct {
	store *repository.Store
	now   func() time.Time
}

// NewAuditService creates a new AuditService instance.
func NewAuditService(store *repository.Store) *AuditService {
	return &AuditService{store: store, now: utcNow}
}

// Append records an action outside of any other mutation.
// Persistence failures are reported as ErrStorage.
func (s *AuditService) Append(ctx context.Context, action string, userID int64, details string) (*model.LogEntry, error) {
	return appendLog(ctx, s.store.Repositories, action, userID, details, s.now())
}

// ByUser returns a user's audit records, newest first.
func (s *AuditService) ByUser(ctx context.Context, userID int64, limit int) ([]*model.LogEntry, error) {
	entries, err := s.store.Logs.GetByUserID(ctx, userID, limit)
	return entries, storage(err)
}

// ByAction returns audit records with the given action tag, newest first.
func (s *AuditService) ByAction(ctx context.Context, action string, limit int) ([]*model.LogEntry, error) {
	entries, err := s.store.Logs.GetByAction(ctx, action, limit)
	return entries, storage(err)
}

// appendLog writes an audit record through repos, which is usually bound
// to the transaction of the mutation being logged.
func appendLog(ctx context.Context, repos *repository.Repositories, action string, userID int64, details string, at time.Time) (*model.LogEntry, error) {
	var d *string
	if details != "" {
		d = &details
	}
	entry, err := repos.Logs.Create(ctx, action, userID, d, at)
	if err != nil {
		return nil, storage(err)
	}
	return entry, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
