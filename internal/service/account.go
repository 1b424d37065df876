package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

// AccountService handles member accounts and read-only ledger queries.
type AccountService struct {
	store *repository.Store
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(store *repository.Store) *AccountService {
	return &AccountService{store: store}
}

// EnsureUser looks up a member by Discord ID, creating one on first sight.
// An existing member's display name is refreshed to the latest seen value.
// Returns the user and whether it was newly created.
func (s *AccountService) EnsureUser(ctx context.Context, discordID, username string) (*model.User, bool, error) {
	return ensureUser(ctx, s.store.Repositories, discordID, username)
}

func ensureUser(ctx context.Context, repos *repository.Repositories, discordID, username string) (*model.User, bool, error) {
	user, created, err := repos.Users.GetOrCreate(ctx, discordID, username)
	if err != nil {
		return nil, false, storage(err)
	}

	if !created && username != "" && user.Username != username {
		if err := repos.Users.UpdateUsername(ctx, user.ID, username); err != nil {
			return nil, false, storage(err)
		}
		user.Username = username
	}

	if created {
		log.Info().
			Int64("user_id", user.ID).
			Str("discord_id", discordID).
			Str("username", username).
			Msg("New member registered")
	}

	return user, created, nil
}

// GetUser retrieves a member by Discord ID.
func (s *AccountService) GetUser(ctx context.Context, discordID string) (*model.User, error) {
	user, err := s.store.Users.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, lookup(err)
	}
	return user, nil
}

// Profile ensures the member exists and returns the account.
func (s *AccountService) Profile(ctx context.Context, discordID, username string) (*model.User, error) {
	user, _, err := s.EnsureUser(ctx, discordID, username)
	return user, err
}

// Leaderboard returns the top members by accepted chapters, then points.
func (s *AccountService) Leaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	if limit <= 0 {
		return nil, nil
	}
	users, err := s.store.Users.GetTopUsers(ctx, limit)
	return users, storage(err)
}

// RecentAttendance returns the latest attendance marks, newest first.
func (s *AccountService) RecentAttendance(ctx context.Context, limit int) ([]*model.AttendanceEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	entries, err := s.store.Attendance.Recent(ctx, limit)
	return entries, storage(err)
}

// Stats counts members, submissions by status, withdrawals and attendance.
func (s *AccountService) Stats(ctx context.Context) (*model.Stats, error) {
	stats, err := s.store.Reports.Stats(ctx)
	if err != nil {
		return nil, storage(err)
	}
	return stats, nil
}

// Submission retrieves a submission by ID.
func (s *AccountService) Submission(ctx context.Context, id int64) (*model.Submission, error) {
	sub, err := s.store.Submissions.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err)
	}
	return sub, nil
}
