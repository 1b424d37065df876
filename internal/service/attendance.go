package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

// AttendanceService records attendance marks.
type AttendanceService struct {
	store *repository.Store
	now   func() time.Time
}

// NewAttendanceService creates a new AttendanceService instance.
func NewAttendanceService(store *repository.Store) *AttendanceService {
	return &AttendanceService{store: store, now: utcNow}
}

// MarkAttendance ensures the member exists and appends one attendance row.
// There is no cooldown: every call creates a row.
func (s *AttendanceService) MarkAttendance(ctx context.Context, discordID, username string) (mark *model.Attendance, err error) {
	defer func() { record(model.ActionAttendance, err) }()

	at := s.now()
	err = s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		user, _, err := ensureUser(ctx, repos, discordID, username)
		if err != nil {
			return err
		}

		mark, err = repos.Attendance.Create(ctx, user.ID, at)
		if err != nil {
			return storage(err)
		}

		_, err = appendLog(ctx, repos, model.ActionAttendance, user.ID, "presence marked", at)
		return err
	})
	if err != nil {
		return nil, storage(err)
	}

	log.Info().
		Int64("user_id", mark.UserID).
		Str("discord_id", discordID).
		Msg("Attendance marked")

	return mark, nil
}
