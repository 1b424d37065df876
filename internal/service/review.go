package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

// Approval is the outcome of an approved submission.
type Approval struct {
	Submission *model.Submission
	User       *model.User
	Reward     Reward
}

// ReviewService drives the submission lifecycle:
// pending -> approved or pending -> rejected, both terminal.
type ReviewService struct {
	store *repository.Store
	scope string
	now   func() time.Time
}

// NewReviewService creates a ReviewService paying out from the rules of scope.
func NewReviewService(store *repository.Store, scope string) *ReviewService {
	return &ReviewService{store: store, scope: scope, now: utcNow}
}

// Submit ensures the member exists and records a pending submission.
func (s *ReviewService) Submit(ctx context.Context, discordID, username, content string) (sub *model.Submission, err error) {
	defer func() { record(model.ActionSubmit, err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidContent
	}

	at := s.now()
	err = s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		user, _, err := ensureUser(ctx, repos, discordID, username)
		if err != nil {
			return err
		}

		sub, err = repos.Submissions.Create(ctx, user.ID, content, at)
		if err != nil {
			return storage(err)
		}

		_, err = appendLog(ctx, repos, model.ActionSubmit, user.ID, fmt.Sprintf("submission#%d", sub.ID), at)
		return err
	})
	if err != nil {
		return nil, storage(err)
	}

	log.Info().
		Int64("submission_id", sub.ID).
		Int64("user_id", sub.UserID).
		Msg("Submission received")

	return sub, nil
}

// ApplyApproval approves a pending submission and pays its author from the
// pricing rule in effect right now. Without a rule the status, chapter count
// and rank still change but no reward is granted.
func (s *ReviewService) ApplyApproval(ctx context.Context, submissionID int64) (result *Approval, err error) {
	defer func() { record(model.ActionApprove, err) }()

	at := s.now()
	err = s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		sub, err := resolve(ctx, repos, submissionID, model.StatusApproved)
		if err != nil {
			return err
		}

		rule, err := repos.Pricing.GetEffective(ctx, s.scope)
		if err != nil && !errors.Is(err, repository.ErrNoPricing) {
			return storage(err)
		}
		reward := RewardFor(rule)

		user, err := repos.Users.GetByIDForUpdate(ctx, sub.UserID)
		if err != nil {
			return lookup(err)
		}
		reward.Apply(user)
		if err := repos.Users.SaveTotals(ctx, user); err != nil {
			return storage(err)
		}

		details := fmt.Sprintf("submission#%d", sub.ID)
		if reward.Granted() {
			details += " " + reward.String()
		}
		if _, err := appendLog(ctx, repos, model.ActionApprove, user.ID, details, at); err != nil {
			return err
		}

		result = &Approval{Submission: sub, User: user, Reward: reward}
		return nil
	})
	if err != nil {
		return nil, storage(err)
	}

	log.Info().
		Int64("submission_id", submissionID).
		Int64("user_id", result.User.ID).
		Str("reward", result.Reward.String()).
		Int64("accepted_chapters", result.User.AcceptedChapters).
		Str("rank", string(result.User.Rank)).
		Msg("Submission approved")

	return result, nil
}

// ApplyRejection rejects a pending submission. No reward side effects.
func (s *ReviewService) ApplyRejection(ctx context.Context, submissionID int64) (sub *model.Submission, err error) {
	defer func() { record(model.ActionReject, err) }()

	at := s.now()
	err = s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		sub, err = resolve(ctx, repos, submissionID, model.StatusRejected)
		if err != nil {
			return err
		}

		_, err = appendLog(ctx, repos, model.ActionReject, sub.UserID, fmt.Sprintf("submission#%d", sub.ID), at)
		return err
	})
	if err != nil {
		return nil, storage(err)
	}

	log.Info().
		Int64("submission_id", submissionID).
		Int64("user_id", sub.UserID).
		Msg("Submission rejected")

	return sub, nil
}

// resolve reads the submission fresh and moves it out of pending.
// Terminal submissions are left untouched and reported as ErrAlreadyResolved.
func resolve(ctx context.Context, repos *repository.Repositories, id int64, status model.SubmissionStatus) (*model.Submission, error) {
	sub, err := repos.Submissions.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err)
	}
	if sub.Status.IsTerminal() {
		return nil, ErrAlreadyResolved
	}

	ok, err := repos.Submissions.Resolve(ctx, id, status)
	if err != nil {
		return nil, storage(err)
	}
	if !ok {
		return nil, ErrAlreadyResolved
	}

	sub.Status = status
	return sub, nil
}
