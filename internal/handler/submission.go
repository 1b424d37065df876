package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/discord"
	"github.com/more249-s/Maga-Bot-V4/internal/pkg/lock"
	"github.com/more249-s/Maga-Bot-V4/internal/service"
)

// maxEmbedDescription is Discord's limit on embed descriptions.
const maxEmbedDescription = 4096

// SubmissionHandler handles submission intake and the review buttons.
type SubmissionHandler struct {
	review       *service.ReviewService
	userLock     *lock.Keyed[string]
	reviewLock   *lock.Keyed[int64]
	modChannelID string
}

// NewSubmissionHandler creates a new SubmissionHandler.
// An empty modChannelID keeps submissions pending without posting them for review.
func NewSubmissionHandler(
	review *service.ReviewService,
	userLock *lock.Keyed[string],
	reviewLock *lock.Keyed[int64],
	modChannelID string,
) *SubmissionHandler {
	return &SubmissionHandler{
		review:       review,
		userLock:     userLock,
		reviewLock:   reviewLock,
		modChannelID: modChannelID,
	}
}

// HandleSubmit handles /submit and posts the submission to the moderation channel.
func (h *SubmissionHandler) HandleSubmit(c discord.Context) error {
	var sub *model.Submission
	err := h.userLock.WithLock(c.Context(), c.UserID(), func() error {
		var err error
		sub, err = h.review.Submit(c.Context(), c.UserID(), c.Username(), c.Option("content"))
		return err
	})
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	if h.modChannelID == "" {
		return c.ReplyEphemeral(fmt.Sprintf("✅ Submission #%d received and pending review", sub.ID))
	}

	if err := c.Send(h.modChannelID, reviewMessage(sub, c.Username())); err != nil {
		log.Warn().Err(err).
			Int64("submission_id", sub.ID).
			Str("channel_id", h.modChannelID).
			Msg("Failed to post submission for review")
	}
	return c.ReplyEphemeral(fmt.Sprintf("✅ Submission #%d sent for review", sub.ID))
}

// reviewMessage builds the moderation embed with approve and reject buttons.
func reviewMessage(sub *model.Submission, author string) *discordgo.MessageSend {
	content := sub.Content
	if r := []rune(content); len(r) > maxEmbedDescription {
		content = string(r[:maxEmbedDescription-3]) + "..."
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       fmt.Sprintf("📝 Submission #%d", sub.ID),
			Description: content,
			Color:       0xFEE75C,
			Footer:      &discordgo.MessageEmbedFooter{Text: "From " + author},
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: fmt.Sprintf("%s%d", ApprovePrefix, sub.ID),
				},
				discordgo.Button{
					Label:    "Reject",
					Style:    discordgo.DangerButton,
					CustomID: fmt.Sprintf("%s%d", RejectPrefix, sub.ID),
				},
			}},
		},
	}
}

// HandleApprove handles the approve button.
func (h *SubmissionHandler) HandleApprove(c discord.Context) error {
	id, ok := submissionID(c.Route(), ApprovePrefix)
	if !ok {
		return c.ReplyEphemeral("❌ Invalid submission")
	}

	var approval *service.Approval
	err := h.reviewLock.WithLock(c.Context(), id, func() error {
		var err error
		approval, err = h.review.ApplyApproval(c.Context(), id)
		return err
	})
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	log.Info().
		Str("reviewer_id", c.UserID()).
		Int64("submission_id", id).
		Str("operation", "approve").
		Msg("Review action executed")

	return c.Update(fmt.Sprintf(
		"✅ Submission #%d approved by %s\n"+
			"🎁 Reward: %s\n"+
			"📚 Chapters: %d | 🏅 Rank: %s",
		id, c.Username(), approval.Reward, approval.User.AcceptedChapters, approval.User.Rank,
	), nil)
}

// HandleReject handles the reject button.
func (h *SubmissionHandler) HandleReject(c discord.Context) error {
	id, ok := submissionID(c.Route(), RejectPrefix)
	if !ok {
		return c.ReplyEphemeral("❌ Invalid submission")
	}

	err := h.reviewLock.WithLock(c.Context(), id, func() error {
		_, err := h.review.ApplyRejection(c.Context(), id)
		return err
	})
	if err != nil {
		return c.ReplyEphemeral(errorMessage(err))
	}

	log.Info().
		Str("reviewer_id", c.UserID()).
		Int64("submission_id", id).
		Str("operation", "reject").
		Msg("Review action executed")

	return c.Update(fmt.Sprintf("❌ Submission #%d rejected by %s", id, c.Username()), nil)
}
