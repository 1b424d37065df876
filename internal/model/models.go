// Package model defines the data models for the community ledger bot.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemUserID is the acting user recorded for admin and system actions
// that are not tied to a ledger user row.
const SystemUserID int64 = 0

// User represents a community member account.
// DiscordID is the external chat-platform identity and is unique.
type User struct {
	ID               int64           `db:"id"`
	DiscordID        string          `db:"discord_id"`
	Username         string          `db:"username"`
	Points           int64           `db:"points"`
	Balance          decimal.Decimal `db:"balance"`
	AcceptedChapters int64           `db:"accepted_chapters"`
	Rank             Rank            `db:"rank"`
	WithdrawMethod   *string         `db:"withdraw_method"`
}

// Submission represents a piece of content waiting for, or resolved by, review.
type Submission struct {
	ID        int64            `db:"id"`
	UserID    int64            `db:"user_id"`
	Content   string           `db:"content"`
	Status    SubmissionStatus `db:"status"`
	CreatedAt time.Time        `db:"created_at"`
}

// Withdrawal represents a payout request. Its amount was debited from the
// user's balance when the row was created.
type Withdrawal struct {
	ID        int64            `db:"id"`
	UserID    int64            `db:"user_id"`
	Amount    decimal.Decimal  `db:"amount"`
	Method    string           `db:"method"`
	Status    WithdrawalStatus `db:"status"`
	CreatedAt time.Time        `db:"created_at"`
}

// Attendance represents one attendance mark.
type Attendance struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Timestamp time.Time `db:"timestamp"`
}

// AttendanceEntry is an attendance mark joined with the member's name.
type AttendanceEntry struct {
	Username  string    `db:"username"`
	Timestamp time.Time `db:"timestamp"`
}

// PricingRule is one row of the append-only reward pricing history.
// The most recently inserted row for a scope is the effective rule.
type PricingRule struct {
	ID        int64           `db:"id"`
	Type      RewardType      `db:"type"`
	Value     decimal.Decimal `db:"value"`
	RoleName  string          `db:"role_name"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// LogEntry is one append-only audit record.
type LogEntry struct {
	ID        int64     `db:"id"`
	Action    string    `db:"action"`
	UserID    int64     `db:"user_id"`
	Details   *string   `db:"details"`
	CreatedAt time.Time `db:"created_at"`
}

// Stats summarizes ledger contents for the stats command and dashboard.
type Stats struct {
	Users       int64 `db:"users"`
	Pending     int64 `db:"pending"`
	Approved    int64 `db:"approved"`
	Rejected    int64 `db:"rejected"`
	Withdrawals int64 `db:"withdrawals"`
	Attendance  int64 `db:"attendance"`
}

// Submissions returns the total number of submissions in any state.
func (s Stats) Submissions() int64 {
	return s.Pending + s.Approved + s.Rejected
}

// SubmissionStatus is the review state of a submission.
type SubmissionStatus string

// Submission states. Approved and rejected are terminal.
const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// IsTerminal reports whether no further transition is defined from s.
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// WithdrawalStatus is the processing state of a withdrawal.
// Only pending is ever written; completion happens outside the bot.
type WithdrawalStatus string

// Withdrawal states.
const (
	WithdrawalPending WithdrawalStatus = "pending"
)

// RewardType is the unit paid out per approved submission.
type RewardType string

// Reward types accepted by the pricing command.
const (
	RewardPoints RewardType = "points"
	RewardMoney  RewardType = "money"
)

// Valid reports whether t is a recognized reward type.
func (t RewardType) Valid() bool {
	return t == RewardPoints || t == RewardMoney
}

// Audit log action tags.
const (
	ActionAttendance      = "attendance"
	ActionSubmit          = "submit"
	ActionApprove         = "approve"
	ActionReject          = "reject"
	ActionWithdrawRequest = "withdraw_request"
	ActionPricingUpdate   = "pricing_update"
)
