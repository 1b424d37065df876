package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/more249-s/Maga-Bot-V4/internal/model"
	"github.com/more249-s/Maga-Bot-V4/internal/repository"
)

// PricingService administers the append-only reward pricing history.
type PricingService struct {
	store *repository.Store
	scope string
	now   func() time.Time
}

// NewPricingService creates a PricingService writing rules for scope.
func NewPricingService(store *repository.Store, scope string) *PricingService {
	return &PricingService{store: store, scope: scope, now: utcNow}
}

// Scope returns the pricing scope new rules are written to.
func (s *PricingService) Scope() string {
	return s.scope
}

// SetPricing appends a new rule. Earlier rules are kept as history.
// The caller is responsible for the administrator check.
func (s *PricingService) SetPricing(ctx context.Context, rewardType string, value decimal.Decimal) (rule *model.PricingRule, err error) {
	defer func() { record(model.ActionPricingUpdate, err) }()

	t := model.RewardType(rewardType)
	if !t.Valid() {
		return nil, ErrInvalidType
	}
	if !value.IsPositive() {
		return nil, ErrInvalidAmount
	}

	at := s.now()
	err = s.store.WithTx(ctx, func(repos *repository.Repositories) error {
		rule, err = repos.Pricing.Create(ctx, t, value, s.scope, at)
		if err != nil {
			return storage(err)
		}

		details := fmt.Sprintf("%s=%s", t, value.String())
		_, err = appendLog(ctx, repos, model.ActionPricingUpdate, model.SystemUserID, details, at)
		return err
	})
	if err != nil {
		return nil, storage(err)
	}

	log.Info().
		Str("type", string(t)).
		Str("value", value.String()).
		Str("scope", s.scope).
		Msg("Pricing updated")

	return rule, nil
}

// GetEffectivePricing returns the most recently inserted rule for scope.
// Returns ErrNoPricing when none has been set.
func (s *PricingService) GetEffectivePricing(ctx context.Context, scope string) (*model.PricingRule, error) {
	rule, err := s.store.Pricing.GetEffective(ctx, scope)
	if err != nil {
		if errors.Is(err, repository.ErrNoPricing) {
			return nil, ErrNoPricing
		}
		return nil, storage(err)
	}
	return rule, nil
}

// History returns the rules of the configured scope, newest first.
func (s *PricingService) History(ctx context.Context, limit int) ([]*model.PricingRule, error) {
	rules, err := s.store.Pricing.History(ctx, s.scope, limit)
	return rules, storage(err)
}
