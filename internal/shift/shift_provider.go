package shift

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=shift_provider.go -destination=mock/shift_provider_mock.go -package=mock
type Provider interface {
	EffectivePolicy(ctx context.Context, companyID, employeeID string) (Policy, error)
}

type provider struct {
	repo     Repository
	fallback Policy
	logger   *zap.Logger
}

// NewProvider returns fallback for companies that have no shift configured.
func NewProvider(repo Repository, fallback Policy, logger ...*zap.Logger) Provider {
	l := zap.L().Named("shift.provider")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("shift.provider")
	}
	return &provider{repo: repo, fallback: fallback, logger: l}
}

func (p *provider) EffectivePolicy(ctx context.Context, companyID, employeeID string) (Policy, error) {
	s, err := p.repo.FindEffective(ctx, companyID, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p.logger.Debug("no shift configured, using default",
				zap.String("company_id", companyID),
				zap.String("employee_id", employeeID),
			)
			return p.fallback, nil
		}
		return Policy{}, fmt.Errorf("load shift: %w", err)
	}

	policy, err := s.Policy()
	if err != nil {
		return Policy{}, fmt.Errorf("shift %s: %w", s.ID, err)
	}
	return policy, nil
}
