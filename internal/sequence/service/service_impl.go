package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/opsdesk/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Allocator {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("sequence.service"),
		repo: p.Repo,
	}
}

func (s *Service) Next(ctx context.Context, scope string) (int64, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return 0, domain.ErrInvalidScope
	}

	value, err := s.repo.Increment(ctx, s.db, scope)
	if err != nil {
		// No local fallback: a failed allocation must abort the caller
		// rather than risk a duplicate or skipped number.
		return 0, err
	}

	s.log.Debug("sequence allocated",
		zap.String("scope", scope),
		zap.Int64("value", value),
	)
	return value, nil
}
