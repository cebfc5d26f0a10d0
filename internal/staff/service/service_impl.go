package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/staff/domain"
	"github.com/smallbiznis/opsdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("staff.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateStaffRequest) (domain.Staff, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Staff{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Staff{}, domain.ErrInvalidEmail
	}

	role := domain.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role == "" {
		role = domain.RoleAgent
	}
	if role != domain.RoleAdmin && role != domain.RoleAgent {
		return domain.Staff{}, domain.ErrInvalidRole
	}

	now := time.Now().UTC()
	staff := domain.Staff{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &staff); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Staff{}, domain.ErrEmailExists
		}
		return domain.Staff{}, err
	}

	return staff, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Staff, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	staff := make([]domain.Staff, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		staff = append(staff, *item)
	}
	return staff, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Staff, error) {
	staffID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || staffID == 0 {
		return domain.Staff{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, staffID)
	if err != nil {
		return domain.Staff{}, err
	}
	if item == nil {
		return domain.Staff{}, domain.ErrNotFound
	}

	return *item, nil
}
