package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/clock"
	sequencedomain "github.com/smallbiznis/opsdesk/internal/sequence/domain"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
	"github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Allocator sequencedomain.Allocator
	StaffSvc  staffdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	allocator sequencedomain.Allocator
	staffSvc  staffdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("ticket.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		allocator: p.Allocator,
		staffSvc:  p.StaffSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTicketRequest) (domain.Ticket, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return domain.Ticket{}, domain.ErrInvalidSubject
	}

	priority := domain.Priority(strings.ToLower(strings.TrimSpace(req.Priority)))
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return domain.Ticket{}, domain.ErrInvalidPriority
	}

	var clientID *snowflake.ID
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		clientID = &id
	}

	seq, err := s.allocator.Next(ctx, sequencedomain.TicketScope)
	if err != nil {
		return domain.Ticket{}, err
	}

	now := s.clock.Now()
	ticket := domain.Ticket{
		ID:          s.genID.Generate(),
		Number:      domain.FormatNumber(seq),
		ClientID:    clientID,
		Subject:     subject,
		Description: strings.TrimSpace(req.Description),
		Priority:    priority,
		Status:      domain.StatusOpen,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &ticket); err != nil {
		return domain.Ticket{}, err
	}

	return ticket, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListTicketFilter) ([]domain.Ticket, error) {
	if filter.Status != "" && !domain.ValidStatus(domain.Status(filter.Status)) {
		return nil, domain.ErrInvalidStatus
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	tickets := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tickets = append(tickets, *item)
	}
	return tickets, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Ticket, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	return *item, nil
}

// Update drives the status machine. The first transition to resolved stamps
// ResolvedAt exactly once; resolving without an explicit readyForBilling in
// the same request defaults the flag to true.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdateTicketRequest) (domain.Ticket, error) {
	ticket, err := s.find(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}

	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return domain.Ticket{}, domain.ErrInvalidSubject
		}
		ticket.Subject = subject
	}
	if req.Description != nil {
		ticket.Description = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		priority := domain.Priority(strings.ToLower(strings.TrimSpace(*req.Priority)))
		if !domain.ValidPriority(priority) {
			return domain.Ticket{}, domain.ErrInvalidPriority
		}
		ticket.Priority = priority
	}
	if req.ResolutionDetails != nil {
		ticket.ResolutionDetails = strings.TrimSpace(*req.ResolutionDetails)
	}

	if req.AssigneeID != nil {
		if raw := strings.TrimSpace(*req.AssigneeID); raw == "" {
			ticket.AssigneeID = nil
		} else {
			staff, err := s.staffSvc.GetByID(ctx, raw)
			if err != nil {
				return domain.Ticket{}, err
			}
			assigneeID := staff.ID
			ticket.AssigneeID = &assigneeID
		}
	}

	if req.ResolvedBy != nil {
		if raw := strings.TrimSpace(*req.ResolvedBy); raw == "" {
			ticket.ResolvedByID = nil
		} else {
			staff, err := s.staffSvc.GetByID(ctx, raw)
			if err != nil {
				return domain.Ticket{}, err
			}
			resolvedByID := staff.ID
			ticket.ResolvedByID = &resolvedByID
		}
	}

	if req.Status != nil {
		status := domain.Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !domain.ValidStatus(status) {
			return domain.Ticket{}, domain.ErrInvalidStatus
		}
		if status == domain.StatusResolved {
			if ticket.ResolvedAt == nil {
				now := s.clock.Now()
				ticket.ResolvedAt = &now
			}
			if req.ReadyForBilling == nil && !ticket.Billed {
				ticket.ReadyForBilling = true
			}
		}
		ticket.Status = status
	}

	if req.ReadyForBilling != nil {
		if ticket.Billed {
			return domain.Ticket{}, domain.ErrAlreadyBilled
		}
		if *req.ReadyForBilling && ticket.Status != domain.StatusResolved {
			return domain.Ticket{}, domain.ErrNotResolved
		}
		ticket.ReadyForBilling = *req.ReadyForBilling
		if !*req.ReadyForBilling {
			ticket.BillingReadyByID = nil
			ticket.BillingReadyAt = nil
		}
	}

	// Readiness only holds while the ticket stays resolved.
	if ticket.Status != domain.StatusResolved && ticket.ReadyForBilling {
		ticket.ReadyForBilling = false
		ticket.BillingReadyByID = nil
		ticket.BillingReadyAt = nil
	}

	ticket.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, ticket); err != nil {
		return domain.Ticket{}, err
	}

	return *ticket, nil
}

// ToggleBillingReady checks ticket status only; completeness of the
// resolution fields is the serving layer's concern.
func (s *Service) ToggleBillingReady(ctx context.Context, ticketID, staffID string) (domain.Ticket, error) {
	staff, err := s.staffSvc.GetByID(ctx, staffID)
	if err != nil {
		return domain.Ticket{}, err
	}

	ticket, err := s.find(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.Billed {
		return domain.Ticket{}, domain.ErrAlreadyBilled
	}
	if ticket.Status != domain.StatusResolved {
		return domain.Ticket{}, domain.ErrNotResolved
	}

	if ticket.BillingReadyByID != nil && *ticket.BillingReadyByID == staff.ID {
		// Whoever flagged it can unflag it.
		ticket.ReadyForBilling = false
		ticket.BillingReadyByID = nil
		ticket.BillingReadyAt = nil
	} else {
		// A different staff member re-marks under their own identity;
		// attribution is last-writer-wins.
		now := s.clock.Now()
		readyBy := staff.ID
		ticket.ReadyForBilling = true
		ticket.BillingReadyByID = &readyBy
		ticket.BillingReadyAt = &now
	}
	ticket.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, ticket); err != nil {
		return domain.Ticket{}, err
	}

	s.log.Info("billing readiness toggled",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("staff_id", staff.ID.String()),
		zap.Bool("ready_for_billing", ticket.ReadyForBilling),
	)

	return *ticket, nil
}

func (s *Service) MarkBilled(ctx context.Context, ticketIDs []snowflake.ID, billID snowflake.ID) (int64, error) {
	return s.repo.MarkBilled(ctx, s.db, ticketIDs, billID)
}

func (s *Service) find(ctx context.Context, id string) (*domain.Ticket, error) {
	ticketID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || ticketID == 0 {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, ticketID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}
