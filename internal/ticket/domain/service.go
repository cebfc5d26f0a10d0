package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateTicketRequest struct {
	ClientID    string
	Subject     string
	Description string
	Priority    string
}

// UpdateTicketRequest is a partial update; nil fields are left untouched.
// AssigneeID distinguishes "clear" (empty string) from "leave alone" (nil).
type UpdateTicketRequest struct {
	Subject           *string
	Description       *string
	Priority          *string
	Status            *string
	AssigneeID        *string
	ResolutionDetails *string
	ResolvedBy        *string
	ReadyForBilling   *bool
}

type ListTicketFilter struct {
	Status          string
	ReadyForBilling *bool
	Billed          *bool
}

type Service interface {
	Create(context.Context, CreateTicketRequest) (Ticket, error)
	List(context.Context, ListTicketFilter) ([]Ticket, error)
	GetByID(ctx context.Context, id string) (Ticket, error)
	Update(ctx context.Context, id string, req UpdateTicketRequest) (Ticket, error)

	// ToggleBillingReady flips the readiness flag with staff attribution: the
	// flagging staff member toggles their own flag off; anyone else re-marks
	// under their own identity.
	ToggleBillingReady(ctx context.Context, ticketID, staffID string) (Ticket, error)

	// MarkBilled links tickets to a created bill: billed=true, readiness
	// cleared, bill reference set.
	MarkBilled(ctx context.Context, ticketIDs []snowflake.ID, billID snowflake.ID) (int64, error)
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidSubject  = errors.New("invalid_subject")
	ErrInvalidPriority = errors.New("invalid_priority")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrNotFound        = errors.New("ticket_not_found")
	ErrNotResolved     = errors.New("ticket_not_resolved")
	ErrAlreadyBilled   = errors.New("ticket_already_billed")
)
