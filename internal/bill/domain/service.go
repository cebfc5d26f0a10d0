package domain

import (
	"context"
	"errors"
	"time"
)

type BillItemInput struct {
	Description string
	Amount      float64
	Quantity    int64
}

type BillToInput struct {
	Name    string
	Address string
	TaxID   string
}

type BankInput struct {
	AccountName string
	AccountNo   string
	BankName    string
	IFSC        string
	Branch      string
}

type CreateBillRequest struct {
	ClientID    string
	Type        string
	BillTo      BillToInput
	Items       []BillItemInput
	SGSTPercent *float64
	CGSTPercent *float64
	Bank        *BankInput
	Date        *time.Time
	TicketIDs   []string
}

// UpdateBillRequest is a partial update; nil fields are left untouched.
// Supplying Items replaces the full item list and recomputes totals.
type UpdateBillRequest struct {
	Type        *string
	BillTo      *BillToInput
	Items       []BillItemInput
	SGSTPercent *float64
	CGSTPercent *float64
	Bank        *BankInput
	Date        *time.Time
}

type Service interface {
	Create(context.Context, CreateBillRequest) (Bill, error)
	List(context.Context) ([]Bill, error)
	GetByID(ctx context.Context, id string) (Bill, error)
	ListByClient(ctx context.Context, clientID string) ([]Bill, error)
	Update(ctx context.Context, id string, req UpdateBillRequest) (Bill, error)

	// SetCompletion flips the completion lock. True stamps attribution;
	// false clears it and re-opens the bill for edits.
	SetCompletion(ctx context.Context, id, staffID string, completed bool) (Bill, error)
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidType   = errors.New("invalid_bill_type")
	ErrInvalidBillTo = errors.New("invalid_bill_to")
	ErrNoItems       = errors.New("missing_items")
	ErrInvalidItem   = errors.New("invalid_item")
	ErrInvalidTax    = errors.New("invalid_tax_percent")
	ErrNotFound      = errors.New("bill_not_found")
	ErrCompleted     = errors.New("bill_completed")
)
