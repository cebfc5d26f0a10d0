package domain

import (
	"context"
	"errors"
	"strconv"
)

// TicketScope is the fixed scope backing ticket numbers. Ticket numbers are
// globally monotonic, not year-scoped.
const TicketScope = "ticket"

// InvoiceScope returns the allocation scope for invoices issued in a year.
func InvoiceScope(year int) string {
	return "invoice:" + strconv.Itoa(year)
}

// Allocator issues monotonically increasing integers per scope. Two
// concurrent calls for the same scope never return the same value; the first
// allocation for a new scope returns 1.
type Allocator interface {
	Next(ctx context.Context, scope string) (int64, error)
}

var ErrInvalidScope = errors.New("invalid_scope")
