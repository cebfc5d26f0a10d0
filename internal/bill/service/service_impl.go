package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/bill/domain"
	"github.com/smallbiznis/opsdesk/internal/bill/format"
	clientdomain "github.com/smallbiznis/opsdesk/internal/client/domain"
	"github.com/smallbiznis/opsdesk/internal/clock"
	"github.com/smallbiznis/opsdesk/internal/config"
	sequencedomain "github.com/smallbiznis/opsdesk/internal/sequence/domain"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Allocator  sequencedomain.Allocator
	ClientSvc  clientdomain.Service
	StaffSvc   staffdomain.Service
	TicketSvc  ticketdomain.Service
	BillingCfg *config.BillingConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	allocator  sequencedomain.Allocator
	clientSvc  clientdomain.Service
	staffSvc   staffdomain.Service
	ticketSvc  ticketdomain.Service
	billingCfg *config.BillingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("bill.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		allocator:  p.Allocator,
		clientSvc:  p.ClientSvc,
		staffSvc:   p.StaffSvc,
		ticketSvc:  p.TicketSvc,
		billingCfg: p.BillingCfg,
	}
}

// Create allocates the invoice number, persists the bill, then links the
// consolidated tickets. Ticket linking is best-effort relative to bill
// creation: a partial linking failure is surfaced as a logged warning, not a
// creation failure. An allocator failure aborts before anything is persisted.
func (s *Service) Create(ctx context.Context, req domain.CreateBillRequest) (domain.Bill, error) {
	billType := domain.BillType(strings.ToLower(strings.TrimSpace(req.Type)))
	if billType == "" {
		billType = domain.BillTypeInvoice
	}
	if !domain.ValidType(billType) {
		return domain.Bill{}, domain.ErrInvalidType
	}

	items, err := buildItems(s.genID, req.Items)
	if err != nil {
		return domain.Bill{}, err
	}
	if req.SGSTPercent == nil || req.CGSTPercent == nil {
		return domain.Bill{}, domain.ErrInvalidTax
	}
	if *req.SGSTPercent < 0 || *req.CGSTPercent < 0 {
		return domain.Bill{}, domain.ErrInvalidTax
	}

	ticketIDs, err := parseTicketIDs(req.TicketIDs)
	if err != nil {
		return domain.Bill{}, err
	}

	billTo := domain.BillTo{
		Name:    strings.TrimSpace(req.BillTo.Name),
		Address: strings.TrimSpace(req.BillTo.Address),
		TaxID:   strings.TrimSpace(req.BillTo.TaxID),
	}

	var clientID *snowflake.ID
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		client, err := s.clientSvc.GetByID(ctx, raw)
		if err != nil {
			return domain.Bill{}, err
		}
		id := client.ID
		clientID = &id
		// The client record supplies only the name; address and tax id
		// come from caller input.
		billTo.Name = client.Name
	}
	if billTo.Name == "" {
		return domain.Bill{}, domain.ErrInvalidBillTo
	}

	now := s.clock.Now()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}

	seq, err := s.allocator.Next(ctx, sequencedomain.InvoiceScope(now.Year()))
	if err != nil {
		return domain.Bill{}, err
	}
	number, err := format.FormatInvoiceNumber(now.Year(), seq)
	if err != nil {
		return domain.Bill{}, err
	}

	bill := domain.Bill{
		ID:          s.genID.Generate(),
		Number:      number,
		Type:        billType,
		ClientID:    clientID,
		BillTo:      billTo,
		Date:        date,
		SGSTPercent: *req.SGSTPercent,
		CGSTPercent: *req.CGSTPercent,
		Bank:        s.bankDetails(req.Bank),
		Metadata:    datatypes.JSONMap{},
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := range bill.Items {
		bill.Items[i].BillID = bill.ID
	}
	computeTotals(&bill)

	if err := s.repo.Insert(ctx, s.db, &bill); err != nil {
		return domain.Bill{}, err
	}

	if len(ticketIDs) > 0 {
		linked, err := s.ticketSvc.MarkBilled(ctx, ticketIDs, bill.ID)
		if err != nil {
			s.log.Warn("ticket linking failed after bill creation",
				zap.String("bill_id", bill.ID.String()),
				zap.String("number", bill.Number),
				zap.Int("requested", len(ticketIDs)),
				zap.Error(err),
			)
		} else if linked != int64(len(ticketIDs)) {
			s.log.Warn("ticket linking partially applied",
				zap.String("bill_id", bill.ID.String()),
				zap.String("number", bill.Number),
				zap.Int("requested", len(ticketIDs)),
				zap.Int64("linked", linked),
			)
		}
	}

	s.log.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("number", bill.Number),
		zap.Float64("grand_total", bill.GrandTotal),
		zap.Int("tickets", len(ticketIDs)),
	)

	return bill, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Bill, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return collect(items), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Bill, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	return *item, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID string) ([]domain.Bill, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(clientID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidID
	}

	items, err := s.repo.ListByClient(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return collect(items), nil
}

// Update edits a bill while it is not completed. The invoice number and
// client reference are immutable; totals are recomputed server-side.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdateBillRequest) (domain.Bill, error) {
	bill, err := s.find(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	if bill.Completed {
		return domain.Bill{}, domain.ErrCompleted
	}

	if req.Type != nil {
		billType := domain.BillType(strings.ToLower(strings.TrimSpace(*req.Type)))
		if !domain.ValidType(billType) {
			return domain.Bill{}, domain.ErrInvalidType
		}
		bill.Type = billType
	}
	if req.BillTo != nil {
		billTo := domain.BillTo{
			Name:    strings.TrimSpace(req.BillTo.Name),
			Address: strings.TrimSpace(req.BillTo.Address),
			TaxID:   strings.TrimSpace(req.BillTo.TaxID),
		}
		if billTo.Name == "" {
			return domain.Bill{}, domain.ErrInvalidBillTo
		}
		bill.BillTo = billTo
	}
	if req.SGSTPercent != nil {
		if *req.SGSTPercent < 0 {
			return domain.Bill{}, domain.ErrInvalidTax
		}
		bill.SGSTPercent = *req.SGSTPercent
	}
	if req.CGSTPercent != nil {
		if *req.CGSTPercent < 0 {
			return domain.Bill{}, domain.ErrInvalidTax
		}
		bill.CGSTPercent = *req.CGSTPercent
	}
	if req.Bank != nil {
		bill.Bank = s.bankDetails(req.Bank)
	}
	if req.Date != nil {
		bill.Date = req.Date.UTC()
	}

	replaceItems := req.Items != nil
	if replaceItems {
		items, err := buildItems(s.genID, req.Items)
		if err != nil {
			return domain.Bill{}, err
		}
		for i := range items {
			items[i].BillID = bill.ID
		}
		bill.Items = items
	}
	computeTotals(bill)
	bill.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, bill, replaceItems); err != nil {
		return domain.Bill{}, err
	}

	return *bill, nil
}

func (s *Service) SetCompletion(ctx context.Context, id, staffID string, completed bool) (domain.Bill, error) {
	staff, err := s.staffSvc.GetByID(ctx, staffID)
	if err != nil {
		return domain.Bill{}, err
	}

	bill, err := s.find(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}

	if completed {
		now := s.clock.Now()
		completedBy := staff.ID
		bill.Completed = true
		bill.CompletedByID = &completedBy
		bill.CompletedAt = &now
	} else {
		bill.Completed = false
		bill.CompletedByID = nil
		bill.CompletedAt = nil
	}
	bill.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, bill, false); err != nil {
		return domain.Bill{}, err
	}

	s.log.Info("bill completion changed",
		zap.String("bill_id", bill.ID.String()),
		zap.String("staff_id", staff.ID.String()),
		zap.Bool("completed", completed),
	)

	return *bill, nil
}

func collect(items []*domain.Bill) []domain.Bill {
	bills := make([]domain.Bill, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		bills = append(bills, *item)
	}
	return bills
}

func (s *Service) find(ctx context.Context, id string) (*domain.Bill, error) {
	billID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || billID == 0 {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, billID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) bankDetails(input *domain.BankInput) domain.BankDetails {
	if input == nil {
		defaults := s.billingCfg.Get().Bank
		return domain.BankDetails{
			AccountName: defaults.AccountName,
			AccountNo:   defaults.AccountNo,
			BankName:    defaults.BankName,
			IFSC:        defaults.IFSC,
			Branch:      defaults.Branch,
		}
	}
	return domain.BankDetails{
		AccountName: strings.TrimSpace(input.AccountName),
		AccountNo:   strings.TrimSpace(input.AccountNo),
		BankName:    strings.TrimSpace(input.BankName),
		IFSC:        strings.TrimSpace(input.IFSC),
		Branch:      strings.TrimSpace(input.Branch),
	}
}

func buildItems(genID *snowflake.Node, inputs []domain.BillItemInput) ([]domain.BillItem, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrNoItems
	}

	items := make([]domain.BillItem, 0, len(inputs))
	for _, input := range inputs {
		description := strings.TrimSpace(input.Description)
		if description == "" || input.Amount < 0 || input.Quantity <= 0 {
			return nil, domain.ErrInvalidItem
		}
		items = append(items, domain.BillItem{
			ID:          genID.Generate(),
			Description: description,
			UnitAmount:  input.Amount,
			Quantity:    input.Quantity,
		})
	}
	return items, nil
}

func parseTicketIDs(raw []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidID
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// computeTotals derives subtotal, tax amounts, and grand total from the
// items. Component totals are never trusted from client input.
func computeTotals(bill *domain.Bill) {
	subtotal := 0.0
	for i := range bill.Items {
		bill.Items[i].Amount = bill.Items[i].UnitAmount * float64(bill.Items[i].Quantity)
		subtotal += bill.Items[i].Amount
	}
	bill.Subtotal = subtotal
	bill.SGSTAmount = subtotal * bill.SGSTPercent / 100
	bill.CGSTAmount = subtotal * bill.CGSTPercent / 100
	bill.GrandTotal = subtotal + bill.SGSTAmount + bill.CGSTAmount
}
