package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/opsdesk/internal/bill/domain"
	"github.com/smallbiznis/opsdesk/internal/bill/repository"
	clientdomain "github.com/smallbiznis/opsdesk/internal/client/domain"
	clientrepository "github.com/smallbiznis/opsdesk/internal/client/repository"
	clientservice "github.com/smallbiznis/opsdesk/internal/client/service"
	"github.com/smallbiznis/opsdesk/internal/clock"
	"github.com/smallbiznis/opsdesk/internal/config"
	sequencedomain "github.com/smallbiznis/opsdesk/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/opsdesk/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/opsdesk/internal/sequence/service"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
	staffrepository "github.com/smallbiznis/opsdesk/internal/staff/repository"
	staffservice "github.com/smallbiznis/opsdesk/internal/staff/service"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	ticketrepository "github.com/smallbiznis/opsdesk/internal/ticket/repository"
	ticketservice "github.com/smallbiznis/opsdesk/internal/ticket/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	bills   domain.Service
	clients clientdomain.Service
	staff   staffdomain.Service
	tickets ticketdomain.Service

	allocator sequencedomain.Allocator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithAllocator(t, nil)
}

// newFixtureWithAllocator lets a test substitute the sequence allocator, for
// example to simulate an allocation failure.
func newFixtureWithAllocator(t *testing.T, allocator sequencedomain.Allocator) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:bill_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&sequencedomain.SequenceCounter{},
		&staffdomain.Staff{},
		&clientdomain.Client{},
		&ticketdomain.Ticket{},
		&domain.Bill{},
		&domain.BillItem{},
	))

	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC))

	if allocator == nil {
		allocator = sequenceservice.New(sequenceservice.Params{
			DB:   db,
			Log:  log,
			Repo: sequencerepository.Provide(),
		})
	}
	staffSvc := staffservice.New(staffservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  staffrepository.Provide(),
	})
	clientSvc := clientservice.New(clientservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  clientrepository.Provide(),
	})
	ticketSvc := ticketservice.New(ticketservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Repo:      ticketrepository.Provide(),
		Allocator: allocator,
		StaffSvc:  staffSvc,
	})
	billingCfg := config.NewStaticBillingConfigHolder(config.BillingConfig{
		DefaultSGSTPercent: 9,
		DefaultCGSTPercent: 9,
		Bank: config.BankDetails{
			AccountName: "Opsdesk Services",
			AccountNo:   "000111222333",
			BankName:    "State Bank",
			IFSC:        "SBIN0000001",
			Branch:      "Main Branch",
		},
	})
	billSvc := New(Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       repository.Provide(),
		Allocator:  allocator,
		ClientSvc:  clientSvc,
		StaffSvc:   staffSvc,
		TicketSvc:  ticketSvc,
		BillingCfg: billingCfg,
	})

	return &fixture{
		db:        db,
		clock:     fake,
		bills:     billSvc,
		clients:   clientSvc,
		staff:     staffSvc,
		tickets:   ticketSvc,
		allocator: allocator,
	}
}

func taxPercent(v float64) *float64 { return &v }

func standardItems() []domain.BillItemInput {
	return []domain.BillItemInput{
		{Description: "onsite support", Amount: 100, Quantity: 2},
		{Description: "parts", Amount: 50, Quantity: 1},
	}
}

func (f *fixture) newStaff(t *testing.T, name string) string {
	t.Helper()
	member, err := f.staff.Create(context.Background(), staffdomain.CreateStaffRequest{
		Name:  name,
		Email: fmt.Sprintf("%s@example.test", name),
		Role:  "admin",
	})
	require.NoError(t, err)
	return member.ID.String()
}

func (f *fixture) newReadyTicket(t *testing.T, staffID string) ticketdomain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), ticketdomain.CreateTicketRequest{
		Subject: "support work",
	})
	require.NoError(t, err)

	status := string(ticketdomain.StatusResolved)
	details := "done"
	updated, err := f.tickets.Update(context.Background(), ticket.ID.String(), ticketdomain.UpdateTicketRequest{
		Status:            &status,
		ResolutionDetails: &details,
		ResolvedBy:        &staffID,
	})
	require.NoError(t, err)
	return updated
}

func TestCreateComputesTotals(t *testing.T) {
	f := newFixture(t)

	bill, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.NoError(t, err)

	assert.Equal(t, 250.0, bill.Subtotal)
	assert.Equal(t, 22.5, bill.SGSTAmount)
	assert.Equal(t, 22.5, bill.CGSTAmount)
	assert.Equal(t, 295.0, bill.GrandTotal)
	assert.Equal(t, 295.0, bill.RoundedGrandTotal())
	assert.Equal(t, domain.BillTypeInvoice, bill.Type)
	assert.Equal(t, "2025001", bill.Number)

	require.Len(t, bill.Items, 2)
	assert.Equal(t, 200.0, bill.Items[0].Amount)
	assert.Equal(t, 50.0, bill.Items[1].Amount)
}

func TestCreateFormatsNumberFromYearScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Burn six allocations in the 2025 scope so the bill takes the seventh.
	for i := 0; i < 6; i++ {
		_, err := f.allocator.Next(ctx, sequencedomain.InvoiceScope(2025))
		require.NoError(t, err)
	}

	bill, err := f.bills.Create(ctx, domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025007", bill.Number)
}

func TestCreateRequiresTaxPercentages(t *testing.T) {
	f := newFixture(t)

	_, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo: domain.BillToInput{Name: "Acme Traders"},
		Items:  standardItems(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTax)

	_, err = f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(-1),
		CGSTPercent: taxPercent(9),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTax)
}

func TestCreateRequiresItemsAndBillTo(t *testing.T) {
	f := newFixture(t)

	_, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	assert.ErrorIs(t, err, domain.ErrNoItems)

	_, err = f.bills.Create(context.Background(), domain.CreateBillRequest{
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBillTo)
}

func TestCreateCopiesClientName(t *testing.T) {
	f := newFixture(t)

	client, err := f.clients.Create(context.Background(), clientdomain.CreateClientRequest{
		Name:  "Acme Traders",
		Email: "billing@acme.test",
	})
	require.NoError(t, err)

	bill, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		ClientID: client.ID.String(),
		BillTo: domain.BillToInput{
			Name:    "ignored",
			Address: "12 Industrial Estate",
			TaxID:   "GSTIN123",
		},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.NoError(t, err)

	// Name comes from the client record; address and tax id stay caller-supplied.
	assert.Equal(t, "Acme Traders", bill.BillTo.Name)
	assert.Equal(t, "12 Industrial Estate", bill.BillTo.Address)
	assert.Equal(t, "GSTIN123", bill.BillTo.TaxID)
	require.NotNil(t, bill.ClientID)
	assert.Equal(t, client.ID, *bill.ClientID)
}

func TestCreateUnknownClientFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		ClientID:    "123456789012",
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	assert.ErrorIs(t, err, clientdomain.ErrNotFound)
}

func TestCreateConsolidatesTickets(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")

	ticketIDs := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		ticket := f.newReadyTicket(t, staffID)
		ticketIDs = append(ticketIDs, ticket.ID.String())
	}

	bill, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
		TicketIDs:   ticketIDs,
	})
	require.NoError(t, err)

	for _, id := range ticketIDs {
		ticket, err := f.tickets.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, ticket.Billed)
		assert.False(t, ticket.ReadyForBilling)
		assert.Nil(t, ticket.BillingReadyByID)
		require.NotNil(t, ticket.BillID)
		assert.Equal(t, bill.ID, *ticket.BillID)
	}
}

func TestCreateSkipsAlreadyBilledTickets(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newReadyTicket(t, staffID)

	first, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
		TicketIDs:   []string{ticket.ID.String()},
	})
	require.NoError(t, err)

	// Billing the same ticket again must leave the original link intact.
	second, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
		TicketIDs:   []string{ticket.ID.String()},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	current, err := f.tickets.GetByID(context.Background(), ticket.ID.String())
	require.NoError(t, err)
	require.NotNil(t, current.BillID)
	assert.Equal(t, first.ID, *current.BillID)

	all, err := f.bills.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateSurvivesPartialTicketLinking(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newReadyTicket(t, staffID)

	// One real ticket, one id that resolves to nothing: the bill must still
	// be created and the real ticket linked.
	bill, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
		TicketIDs:   []string{ticket.ID.String(), "987654321098"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, bill.Number)

	linked, err := f.tickets.GetByID(context.Background(), ticket.ID.String())
	require.NoError(t, err)
	assert.True(t, linked.Billed)
}

type failingAllocator struct{}

func (failingAllocator) Next(ctx context.Context, scope string) (int64, error) {
	return 0, errors.New("sequence backend unavailable")
}

func TestCreateAllocatorFailureLeavesNoBill(t *testing.T) {
	f := newFixtureWithAllocator(t, failingAllocator{})

	_, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Model(&domain.Bill{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateUsesBankDefaultsFromConfig(t *testing.T) {
	f := newFixture(t)

	bill, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.NoError(t, err)
	assert.Equal(t, "Opsdesk Services", bill.Bank.AccountName)
	assert.Equal(t, "SBIN0000001", bill.Bank.IFSC)

	override, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
		Bank: &domain.BankInput{
			AccountName: "Custom Account",
			AccountNo:   "999",
			BankName:    "Other Bank",
			IFSC:        "OTHR0000009",
			Branch:      "East",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Custom Account", override.Bank.AccountName)
	assert.Equal(t, "OTHR0000009", override.Bank.IFSC)
}

func TestUpdateRecomputesTotals(t *testing.T) {
	f := newFixture(t)

	bill, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.NoError(t, err)

	updated, err := f.bills.Update(context.Background(), bill.ID.String(), domain.UpdateBillRequest{
		Items: []domain.BillItemInput{
			{Description: "retainer", Amount: 1000, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, updated.Subtotal)
	assert.Equal(t, 90.0, updated.SGSTAmount)
	assert.Equal(t, 90.0, updated.CGSTAmount)
	assert.Equal(t, 1180.0, updated.GrandTotal)
	assert.Equal(t, bill.Number, updated.Number, "invoice number is immutable")
	require.Len(t, updated.Items, 1)
}

func TestCompletionLockRoundTrip(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")

	bill, err := f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Acme Traders"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.NoError(t, err)

	completed, err := f.bills.SetCompletion(context.Background(), bill.ID.String(), staffID, true)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	require.NotNil(t, completed.CompletedByID)
	assert.Equal(t, staffID, completed.CompletedByID.String())
	assert.Equal(t, f.clock.Now(), *completed.CompletedAt)

	newType := string(domain.BillTypePerforma)
	_, err = f.bills.Update(context.Background(), bill.ID.String(), domain.UpdateBillRequest{Type: &newType})
	assert.ErrorIs(t, err, domain.ErrCompleted)

	reopened, err := f.bills.SetCompletion(context.Background(), bill.ID.String(), staffID, false)
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
	assert.Nil(t, reopened.CompletedByID)
	assert.Nil(t, reopened.CompletedAt)

	_, err = f.bills.Update(context.Background(), bill.ID.String(), domain.UpdateBillRequest{Type: &newType})
	require.NoError(t, err)
}

func TestListByClient(t *testing.T) {
	f := newFixture(t)

	client, err := f.clients.Create(context.Background(), clientdomain.CreateClientRequest{
		Name:  "Acme Traders",
		Email: "billing@acme.test",
	})
	require.NoError(t, err)

	_, err = f.bills.Create(context.Background(), domain.CreateBillRequest{
		ClientID:    client.ID.String(),
		BillTo:      domain.BillToInput{Name: "irrelevant"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.NoError(t, err)

	_, err = f.bills.Create(context.Background(), domain.CreateBillRequest{
		BillTo:      domain.BillToInput{Name: "Walk-in"},
		Items:       standardItems(),
		SGSTPercent: taxPercent(9),
		CGSTPercent: taxPercent(9),
	})
	require.NoError(t, err)

	byClient, err := f.bills.ListByClient(context.Background(), client.ID.String())
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, "Acme Traders", byClient[0].BillTo.Name)

	all, err := f.bills.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
