package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/opsdesk/internal/clock"
	sequencedomain "github.com/smallbiznis/opsdesk/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/opsdesk/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/opsdesk/internal/sequence/service"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
	staffrepository "github.com/smallbiznis/opsdesk/internal/staff/repository"
	staffservice "github.com/smallbiznis/opsdesk/internal/staff/service"
	"github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"github.com/smallbiznis/opsdesk/internal/ticket/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	tickets  domain.Service
	staff    staffdomain.Service
	staffIDs map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:ticket_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&sequencedomain.SequenceCounter{},
		&staffdomain.Staff{},
		&domain.Ticket{},
	))

	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))

	staffSvc := staffservice.New(staffservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  staffrepository.Provide(),
	})
	allocator := sequenceservice.New(sequenceservice.Params{
		DB:   db,
		Log:  log,
		Repo: sequencerepository.Provide(),
	})
	ticketSvc := New(Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		Allocator: allocator,
		StaffSvc:  staffSvc,
	})

	return &fixture{
		db:       db,
		clock:    fake,
		tickets:  ticketSvc,
		staff:    staffSvc,
		staffIDs: map[string]string{},
	}
}

func (f *fixture) newStaff(t *testing.T, name string) string {
	t.Helper()
	if id, ok := f.staffIDs[name]; ok {
		return id
	}
	member, err := f.staff.Create(context.Background(), staffdomain.CreateStaffRequest{
		Name:  name,
		Email: fmt.Sprintf("%s@example.test", name),
		Role:  "agent",
	})
	require.NoError(t, err)
	id := member.ID.String()
	f.staffIDs[name] = id
	return id
}

func (f *fixture) newTicket(t *testing.T) domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), domain.CreateTicketRequest{
		Subject:  "printer jam",
		Priority: "high",
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) resolve(t *testing.T, id, staffID string) domain.Ticket {
	t.Helper()
	status := string(domain.StatusResolved)
	details := "replaced fuser unit"
	ticket, err := f.tickets.Update(context.Background(), id, domain.UpdateTicketRequest{
		Status:            &status,
		ResolutionDetails: &details,
		ResolvedBy:        &staffID,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateAssignsSequentialNumbers(t *testing.T) {
	f := newFixture(t)

	first := f.newTicket(t)
	second := f.newTicket(t)

	assert.Equal(t, "TKPD001", first.Number)
	assert.Equal(t, "TKPD002", second.Number)
	assert.Equal(t, domain.StatusOpen, first.Status)
	assert.False(t, first.ReadyForBilling)
}

func TestCreateRejectsMissingSubject(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.Create(context.Background(), domain.CreateTicketRequest{Subject: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidSubject)

	_, err = f.tickets.Create(context.Background(), domain.CreateTicketRequest{
		Subject:  "x",
		Priority: "urgent",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)
}

func TestResolveStampsResolvedAtOnce(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newTicket(t)

	resolved := f.resolve(t, ticket.ID.String(), staffID)
	require.NotNil(t, resolved.ResolvedAt)
	firstStamp := *resolved.ResolvedAt
	assert.Equal(t, f.clock.Now(), firstStamp)
	assert.True(t, resolved.ReadyForBilling, "resolving defaults the billing flag on")

	// Resolving again later must not move the original stamp.
	f.clock.Advance(2 * time.Hour)
	status := string(domain.StatusResolved)
	again, err := f.tickets.Update(context.Background(), ticket.ID.String(), domain.UpdateTicketRequest{Status: &status})
	require.NoError(t, err)
	require.NotNil(t, again.ResolvedAt)
	assert.Equal(t, firstStamp, *again.ResolvedAt)
}

func TestResolveHonorsExplicitReadyFlag(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t)

	status := string(domain.StatusResolved)
	ready := false
	resolved, err := f.tickets.Update(context.Background(), ticket.ID.String(), domain.UpdateTicketRequest{
		Status:          &status,
		ReadyForBilling: &ready,
	})
	require.NoError(t, err)
	assert.False(t, resolved.ReadyForBilling)
}

func TestReadyFlagRefusedOnUnresolvedTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t)

	ready := true
	_, err := f.tickets.Update(context.Background(), ticket.ID.String(), domain.UpdateTicketRequest{ReadyForBilling: &ready})
	assert.ErrorIs(t, err, domain.ErrNotResolved)

	// Same refusal while the flag rides along with a non-resolved status.
	status := string(domain.StatusInProgress)
	_, err = f.tickets.Update(context.Background(), ticket.ID.String(), domain.UpdateTicketRequest{
		Status:          &status,
		ReadyForBilling: &ready,
	})
	assert.ErrorIs(t, err, domain.ErrNotResolved)

	current, err := f.tickets.GetByID(context.Background(), ticket.ID.String())
	require.NoError(t, err)
	assert.False(t, current.ReadyForBilling)
}

func TestDemotionClearsReadiness(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newTicket(t)
	f.resolve(t, ticket.ID.String(), staffID)

	marked, err := f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), staffID)
	require.NoError(t, err)
	require.True(t, marked.ReadyForBilling)
	require.NotNil(t, marked.BillingReadyByID)

	status := string(domain.StatusInProgress)
	demoted, err := f.tickets.Update(context.Background(), ticket.ID.String(), domain.UpdateTicketRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, demoted.Status)
	assert.False(t, demoted.ReadyForBilling)
	assert.Nil(t, demoted.BillingReadyByID)
	assert.Nil(t, demoted.BillingReadyAt)

	ready := true
	flagged, err := f.tickets.List(context.Background(), domain.ListTicketFilter{ReadyForBilling: &ready})
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestClearingReadinessClearsAttribution(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newTicket(t)
	f.resolve(t, ticket.ID.String(), staffID)

	marked, err := f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), staffID)
	require.NoError(t, err)
	require.NotNil(t, marked.BillingReadyByID)

	ready := false
	cleared, err := f.tickets.Update(context.Background(), ticket.ID.String(), domain.UpdateTicketRequest{ReadyForBilling: &ready})
	require.NoError(t, err)
	assert.False(t, cleared.ReadyForBilling)
	assert.Nil(t, cleared.BillingReadyByID)
	assert.Nil(t, cleared.BillingReadyAt)
}

func TestToggleRefusedUntilResolved(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newTicket(t)

	_, err := f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), staffID)
	assert.ErrorIs(t, err, domain.ErrNotResolved)

	// The refused toggle must not leave any partial attribution behind.
	current, err := f.tickets.GetByID(context.Background(), ticket.ID.String())
	require.NoError(t, err)
	assert.False(t, current.ReadyForBilling)
	assert.Nil(t, current.BillingReadyByID)
	assert.Nil(t, current.BillingReadyAt)
}

func TestToggleSameStaffClears(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newTicket(t)
	f.resolve(t, ticket.ID.String(), staffID)

	ready := false
	_, err := f.tickets.Update(context.Background(), ticket.ID.String(), domain.UpdateTicketRequest{ReadyForBilling: &ready})
	require.NoError(t, err)

	marked, err := f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), staffID)
	require.NoError(t, err)
	assert.True(t, marked.ReadyForBilling)
	require.NotNil(t, marked.BillingReadyByID)
	assert.Equal(t, staffID, marked.BillingReadyByID.String())
	assert.Equal(t, f.clock.Now(), *marked.BillingReadyAt)

	cleared, err := f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), staffID)
	require.NoError(t, err)
	assert.False(t, cleared.ReadyForBilling)
	assert.Nil(t, cleared.BillingReadyByID)
	assert.Nil(t, cleared.BillingReadyAt)
}

func TestToggleOtherStaffRemarks(t *testing.T) {
	f := newFixture(t)
	asha := f.newStaff(t, "asha")
	ravi := f.newStaff(t, "ravi")
	ticket := f.newTicket(t)
	f.resolve(t, ticket.ID.String(), asha)

	marked, err := f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), asha)
	require.NoError(t, err)
	firstStamp := *marked.BillingReadyAt

	f.clock.Advance(30 * time.Minute)
	remarked, err := f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), ravi)
	require.NoError(t, err)
	assert.True(t, remarked.ReadyForBilling)
	require.NotNil(t, remarked.BillingReadyByID)
	assert.Equal(t, ravi, remarked.BillingReadyByID.String())
	assert.True(t, remarked.BillingReadyAt.After(firstStamp))
}

func TestToggleRequiresKnownStaff(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newTicket(t)
	f.resolve(t, ticket.ID.String(), staffID)

	_, err := f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), "999999999999")
	assert.ErrorIs(t, err, staffdomain.ErrNotFound)
}

func TestBilledTicketRejectsReadinessChanges(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newTicket(t)
	f.resolve(t, ticket.ID.String(), staffID)

	billID := snowflake.ID(424242)
	linked, err := f.tickets.MarkBilled(context.Background(), []snowflake.ID{ticket.ID}, billID)
	require.NoError(t, err)
	require.Equal(t, int64(1), linked)

	_, err = f.tickets.ToggleBillingReady(context.Background(), ticket.ID.String(), staffID)
	assert.ErrorIs(t, err, domain.ErrAlreadyBilled)

	ready := true
	_, err = f.tickets.Update(context.Background(), ticket.ID.String(), domain.UpdateTicketRequest{ReadyForBilling: &ready})
	assert.ErrorIs(t, err, domain.ErrAlreadyBilled)
}

func TestMarkBilledClearsReadiness(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	ticket := f.newTicket(t)
	f.resolve(t, ticket.ID.String(), staffID)

	billID := snowflake.ID(777)
	linked, err := f.tickets.MarkBilled(context.Background(), []snowflake.ID{ticket.ID}, billID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), linked)

	current, err := f.tickets.GetByID(context.Background(), ticket.ID.String())
	require.NoError(t, err)
	assert.True(t, current.Billed)
	assert.False(t, current.ReadyForBilling)
	assert.Nil(t, current.BillingReadyByID)
	require.NotNil(t, current.BillID)
	assert.Equal(t, billID, *current.BillID)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	staffID := f.newStaff(t, "asha")
	f.newTicket(t)
	resolvedTicket := f.newTicket(t)
	f.resolve(t, resolvedTicket.ID.String(), staffID)

	resolved, err := f.tickets.List(context.Background(), domain.ListTicketFilter{Status: string(domain.StatusResolved)})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, resolvedTicket.ID, resolved[0].ID)

	ready := true
	flagged, err := f.tickets.List(context.Background(), domain.ListTicketFilter{ReadyForBilling: &ready})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, resolvedTicket.ID, flagged[0].ID)

	all, err := f.tickets.List(context.Background(), domain.ListTicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.tickets.List(context.Background(), domain.ListTicketFilter{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
