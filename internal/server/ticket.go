package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
)

type createTicketRequest struct {
	ClientID    string `json:"client_id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type updateTicketRequest struct {
	Subject           *string `json:"subject"`
	Description       *string `json:"description"`
	Priority          *string `json:"priority"`
	Status            *string `json:"status"`
	AssigneeID        *string `json:"assignee_id"`
	ResolutionDetails *string `json:"resolution_details"`
	ResolvedBy        *string `json:"resolved_by"`
	ReadyForBilling   *bool   `json:"ready_for_billing"`
}

type toggleBillingReadyRequest struct {
	StaffID string `json:"staff_id"`
}

func (s *Server) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ticketSvc.Create(c.Request.Context(), ticketdomain.CreateTicketRequest{
		ClientID:    strings.TrimSpace(req.ClientID),
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
		Priority:    strings.TrimSpace(req.Priority),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "ticket.create", "ticket", resp.ID.String(), map[string]any{
		"number":  resp.Number,
		"subject": resp.Subject,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListTickets(c *gin.Context) {
	var query struct {
		Status          string `form:"status"`
		ReadyForBilling string `form:"readyForBilling"`
		Billed          string `form:"billed"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ready, err := parseOptionalBool(query.ReadyForBilling)
	if err != nil {
		AbortWithError(c, newValidationError("readyForBilling", "invalid_ready_for_billing", "invalid readyForBilling"))
		return
	}

	billed, err := parseOptionalBool(query.Billed)
	if err != nil {
		AbortWithError(c, newValidationError("billed", "invalid_billed", "invalid billed"))
		return
	}

	resp, err := s.ticketSvc.List(c.Request.Context(), ticketdomain.ListTicketFilter{
		Status:          strings.TrimSpace(query.Status),
		ReadyForBilling: ready,
		Billed:          billed,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTicketByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.ticketSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTicket(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ticketSvc.Update(c.Request.Context(), id, ticketdomain.UpdateTicketRequest{
		Subject:           req.Subject,
		Description:       req.Description,
		Priority:          req.Priority,
		Status:            req.Status,
		AssigneeID:        req.AssigneeID,
		ResolutionDetails: req.ResolutionDetails,
		ResolvedBy:        req.ResolvedBy,
		ReadyForBilling:   req.ReadyForBilling,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "ticket.update", "ticket", resp.ID.String(), map[string]any{
		"status": string(resp.Status),
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ToggleTicketBillingReady(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req toggleBillingReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	staffID := strings.TrimSpace(req.StaffID)
	if staffID == "" {
		AbortWithError(c, newValidationError("staff_id", "invalid_staff_id", "staff_id is required"))
		return
	}

	// The gate only checks status; resolution fields are validated here so a
	// ticket cannot be flagged for billing without a recorded resolution.
	current, err := s.ticketSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if strings.TrimSpace(current.ResolutionDetails) == "" {
		AbortWithError(c, newValidationError("resolution_details", "missing_resolution_details", "resolution details are required before billing readiness"))
		return
	}
	if current.ResolvedByID == nil {
		AbortWithError(c, newValidationError("resolved_by", "missing_resolved_by", "resolving staff member is required before billing readiness"))
		return
	}

	resp, err := s.ticketSvc.ToggleBillingReady(c.Request.Context(), id, staffID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "ticket.toggle_billing_ready", "ticket", resp.ID.String(), map[string]any{
		"ready_for_billing": resp.ReadyForBilling,
		"toggled_by":        staffID,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isTicketValidationError(err error) bool {
	switch err {
	case ticketdomain.ErrInvalidID,
		ticketdomain.ErrInvalidSubject,
		ticketdomain.ErrInvalidPriority,
		ticketdomain.ErrInvalidStatus:
		return true
	default:
		return false
	}
}
