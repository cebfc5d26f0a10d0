package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billdomain "github.com/smallbiznis/opsdesk/internal/bill/domain"
)

type billItemPayload struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Quantity    int64   `json:"quantity"`
}

type billToPayload struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
}

type bankPayload struct {
	AccountName string `json:"account_name"`
	AccountNo   string `json:"account_no"`
	BankName    string `json:"bank_name"`
	IFSC        string `json:"ifsc"`
	Branch      string `json:"branch"`
}

type createBillRequest struct {
	ClientID    string            `json:"client_id"`
	Type        string            `json:"type"`
	BillTo      billToPayload     `json:"bill_to"`
	Items       []billItemPayload `json:"items"`
	SGSTPercent *float64          `json:"sgst_percent"`
	CGSTPercent *float64          `json:"cgst_percent"`
	Bank        *bankPayload      `json:"bank"`
	Date        string            `json:"date"`
	TicketIDs   []string          `json:"ticket_ids"`
}

type updateBillRequest struct {
	Type        *string           `json:"type"`
	BillTo      *billToPayload    `json:"bill_to"`
	Items       []billItemPayload `json:"items"`
	SGSTPercent *float64          `json:"sgst_percent"`
	CGSTPercent *float64          `json:"cgst_percent"`
	Bank        *bankPayload      `json:"bank"`
	Date        string            `json:"date"`
}

type setBillCompletionRequest struct {
	StaffID   string `json:"staff_id"`
	Completed *bool  `json:"completed"`
}

func (s *Server) CreateBill(c *gin.Context) {
	var req createBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseOptionalTime(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	resp, err := s.billSvc.Create(c.Request.Context(), billdomain.CreateBillRequest{
		ClientID:    strings.TrimSpace(req.ClientID),
		Type:        strings.TrimSpace(req.Type),
		BillTo:      toBillToInput(req.BillTo),
		Items:       toItemInputs(req.Items),
		SGSTPercent: req.SGSTPercent,
		CGSTPercent: req.CGSTPercent,
		Bank:        toBankInput(req.Bank),
		Date:        date,
		TicketIDs:   req.TicketIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "bill.create", "bill", resp.ID.String(), map[string]any{
		"number":      resp.Number,
		"type":        string(resp.Type),
		"grand_total": resp.GrandTotal,
		"ticket_ids":  req.TicketIDs,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListBills(c *gin.Context) {
	resp, err := s.billSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBillByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.billSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBillsByClient(c *gin.Context) {
	clientID := strings.TrimSpace(c.Param("clientId"))
	resp, err := s.billSvc.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateBill(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req updateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseOptionalTime(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	// Completed bills are frozen at this layer before the update reaches the
	// composer.
	current, err := s.billSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if current.Completed {
		AbortWithError(c, billdomain.ErrCompleted)
		return
	}

	update := billdomain.UpdateBillRequest{
		Type:        req.Type,
		Items:       toItemInputs(req.Items),
		SGSTPercent: req.SGSTPercent,
		CGSTPercent: req.CGSTPercent,
		Bank:        toBankInput(req.Bank),
		Date:        date,
	}
	if req.BillTo != nil {
		billTo := toBillToInput(*req.BillTo)
		update.BillTo = &billTo
	}

	resp, err := s.billSvc.Update(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "bill.update", "bill", resp.ID.String(), map[string]any{
		"number":      resp.Number,
		"grand_total": resp.GrandTotal,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetBillCompletion(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req setBillCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	staffID := strings.TrimSpace(req.StaffID)
	if staffID == "" {
		AbortWithError(c, newValidationError("staff_id", "invalid_staff_id", "staff_id is required"))
		return
	}
	if req.Completed == nil {
		AbortWithError(c, newValidationError("completed", "invalid_completed", "completed is required"))
		return
	}

	resp, err := s.billSvc.SetCompletion(c.Request.Context(), id, staffID, *req.Completed)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "bill.set_completion", "bill", resp.ID.String(), map[string]any{
		"number":    resp.Number,
		"completed": resp.Completed,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBillingConfig(c *gin.Context) {
	cfg := s.billingCfg.Get()
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"default_sgst_percent": cfg.DefaultSGSTPercent,
		"default_cgst_percent": cfg.DefaultCGSTPercent,
		"bank":                 cfg.Bank,
	}})
}

func toBillToInput(payload billToPayload) billdomain.BillToInput {
	return billdomain.BillToInput{
		Name:    strings.TrimSpace(payload.Name),
		Address: strings.TrimSpace(payload.Address),
		TaxID:   strings.TrimSpace(payload.TaxID),
	}
}

func toItemInputs(items []billItemPayload) []billdomain.BillItemInput {
	if items == nil {
		return nil
	}
	inputs := make([]billdomain.BillItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, billdomain.BillItemInput{
			Description: strings.TrimSpace(item.Description),
			Amount:      item.Amount,
			Quantity:    item.Quantity,
		})
	}
	return inputs
}

func toBankInput(payload *bankPayload) *billdomain.BankInput {
	if payload == nil {
		return nil
	}
	return &billdomain.BankInput{
		AccountName: strings.TrimSpace(payload.AccountName),
		AccountNo:   strings.TrimSpace(payload.AccountNo),
		BankName:    strings.TrimSpace(payload.BankName),
		IFSC:        strings.TrimSpace(payload.IFSC),
		Branch:      strings.TrimSpace(payload.Branch),
	}
}

func isBillValidationError(err error) bool {
	switch err {
	case billdomain.ErrInvalidID,
		billdomain.ErrInvalidType,
		billdomain.ErrInvalidBillTo,
		billdomain.ErrNoItems,
		billdomain.ErrInvalidItem,
		billdomain.ErrInvalidTax:
		return true
	default:
		return false
	}
}
