package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
)

type createStaffRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.staffSvc.Create(c.Request.Context(), staffdomain.CreateStaffRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Role:  strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, "staff.create", "staff", resp.ID.String(), map[string]any{
		"name": resp.Name,
		"role": string(resp.Role),
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListStaff(c *gin.Context) {
	resp, err := s.staffSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStaffByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.staffSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isStaffValidationError(err error) bool {
	switch err {
	case staffdomain.ErrInvalidName,
		staffdomain.ErrInvalidEmail,
		staffdomain.ErrInvalidRole,
		staffdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
