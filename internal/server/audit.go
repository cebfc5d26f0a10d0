package server

import "github.com/gin-gonic/gin"

// recordAudit appends an audit entry attributed to the acting staff member.
// Audit failures are logged inside the service and never surface here.
func (s *Server) recordAudit(c *gin.Context, action, targetType, targetID string, detail map[string]any) {
	if s.auditSvc == nil {
		return
	}

	actorID := ""
	if staff, ok := s.actingStaff(c); ok {
		actorID = staff.ID.String()
	}

	s.auditSvc.Record(c.Request.Context(), actorID, action, targetType, targetID, detail)
}
