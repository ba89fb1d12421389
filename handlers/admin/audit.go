package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// AuditHandler exposes the audit log to admins
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ListAuditLogs retrieves audit logs with pagination
// GET /admin/audit-logs
func (h *AuditHandler) ListAuditLogs(c *fiber.Ctx) error {
	actorID, err := utils.QueryUint(c, "actor_id")
	if err != nil {
		return response.FromError(c, err)
	}

	filter := services.AuditFilter{
		Action:  c.Query("action"),
		Target:  c.Query("target"),
		ActorID: actorID,
		Page: services.Page{
			Page:     c.QueryInt("page", 1),
			PageSize: c.QueryInt("page_size", 20),
		},
	}

	logs, total, err := h.audit.List(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, logs, response.CalculatePagination(filter.Page.Page, filter.Page.PageSize, total))
}
