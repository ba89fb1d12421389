package enrollment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// EnrollmentHandler handles enrollment requests
type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollments *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// ListMyEnrollments handles GET /enrollments
func (h *EnrollmentHandler) ListMyEnrollments(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrollments, err := h.enrollments.ListMine(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, enrollments)
}

// UpdateProgress handles PUT /enrollments/:id/progress
func (h *EnrollmentHandler) UpdateProgress(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateProgressRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	enrollment, err := h.enrollments.UpdateProgress(c.UserContext(), user, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, enrollment)
}
