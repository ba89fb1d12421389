package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// CreateModule handles POST /courses/:id/modules
func (h *CourseHandler) CreateModule(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	courseID, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.CreateModuleRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	module, err := h.courses.AddModule(c.UserContext(), user, courseID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, module)
}

// UpdateModule handles PUT /courses/modules/:id
func (h *CourseHandler) UpdateModule(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateModuleRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	module, err := h.courses.UpdateModule(c.UserContext(), user, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, module)
}

// CreateLesson handles POST /courses/modules/:id/lessons
func (h *CourseHandler) CreateLesson(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	moduleID, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.CreateLessonRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	lesson, err := h.courses.AddLesson(c.UserContext(), user, moduleID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, lesson)
}

// GetLesson handles GET /courses/lessons/:id
func (h *CourseHandler) GetLesson(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	lesson, err := h.courses.GetLesson(c.UserContext(), viewer(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, lesson)
}
