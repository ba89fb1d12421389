package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	courses *services.CourseService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courses *services.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

func viewer(c *fiber.Ctx) *model.User {
	user, _ := middleware.GetUser(c)
	return user
}

// ListCourses handles GET /courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	filter := services.CourseFilter{
		Search: c.Query("search"),
		Page: services.Page{
			Page:     c.QueryInt("page", 1),
			PageSize: c.QueryInt("page_size", 20),
		},
	}

	courses, total, err := h.courses.ListPublished(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, courses, response.CalculatePagination(filter.Page.Page, filter.Page.PageSize, total))
}

// GetCourse handles GET /courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	course, err := h.courses.Get(c.UserContext(), viewer(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// CreateCourse handles POST /courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.CreateCourseRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	course, err := h.courses.Create(c.UserContext(), user, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateCourseRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	course, err := h.courses.Update(c.UserContext(), user, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// DeleteCourse handles DELETE /courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.courses.Delete(c.UserContext(), user, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course deleted successfully", nil)
}
