package comment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// CommentHandler handles lesson discussion requests
type CommentHandler struct {
	comments *services.CommentService
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// ListLessonComments handles GET /comments/lesson/:id
func (h *CommentHandler) ListLessonComments(c *fiber.Ctx) error {
	lessonID, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	thread, err := h.comments.Thread(c.UserContext(), lessonID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, thread)
}

// CreateComment handles POST /comments
func (h *CommentHandler) CreateComment(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.CreateCommentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	comment, err := h.comments.Create(c.UserContext(), user, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, comment)
}

// UpdateComment handles PUT /comments/:id
func (h *CommentHandler) UpdateComment(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateCommentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	comment, err := h.comments.Update(c.UserContext(), user, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, comment)
}

// DeleteComment handles DELETE /comments/:id
func (h *CommentHandler) DeleteComment(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.comments.Delete(c.UserContext(), user, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Comment deleted successfully", nil)
}
