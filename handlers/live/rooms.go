package live

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// RoomHandler handles live room scheduling, joins and attendance
type RoomHandler struct {
	rooms *services.LiveService
}

// NewRoomHandler creates a new live room handler
func NewRoomHandler(rooms *services.LiveService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// CreateRoom handles POST /live/rooms
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.CreateRoomRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	room, err := h.rooms.CreateRoom(c.UserContext(), user, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, room)
}

// ListRooms handles GET /live/rooms?course_id=&active_only=
func (h *RoomHandler) ListRooms(c *fiber.Ctx) error {
	courseID, err := utils.QueryUint(c, "course_id")
	if err != nil {
		return response.FromError(c, err)
	}

	rooms, err := h.rooms.ListRooms(c.UserContext(), services.RoomFilter{
		CourseID:   courseID,
		ActiveOnly: c.QueryBool("active_only"),
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, rooms)
}

// GetRoom handles GET /live/rooms/:id
func (h *RoomHandler) GetRoom(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	room, err := h.rooms.GetRoom(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, room)
}

// UpdateRoom handles PUT /live/rooms/:id
func (h *RoomHandler) UpdateRoom(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.UpdateRoomRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	room, err := h.rooms.UpdateRoom(c.UserContext(), user, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, room)
}

// DeleteRoom handles DELETE /live/rooms/:id
func (h *RoomHandler) DeleteRoom(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	if err := h.rooms.DeleteRoom(c.UserContext(), user, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Room deleted", nil)
}

// JoinRoom handles POST /live/rooms/:id/join
func (h *RoomHandler) JoinRoom(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	info, err := h.rooms.JoinRoom(c.UserContext(), user, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, info)
}

// LeaveRoom handles POST /live/rooms/:id/leave
func (h *RoomHandler) LeaveRoom(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	attendance, err := h.rooms.LeaveRoom(c.UserContext(), user, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, attendance)
}

// Attendance handles GET /live/rooms/:id/attendance
func (h *RoomHandler) Attendance(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	rows, err := h.rooms.Attendance(c.UserContext(), user, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, rows)
}
