package upload

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// UploadHandler issues presigned object storage urls
type UploadHandler struct {
	uploads *services.UploadService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Presign handles POST /uploads/presign
func (h *UploadHandler) Presign(c *fiber.Ctx) error {
	var req services.PresignRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	up, err := h.uploads.Presign(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, up)
}

// Complete handles POST /uploads/complete
func (h *UploadHandler) Complete(c *fiber.Ctx) error {
	var req services.CompleteUploadRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	file, err := h.uploads.Complete(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, file)
}

// Delete handles DELETE /uploads/*
func (h *UploadHandler) Delete(c *fiber.Ctx) error {
	if err := h.uploads.Delete(c.UserContext(), c.Params("*")); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "File deleted", nil)
}

// DownloadURL handles GET /uploads/download/*?expires_in=<seconds>
func (h *UploadHandler) DownloadURL(c *fiber.Ctx) error {
	expiresIn := time.Duration(c.QueryInt("expires_in", 0)) * time.Second

	d, err := h.uploads.DownloadURL(c.UserContext(), c.Params("*"), expiresIn)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, d)
}
