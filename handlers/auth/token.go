package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// Logout handles POST /auth/logout. The presented token stays revoked for the rest of its lifetime.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	ttl := h.jwtManager.RemainingLifetime(claims)
	if err := h.revocations.Revoke(c.UserContext(), claims.ID, ttl); err != nil {
		h.log.Error("failed to revoke token", "user_id", claims.UserID, "error", err)
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}
