package auth

import (
	"github.com/sahilchouksey/byteboost-api/services"
	authutil "github.com/sahilchouksey/byteboost-api/utils/auth"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	users       *services.UserService
	jwtManager  *authutil.JWTManager
	revocations *authutil.RevocationList
	log         *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *services.UserService, jwtManager *authutil.JWTManager, revocations *authutil.RevocationList, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:       users,
		jwtManager:  jwtManager,
		revocations: revocations,
		log:         log,
	}
}
