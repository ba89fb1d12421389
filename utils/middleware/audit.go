package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"gorm.io/datatypes"
)

// AuditRecorder persists audit entries
type AuditRecorder interface {
	Record(ctx context.Context, entry *model.AuditLog) error
}

// AuditLog appends an audit entry for every successful mutation made by an
// authenticated user. It must run before the auth middleware so the user is
// visible once the handler returns.
func AuditLog(recorder AuditRecorder, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return err
		}
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			return err
		}
		user, ok := GetUser(c)
		if !ok {
			return err
		}

		route := routePattern(c)
		entry := &model.AuditLog{
			ActorID: user.ID,
			Action:  truncate(c.Method()+" "+route, 100),
			Target:  truncate(auditTarget(route), 100),
			Meta: datatypes.JSONMap{
				"path":   c.Path(),
				"status": c.Response().StatusCode(),
			},
		}
		if id, perr := strconv.ParseUint(c.Params("id"), 10, 64); perr == nil {
			tid := uint(id)
			entry.TargetID = &tid
		}
		if ip := c.IP(); ip != "" {
			entry.IPAddress = &ip
		}
		if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
			entry.UserAgent = &ua
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if rerr := recorder.Record(ctx, entry); rerr != nil {
			log.Error("failed to write audit log", "action", entry.Action, "actor_id", user.ID, "error", rerr)
		}
		return err
	}
}

// routePattern is the matched route without the trailing slash of group roots, e.g. /courses for /courses/
func routePattern(c *fiber.Ctx) string {
	route := c.Route().Path
	if len(route) > 1 {
		route = strings.TrimSuffix(route, "/")
	}
	return route
}

// auditTarget is the first segment of the route, e.g. "courses" for /courses/:id
func auditTarget(route string) string {
	route = strings.Trim(route, "/")
	if route == "" {
		return "root"
	}
	return strings.SplitN(route, "/", 2)[0]
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
