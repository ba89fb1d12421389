package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/handlers"
	admin_handlers "github.com/sahilchouksey/byteboost-api/handlers/admin"
	auth_handlers "github.com/sahilchouksey/byteboost-api/handlers/auth"
	comment_handlers "github.com/sahilchouksey/byteboost-api/handlers/comment"
	course_handlers "github.com/sahilchouksey/byteboost-api/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/byteboost-api/handlers/enrollment"
	live_handlers "github.com/sahilchouksey/byteboost-api/handlers/live"
	payment_handlers "github.com/sahilchouksey/byteboost-api/handlers/payment"
	upload_handlers "github.com/sahilchouksey/byteboost-api/handlers/upload"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health      *handlers.HealthHandler
	Auth        *auth_handlers.AuthHandler
	Course      *course_handlers.CourseHandler
	Comment     *comment_handlers.CommentHandler
	Enrollment  *enrollment_handlers.EnrollmentHandler
	Payment     *payment_handlers.PaymentHandler
	Live        *live_handlers.RoomHandler
	Upload      *upload_handlers.UploadHandler
	Audit       *admin_handlers.AuditHandler
	AuthGuard   *middleware.AuthMiddleware
	AuditRecord middleware.AuditRecorder
}

// SetupRoutes mounts the API on app. Security middleware is expected to be attached already.
func SetupRoutes(app *fiber.App, store database.Storage, h Handlers, log *logger.Logger) {
	authMiddleware := h.AuthGuard
	protected := authMiddleware.Required()
	staff := authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin)
	admin := authMiddleware.RequireAdmin()

	// Runs around every route so it can see the user set by the auth middleware
	app.Use(middleware.AuditLog(h.AuditRecord, log))

	// Service info and health (public)
	app.Get("/", h.Health.Root)
	app.Get("/health", h.Health.Health)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// Auth routes
	authGroup := app.Group("/auth")
	authGroup.Get("/google/login", h.Auth.GoogleLogin)
	authGroup.Get("/google/callback", h.Auth.GoogleCallback)
	authGroup.Post("/logout", protected, h.Auth.Logout)
	authGroup.Get("/me", protected, h.Auth.Me)

	// Courses routes
	courses := app.Group("/courses")
	courses.Get("/", authMiddleware.Optional(), h.Course.ListCourses)             // Public: published catalog
	courses.Post("/", protected, staff, h.Course.CreateCourse)                    // Instructor/Admin
	courses.Put("/modules/:id", protected, staff, h.Course.UpdateModule)          // Course owner/Admin
	courses.Post("/modules/:id/lessons", protected, staff, h.Course.CreateLesson) // Course owner/Admin
	courses.Get("/lessons/:id", authMiddleware.Optional(), h.Course.GetLesson)    // Enrolled, free preview or owner
	courses.Get("/:id", authMiddleware.Optional(), h.Course.GetCourse)            // Public when published
	courses.Put("/:id", protected, staff, h.Course.UpdateCourse)                  // Course owner/Admin
	courses.Delete("/:id", protected, staff, h.Course.DeleteCourse)               // Course owner/Admin
	courses.Post("/:id/modules", protected, staff, h.Course.CreateModule)         // Course owner/Admin

	// Comments routes
	comments := app.Group("/comments")
	comments.Get("/lesson/:id", authMiddleware.Optional(), h.Comment.ListLessonComments)
	comments.Post("/", protected, h.Comment.CreateComment)
	comments.Put("/:id", protected, h.Comment.UpdateComment)
	comments.Delete("/:id", protected, h.Comment.DeleteComment)

	// Enrollments routes (protected)
	enrollments := app.Group("/enrollments", protected)
	enrollments.Get("/", h.Enrollment.ListMyEnrollments)
	enrollments.Put("/:id/progress", h.Enrollment.UpdateProgress)

	// Payments routes. Provider callbacks authenticate by signature, not by JWT.
	payments := app.Group("/payments")
	payments.Post("/razorpay/webhook", h.Payment.RazorpayWebhook)
	payments.Post("/phonepe/callback", h.Payment.PhonePeCallback)
	payments.Post("/razorpay/orders", protected, h.Payment.CreateRazorpayOrder)
	payments.Post("/razorpay/verify", protected, h.Payment.VerifyRazorpayPayment)
	payments.Get("/orders", protected, h.Payment.ListOrders)
	payments.Get("/orders/:id", protected, h.Payment.GetOrder)
	payments.Post("/refund/:id", protected, admin, h.Payment.RefundOrder)

	// Live routes (protected)
	rooms := app.Group("/live/rooms", protected)
	rooms.Get("/", h.Live.ListRooms)
	rooms.Post("/", staff, h.Live.CreateRoom)
	rooms.Get("/:id", h.Live.GetRoom)
	rooms.Put("/:id", staff, h.Live.UpdateRoom)
	rooms.Delete("/:id", staff, h.Live.DeleteRoom)
	rooms.Post("/:id/join", h.Live.JoinRoom)
	rooms.Post("/:id/leave", h.Live.LeaveRoom)
	rooms.Get("/:id/attendance", staff, h.Live.Attendance)

	// Uploads routes
	uploads := app.Group("/uploads", protected)
	uploads.Post("/presign", staff, h.Upload.Presign)
	uploads.Post("/complete", staff, h.Upload.Complete)
	uploads.Get("/download/*", h.Upload.DownloadURL)
	uploads.Delete("/*", staff, h.Upload.Delete)

	// Admin routes
	adminGroup := app.Group("/admin", protected, admin)
	adminGroup.Get("/audit-logs", h.Audit.ListAuditLogs)
}
