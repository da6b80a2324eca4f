package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/handler"
	"github.com/invigilo/proctor-backend/internal/middleware"
	"github.com/invigilo/proctor-backend/internal/response"
	"github.com/invigilo/proctor-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Exam         *handler.ExamHandler
	Pairing      *handler.PairingHandler
	Question     *handler.QuestionHandler
	AdminSession *handler.AdminSessionHandler
	Report       *handler.ReportHandler
	Media        *handler.MediaHandler
	Monitor      *handler.MonitorHandler
	WS           *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Serve recorded artifacts statically for the review UI.
	router.Static("/uploads", cfg.UploadDir)

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
	}

	// ─── 2. Mobile Group (Pairing Code Auth) ───────────────────────────
	// No JWT: the short-lived pairing code is the capability for the
	// initial claim, the session ID for the rest of the handshake.
	mobileAPI := router.Group("/api/v1/mobile")
	{
		mobileAPI.POST("/pair", handlers.Pairing.Pair)
		mobileAPI.POST("/heartbeat", handlers.Pairing.Heartbeat)
		mobileAPI.POST("/confirm-camera", handlers.Pairing.ConfirmCamera)
	}

	// ─── 3. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		studentAPI.POST("/sessions", handlers.Exam.NewSessionID)

		studentAPI.POST("/pairing/init", handlers.Pairing.Init)
		studentAPI.GET("/pairing/:session_id/status", handlers.Pairing.Status)

		studentAPI.POST("/exams/start", handlers.Exam.StartExam)
		studentAPI.GET("/sessions/:session_id/state", handlers.Exam.GetState)
		studentAPI.POST("/sessions/:session_id/answers", handlers.Exam.SelectAnswer)
		studentAPI.POST("/sessions/:session_id/navigate", handlers.Exam.Navigate)
		studentAPI.POST("/sessions/:session_id/submit", handlers.Exam.Submit)
		studentAPI.GET("/sessions/:session_id/result", handlers.Exam.GetResult)
		studentAPI.POST("/sessions/:session_id/activity", handlers.Exam.ReportActivity)
		studentAPI.POST("/sessions/:session_id/media", handlers.Exam.UpdateMedia)
		studentAPI.POST("/sessions/:session_id/face-events", handlers.Exam.ReportFaceEvent)
		studentAPI.POST("/sessions/:session_id/recordings", handlers.Media.UploadRecording)
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 5. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Live session monitoring and control
		adminAPI.GET("/sessions", handlers.AdminSession.List)
		adminAPI.GET("/sessions/:session_id", handlers.AdminSession.Get)
		adminAPI.POST("/sessions/:session_id/terminate", handlers.AdminSession.Terminate)
		adminAPI.POST("/sessions/:session_id/warn", handlers.AdminSession.Warn)
		adminAPI.DELETE("/sessions/:session_id", handlers.AdminSession.Remove)
		adminAPI.GET("/monitor", handlers.Monitor.MonitorSSE)

		// Integrity reports
		adminAPI.GET("/reports", handlers.Report.ListRecent)
		adminAPI.GET("/reports/:session_id", handlers.Report.Get)

		// Question bank
		adminAPI.GET("/questions", handlers.Question.List)
		adminAPI.POST("/questions", handlers.Question.Add)
		adminAPI.PATCH("/questions/:question_id", handlers.Question.Update)
		adminAPI.POST("/questions/reset", handlers.Question.Reset)
		adminAPI.GET("/questions/version", handlers.Question.Version)

		// Student roster
		adminAPI.GET("/students", handlers.AdminSession.ListStudents)
		adminAPI.POST("/students", handlers.AdminSession.AddStudent)
		adminAPI.DELETE("/students/:student_id", handlers.AdminSession.RemoveStudent)
		adminAPI.POST("/students/:student_id/reset-login", handlers.AdminSession.ResetStudentLogin)
	}

	return router
}
