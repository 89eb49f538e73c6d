package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/review-portal/internal/metrics"
	"github.com/yukikurage/review-portal/internal/middleware"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/services"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth           *services.AuthService
	SSO            *services.SSOService
	Users          *services.UserService
	Tasks          *services.TaskService
	Files          *services.FileService
	MaxUploadBytes int64
}

// RouteOptions holds the optional pieces of the router.
type RouteOptions struct {
	// LoginLimiter runs in front of the password and SSO login routes.
	LoginLimiter gin.HandlerFunc
	Metrics      *metrics.Metrics
}

// RegisterRoutes mounts every endpoint on r. Session middleware must already
// be installed.
func RegisterRoutes(r *gin.Engine, svc Services, opts RouteOptions) {
	authHandler := NewAuthHandler(svc.Auth, svc.SSO)
	userHandler := NewUserHandler(svc.Users, svc.Auth)
	taskHandler := NewTaskHandler(svc.Tasks)
	fileHandler := NewFileHandler(svc.Files, svc.MaxUploadBytes)

	requireAuth := middleware.RequireAuth(svc.Auth)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if opts.LoginLimiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{opts.LoginLimiter, h}
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Review Portal API is running",
		})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// Public auth routes
	r.POST("/login", limited(authHandler.Login)...)
	r.POST("/logout", authHandler.Logout)
	r.POST("/users", authHandler.Register)
	r.GET("/auth/sso", authHandler.ListSSOProviders)
	r.GET("/auth/sso/:provider", authHandler.StartSSO)
	r.GET("/auth/sso/:provider/callback", limited(authHandler.SSOCallback)...)

	me := r.Group("/me")
	me.Use(requireAuth)
	{
		me.GET("", authHandler.GetCurrentUser)
		me.PUT("", authHandler.UpdateCurrentUser)
		me.POST("/sso", authHandler.LinkSSO)
	}

	users := r.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("", userHandler.ListUsers)
		users.GET("/pending", requireAdmin, userHandler.ListPendingManagers)
		users.GET("/assignable", userHandler.ListAssignableUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PUT("/:id/approve", requireAdmin, userHandler.ApproveManager)
		users.DELETE("/:id/reject", requireAdmin, userHandler.RejectManager)
	}

	tasks := r.Group("/tasks")
	tasks.Use(requireAuth)
	{
		tasks.GET("", taskHandler.ListTasks)
		tasks.GET("/review-queue", taskHandler.ReviewQueue)
		tasks.GET("/stats", taskHandler.Stats)
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PUT("/:id", taskHandler.UpdateTask)
		tasks.POST("/:id/complete", taskHandler.CompleteTask)
		tasks.PUT("/:id/review", taskHandler.ReviewTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
	}

	files := r.Group("/files")
	files.Use(requireAuth)
	{
		files.GET("", fileHandler.ListFiles)
		files.GET("/review-queue", fileHandler.ReviewQueue)
		files.POST("", fileHandler.UploadFile)
		files.GET("/:id", fileHandler.GetFile)
		files.PUT("/:id", fileHandler.ReuploadFile)
		files.PUT("/:id/review", fileHandler.ReviewFile)
		files.GET("/:id/download", fileHandler.DownloadFile)
		files.DELETE("/:id", fileHandler.DeleteFile)
	}
}
