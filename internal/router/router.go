package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/taskmind-dev/taskmind/internal/handlers"
	"github.com/taskmind-dev/taskmind/internal/middleware"
	"github.com/taskmind-dev/taskmind/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.POST("/logout", handlers.Logout)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		users := api.Group("/users", middleware.AuthMiddleware())
		{
			users.PUT("/me", handlers.UpdateUser)
			users.DELETE("/me", handlers.DeleteUser)
			users.GET("/me/preferences", handlers.GetPreferences)
			users.PUT("/me/preferences", handlers.UpdatePreferences)
		}

		tasks := api.Group("/tasks", middleware.AuthMiddleware())
		{
			tasks.GET("", handlers.ListTasks)
			tasks.POST("", handlers.CreateTask)
			tasks.GET("/search", handlers.SearchTasks)
			tasks.GET("/overdue", handlers.OverdueTasks)
			tasks.GET("/stats", handlers.GetTaskStats)
			tasks.POST("/parse", handlers.ParseTask)

			tasks.PATCH("/bulk/complete", handlers.BulkCompleteTasks)
			tasks.PATCH("/bulk/delete", handlers.BulkDeleteTasks)
			tasks.PATCH("/bulk/archive", handlers.BulkArchiveTasks)

			tasks.GET("/:task_id", handlers.GetTask)
			tasks.PUT("/:task_id", handlers.UpdateTask)
			tasks.DELETE("/:task_id", handlers.DeleteTask)
			tasks.PATCH("/:task_id/complete", handlers.CompleteTask)
			tasks.PATCH("/:task_id/archive", handlers.ArchiveTask)
			tasks.PATCH("/:task_id/restore", handlers.RestoreTask)

			tasks.POST("/:task_id/subtasks", handlers.CreateSubtask)
			tasks.PUT("/:task_id/subtasks/:subtask_id", handlers.UpdateSubtask)
			tasks.DELETE("/:task_id/subtasks/:subtask_id", handlers.DeleteSubtask)
			tasks.PATCH("/:task_id/subtasks/:subtask_id/toggle", handlers.ToggleSubtask)
		}

		projects := api.Group("/projects", middleware.AuthMiddleware())
		{
			projects.POST("", handlers.CreateProject)
			projects.GET("", handlers.ListProjects)
			projects.GET("/:project_id", handlers.GetProject)
			projects.PUT("/:project_id", handlers.UpdateProject)
			projects.DELETE("/:project_id", handlers.DeleteProject)
			projects.GET("/:project_id/stats", handlers.GetProjectStats)
			projects.PUT("/:project_id/members", handlers.ReplaceProjectMembers)
			projects.POST("/:project_id/invitations", handlers.CreateInvitation)
			projects.GET("/:project_id/invitations", handlers.ListInvitations)
		}

		api.POST("/invitations/accept", middleware.AuthMiddleware(), handlers.AcceptInvitation)

		subscription := api.Group("/subscription")
		{
			subscription.GET("/plans", handlers.ListPlans)
			subscription.POST("/checkout", middleware.AuthMiddleware(), handlers.CreateCheckoutSession)
			subscription.POST("/webhook", handlers.PaymentWebhook)
		}
	}

	return r
}
