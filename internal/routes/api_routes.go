package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/handlers"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/middleware"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

// RegisterAPIRoutes registers every authenticated route under /api.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	apiGroup := api.Group("/api")
	{
		apiGroup.GET("/me", handlers.MeHandler)

		// --- PENGAJUAN (budget requests) ---
		requests := apiGroup.Group("/requests")
		{
			requests.GET("", handlers.ListRequestsHandler)
			requests.GET("/all", middleware.RoleMiddleware(models.RoleAdmin), handlers.ListAllRequestsHandler)
			requests.GET("/counts", handlers.GetRequestCountsHandler)
			requests.GET("/export", middleware.RoleMiddleware(models.RoleAdmin), handlers.ExportRequestsHandler)
			requests.POST("", handlers.CreateRequestHandler)
			requests.GET("/:id", handlers.GetRequestHandler)
			requests.PUT("/:id", handlers.UpdateRequestHandler)
			requests.POST("/:id/submit", handlers.SubmitRequestHandler)
			requests.POST("/:id/decide", handlers.DecideRequestHandler)
			requests.POST("/:id/upload-spj", handlers.UploadSPJHandler)
			requests.GET("/:id/print", handlers.PrintRequestHandler)
			requests.DELETE("/:id", middleware.RoleMiddleware(models.RoleAdmin), handlers.DeleteRequestHandler)
		}

		// --- PAGU ANGGARAN (budget ceilings) ---
		ceilings := apiGroup.Group("/ceilings")
		{
			ceilings.GET("", handlers.ListCeilingsHandler)
			ceilings.GET("/utilization", handlers.GetCeilingUtilizationHandler)
			ceilings.GET("/export", handlers.ExportCeilingsHandler)
			ceilings.POST("", middleware.RoleMiddleware(models.RoleValidatorProgram), handlers.UpsertCeilingHandler)
			ceilings.DELETE("/:id", middleware.RoleMiddleware(models.RoleValidatorProgram), handlers.DeleteCeilingHandler)
		}

		// --- DASHBOARD ---
		dashboard := apiGroup.Group("/dashboard")
		{
			dashboard.GET("/stats", handlers.GetDashboardStatsHandler)
			dashboard.GET("/insight", handlers.GetDashboardInsightHandler)
		}

		// --- NOTIFIKASI ---
		notifications := apiGroup.Group("/notifications")
		{
			notifications.GET("", handlers.ListNotificationsHandler)
			notifications.POST("/push-subscriptions", handlers.SubscribePushHandler)
		}

		// Live status feed over websocket.
		apiGroup.GET("/feed/ws", handlers.FeedWSEndpoint)

		// --- PENGGUNA (admin only) ---
		users := apiGroup.Group("/users")
		users.Use(middleware.RoleMiddleware(models.RoleAdmin))
		{
			users.GET("", handlers.ListUsersHandler)
			users.POST("", handlers.CreateUserHandler)
			users.GET("/:id", handlers.GetUserHandler)
			users.PUT("/:id", handlers.UpdateUserHandler)
			users.DELETE("/:id", handlers.DeleteUserHandler)
		}

		// Profil pengguna yang sedang login.
		profile := apiGroup.Group("/profile")
		{
			profile.GET("", handlers.MeHandler)
			profile.PUT("", handlers.UpdateProfileHandler)
		}
	}
}
