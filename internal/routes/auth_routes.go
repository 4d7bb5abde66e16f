package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/handlers"
)

// RegisterAuthRoutes registers the public authentication routes. These do
// not pass through the token middleware.
func RegisterAuthRoutes(r *gin.Engine) {
	r.POST("/login", handlers.LoginHandler)
	r.GET("/logout", handlers.LogoutHandler)
}
