package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/handlers"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/routes"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

func main() {
	config.LoadEnv()
	config.ConnectDB()

	err := config.DB.AutoMigrate(
		&models.User{},
		&models.BudgetRequest{},
		&models.BudgetCeiling{},
		&models.PushSubscription{},
	)
	if err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	config.ConnectRedis()

	if err := config.InitGoogleServices(); err != nil {
		// The dashboard falls back to a canned insight without Gemini.
		slog.Warn("Google services unavailable, AI insight disabled", "error", err)
	}

	handlers.Init()

	r := gin.Default()
	r.MaxMultipartMemory = 16 << 20
	r.Static("/static", "./static")

	routes.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Server starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
