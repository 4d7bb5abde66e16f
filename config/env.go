package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// JwtKey signs and verifies session tokens. Loaded once at startup.
var JwtKey []byte

// LoadEnv reads the optional .env file and validates the variables the
// service cannot run without.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on process environment")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("JWT_SECRET environment variable is not set")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}
