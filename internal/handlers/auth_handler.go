package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/middleware"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

const tokenLifetime = 12 * time.Hour

type LoginInput struct {
	NIP      string `json:"nip" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler authenticates by NIP and password and issues a session
// token. Passwords are stored as bcrypt hashes; there is no plaintext
// comparison anywhere.
func LoginHandler(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "NIP dan password wajib diisi"})
		return
	}

	var user models.User
	if err := config.DB.Where("nip = ?", input.NIP).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "NIP atau password salah"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "NIP atau password salah"})
		return
	}

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"nip":     user.NIP,
		"role":    user.Role,
		"exp":     time.Now().Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(config.JwtKey)
	if err != nil {
		slog.Error("Failed to sign session token", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.SetCookie("auth_token", tokenStr, int(tokenLifetime.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"token": tokenStr,
		"user": gin.H{
			"id":          user.ID,
			"nip":         user.NIP,
			"fullName":    user.FullName,
			"role":        user.Role,
			"departments": user.Departments,
		},
	})
}

// LogoutHandler clears the session cookie and the cached auth snapshot.
func LogoutHandler(c *gin.Context) {
	if userID, ok := c.Get("user_id"); ok {
		middleware.InvalidateUserCache(userID.(uint))
	}
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// MeHandler returns the acting user's auth snapshot.
func MeHandler(c *gin.Context) {
	user, ok := middleware.ActingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"fullName":    user.FullName,
		"role":        user.Role,
		"departments": user.Departments,
	})
}
