package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/middleware"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/notify"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

// ListNotificationsHandler derives the aggregate alert list for the acting
// user from a fresh request snapshot. Derivation is pure, so reloading the
// panel with an unchanged snapshot yields the same alerts.
func ListNotificationsHandler(c *gin.Context) {
	user, ok := middleware.ActingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	query := config.DB.Order("created_at desc")
	if _, isValidator := Engine.WatchedStatus(user.Role); !isValidator {
		query = query.Where("user_id = ?", user.ID)
	}

	var requests []models.BudgetRequest
	if err := query.Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch requests"})
		return
	}

	alerts := Deriver.DeriveAggregate(user, requests, time.Now())
	if alerts == nil {
		alerts = make([]notify.Alert, 0)
	}
	c.JSON(http.StatusOK, alerts)
}

type PushSubscriptionInput struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// SubscribePushHandler stores a browser push endpoint for the acting user.
// Payload delivery is handled by the push service, not here.
func SubscribePushHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var input PushSubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription payload"})
		return
	}

	sub := models.PushSubscription{
		UserID:   user.ID,
		Endpoint: input.Endpoint,
		P256dh:   input.Keys.P256dh,
		Auth:     input.Keys.Auth,
	}

	var existing models.PushSubscription
	if err := config.DB.Where("endpoint = ?", input.Endpoint).First(&existing).Error; err == nil {
		existing.UserID = user.ID
		existing.P256dh = input.Keys.P256dh
		existing.Auth = input.Keys.Auth
		if err := config.DB.Save(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Subscription updated"})
		return
	}

	if err := config.DB.Create(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed"})
}
