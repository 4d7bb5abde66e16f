package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/middleware"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/stats"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

const statsCacheTTL = 5 * time.Minute

// insightFallback is returned whenever the AI service is unavailable; the
// insight endpoint never fails the caller.
const insightFallback = "Ringkasan otomatis belum tersedia saat ini. " +
	"Silakan tinjau angka realisasi dan pagu pada dasbor secara manual."

// statsScope resolves the department scope for the viewer: global roles
// see the whole office, everyone else their own department list.
func statsScope(user *models.User) models.DepartmentList {
	if models.IsGlobalViewer(user.Role) {
		return nil
	}
	return user.Departments
}

func parseRange(c *gin.Context, now time.Time) stats.Range {
	rng := stats.DefaultRange(now)
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			rng.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			rng.To = t.Add(24*time.Hour - time.Second)
		}
	}
	return rng
}

func computeDashboard(user *models.User, rng stats.Range, year int) (*stats.Summary, error) {
	var requests []models.BudgetRequest
	if err := config.DB.
		Where("created_at >= ? AND created_at <= ?", rng.From, rng.To).
		Find(&requests).Error; err != nil {
		return nil, err
	}
	var ceilings []models.BudgetCeiling
	if err := config.DB.Where("year = ?", year).Find(&ceilings).Error; err != nil {
		return nil, err
	}

	summary := stats.Compute(requests, ceilings, statsScope(user), rng)
	return &summary, nil
}

// GetDashboardStatsHandler aggregates the dashboard numbers for the acting
// user's scope and date range, cached briefly in Redis.
func GetDashboardStatsHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	now := time.Now()
	rng := parseRange(c, now)
	year := ceilingYear(c)

	cacheKey := fmt.Sprintf("stats:%s:%s:%s:%d:%s",
		user.Role,
		strings.Join(user.Departments, "|"),
		rng.From.Format("2006-01-02"),
		year,
		rng.To.Format("2006-01-02"),
	)
	if config.RDB != nil {
		if cached, err := config.RDB.Get(config.Ctx, cacheKey).Result(); err == nil {
			var summary stats.Summary
			if json.Unmarshal([]byte(cached), &summary) == nil {
				c.JSON(http.StatusOK, summary)
				return
			}
		}
	}

	summary, err := computeDashboard(user, rng, year)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute statistics"})
		return
	}

	if config.RDB != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := config.RDB.Set(config.Ctx, cacheKey, data, statsCacheTTL).Err(); err != nil {
				slog.Warn("Failed to cache dashboard stats", "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, summary)
}

// GetDashboardInsightHandler produces a short narrative over the dashboard
// numbers. Best effort: any failure substitutes the static fallback.
func GetDashboardInsightHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	now := time.Now()
	summary, err := computeDashboard(user, parseRange(c, now), ceilingYear(c))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"insight": insightFallback})
		return
	}

	c.JSON(http.StatusOK, gin.H{"insight": generateInsight(summary)})
}

func generateInsight(summary *stats.Summary) string {
	if config.GeminiClient == nil {
		return insightFallback
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	prompt := []genai.Part{
		genai.Text(fmt.Sprintf(
			"Anda adalah analis anggaran pada kantor pemerintah. Buat ringkasan naratif singkat "+
				"(maksimal 3 kalimat, bahasa Indonesia formal) dari angka berikut: "+
				"total pengajuan %d berkas senilai Rp %.0f, masih diproses %d, ditolak %d, "+
				"total realisasi Rp %.0f dari pagu Rp %.0f (%.1f%%). "+
				"Jangan menambahkan angka yang tidak disebutkan.",
			summary.TotalCount, summary.TotalAmount, summary.PendingCount, summary.RejectedCount,
			summary.TotalRealized, summary.TotalCeiling, summary.RealizationPercent)),
	}

	resp, err := config.GeminiClient.GenerateContent(ctx, prompt...)
	if err != nil {
		slog.Error("Gemini insight error", "error", err)
		return insightFallback
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return insightFallback
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok || strings.TrimSpace(string(text)) == "" {
		return insightFallback
	}
	return strings.TrimSpace(string(text))
}
