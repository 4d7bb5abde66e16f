package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/divan/num2words"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/middleware"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/notify"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/workflow"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

// actionableStatuses are the statuses some validator is currently waiting
// on; used for queue badge counts.
var actionableStatuses = []string{
	models.StatusPending,
	models.StatusReviewedBidang,
	models.StatusReviewedProgram,
	models.StatusReviewedTU,
	models.StatusApproved,
	models.StatusReviewedPIC,
}

type RequestInput struct {
	Title            string                  `json:"title" binding:"required"`
	Category         string                  `json:"category" binding:"required"`
	Location         string                  `json:"location"`
	ExecutionDate    string                  `json:"executionDate"`
	DurationDays     int                     `json:"durationDays"`
	Description      string                  `json:"description"`
	CalculationItems models.CalculationItems `json:"calculationItems" binding:"required"`
	Draft            bool                    `json:"draft"`
}

type DecideInput struct {
	Action            string   `json:"action" binding:"required"`
	Note              string   `json:"note"`
	RealizationAmount *float64 `json:"realizationAmount"`
	// ExpectedStatus lets the client detect a lost race: if the request
	// moved on since it was loaded, the action is refused with the fresh
	// state instead of silently overwriting.
	ExpectedStatus string `json:"expectedStatus"`
}

// canView reports whether the viewer may read the request at all.
func canView(req *models.BudgetRequest, viewer *models.User) bool {
	if req.UserID == viewer.ID || models.IsGlobalViewer(viewer.Role) {
		return true
	}
	if viewer.Role == models.RoleKabid || models.IsDeptScopedPIC(viewer.Role) {
		return viewer.Departments.Intersects(req.Departments)
	}
	return viewer.Role == models.RoleStaf && req.UserID == viewer.ID
}

// ListRequestsHandler returns the requests visible to the acting user,
// optionally filtered by status and category.
func ListRequestsHandler(c *gin.Context) {
	user, ok := middleware.ActingUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	query := config.DB.Preload("User").Order("created_at desc")
	if c.Query("type") == "my" || user.Role == models.RoleStaf {
		query = query.Where("user_id = ?", user.ID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var requests []models.BudgetRequest
	if err := query.Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch requests"})
		return
	}

	// Department scoping cannot be expressed against the JSONB list in a
	// portable way, so scoped roles are filtered here.
	if user.Role == models.RoleKabid || models.IsDeptScopedPIC(user.Role) {
		scoped := requests[:0]
		for i := range requests {
			if user.Departments.Intersects(requests[i].Departments) {
				scoped = append(scoped, requests[i])
			}
		}
		requests = scoped
	}

	if requests == nil {
		requests = make([]models.BudgetRequest, 0)
	}
	c.JSON(http.StatusOK, requests)
}

// ListAllRequestsHandler returns a paginated list of every request, for the
// administrator archive view.
func ListAllRequestsHandler(c *gin.Context) {
	var requests []models.BudgetRequest
	var totalRows int64

	query := config.DB.Model(&models.BudgetRequest{}).Preload("User")
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not count requests"})
		return
	}

	if err := query.Scopes(paged(c)).Order("created_at DESC").Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch requests"})
		return
	}

	if requests == nil {
		requests = make([]models.BudgetRequest, 0)
	}
	c.JSON(http.StatusOK, newListPage(c, requests, totalRows))
}

// GetRequestHandler returns one request by ID.
func GetRequestHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var req models.BudgetRequest
	if err := config.DB.Preload("User").First(&req, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !canView(&req, user) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to view this request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request":  req,
		"canActOn": Engine.CanActOn(&req, user),
	})
}

// CreateRequestHandler creates a new budget request for the acting user,
// in draft or directly submitted as pending.
func CreateRequestHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var input RequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if len(input.CalculationItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one calculation item is required"})
		return
	}

	status := models.StatusPending
	if input.Draft {
		status = models.StatusDraft
	}

	req := models.BudgetRequest{
		Title:            input.Title,
		Category:         input.Category,
		UserID:           user.ID,
		RequesterName:    user.FullName,
		Departments:      user.Departments,
		Location:         input.Location,
		DurationDays:     input.DurationDays,
		Description:      input.Description,
		CalculationItems: input.CalculationItems,
		Status:           status,
	}
	if input.ExecutionDate != "" {
		if t, err := time.Parse("2006-01-02", input.ExecutionDate); err == nil {
			req.ExecutionDate = &t
		}
	}
	req.Recalculate()

	if err := config.DB.Create(&req).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save request: " + err.Error()})
		return
	}

	if status == models.StatusPending {
		FeedHub.Publish(notify.ChangeEvent{
			Table: "budget_requests",
			Type:  "UPDATE",
			New:   &req,
		})
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Request created", "request": req})
}

// UpdateRequestHandler applies a full edit. Only the requester may edit,
// and only while the request is a draft or was rejected.
func UpdateRequestHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var req models.BudgetRequest
	if err := config.DB.First(&req, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	if req.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot edit this request"})
		return
	}
	if req.Status != models.StatusDraft && req.Status != models.StatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only draft or rejected requests can be edited"})
		return
	}

	var input RequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	req.Title = input.Title
	req.Category = input.Category
	req.Location = input.Location
	req.DurationDays = input.DurationDays
	req.Description = input.Description
	req.CalculationItems = input.CalculationItems
	if input.ExecutionDate != "" {
		if t, err := time.Parse("2006-01-02", input.ExecutionDate); err == nil {
			req.ExecutionDate = &t
		}
	}
	req.Recalculate()

	if err := config.DB.Save(&req).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request updated", "request": req})
}

// SubmitRequestHandler moves a draft or rejected request (back) into the
// approval chain. Stage notes from a previous round are cleared.
func SubmitRequestHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var req models.BudgetRequest
	if err := config.DB.First(&req, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	if req.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot submit this request"})
		return
	}
	if req.Status != models.StatusDraft && req.Status != models.StatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only draft or rejected requests can be submitted"})
		return
	}

	req.Status = models.StatusPending
	req.CatatanBidang = ""
	req.CatatanProgram = ""
	req.CatatanTU = ""
	req.CatatanPPK = ""
	req.CatatanPIC = ""

	if err := config.DB.Save(&req).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit request"})
		return
	}

	FeedHub.Publish(notify.ChangeEvent{
		Table: "budget_requests",
		Type:  "UPDATE",
		New:   &req,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Request submitted", "request": req})
}

// DecideRequestHandler runs one workflow action (approve or reject). The
// request is re-read inside the transaction so a racing validator loses
// cleanly instead of overwriting.
func DecideRequestHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var input DecideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var before, after models.BudgetRequest
	var stale bool
	txErr := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&before, id).Error; err != nil {
			return err
		}
		if input.ExpectedStatus != "" && before.Status != input.ExpectedStatus {
			stale = true
			return gorm.ErrInvalidTransaction
		}

		after = before
		outcome, err := Engine.Decide(&after, user, workflow.Input{
			Action:            workflow.Action(input.Action),
			Note:              input.Note,
			RealizationAmount: input.RealizationAmount,
			Now:               time.Now(),
		})
		if err != nil {
			return err
		}
		outcome.Apply(&after)
		return tx.Save(&after).Error
	})

	switch {
	case txErr == nil:
	case stale:
		c.JSON(http.StatusConflict, gin.H{
			"error":   "The request was updated by someone else; please review the current state",
			"request": before,
		})
		return
	case errors.Is(txErr, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	case errors.Is(txErr, workflow.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": txErr.Error()})
		return
	case errors.Is(txErr, workflow.ErrNoteRequired),
		errors.Is(txErr, workflow.ErrMissingDocuments),
		errors.Is(txErr, workflow.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": txErr.Error()})
		return
	default:
		slog.Error("Workflow decision failed", "error", txErr, "request_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process decision"})
		return
	}

	FeedHub.Publish(notify.ChangeEvent{
		Table: "budget_requests",
		Type:  "UPDATE",
		Old:   &before,
		New:   &after,
	})

	slog.Info("Workflow transition applied",
		"request_id", after.ID, "from", before.Status, "to", after.Status, "actor_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Decision recorded", "request": after})
}

// UploadSPJHandler attaches completion documents (SPPD, activity report,
// receipt) to an approved request.
func UploadSPJHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var req models.BudgetRequest
	if err := config.DB.First(&req, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	if req.UserID != user.ID && !models.IsPIC(user.Role) && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot upload documents for this request"})
		return
	}

	if err := c.Request.ParseMultipartForm(30 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form"})
		return
	}

	uploadDir := filepath.Join("static", "uploads", "spj", c.Param("id"))
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload directory"})
		return
	}

	if key, err := applySPJUploads(c, &req, uploadDir); err != nil {
		slog.Error("Failed to store SPJ document", "error", err, "form_key", key, "request_id", req.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gagal menyimpan dokumen " + key})
		return
	}

	if err := config.DB.Save(&req).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Documents uploaded",
		"request":          req,
		"missingDocuments": Engine.MissingDocuments(&req),
	})
}

// DeleteRequestHandler removes a request. Administrator only.
func DeleteRequestHandler(c *gin.Context) {
	var req models.BudgetRequest
	if err := config.DB.First(&req, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	if err := config.DB.Delete(&req).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete request"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request deleted"})
}

// PrintRequestHandler returns the data printed on the kendali document:
// the derived control number and the amount in words.
func PrintRequestHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var req models.BudgetRequest
	if err := config.DB.Preload("User").First(&req, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	if !canView(&req, user) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to view this request"})
		return
	}

	primary := ""
	if len(req.Departments) > 0 {
		primary = req.Departments[0]
	}

	// The sequence is the request's ordinal among its department's
	// requests within the creation month, derived at print time.
	monthStart := time.Date(req.CreatedAt.Year(), req.CreatedAt.Month(), 1, 0, 0, 0, 0, req.CreatedAt.Location())
	var siblings []models.BudgetRequest
	if err := config.DB.
		Where("created_at >= ? AND created_at <= ?", monthStart, req.CreatedAt).
		Order("created_at asc").
		Find(&siblings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute control number"})
		return
	}
	seq := 0
	for i := range siblings {
		if siblings[i].Departments.Contains(primary) {
			seq++
		}
	}
	if seq == 0 {
		seq = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"request":       req,
		"controlNumber": Engine.ControlNumber(seq, primary, req.CreatedAt),
		"amountInWords": amountInWords(req.Amount),
	})
}

func amountInWords(amount float64) string {
	return fmt.Sprintf("%s rupiah", num2words.Convert(int(amount)))
}

// ExportRequestsHandler streams every request as a CSV archive.
func ExportRequestsHandler(c *gin.Context) {
	var requests []models.BudgetRequest
	if err := config.DB.Preload("User").Order("created_at desc").Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch requests from database"})
		return
	}
	if len(requests) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No requests found to export"})
		return
	}

	b := &bytes.Buffer{}
	b.Write([]byte{0xEF, 0xBB, 0xBF}) // BOM for UTF-8

	w := csv.NewWriter(b)
	w.Comma = ';'

	headers := []string{
		"ID", "Tanggal Pengajuan", "Judul", "Kategori", "Pengusul", "Bidang",
		"Lokasi", "Jumlah", "Status", "Realisasi", "Tanggal Realisasi",
	}
	if err := w.Write(headers); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write CSV header"})
		return
	}

	for _, req := range requests {
		var realized, realizedDate string
		if req.RealizationAmount != nil {
			realized = fmt.Sprintf("%.2f", *req.RealizationAmount)
		}
		if req.RealizationDate != nil {
			realizedDate = req.RealizationDate.Format("2006-01-02")
		}
		record := []string{
			strconv.Itoa(int(req.ID)), req.CreatedAt.Format("2006-01-02 15:04:05"),
			req.Title, req.Category, req.RequesterName,
			fmt.Sprintf("%v", []string(req.Departments)),
			req.Location, fmt.Sprintf("%.2f", req.Amount), req.Status,
			realized, realizedDate,
		}
		if err := w.Write(record); err != nil {
			slog.Warn("Failed to write record to CSV", "request_id", req.ID, "error", err)
			continue
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV data"})
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename=pengajuan_export.csv")
	c.Data(http.StatusOK, "text/csv", b.Bytes())
}

// GetRequestCountsHandler returns the badge counts for the sidebar: the
// acting user's requests needing rework and the validation queue size.
func GetRequestCountsHandler(c *gin.Context) {
	user, _ := middleware.ActingUser(c)

	var reworkCount int64
	config.DB.Model(&models.BudgetRequest{}).
		Where("user_id = ? AND status = ?", user.ID, models.StatusRejected).
		Count(&reworkCount)

	queueCount := 0
	if _, isValidator := Engine.WatchedStatus(user.Role); isValidator {
		var candidates []models.BudgetRequest
		if err := config.DB.Where("status IN ?", actionableStatuses).Find(&candidates).Error; err == nil {
			for i := range candidates {
				if Engine.CanActOn(&candidates[i], user) {
					queueCount++
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"my_rework":        reworkCount,
		"validation_queue": queueCount,
	})
}
