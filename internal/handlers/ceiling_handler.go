package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/stats"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

type CeilingInput struct {
	Department      string  `json:"department" binding:"required"`
	KodeRO          string  `json:"kodeRo" binding:"required"`
	KodeKomponen    string  `json:"kodeKomponen" binding:"required"`
	KodeSubKomponen string  `json:"kodeSubKomponen" binding:"required"`
	Year            int     `json:"year" binding:"required"`
	Amount          float64 `json:"amount"`
}

func ceilingYear(c *gin.Context) int {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		return time.Now().Year()
	}
	return year
}

// ListCeilingsHandler returns the allocation lines for a year.
func ListCeilingsHandler(c *gin.Context) {
	var ceilings []models.BudgetCeiling
	if err := config.DB.Where("year = ?", ceilingYear(c)).Order("department asc, kode_ro asc").Find(&ceilings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch ceilings"})
		return
	}
	if ceilings == nil {
		ceilings = make([]models.BudgetCeiling, 0)
	}
	c.JSON(http.StatusOK, ceilings)
}

// UpsertCeilingHandler creates or replaces the amount of one allocation
// line. The composite key is unique per year.
func UpsertCeilingHandler(c *gin.Context) {
	var input CeilingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ceiling models.BudgetCeiling
	err := config.DB.Where(
		"department = ? AND kode_ro = ? AND kode_komponen = ? AND kode_sub_komponen = ? AND year = ?",
		input.Department, input.KodeRO, input.KodeKomponen, input.KodeSubKomponen, input.Year,
	).First(&ceiling).Error

	switch {
	case err == nil:
		ceiling.Amount = input.Amount
		if err := config.DB.Save(&ceiling).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ceiling"})
			return
		}
		c.JSON(http.StatusOK, ceiling)

	case errors.Is(err, gorm.ErrRecordNotFound):
		ceiling = models.BudgetCeiling{
			Department:      input.Department,
			KodeRO:          input.KodeRO,
			KodeKomponen:    input.KodeKomponen,
			KodeSubKomponen: input.KodeSubKomponen,
			Year:            input.Year,
			Amount:          input.Amount,
		}
		if err := config.DB.Create(&ceiling).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ceiling"})
			return
		}
		c.JSON(http.StatusCreated, ceiling)

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}

// DeleteCeilingHandler removes one allocation line.
func DeleteCeilingHandler(c *gin.Context) {
	var ceiling models.BudgetCeiling
	if err := config.DB.First(&ceiling, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ceiling not found"})
		return
	}
	if err := config.DB.Delete(&ceiling).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete ceiling"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ceiling deleted"})
}

// committedRequestsFor loads the money-committed requests used for
// utilization accounting.
func committedRequestsFor() ([]models.BudgetRequest, error) {
	var requests []models.BudgetRequest
	err := config.DB.Where("status IN ?", []string{
		models.StatusApproved, models.StatusReviewedPIC, models.StatusRealized,
	}).Find(&requests).Error
	return requests, err
}

// GetCeilingUtilizationHandler returns consumption of one allocation line.
func GetCeilingUtilizationHandler(c *gin.Context) {
	var ceiling models.BudgetCeiling
	if err := config.DB.First(&ceiling, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ceiling not found"})
		return
	}

	requests, err := committedRequestsFor()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ceiling":     ceiling,
		"utilization": stats.Utilization(&ceiling, requests),
	})
}

// ExportCeilingsHandler streams the year's allocation lines with their
// utilization as an XLSX workbook.
func ExportCeilingsHandler(c *gin.Context) {
	year := ceilingYear(c)

	var ceilings []models.BudgetCeiling
	if err := config.DB.Where("year = ?", year).Order("department asc, kode_ro asc").Find(&ceilings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch ceilings"})
		return
	}
	requests, err := committedRequestsFor()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch requests"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Pagu Anggaran"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Bidang", "RO", "Komponen", "Subkomponen", "Pagu", "Terpakai", "Sisa", "Persen"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i := range ceilings {
		u := stats.Utilization(&ceilings[i], requests)
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), ceilings[i].Department)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), ceilings[i].KodeRO)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), ceilings[i].KodeKomponen)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), ceilings[i].KodeSubKomponen)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), ceilings[i].Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), u.Spent)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), u.Remaining)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), u.Percent)
	}

	fileName := fmt.Sprintf("pagu_%d_%s.xlsx", year, time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}
