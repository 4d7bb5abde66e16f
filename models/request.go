package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Status progression of a budget request. The order is fixed; "rejected" is
// reachable from every gate and re-enters at "pending" on resubmission.
const (
	StatusDraft           = "draft"
	StatusPending         = "pending"
	StatusReviewedBidang  = "reviewed_bidang"
	StatusReviewedProgram = "reviewed_program"
	StatusReviewedTU      = "reviewed_tu"
	StatusApproved        = "approved"
	StatusReviewedPIC     = "reviewed_pic"
	StatusRealized        = "realized"
	StatusRejected        = "rejected"
)

// Request categories. ReceiptOnlyCategories in the workflow policy decides
// which SPJ documents each category requires.
const (
	CategoryKonsumsi    = "Konsumsi & Rapat"
	CategoryPerjadin    = "Perjalanan Dinas"
	CategoryPemeliharan = "Pemeliharaan"
	CategoryPeralatan   = "Peralatan Kantor"
	CategorySewa        = "Sewa"
	CategoryLainLain    = "Lain-lain"
)

// DepartmentList stores a set of department names as JSONB. A user may
// belong to several organisational units, and a request always carries the
// department list of its requester.
type DepartmentList []string

func (d DepartmentList) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DepartmentList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, d)
}

// NormalizeDepartment canonicalises a department name for matching.
func NormalizeDepartment(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Contains reports whether the list carries the given department name,
// matched case-insensitively after trimming.
func (d DepartmentList) Contains(name string) bool {
	n := NormalizeDepartment(name)
	for _, dep := range d {
		if NormalizeDepartment(dep) == n {
			return true
		}
	}
	return false
}

// Intersects reports whether the two lists share at least one department.
func (d DepartmentList) Intersects(other DepartmentList) bool {
	for _, dep := range other {
		if d.Contains(dep) {
			return true
		}
	}
	return false
}

// CalculationItem is one volume/price line of a request. Jumlah is the line
// subtotal; the RO/komponen/subkomponen codes tie the line to a budget
// ceiling allocation.
type CalculationItem struct {
	Uraian          string  `json:"uraian"`
	Volume          float64 `json:"volume"`
	Satuan          string  `json:"satuan"`
	HargaSatuan     float64 `json:"hargaSatuan"`
	Jumlah          float64 `json:"jumlah"`
	KodeRO          string  `json:"kodeRo"`
	KodeKomponen    string  `json:"kodeKomponen"`
	KodeSubKomponen string  `json:"kodeSubKomponen"`
}

// CalculationItems stores the breakdown as JSONB.
type CalculationItems []CalculationItem

func (c CalculationItems) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *CalculationItems) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, c)
}

// BudgetRequest is one proposed expenditure moving through the approval
// chain.
type BudgetRequest struct {
	gorm.Model
	Title            string           `json:"title"`
	Category         string           `json:"category"`
	UserID           uint             `json:"userId"`
	User             User             `json:"user" gorm:"foreignKey:UserID"`
	RequesterName    string           `json:"requesterName"`
	Departments      DepartmentList   `json:"departments" gorm:"type:jsonb"`
	Location         string           `json:"location"`
	ExecutionDate    *time.Time       `json:"executionDate"`
	DurationDays     int              `json:"durationDays"`
	Description      string           `json:"description"`
	Amount           float64          `json:"amount"`
	CalculationItems CalculationItems `json:"calculationItems" gorm:"type:jsonb"`
	Status           string           `json:"status" gorm:"default:'pending'"`

	// One note field per approval stage, so the requester can see which
	// stage objected or commented.
	CatatanBidang  string `json:"catatanBidang"`
	CatatanProgram string `json:"catatanProgram"`
	CatatanTU      string `json:"catatanTu"`
	CatatanPPK     string `json:"catatanPpk"`
	CatatanPIC     string `json:"catatanPic"`

	RealizationAmount *float64   `json:"realizationAmount"`
	RealizationDate   *time.Time `json:"realizationDate"`

	// SPJ completion documents.
	SppdFileUrl    string `json:"sppdFileUrl"`
	ReportFileUrl  string `json:"reportFileUrl"`
	ReceiptFileUrl string `json:"receiptFileUrl"`
}

// Recalculate restores the amount invariant: each item subtotal is
// volume x unit price and the request amount is the sum of the subtotals.
// The amount is never edited directly.
func (r *BudgetRequest) Recalculate() {
	var total float64
	for i := range r.CalculationItems {
		item := &r.CalculationItems[i]
		item.Jumlah = item.Volume * item.HargaSatuan
		total += item.Jumlah
	}
	r.Amount = total
}
