package stats

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

func request(status string, amount float64, createdAt time.Time, departments ...string) models.BudgetRequest {
	return models.BudgetRequest{
		Model:       gorm.Model{CreatedAt: createdAt},
		Title:       "Pengajuan",
		Category:    models.CategoryKonsumsi,
		Departments: models.DepartmentList(departments),
		Amount:      amount,
		Status:      status,
	}
}

func TestComputeTotals(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	rng := DefaultRange(now)
	feb := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

	realizedAmt := 900000.0
	realized := request(models.StatusRealized, 1000000, feb, "Bidang Wilayah I")
	realized.RealizationAmount = &realizedAmt

	requests := []models.BudgetRequest{
		realized,
		request(models.StatusPending, 2000000, mar, "Bidang Wilayah I"),
		request(models.StatusRejected, 500000, mar, "Bidang Wilayah II"),
		request(models.StatusApproved, 750000, mar, "Bidang Wilayah II"),
	}
	ceilings := []models.BudgetCeiling{
		{Department: "Bidang Wilayah I", Amount: 5000000, Year: 2025},
		{Department: "Bidang Wilayah II", Amount: 3000000, Year: 2025},
	}

	s := Compute(requests, ceilings, nil, rng)

	if s.TotalCount != 4 {
		t.Errorf("TotalCount = %d, want 4", s.TotalCount)
	}
	if s.TotalAmount != 4250000 {
		t.Errorf("TotalAmount = %v, want 4250000", s.TotalAmount)
	}
	if s.PendingCount != 1 {
		t.Errorf("PendingCount = %d, want 1", s.PendingCount)
	}
	if s.RejectedCount != 1 {
		t.Errorf("RejectedCount = %d, want 1", s.RejectedCount)
	}
	// realized + approved count as committed money.
	if s.ApprovedAmount != 1750000 {
		t.Errorf("ApprovedAmount = %v, want 1750000", s.ApprovedAmount)
	}
	if s.TotalRealized != 900000 {
		t.Errorf("TotalRealized = %v, want 900000", s.TotalRealized)
	}
	if s.TotalCeiling != 8000000 {
		t.Errorf("TotalCeiling = %v, want 8000000", s.TotalCeiling)
	}

	if got := s.MonthlyTrend[1]; got.Proposed != 1000000 || got.Realized != 900000 {
		t.Errorf("February bucket = %+v, want proposed 1000000 realized 900000", got)
	}
	if got := s.MonthlyTrend[2]; got.Proposed != 3250000 {
		t.Errorf("March proposed = %v, want 3250000", got.Proposed)
	}
}

func TestComputeRangeFilter(t *testing.T) {
	feb := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	rng := Range{
		From: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, time.February, 28, 23, 59, 59, 0, time.UTC),
	}

	requests := []models.BudgetRequest{
		request(models.StatusPending, 1000000, feb, "Bidang Wilayah I"),
		request(models.StatusPending, 2000000, mar, "Bidang Wilayah I"),
	}

	s := Compute(requests, nil, nil, rng)
	if s.TotalAmount != 1000000 || s.TotalCount != 1 {
		t.Errorf("total = %v/%d, want only the February request", s.TotalAmount, s.TotalCount)
	}
	if s.MonthlyTrend[2].Proposed != 0 {
		t.Errorf("March bucket = %v, want 0 outside the range", s.MonthlyTrend[2].Proposed)
	}
}

func TestComputeDepartmentScope(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	rng := DefaultRange(now)

	requests := []models.BudgetRequest{
		request(models.StatusPending, 1000000, now, "Bidang Wilayah I"),
		request(models.StatusPending, 2000000, now, "Bidang Wilayah II"),
	}
	ceilings := []models.BudgetCeiling{
		{Department: "Bidang Wilayah I", Amount: 4000000, Year: 2025},
		{Department: "Bidang Wilayah II", Amount: 6000000, Year: 2025},
	}

	scope := models.DepartmentList{"Bidang Wilayah I"}
	s := Compute(requests, ceilings, scope, rng)

	if s.TotalAmount != 1000000 {
		t.Errorf("TotalAmount = %v, want the scoped department only", s.TotalAmount)
	}
	if s.TotalCeiling != 4000000 {
		t.Errorf("TotalCeiling = %v, want 4000000", s.TotalCeiling)
	}
	if len(s.Departments) != 1 || s.Departments[0].Department != "Bidang Wilayah I" {
		t.Fatalf("Departments = %+v, want only Bidang Wilayah I", s.Departments)
	}
	if s.Departments[0].Remaining != 3000000 {
		t.Errorf("Remaining = %v, want 3000000", s.Departments[0].Remaining)
	}
}

func TestComputeDepartmentRollup(t *testing.T) {
	now := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	rng := DefaultRange(now)

	requests := []models.BudgetRequest{
		request(models.StatusPending, 3000000, now, "Bidang Wilayah I"),
		request(models.StatusRejected, 9000000, now, "Bidang Wilayah I"),
	}
	ceilings := []models.BudgetCeiling{
		{Department: "Bidang Wilayah I", Amount: 2000000, Year: 2025},
	}

	s := Compute(requests, ceilings, nil, rng)
	dept := s.Departments[0]

	// Rejected requests do not count against the ceiling.
	if dept.Proposed != 3000000 {
		t.Errorf("Proposed = %v, want 3000000", dept.Proposed)
	}
	// Over-committed departments clamp to zero instead of going negative.
	if dept.Remaining != 0 {
		t.Errorf("Remaining = %v, want 0", dept.Remaining)
	}
	if dept.StatusCounts[models.StatusRejected] != 1 || dept.StatusCounts[models.StatusPending] != 1 {
		t.Errorf("StatusCounts = %v", dept.StatusCounts)
	}
}

func TestUtilization(t *testing.T) {
	ceiling := &models.BudgetCeiling{
		Department:      "Bidang Wilayah I",
		KodeRO:          "6382.QDC.003",
		KodeKomponen:    "051",
		KodeSubKomponen: "A",
		Amount:          1000,
		Year:            2025,
	}
	ceiling.ID = 9

	match := func(jumlah float64) models.CalculationItem {
		return models.CalculationItem{
			KodeRO:          "6382.QDC.003",
			KodeKomponen:    "051",
			KodeSubKomponen: "A",
			Jumlah:          jumlah,
		}
	}

	committed := request(models.StatusApproved, 600, time.Now(), "Bidang Wilayah I")
	committed.CalculationItems = models.CalculationItems{
		match(100),
		match(200),
		{KodeRO: "6382.QDC.004", Jumlah: 5000},
	}
	alsoCommitted := request(models.StatusRealized, 300, time.Now(), "Bidang Wilayah I")
	alsoCommitted.CalculationItems = models.CalculationItems{match(300)}
	stillPending := request(models.StatusPending, 400, time.Now(), "Bidang Wilayah I")
	stillPending.CalculationItems = models.CalculationItems{match(400)}
	otherDept := request(models.StatusApproved, 500, time.Now(), "Bidang Wilayah II")
	otherDept.CalculationItems = models.CalculationItems{match(500)}

	requests := []models.BudgetRequest{committed, alsoCommitted, stillPending, otherDept}

	t.Run("sums committed matching items", func(t *testing.T) {
		u := Utilization(ceiling, requests)
		if u.Spent != 600 {
			t.Errorf("Spent = %v, want 600", u.Spent)
		}
		if u.Remaining != 400 {
			t.Errorf("Remaining = %v, want 400", u.Remaining)
		}
		if u.Percent != 60 {
			t.Errorf("Percent = %v, want 60", u.Percent)
		}
		if u.NearExhausted {
			t.Error("60%% should not flag as near exhausted")
		}
	})

	t.Run("flags near-exhausted lines", func(t *testing.T) {
		low := *ceiling
		low.Amount = 650
		u := Utilization(&low, requests)
		if !u.NearExhausted {
			t.Errorf("Percent = %v, want near-exhausted flag", u.Percent)
		}
	})

	t.Run("zero ceiling yields zero percent", func(t *testing.T) {
		empty := *ceiling
		empty.Amount = 0
		u := Utilization(&empty, requests)
		if u.Percent != 0 || u.NearExhausted {
			t.Errorf("utilization = %+v, want zero percent without flag", u)
		}
	})
}
