// Package stats aggregates budget requests against department ceilings:
// dashboard totals, the monthly trend, category composition and
// per-allocation-line utilization. Sums accumulate through decimals and
// round once at the edge so repeated aggregation does not drift.
package stats

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

// NearExhaustedPercent flags allocation lines close to their ceiling.
const NearExhaustedPercent = 90.0

// committedStatuses is the "money committed" set: requests counted against
// ceilings and the approved-amount total.
var committedStatuses = map[string]bool{
	models.StatusApproved:    true,
	models.StatusReviewedPIC: true,
	models.StatusRealized:    true,
}

// resolvedStatuses marks requests no longer waiting on anyone.
var resolvedStatuses = map[string]bool{
	models.StatusApproved:    true,
	models.StatusReviewedPIC: true,
	models.StatusRealized:    true,
	models.StatusRejected:    true,
}

type MonthBucket struct {
	Month    int     `json:"month"`
	Proposed float64 `json:"proposed"`
	Realized float64 `json:"realized"`
}

type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type DepartmentSummary struct {
	Department   string         `json:"department"`
	Ceiling      float64        `json:"ceiling"`
	Proposed     float64        `json:"proposed"`
	Realized     float64        `json:"realized"`
	Remaining    float64        `json:"remaining"`
	StatusCounts map[string]int `json:"statusCounts"`
}

type Summary struct {
	TotalAmount        float64             `json:"totalAmount"`
	TotalCount         int                 `json:"totalCount"`
	PendingCount       int                 `json:"pendingCount"`
	ApprovedAmount     float64             `json:"approvedAmount"`
	TotalRealized      float64             `json:"totalRealized"`
	RejectedCount      int                 `json:"rejectedCount"`
	MonthlyTrend       [12]MonthBucket     `json:"monthlyTrend"`
	CategoryBreakdown  []CategoryAmount    `json:"categoryBreakdown"`
	Departments        []DepartmentSummary `json:"departments"`
	TotalCeiling       float64             `json:"totalCeiling"`
	RealizationPercent float64             `json:"realizationPercent"`
}

// Range is the creation-date filter; DefaultRange covers the current
// calendar year.
type Range struct {
	From time.Time
	To   time.Time
}

func DefaultRange(now time.Time) Range {
	return Range{
		From: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()),
		To:   time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, now.Location()),
	}
}

func (r Range) contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// inScope reports whether a request belongs to the viewer's department
// scope. A nil scope means the global view.
func inScope(req *models.BudgetRequest, scope models.DepartmentList) bool {
	if scope == nil {
		return true
	}
	return scope.Intersects(req.Departments)
}

// primaryDepartment picks the department a request is rolled up under.
func primaryDepartment(req *models.BudgetRequest) string {
	if len(req.Departments) > 0 {
		return req.Departments[0]
	}
	return "(tanpa bidang)"
}

func realizedAmount(req *models.BudgetRequest) float64 {
	if req.Status == models.StatusRealized && req.RealizationAmount != nil {
		return *req.RealizationAmount
	}
	return 0
}

// Compute aggregates the snapshot into the dashboard summary. Requests are
// filtered to the department scope and the creation-date range; ceilings
// are expected to be pre-filtered to the target year.
func Compute(requests []models.BudgetRequest, ceilings []models.BudgetCeiling, scope models.DepartmentList, rng Range) Summary {
	s := Summary{}
	for m := range s.MonthlyTrend {
		s.MonthlyTrend[m].Month = m + 1
	}

	totalAmount := decimal.Zero
	approvedAmount := decimal.Zero
	totalRealized := decimal.Zero
	trendProposed := make([]decimal.Decimal, 12)
	trendRealized := make([]decimal.Decimal, 12)
	byCategory := make(map[string]decimal.Decimal)
	categoryOrder := []string{}

	type deptAcc struct {
		proposed decimal.Decimal
		realized decimal.Decimal
		counts   map[string]int
	}
	byDept := make(map[string]*deptAcc)
	deptOrder := []string{}
	deptFor := func(name string) *deptAcc {
		key := models.NormalizeDepartment(name)
		if acc, ok := byDept[key]; ok {
			return acc
		}
		acc := &deptAcc{counts: make(map[string]int)}
		byDept[key] = acc
		deptOrder = append(deptOrder, name)
		return acc
	}

	for i := range requests {
		req := &requests[i]
		if !inScope(req, scope) || !rng.contains(req.CreatedAt) {
			continue
		}

		amount := decimal.NewFromFloat(req.Amount)
		realized := decimal.NewFromFloat(realizedAmount(req))

		s.TotalCount++
		totalAmount = totalAmount.Add(amount)
		if !resolvedStatuses[req.Status] {
			s.PendingCount++
		}
		if committedStatuses[req.Status] {
			approvedAmount = approvedAmount.Add(amount)
		}
		if req.Status == models.StatusRejected {
			s.RejectedCount++
		}
		totalRealized = totalRealized.Add(realized)

		m := int(req.CreatedAt.Month()) - 1
		trendProposed[m] = trendProposed[m].Add(amount)
		trendRealized[m] = trendRealized[m].Add(realized)

		catAmount := amount
		if req.Status == models.StatusRealized {
			catAmount = realized
		}
		if _, seen := byCategory[req.Category]; !seen {
			categoryOrder = append(categoryOrder, req.Category)
		}
		byCategory[req.Category] = byCategory[req.Category].Add(catAmount)

		acc := deptFor(primaryDepartment(req))
		acc.counts[req.Status]++
		if req.Status != models.StatusRejected && req.Status != models.StatusDraft {
			acc.proposed = acc.proposed.Add(amount)
		}
		acc.realized = acc.realized.Add(realized)
	}

	// Ceiling totals per department; departments with a ceiling but no
	// requests still appear in the rollup.
	ceilingByDept := make(map[string]decimal.Decimal)
	totalCeiling := decimal.Zero
	for i := range ceilings {
		c := &ceilings[i]
		if scope != nil && !scope.Contains(c.Department) {
			continue
		}
		amount := decimal.NewFromFloat(c.Amount)
		totalCeiling = totalCeiling.Add(amount)
		key := models.NormalizeDepartment(c.Department)
		if _, ok := byDept[key]; !ok {
			deptFor(c.Department)
		}
		ceilingByDept[key] = ceilingByDept[key].Add(amount)
	}

	for _, name := range deptOrder {
		key := models.NormalizeDepartment(name)
		acc := byDept[key]
		ceiling := ceilingByDept[key]
		remaining := ceiling.Sub(acc.proposed)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		s.Departments = append(s.Departments, DepartmentSummary{
			Department:   name,
			Ceiling:      ceiling.InexactFloat64(),
			Proposed:     acc.proposed.InexactFloat64(),
			Realized:     acc.realized.InexactFloat64(),
			Remaining:    remaining.InexactFloat64(),
			StatusCounts: acc.counts,
		})
	}

	for _, cat := range categoryOrder {
		if byCategory[cat].IsZero() {
			continue
		}
		s.CategoryBreakdown = append(s.CategoryBreakdown, CategoryAmount{
			Category: cat,
			Amount:   byCategory[cat].InexactFloat64(),
		})
	}

	for m := 0; m < 12; m++ {
		s.MonthlyTrend[m].Proposed = trendProposed[m].InexactFloat64()
		s.MonthlyTrend[m].Realized = trendRealized[m].InexactFloat64()
	}

	s.TotalAmount = totalAmount.InexactFloat64()
	s.ApprovedAmount = approvedAmount.InexactFloat64()
	s.TotalRealized = totalRealized.InexactFloat64()
	s.TotalCeiling = totalCeiling.InexactFloat64()
	if totalCeiling.IsPositive() {
		s.RealizationPercent = totalRealized.
			Div(totalCeiling).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
	}
	return s
}

// LineUtilization is the consumption of one ceiling allocation line.
type LineUtilization struct {
	CeilingID     uint    `json:"ceilingId"`
	Spent         float64 `json:"spent"`
	Remaining     float64 `json:"remaining"`
	Percent       float64 `json:"percent"`
	NearExhausted bool    `json:"nearExhausted"`
}

// Utilization sums the calculation-item subtotals matching the ceiling's
// (department, RO, komponen, subkomponen) key across money-committed
// requests of that department.
func Utilization(c *models.BudgetCeiling, requests []models.BudgetRequest) LineUtilization {
	spent := decimal.Zero
	for i := range requests {
		req := &requests[i]
		if !committedStatuses[req.Status] || !req.Departments.Contains(c.Department) {
			continue
		}
		for j := range req.CalculationItems {
			item := &req.CalculationItems[j]
			if item.KodeRO != c.KodeRO ||
				item.KodeKomponen != c.KodeKomponen ||
				item.KodeSubKomponen != c.KodeSubKomponen {
				continue
			}
			spent = spent.Add(decimal.NewFromFloat(item.Jumlah))
		}
	}

	ceiling := decimal.NewFromFloat(c.Amount)
	u := LineUtilization{
		CeilingID: c.ID,
		Spent:     spent.InexactFloat64(),
		Remaining: ceiling.Sub(spent).InexactFloat64(),
	}
	if ceiling.IsPositive() {
		u.Percent = spent.Div(ceiling).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	u.NearExhausted = u.Percent >= NearExhaustedPercent
	return u
}
