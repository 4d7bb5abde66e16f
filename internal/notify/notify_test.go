package notify

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/workflow"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

func gormModel(id uint) gorm.Model {
	return gorm.Model{ID: id}
}

func testDeriver() *Deriver {
	return NewDeriver(workflow.NewEngine(config.DefaultWorkflowPolicy()))
}

func request(id uint, userID uint, status string, updatedAt time.Time, departments ...string) models.BudgetRequest {
	req := models.BudgetRequest{
		Title:       "Perjalanan Dinas Manado",
		Category:    models.CategoryPerjadin,
		Departments: models.DepartmentList(departments),
		Status:      status,
	}
	req.ID = id
	req.UserID = userID
	req.UpdatedAt = updatedAt
	return req
}

func TestDeriveAggregateValidator(t *testing.T) {
	d := testDeriver()
	now := time.Date(2025, time.May, 20, 10, 0, 0, 0, time.UTC)
	kabid := &models.User{Role: models.RoleKabid, Departments: models.DepartmentList{"Bidang Wilayah I"}}
	kabid.ID = 1

	snapshot := []models.BudgetRequest{
		request(1, 5, models.StatusPending, now, "Bidang Wilayah I"),
		request(2, 6, models.StatusPending, now, "Bidang Wilayah I"),
		request(3, 5, models.StatusPending, now, "Bidang Wilayah II"),
		request(4, 5, models.StatusReviewedBidang, now, "Bidang Wilayah I"),
	}

	t.Run("counts only actionable requests", func(t *testing.T) {
		alerts := d.DeriveAggregate(kabid, snapshot, now)
		if len(alerts) != 1 {
			t.Fatalf("got %d alerts, want 1", len(alerts))
		}
		if alerts[0].Kind != AlertQueue || alerts[0].Count != 2 {
			t.Errorf("alert = %+v, want queue with count 2", alerts[0])
		}
	})

	t.Run("no queue means no alert", func(t *testing.T) {
		if alerts := d.DeriveAggregate(kabid, nil, now); alerts != nil {
			t.Errorf("got %v, want nil", alerts)
		}
	})

	t.Run("idempotent over the same snapshot", func(t *testing.T) {
		first := d.DeriveAggregate(kabid, snapshot, now)
		second := d.DeriveAggregate(kabid, snapshot, now)
		if len(first) != len(second) || first[0] != second[0] {
			t.Errorf("repeated derivation differs: %v vs %v", first, second)
		}
	})
}

func TestDeriveAggregateRequester(t *testing.T) {
	d := testDeriver()
	now := time.Date(2025, time.May, 20, 10, 0, 0, 0, time.UTC)
	staf := &models.User{Role: models.RoleStaf, Departments: models.DepartmentList{"Bidang Wilayah I"}}
	staf.ID = 5

	snapshot := []models.BudgetRequest{
		request(1, 5, models.StatusApproved, now.Add(-30*time.Minute), "Bidang Wilayah I"),
		request(2, 5, models.StatusRejected, now.Add(-time.Hour), "Bidang Wilayah I"),
		request(3, 5, models.StatusApproved, now.Add(-3*time.Hour), "Bidang Wilayah I"),
		request(4, 9, models.StatusApproved, now, "Bidang Wilayah I"),
		request(5, 5, models.StatusPending, now, "Bidang Wilayah I"),
	}

	alerts := d.DeriveAggregate(staf, snapshot, now)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2 (recent own approved + rejected)", len(alerts))
	}
	if alerts[0].Kind != AlertApproved || alerts[0].RequestID != 1 {
		t.Errorf("first alert = %+v, want approved_update for request 1", alerts[0])
	}
	if alerts[1].Kind != AlertRework || alerts[1].RequestID != 2 {
		t.Errorf("second alert = %+v, want needs_rework for request 2", alerts[1])
	}
}

func TestReactorClassification(t *testing.T) {
	engine := workflow.NewEngine(config.DefaultWorkflowPolicy())
	now := time.Now()

	update := func(id uint, userID uint, from, to string, departments ...string) ChangeEvent {
		oldReq := request(id, userID, from, now, departments...)
		newReq := request(id, userID, to, now, departments...)
		return ChangeEvent{Table: "budget_requests", Type: "UPDATE", Old: &oldReq, New: &newReq}
	}

	cases := []struct {
		name      string
		viewer    *models.User
		event     ChangeEvent
		wantTitle string
		wantToast bool
	}{
		{
			name:      "requester hears own updates first",
			viewer:    &models.User{Model: gormModel(5), Role: models.RoleKabid, Departments: models.DepartmentList{"Bidang Wilayah I"}},
			event:     update(1, 5, models.StatusPending, models.StatusRejected, "Bidang Wilayah I"),
			wantTitle: "Status Pengajuan Anda Berubah",
			wantToast: true,
		},
		{
			name:      "pic hears spj-ready requests",
			viewer:    &models.User{Model: gormModel(8), Role: models.RolePICWilayah1, Departments: models.DepartmentList{"Bidang Wilayah I"}},
			event:     update(2, 5, models.StatusReviewedTU, models.StatusApproved, "Bidang Wilayah I"),
			wantTitle: "Siap Verifikasi SPJ",
			wantToast: true,
		},
		{
			name:      "pic ignores other departments",
			viewer:    &models.User{Model: gormModel(8), Role: models.RolePICWilayah1, Departments: models.DepartmentList{"Bidang Wilayah I"}},
			event:     update(3, 5, models.StatusReviewedTU, models.StatusApproved, "Bidang Wilayah II"),
			wantToast: false,
		},
		{
			name:      "kabid hears new queue items",
			viewer:    &models.User{Model: gormModel(9), Role: models.RoleKabid, Departments: models.DepartmentList{"Bidang Wilayah II"}},
			event:     update(4, 5, models.StatusDraft, models.StatusPending, "Bidang Wilayah II"),
			wantTitle: "Berkas Baru Masuk",
			wantToast: true,
		},
		{
			name:      "validator hears requests reaching their gate",
			viewer:    &models.User{Model: gormModel(10), Role: models.RoleValidatorTU},
			event:     update(5, 5, models.StatusReviewedBidang, models.StatusReviewedProgram, "Bidang Wilayah I"),
			wantTitle: "Tugas Validasi Baru",
			wantToast: true,
		},
		{
			name:      "unrelated viewer hears nothing",
			viewer:    &models.User{Model: gormModel(11), Role: models.RoleStaf},
			event:     update(6, 5, models.StatusPending, models.StatusReviewedBidang, "Bidang Wilayah I"),
			wantToast: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReactor(engine, tc.viewer)
			toast, ok := r.React(tc.event)
			if ok != tc.wantToast {
				t.Fatalf("React ok = %v, want %v", ok, tc.wantToast)
			}
			if ok && toast.Title != tc.wantTitle {
				t.Errorf("title = %q, want %q", toast.Title, tc.wantTitle)
			}
		})
	}
}

func TestReactorDedupAndFiltering(t *testing.T) {
	engine := workflow.NewEngine(config.DefaultWorkflowPolicy())
	viewer := &models.User{Model: gormModel(5), Role: models.RoleStaf}
	now := time.Now()

	t.Run("duplicate delivery yields one toast", func(t *testing.T) {
		r := NewReactor(engine, viewer)
		oldReq := request(1, 5, models.StatusPending, now)
		newReq := request(1, 5, models.StatusRejected, now)
		ev := ChangeEvent{Table: "budget_requests", Type: "UPDATE", Old: &oldReq, New: &newReq}

		if _, ok := r.React(ev); !ok {
			t.Fatal("first delivery should produce a toast")
		}
		if _, ok := r.React(ev); ok {
			t.Error("redelivery should be suppressed")
		}
	})

	t.Run("same-status update is ignored", func(t *testing.T) {
		r := NewReactor(engine, viewer)
		req := request(2, 5, models.StatusPending, now)
		ev := ChangeEvent{Table: "budget_requests", Type: "UPDATE", Old: &req, New: &req}
		if _, ok := r.React(ev); ok {
			t.Error("no status change should mean no toast")
		}
	})

	t.Run("inserts are ignored", func(t *testing.T) {
		r := NewReactor(engine, viewer)
		req := request(3, 5, models.StatusPending, now)
		ev := ChangeEvent{Table: "budget_requests", Type: "INSERT", New: &req}
		if _, ok := r.React(ev); ok {
			t.Error("INSERT events should not toast")
		}
	})
}
