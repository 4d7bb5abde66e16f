// Package notify derives the alert views shown to a user: the aggregate
// "N berkas menunggu" queue badge and the transient toasts produced by the
// realtime change feed. Derivation is pure over a request snapshot, so the
// hub and the HTTP handler share it.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/workflow"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

const (
	// RequesterWindow bounds how far back a requester's own updates are
	// reported as alerts.
	RequesterWindow = 120 * time.Minute
	// ToastDuration is how long a reactive toast stays on screen.
	ToastDuration = 7 * time.Second
)

// Alert kinds.
const (
	AlertQueue    = "queue"
	AlertApproved = "approved_update"
	AlertRework   = "needs_rework"
)

type Alert struct {
	Kind      string `json:"kind"`
	RequestID uint   `json:"requestId,omitempty"`
	Count     int    `json:"count,omitempty"`
	Status    string `json:"status,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

type Deriver struct {
	engine *workflow.Engine
}

func NewDeriver(e *workflow.Engine) *Deriver {
	return &Deriver{engine: e}
}

// DeriveAggregate computes the alert list for a viewer from a request
// snapshot. The same snapshot always yields the same list: validators get
// at most one queue summary, requesters get one alert per recently updated
// own request in snapshot order.
func (d *Deriver) DeriveAggregate(viewer *models.User, requests []models.BudgetRequest, now time.Time) []Alert {
	if _, isValidator := d.engine.WatchedStatus(viewer.Role); isValidator {
		count := 0
		for i := range requests {
			if d.engine.CanActOn(&requests[i], viewer) {
				count++
			}
		}
		if count == 0 {
			return nil
		}
		return []Alert{{
			Kind:    AlertQueue,
			Count:   count,
			Title:   "Berkas Menunggu Validasi",
			Message: fmt.Sprintf("%d berkas menunggu tindakan Anda", count),
		}}
	}

	var alerts []Alert
	cutoff := now.Add(-RequesterWindow)
	for i := range requests {
		req := &requests[i]
		if req.UserID != viewer.ID || req.UpdatedAt.Before(cutoff) {
			continue
		}
		switch req.Status {
		case models.StatusApproved, models.StatusReviewedPIC, models.StatusRealized:
			alerts = append(alerts, Alert{
				Kind:      AlertApproved,
				RequestID: req.ID,
				Status:    req.Status,
				Title:     "Pengajuan Disetujui",
				Message:   fmt.Sprintf("Pengajuan \"%s\" telah diproses ke status %s", req.Title, req.Status),
			})
		case models.StatusRejected:
			alerts = append(alerts, Alert{
				Kind:      AlertRework,
				RequestID: req.ID,
				Status:    req.Status,
				Title:     "Perlu Perbaikan",
				Message:   fmt.Sprintf("Pengajuan \"%s\" dikembalikan untuk diperbaiki", req.Title),
			})
		}
	}
	return alerts
}

// ChangeEvent is one realtime feed entry. Only status updates on the
// request table are classified; everything else is ignored.
type ChangeEvent struct {
	Table string                `json:"table"`
	Type  string                `json:"eventType"`
	Old   *models.BudgetRequest `json:"old,omitempty"`
	New   *models.BudgetRequest `json:"new,omitempty"`
}

// Toast is one transient per-event alert.
type Toast struct {
	RequestID  uint   `json:"requestId"`
	Status     string `json:"status"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	DurationMS int64  `json:"durationMs"`
}

// Reactor classifies feed events for one viewer session. Delivery is
// at-least-once and possibly reordered, so events are deduplicated by
// (request id, status) before a toast is produced.
type Reactor struct {
	engine *workflow.Engine
	viewer *models.User

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewReactor(e *workflow.Engine, viewer *models.User) *Reactor {
	return &Reactor{
		engine: e,
		viewer: viewer,
		seen:   make(map[string]struct{}),
	}
}

// React returns the toast for an event, or false when the event is not
// relevant to the viewer or was already seen.
func (r *Reactor) React(ev ChangeEvent) (*Toast, bool) {
	if ev.Type != "UPDATE" || ev.New == nil {
		return nil, false
	}
	if ev.Old != nil && ev.Old.Status == ev.New.Status {
		return nil, false
	}

	key := fmt.Sprintf("%d:%s", ev.New.ID, ev.New.Status)
	r.mu.Lock()
	if _, dup := r.seen[key]; dup {
		r.mu.Unlock()
		return nil, false
	}
	r.seen[key] = struct{}{}
	r.mu.Unlock()

	title, relevant := r.classify(ev.New)
	if !relevant {
		return nil, false
	}
	return &Toast{
		RequestID:  ev.New.ID,
		Status:     ev.New.Status,
		Title:      title,
		Message:    fmt.Sprintf("\"%s\" sekarang berstatus %s", ev.New.Title, ev.New.Status),
		DurationMS: ToastDuration.Milliseconds(),
	}, true
}

// classify applies the relevance rules in priority order.
func (r *Reactor) classify(req *models.BudgetRequest) (string, bool) {
	v := r.viewer

	// 1. The requester always hears about their own request.
	if req.UserID == v.ID {
		return "Status Pengajuan Anda Berubah", true
	}

	// 2. PIC roles hear about requests entering SPJ verification.
	if models.IsPIC(v.Role) && req.Status == models.StatusApproved {
		if !models.IsDeptScopedPIC(v.Role) || v.Departments.Intersects(req.Departments) {
			return "Siap Verifikasi SPJ", true
		}
		return "", false
	}

	// 3. Department heads hear about new queue items from their own
	// department.
	if v.Role == models.RoleKabid && req.Status == models.StatusPending &&
		v.Departments.Intersects(req.Departments) {
		return "Berkas Baru Masuk", true
	}

	// 4. Other validators hear about requests reaching their gate.
	if watched, ok := r.engine.WatchedStatus(v.Role); ok && req.Status == watched {
		return "Tugas Validasi Baru", true
	}

	return "", false
}
