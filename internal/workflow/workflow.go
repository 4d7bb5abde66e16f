// Package workflow implements the approval state machine for budget
// requests: which role owns the current gate, which transition is legal
// next, and which side effects attach to it. Handlers consult this package
// and never re-encode the chain.
package workflow

import (
	"errors"
	"time"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Decision errors. All of them leave the request untouched; handlers map
// them to user-presentable responses.
var (
	ErrAccessDenied     = errors.New("access denied: you are not authorized to act on this request")
	ErrNoteRequired     = errors.New("a note is required when rejecting a request")
	ErrMissingDocuments = errors.New("required SPJ documents have not been uploaded")
	ErrInvalidAction    = errors.New("invalid workflow action")
)

// Stage note targets. Each rejection or approval note lands in the field of
// the stage that produced it.
const (
	NoteBidang  = "bidang"
	NoteProgram = "program"
	NoteTU      = "tu"
	NotePPK     = "ppk"
	NotePIC     = "pic"
)

// gate is one row of the approval table: the role owning a status, the
// forward target and the side effects of passing it.
type gate struct {
	role         string
	next         string
	noteField    string
	deptScoped   bool
	requiresDocs bool
	realizes     bool
}

// gates maps each actionable status to its owner. The approved gate is
// special-cased in ownerFor: any PIC variant owns it, wilayah variants only
// within their department.
var gates = map[string]gate{
	models.StatusPending:          {role: models.RoleKabid, next: models.StatusReviewedBidang, noteField: NoteBidang, deptScoped: true},
	models.StatusReviewedBidang:   {role: models.RoleValidatorProgram, next: models.StatusReviewedProgram, noteField: NoteProgram},
	models.StatusReviewedProgram:  {role: models.RoleValidatorTU, next: models.StatusReviewedTU, noteField: NoteTU},
	models.StatusReviewedTU:       {role: models.RolePPK, next: models.StatusApproved, noteField: NotePPK},
	models.StatusApproved:         {role: "", next: models.StatusReviewedPIC, noteField: NotePIC, requiresDocs: true},
	models.StatusReviewedPIC:      {role: models.RoleBendahara, next: models.StatusRealized, noteField: NotePIC, realizes: true},
}

// noteFieldByRole picks the stage field a rejecting validator writes into.
var noteFieldByRole = map[string]string{
	models.RoleKabid:             NoteBidang,
	models.RoleValidatorProgram:  NoteProgram,
	models.RoleValidatorTU:       NoteTU,
	models.RolePPK:               NotePPK,
	models.RolePICVerifikator:    NotePIC,
	models.RolePICTU:             NotePIC,
	models.RolePICWilayah1:       NotePIC,
	models.RolePICWilayah2:       NotePIC,
	models.RolePICWilayah3:       NotePIC,
	models.RoleBendahara:         NotePIC,
}

// Engine evaluates transitions against the injected office policy.
type Engine struct {
	skipDepartments map[string]bool
	receiptOnly     map[string]bool
	deptCodes       map[string]string
}

func NewEngine(p config.WorkflowPolicy) *Engine {
	e := &Engine{
		skipDepartments: make(map[string]bool, len(p.SkipDepartments)),
		receiptOnly:     make(map[string]bool, len(p.ReceiptOnlyCategories)),
		deptCodes:       p.DepartmentCodes,
	}
	for _, d := range p.SkipDepartments {
		e.skipDepartments[models.NormalizeDepartment(d)] = true
	}
	for _, c := range p.ReceiptOnlyCategories {
		e.receiptOnly[models.NormalizeDepartment(c)] = true
	}
	return e
}

// IsSkipListed reports whether a request from these departments bypasses
// the department-head gate.
func (e *Engine) IsSkipListed(departments models.DepartmentList) bool {
	for _, d := range departments {
		if e.skipDepartments[models.NormalizeDepartment(d)] {
			return true
		}
	}
	return false
}

// gateFor returns the effective gate for a request. For skip-listed
// departments the program validator owns "pending" directly and the
// approval lands on reviewed_program, so no department-head action is ever
// needed.
func (e *Engine) gateFor(req *models.BudgetRequest) (gate, bool) {
	g, ok := gates[req.Status]
	if !ok {
		return gate{}, false
	}
	if req.Status == models.StatusPending && e.IsSkipListed(req.Departments) {
		return gate{
			role:      models.RoleValidatorProgram,
			next:      models.StatusReviewedProgram,
			noteField: NoteProgram,
		}, true
	}
	return g, true
}

// ownsGate reports whether the actor is the owner of the request's current
// gate, including department scoping.
func (e *Engine) ownsGate(g gate, req *models.BudgetRequest, actor *models.User) bool {
	if req.Status == models.StatusApproved {
		if !models.IsPIC(actor.Role) {
			return false
		}
		if models.IsDeptScopedPIC(actor.Role) {
			return actor.Departments.Intersects(req.Departments)
		}
		return true
	}
	if actor.Role != g.role {
		return false
	}
	if g.deptScoped {
		return actor.Departments.Intersects(req.Departments)
	}
	return true
}

// Input carries the actor-supplied parts of a decision.
type Input struct {
	Action            Action
	Note              string
	RealizationAmount *float64
	Now               time.Time
}

// Outcome is the computed transition. Apply is the only place that mutates
// a request from a workflow action.
type Outcome struct {
	NextStatus        string
	NoteField         string
	Note              string
	RealizationAmount *float64
	RealizationDate   *time.Time
}

// Decide validates the action against the gate table and computes the
// transition. It is pure: the request is not modified.
func (e *Engine) Decide(req *models.BudgetRequest, actor *models.User, in Input) (*Outcome, error) {
	g, actionable := e.gateFor(req)
	if !actionable {
		return nil, ErrAccessDenied
	}

	switch in.Action {
	case ActionApprove:
		if !e.ownsGate(g, req, actor) {
			return nil, ErrAccessDenied
		}
		out := &Outcome{NextStatus: g.next, NoteField: g.noteField, Note: in.Note}
		if g.requiresDocs {
			if missing := e.MissingDocuments(req); len(missing) > 0 {
				return nil, ErrMissingDocuments
			}
		}
		if g.realizes {
			amount := req.Amount
			if in.RealizationAmount != nil {
				amount = *in.RealizationAmount
			}
			now := in.Now
			out.RealizationAmount = &amount
			out.RealizationDate = &now
		}
		return out, nil

	case ActionReject:
		noteField, isValidator := noteFieldByRole[actor.Role]
		if !isValidator {
			return nil, ErrAccessDenied
		}
		// Department-scoped roles may only reject within their scope.
		if actor.Role == models.RoleKabid || models.IsDeptScopedPIC(actor.Role) {
			if !actor.Departments.Intersects(req.Departments) {
				return nil, ErrAccessDenied
			}
		}
		if in.Note == "" {
			return nil, ErrNoteRequired
		}
		return &Outcome{NextStatus: models.StatusRejected, NoteField: noteField, Note: in.Note}, nil

	default:
		return nil, ErrInvalidAction
	}
}

// Apply writes the outcome onto the request.
func (o *Outcome) Apply(req *models.BudgetRequest) {
	req.Status = o.NextStatus
	if o.Note != "" {
		switch o.NoteField {
		case NoteBidang:
			req.CatatanBidang = o.Note
		case NoteProgram:
			req.CatatanProgram = o.Note
		case NoteTU:
			req.CatatanTU = o.Note
		case NotePPK:
			req.CatatanPPK = o.Note
		case NotePIC:
			req.CatatanPIC = o.Note
		}
	}
	if o.RealizationAmount != nil {
		req.RealizationAmount = o.RealizationAmount
	}
	if o.RealizationDate != nil {
		req.RealizationDate = o.RealizationDate
	}
}

// MissingDocuments lists the SPJ documents still absent for the
// approved -> reviewed_pic transition. Receipt-only categories need just a
// receipt; everything else needs SPPD, report and receipt.
func (e *Engine) MissingDocuments(req *models.BudgetRequest) []string {
	var missing []string
	if !e.receiptOnly[models.NormalizeDepartment(req.Category)] {
		if req.SppdFileUrl == "" {
			missing = append(missing, "sppd")
		}
		if req.ReportFileUrl == "" {
			missing = append(missing, "report")
		}
	}
	if req.ReceiptFileUrl == "" {
		missing = append(missing, "receipt")
	}
	return missing
}

// WatchedStatus is the inverse of the gate table: the status a validator
// role is waiting on. The second result is false for non-validator roles.
func (e *Engine) WatchedStatus(role string) (string, bool) {
	switch role {
	case models.RoleKabid:
		return models.StatusPending, true
	case models.RoleValidatorProgram:
		return models.StatusReviewedBidang, true
	case models.RoleValidatorTU:
		return models.StatusReviewedProgram, true
	case models.RolePPK:
		return models.StatusReviewedTU, true
	case models.RolePICVerifikator, models.RolePICTU,
		models.RolePICWilayah1, models.RolePICWilayah2, models.RolePICWilayah3:
		return models.StatusApproved, true
	case models.RoleBendahara:
		return models.StatusReviewedPIC, true
	}
	return "", false
}

// CanActOn reports whether the actor currently owns the request's gate.
// List views use it to decide whether to show the action buttons.
func (e *Engine) CanActOn(req *models.BudgetRequest, actor *models.User) bool {
	g, ok := e.gateFor(req)
	if !ok {
		return false
	}
	return e.ownsGate(g, req, actor)
}
