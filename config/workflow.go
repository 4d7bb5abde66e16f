package config

import (
	"os"
	"strings"
)

// WorkflowPolicy carries the named policy sets the approval engine is
// parameterised with. Defaults match the Pusdal LH Sulawesi-Maluku office
// layout; each set can be overridden with a comma-separated env variable.
type WorkflowPolicy struct {
	// SkipDepartments lists central/support departments whose requests do
	// not pass the department-head gate.
	SkipDepartments []string
	// ReceiptOnlyCategories lists categories for which only a receipt is
	// required as SPJ; every other category requires SPPD, report and
	// receipt.
	ReceiptOnlyCategories []string
	// DepartmentCodes maps department names to the abbreviation used in
	// the printed control number. Unmapped departments fall back to
	// DefaultDepartmentCode.
	DepartmentCodes map[string]string
}

const DefaultDepartmentCode = "BPLH"

func DefaultWorkflowPolicy() WorkflowPolicy {
	p := WorkflowPolicy{
		SkipDepartments: []string{
			"PUSDAL LH SUMA",
			"Tata Usaha",
			"Sekretariat",
		},
		ReceiptOnlyCategories: []string{
			"Pemeliharaan",
			"Peralatan Kantor",
			"Sewa",
			"Lain-lain",
		},
		DepartmentCodes: map[string]string{
			"Bidang Wilayah I":   "BW1",
			"Bidang Wilayah II":  "BW2",
			"Bidang Wilayah III": "BW3",
			"PUSDAL LH SUMA":     "PDL",
			"Tata Usaha":         "TU",
			"Sekretariat":        "SEK",
		},
	}

	if v := os.Getenv("SKIP_DEPARTMENTS"); v != "" {
		p.SkipDepartments = splitList(v)
	}
	if v := os.Getenv("RECEIPT_ONLY_CATEGORIES"); v != "" {
		p.ReceiptOnlyCategories = splitList(v)
	}
	return p
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
