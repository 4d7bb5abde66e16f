package workflow

import (
	"fmt"
	"time"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
)

var romanMonths = [...]string{
	"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII",
}

// RomanMonth renders a calendar month as the Roman numeral used on printed
// control numbers.
func RomanMonth(m time.Month) string {
	return romanMonths[int(m)-1]
}

// DepartmentCode resolves the abbreviation printed in the control number,
// falling back to the office-wide default for unmapped departments.
func (e *Engine) DepartmentCode(department string) string {
	if code, ok := e.deptCodes[department]; ok {
		return code
	}
	return config.DefaultDepartmentCode
}

// ControlNumber renders the human-readable kendali number
// SEQ/DEPTCODE/ROMAN-MONTH/YEAR. seq is the 1-based ordinal of the request
// among its department's requests within the creation month; it is computed
// at print time, not stored.
func (e *Engine) ControlNumber(seq int, department string, createdAt time.Time) string {
	return fmt.Sprintf("%03d/%s/%s/%d",
		seq,
		e.DepartmentCode(department),
		RomanMonth(createdAt.Month()),
		createdAt.Year(),
	)
}
