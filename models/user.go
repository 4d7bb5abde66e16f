package models

import "gorm.io/gorm"

// Roles form a closed set; users are created by an administrator, never by
// self-service signup.
const (
	RoleAdmin            = "admin"
	RoleStaf             = "staf"
	RoleKabid            = "kabid"
	RoleValidatorProgram = "validator_program"
	RoleValidatorTU      = "validator_tu"
	RolePPK              = "ppk"
	RolePICVerifikator   = "pic_verifikator"
	RolePICTU            = "pic_tu"
	RolePICWilayah1      = "pic_wilayah_1"
	RolePICWilayah2      = "pic_wilayah_2"
	RolePICWilayah3      = "pic_wilayah_3"
	RoleBendahara        = "bendahara"
	RoleKPA              = "kpa"
)

// User is one system account.
type User struct {
	gorm.Model
	NIP         string         `json:"nip" gorm:"unique;not null"`
	FullName    string         `json:"fullName"`
	Role        string         `json:"role" gorm:"not null"`
	Departments DepartmentList `json:"departments" gorm:"type:jsonb"`
	Phone       string         `json:"phone"`
	Password    string         `json:"-"`
}

// IsPIC reports whether the role verifies SPJ documents at the approved
// gate. The wilayah variants are department-scoped; the two generic PIC
// roles are not.
func IsPIC(role string) bool {
	switch role {
	case RolePICVerifikator, RolePICTU, RolePICWilayah1, RolePICWilayah2, RolePICWilayah3:
		return true
	}
	return false
}

// IsDeptScopedPIC reports whether the PIC variant only sees requests from
// its own department(s).
func IsDeptScopedPIC(role string) bool {
	switch role {
	case RolePICWilayah1, RolePICWilayah2, RolePICWilayah3:
		return true
	}
	return false
}

// IsGlobalViewer reports whether the role sees all departments on the
// dashboard and request lists.
func IsGlobalViewer(role string) bool {
	switch role {
	case RoleAdmin, RoleKPA, RoleValidatorProgram, RoleValidatorTU, RolePPK,
		RoleBendahara, RolePICVerifikator, RolePICTU:
		return true
	}
	return false
}
