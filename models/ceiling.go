package models

import "gorm.io/gorm"

// BudgetCeiling (pagu) is one allocation line for a
// (department, RO, komponen, subkomponen, year) key. The key is unique per
// year; upserts replace the amount.
type BudgetCeiling struct {
	gorm.Model
	Department      string  `json:"department" gorm:"uniqueIndex:idx_ceiling_key"`
	KodeRO          string  `json:"kodeRo" gorm:"uniqueIndex:idx_ceiling_key"`
	KodeKomponen    string  `json:"kodeKomponen" gorm:"uniqueIndex:idx_ceiling_key"`
	KodeSubKomponen string  `json:"kodeSubKomponen" gorm:"uniqueIndex:idx_ceiling_key"`
	Year            int     `json:"year" gorm:"uniqueIndex:idx_ceiling_key"`
	Amount          float64 `json:"amount"`
}
