package models

import "gorm.io/gorm"

// PushSubscription stores one browser push endpoint per user session.
// Payload delivery is handled outside this service.
type PushSubscription struct {
	gorm.Model
	UserID   uint   `json:"userId" gorm:"index"`
	Endpoint string `json:"endpoint" gorm:"uniqueIndex"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}
