package models

import "time"

// VerificationCode is a one-time login code delivered by SMS, or by email
// when no phone is on file. Codes are stored hashed; a row is dead once
// Used is set or ExpiresAt passes.
type VerificationCode struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	DNI         string `gorm:"size:8;index" json:"dni"`
	CodeHash    string `gorm:"size:128" json:"-"`
	Destination string `gorm:"size:120" json:"destination"` // phone number or email address
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Used        bool `gorm:"default:false"`
}

func (VerificationCode) TableName() string { return "verification_codes" }
