package models

import "time"

// StaffSession satu periode duty untuk satu staff.
// Maksimal satu session aktif per staff (StartDuty menutup session lama).
type StaffSession struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TenantID       uint       `gorm:"not null;index" json:"tenant_id"`
	StaffID        uint       `gorm:"not null;index" json:"staff_id"`
	Device         string     `gorm:"type:varchar(100)" json:"device,omitempty"`
	Tables         []string   `gorm:"serializer:json" json:"tables"`
	IsActive       bool       `gorm:"not null;default:true;index" json:"is_active"`
	LoginAt        time.Time  `gorm:"not null" json:"login_at"`
	LastActivityAt time.Time  `gorm:"not null" json:"last_activity_at"`
	LogoutAt       *time.Time `json:"logout_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

// HasTable cek apakah session memegang nomor meja tsb
func (s *StaffSession) HasTable(tableNumber string) bool {
	for _, t := range s.Tables {
		if t == tableNumber {
			return true
		}
	}
	return false
}
