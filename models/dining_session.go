package models

import "time"

type DiningSession struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	TenantID       uint   `gorm:"not null;index" json:"tenant_id"`
	TableNumber    string `gorm:"type:varchar(50);not null;index" json:"table_number"`
	PrimaryStaffID uint   `gorm:"not null;index" json:"primary_staff_id"`
	// WaiterName alias legacy untuk pembaca lama, diisi sama dengan primary staff
	WaiterName string `gorm:"type:varchar(100)" json:"waiter_name,omitempty"`

	GuestName string `gorm:"type:varchar(100)" json:"guest_name"`
	// Kontak disimpan terenkripsi; copy masked untuk tampilan, hash untuk pencarian
	GuestContactEncrypted string `gorm:"type:text" json:"-"`
	GuestContactMasked    string `gorm:"type:varchar(100)" json:"guest_contact,omitempty"`
	GuestContactHash      string `gorm:"type:varchar(64);index" json:"-"`

	Occupancy       int        `gorm:"not null;default:1" json:"occupancy"`
	Status          string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`

	OrderIDs    []uint  `gorm:"serializer:json" json:"order_ids"`
	TotalAmount float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`

	Handovers []Handover `gorm:"foreignKey:SessionID" json:"handovers,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Handover satu perpindahan tanggung jawab meja di tengah kunjungan
type Handover struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   uint      `gorm:"not null;index" json:"session_id"`
	FromStaffID uint      `gorm:"not null" json:"from_staff_id"`
	ToStaffID   uint      `gorm:"not null" json:"to_staff_id"`
	Reason      string    `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
