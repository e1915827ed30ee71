package models

import "time"

// Order aggregate milik service order; di sini hanya dibaca untuk
// melipat total ke DiningSession, plus stamp CustomerSessionID saat link.
type Order struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	TenantID          uint      `gorm:"not null;index" json:"tenant_id"`
	TableNumber       string    `gorm:"type:varchar(50);not null;index" json:"table_number"`
	CustomerSessionID *uint     `gorm:"index" json:"customer_session_id,omitempty"`
	Status            string    `gorm:"type:varchar(20);not null;default:'pending_payment'" json:"status"`
	Total             float64   `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}
