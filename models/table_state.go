package models

import "time"

// AssignmentEntry satu baris riwayat penugasan pada projection
type AssignmentEntry struct {
	StaffID    uint      `json:"staff_id"`
	AssignedAt time.Time `json:"assigned_at"`
	Reason     string    `json:"reason,omitempty"`
}

// TableState read-model denormalisasi per meja. Bukan sumber kebenaran:
// hanya ProjectionService dan Reconciler yang boleh menulis baris ini.
type TableState struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	TenantID         uint              `gorm:"not null;uniqueIndex:idx_tenant_state_table" json:"tenant_id"`
	TableNumber      string            `gorm:"type:varchar(50);not null;uniqueIndex:idx_tenant_state_table" json:"table_number"`
	Status           string            `gorm:"type:varchar(50);not null;default:'available'" json:"status"`
	PrimaryStaffID   *uint             `gorm:"index" json:"primary_staff_id,omitempty"`
	AssistingStaffID []uint            `gorm:"serializer:json" json:"assisting_staff_ids,omitempty"`
	ActiveSessionID  *uint             `gorm:"index" json:"active_session_id,omitempty"`
	AssignmentLog    []AssignmentEntry `gorm:"serializer:json" json:"assignment_log,omitempty"`
	CreatedAt        time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null" json:"updated_at"`
}
