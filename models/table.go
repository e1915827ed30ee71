package models

import "time"

// SubTableRef referensi sub-meja yang tergabung, disimpan di meja utama.
// Daftar ini diturunkan oleh combine/split, tidak boleh diedit langsung.
type SubTableRef struct {
	TableID     uint   `json:"table_id"`
	TableNumber string `json:"table_number"`
}

type Table struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TenantID    uint   `gorm:"not null;uniqueIndex:idx_tenant_table_number" json:"tenant_id"`
	TableNumber string `gorm:"type:varchar(50);not null;uniqueIndex:idx_tenant_table_number" json:"table_number"`
	// TableUID identifier permanen (binding QR), tidak tergantung lokasi
	TableUID    string `gorm:"type:varchar(64);uniqueIndex" json:"table_uid"`
	DisplayName string `gorm:"type:varchar(100)" json:"display_name"`
	TableType   string `gorm:"type:varchar(50);default:'regular'" json:"table_type"`
	Floor       string `gorm:"type:varchar(50)" json:"floor"`
	Section     string `gorm:"type:varchar(50)" json:"section"`
	PosX        int    `json:"pos_x"`
	PosY        int    `json:"pos_y"`
	MinCapacity int    `gorm:"not null;default:1" json:"min_capacity"`
	MaxCapacity int    `gorm:"not null" json:"max_capacity"`
	Capacity    int    `gorm:"not null" json:"capacity"`
	Status      string `gorm:"type:varchar(50);not null;default:'available'" json:"status"`
	IsActive    bool   `gorm:"not null;default:true" json:"is_active"`

	// Topologi kombinasi
	CombinesWith     []string      `gorm:"serializer:json" json:"combines_with"`
	IsCombined       bool          `gorm:"not null;default:false" json:"is_combined"`
	IsMainTable      bool          `gorm:"not null;default:false" json:"is_main_table"`
	MainTableID      *uint         `gorm:"index" json:"main_table_id,omitempty"`
	SubTables        []SubTableRef `gorm:"serializer:json" json:"sub_tables,omitempty"`
	TotalCapacity    int           `json:"total_capacity"`
	OriginalCapacity *int          `json:"original_capacity,omitempty"`
	Arrangement      string        `gorm:"type:varchar(50)" json:"arrangement,omitempty"`

	// Referensi denormalisasi di record meja; dibersihkan saat kembali available
	CurrentStaffID   *uint `json:"current_staff_id,omitempty"`
	CurrentSessionID *uint `json:"current_session_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
