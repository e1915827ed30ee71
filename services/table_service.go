package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-seating/events"
	"github.com/yeremiapane/restaurant-seating/models"
	"github.com/yeremiapane/restaurant-seating/utils"
	"gorm.io/gorm"
)

// Status meja
const (
	TableStatusAvailable   = "available"
	TableStatusOccupied    = "occupied"
	TableStatusReserved    = "reserved"
	TableStatusCleaning    = "cleaning"
	TableStatusMaintenance = "maintenance"
)

var validTableStatus = map[string]bool{
	TableStatusAvailable:   true,
	TableStatusOccupied:    true,
	TableStatusReserved:    true,
	TableStatusCleaning:    true,
	TableStatusMaintenance: true,
}

// TableService registry kanonik meja: identitas, kapasitas, topologi kombinasi
type TableService struct {
	db         *gorm.DB
	projection *ProjectionService
}

func NewTableService(db *gorm.DB, projection *ProjectionService) *TableService {
	return &TableService{db: db, projection: projection}
}

type CreateTableInput struct {
	TableNumber  string   `json:"table_number" binding:"required"`
	DisplayName  string   `json:"display_name"`
	TableType    string   `json:"table_type"`
	Floor        string   `json:"floor"`
	Section      string   `json:"section"`
	PosX         int      `json:"pos_x"`
	PosY         int      `json:"pos_y"`
	MinCapacity  int      `json:"min_capacity"`
	MaxCapacity  int      `json:"max_capacity" binding:"required"`
	CombinesWith []string `json:"combines_with"`
}

// CreateTable menambahkan meja baru untuk tenant
func (s *TableService) CreateTable(tenantID uint, in CreateTableInput) (*models.Table, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	number := utils.NormalizeTableNumber(in.TableNumber)
	if number == "" {
		return nil, ErrTableNumberEmpty
	}

	if in.MinCapacity <= 0 {
		in.MinCapacity = 1
	}
	if in.MaxCapacity <= 0 || in.MinCapacity > in.MaxCapacity {
		return nil, ErrInvalidCapacity
	}

	var count int64
	if err := s.db.Model(&models.Table{}).
		Where("tenant_id = ? AND table_number = ?", tenantID, number).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateTableNumber
	}

	combines := make([]string, 0, len(in.CombinesWith))
	for _, cw := range in.CombinesWith {
		cw = utils.NormalizeTableNumber(cw)
		if cw != "" && cw != number {
			combines = append(combines, cw)
		}
	}

	table := models.Table{
		TenantID:     tenantID,
		TableNumber:  number,
		TableUID:     uuid.NewString(),
		DisplayName:  in.DisplayName,
		TableType:    in.TableType,
		Floor:        in.Floor,
		Section:      in.Section,
		PosX:         in.PosX,
		PosY:         in.PosY,
		MinCapacity:  in.MinCapacity,
		MaxCapacity:  in.MaxCapacity,
		Capacity:     in.MaxCapacity,
		Status:       TableStatusAvailable,
		IsActive:     true,
		CombinesWith: combines,
	}
	if table.DisplayName == "" {
		table.DisplayName = "Table " + number
	}
	if table.TableType == "" {
		table.TableType = "regular"
	}

	if err := s.db.Create(&table).Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("New table created: %s (tenant=%d, capacity=%d)",
		table.TableNumber, tenantID, table.Capacity)
	return &table, nil
}

// GetTable mengambil satu meja berdasarkan nomor (sudah dinormalisasi)
func (s *TableService) GetTable(tenantID uint, tableNumber string) (*models.Table, error) {
	var table models.Table
	err := s.db.Where("tenant_id = ? AND table_number = ?",
		tenantID, utils.NormalizeTableNumber(tableNumber)).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ListTables menampilkan meja milik tenant, opsional difilter status
func (s *TableService) ListTables(tenantID uint, status string) ([]models.Table, error) {
	q := s.db.Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var tables []models.Table
	if err := q.Order("table_number").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// UpdateStatus mengubah status meja. Meninggalkan occupied ditolak selama
// masih ada dining session aktif; kembali ke available membersihkan
// referensi staff/session pada record meja.
func (s *TableService) UpdateStatus(tenantID uint, tableNumber, newStatus, reason string) (*models.Table, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}
	if !validTableStatus[newStatus] {
		return nil, ErrInvalidStatus
	}

	table, err := s.GetTable(tenantID, tableNumber)
	if err != nil {
		return nil, err
	}

	if table.IsCombined && !table.IsMainTable {
		return nil, ErrSubTableLocked
	}

	if table.Status == TableStatusOccupied && newStatus != TableStatusOccupied {
		var active int64
		if err := s.db.Model(&models.DiningSession{}).
			Where("tenant_id = ? AND table_number = ? AND status = ?",
				tenantID, table.TableNumber, SessionStatusActive).
			Count(&active).Error; err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, ErrSessionAlreadyActive
		}
	}

	table.Status = newStatus
	if newStatus == TableStatusAvailable {
		table.CurrentStaffID = nil
		table.CurrentSessionID = nil
	}
	if err := s.db.Save(table).Error; err != nil {
		return nil, err
	}

	s.projection.Rebuild(tenantID, table.TableNumber)
	events.BroadcastTableStatusUpdated(table.TableNumber, table.Status)
	if newStatus == TableStatusAvailable {
		events.BroadcastTableReleased(table.TableNumber)
	}

	utils.InfoLogger.Printf("Table %s status changed to %s (reason=%s)",
		table.TableNumber, table.Status, reason)
	return table, nil
}

// Combine menggabungkan beberapa meja di bawah satu meja utama.
// Semua partisipan divalidasi dulu sebelum ada satupun yang dimutasi.
func (s *TableService) Combine(tenantID uint, mainNumber string, subNumbers []string, staffID uint, arrangement string) (*models.Table, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	main, err := s.GetTable(tenantID, mainNumber)
	if err != nil {
		return nil, err
	}
	if len(main.CombinesWith) == 0 {
		return nil, ErrNotCombinable
	}
	if main.IsCombined {
		return nil, ErrAlreadyCombined
	}
	if main.Status != TableStatusAvailable {
		return nil, fmt.Errorf("%w: main table %s is %s", ErrTableNotAvailable, main.TableNumber, main.Status)
	}

	seen := map[string]bool{}
	subs := make([]*models.Table, 0, len(subNumbers))
	for _, raw := range subNumbers {
		number := utils.NormalizeTableNumber(raw)
		if number == main.TableNumber {
			return nil, ErrSelfCombination
		}
		if seen[number] {
			continue
		}
		seen[number] = true

		sub, err := s.GetTable(tenantID, number)
		if err != nil {
			return nil, fmt.Errorf("%w: sub-table %s", ErrTableNotFound, number)
		}
		// Kombinasi harus simetris: keduanya saling mencantumkan
		if !containsTableNumber(main.CombinesWith, sub.TableNumber) ||
			!containsTableNumber(sub.CombinesWith, main.TableNumber) {
			return nil, fmt.Errorf("%w: %s and %s", ErrNotReciprocal, main.TableNumber, sub.TableNumber)
		}
		if sub.IsCombined {
			return nil, fmt.Errorf("%w: sub-table %s", ErrAlreadyCombined, sub.TableNumber)
		}
		if sub.Status != TableStatusAvailable {
			return nil, fmt.Errorf("%w: sub-table %s is %s", ErrTableNotAvailable, sub.TableNumber, sub.Status)
		}
		subs = append(subs, sub)
	}
	if len(subs) == 0 {
		return nil, ErrTableNumberEmpty
	}

	totalCapacity := main.Capacity
	refs := make([]models.SubTableRef, 0, len(subs))
	for _, sub := range subs {
		totalCapacity += sub.Capacity
		refs = append(refs, models.SubTableRef{TableID: sub.ID, TableNumber: sub.TableNumber})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		original := main.Capacity
		main.IsCombined = true
		main.IsMainTable = true
		main.SubTables = refs
		main.OriginalCapacity = &original
		main.TotalCapacity = totalCapacity
		main.Capacity = totalCapacity
		main.Arrangement = arrangement
		if err := tx.Save(main).Error; err != nil {
			return err
		}

		for _, sub := range subs {
			sub.IsCombined = true
			sub.IsMainTable = false
			sub.MainTableID = &main.ID
			// Status occupied supaya sub-meja tidak bisa diduduki terpisah
			sub.Status = TableStatusOccupied
			if err := tx.Save(sub).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.projection.Rebuild(tenantID, main.TableNumber)
	for _, sub := range subs {
		s.projection.Rebuild(tenantID, sub.TableNumber)
		events.BroadcastTableStatusUpdated(sub.TableNumber, sub.Status)
	}
	events.BroadcastTableStatusUpdated(main.TableNumber, main.Status)

	utils.InfoLogger.Printf("Table %s combined with %d sub-tables by staff %d (capacity=%d)",
		main.TableNumber, len(subs), staffID, main.TotalCapacity)
	return main, nil
}

// Split membubarkan kombinasi. Dipanggil pada sub-meja akan didelegasikan
// ke meja utamanya; sub-meja tidak bisa melepaskan diri sendiri.
func (s *TableService) Split(tenantID uint, tableNumber string, staffID uint) (*models.Table, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	table, err := s.GetTable(tenantID, tableNumber)
	if err != nil {
		return nil, err
	}
	if !table.IsCombined {
		return nil, ErrNotCombined
	}

	if !table.IsMainTable {
		if table.MainTableID == nil {
			return nil, ErrNotCombined
		}
		var main models.Table
		if err := s.db.First(&main, *table.MainTableID).Error; err != nil {
			return nil, ErrTableNotFound
		}
		return s.Split(tenantID, main.TableNumber, staffID)
	}

	subNumbers := make([]string, 0, len(table.SubTables))
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, ref := range table.SubTables {
			var sub models.Table
			if err := tx.First(&sub, ref.TableID).Error; err != nil {
				return err
			}
			sub.IsCombined = false
			sub.IsMainTable = false
			sub.MainTableID = nil
			sub.Status = TableStatusAvailable
			if err := tx.Save(&sub).Error; err != nil {
				return err
			}
			subNumbers = append(subNumbers, sub.TableNumber)
		}

		table.IsCombined = false
		table.IsMainTable = false
		table.SubTables = nil
		table.TotalCapacity = 0
		table.Arrangement = ""
		if table.OriginalCapacity != nil {
			table.Capacity = *table.OriginalCapacity
			table.OriginalCapacity = nil
		}
		return tx.Save(table).Error
	})
	if err != nil {
		return nil, err
	}

	s.projection.Rebuild(tenantID, table.TableNumber)
	for _, number := range subNumbers {
		s.projection.Rebuild(tenantID, number)
		events.BroadcastTableStatusUpdated(number, TableStatusAvailable)
	}

	utils.InfoLogger.Printf("Table %s split into %d tables by staff %d",
		table.TableNumber, len(subNumbers)+1, staffID)
	return table, nil
}

// Deactivate menonaktifkan meja secara logis; tidak pernah hard-delete
// selama masih occupied
func (s *TableService) Deactivate(tenantID uint, tableNumber string) (*models.Table, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	table, err := s.GetTable(tenantID, tableNumber)
	if err != nil {
		return nil, err
	}
	if table.Status == TableStatusOccupied {
		return nil, ErrTableOccupied
	}
	if table.IsCombined {
		return nil, ErrAlreadyCombined
	}

	table.IsActive = false
	if err := s.db.Save(table).Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Table %s deactivated", table.TableNumber)
	return table, nil
}

// BulkUpdateStatus mengubah status banyak meja sekaligus, hasilnya ringkasan
func (s *TableService) BulkUpdateStatus(tenantID uint, tableNumbers []string, newStatus, reason string) (int, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return 0, err
	}
	if !validTableStatus[newStatus] {
		return 0, ErrInvalidStatus
	}

	updated := 0
	for _, number := range tableNumbers {
		if _, err := s.UpdateStatus(tenantID, number, newStatus, reason); err != nil {
			utils.ErrorLogger.Printf("Bulk update skipped table %s: %v", number, err)
			continue
		}
		updated++
	}

	events.BroadcastMessage(events.Message{
		Event: events.EventTablesBulkUpdated,
		Data:  map[string]interface{}{"updated": updated, "status": newStatus},
	})
	return updated, nil
}

// DashboardStats menghitung jumlah meja per status
func (s *TableService) DashboardStats(tenantID uint) (map[string]int64, error) {
	stats := make(map[string]int64)
	var total int64
	for status := range validTableStatus {
		var count int64
		if err := s.db.Model(&models.Table{}).
			Where("tenant_id = ? AND status = ?", tenantID, status).
			Count(&count).Error; err != nil {
			return nil, err
		}
		stats[status] = count
		total += count
	}
	stats["total"] = total
	return stats, nil
}

func containsTableNumber(list []string, number string) bool {
	for _, item := range list {
		if utils.SameTableNumber(item, number) {
			return true
		}
	}
	return false
}
