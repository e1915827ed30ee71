package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-seating/events"
	"github.com/yeremiapane/restaurant-seating/models"
	"github.com/yeremiapane/restaurant-seating/utils"
	"gorm.io/gorm"
)

// Status dining session: active -> payment_pending -> closed, tanpa loncat
const (
	SessionStatusActive         = "active"
	SessionStatusPaymentPending = "payment_pending"
	SessionStatusClosed         = "closed"
)

// Status order (milik service order, dibaca di boundary)
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCancelled      = "cancelled"
)

// DiningSessionService registry kunjungan tamu: satu record aktif per meja
type DiningSessionService struct {
	db         *gorm.DB
	projection *ProjectionService
	staff      *StaffSessionService
}

func NewDiningSessionService(db *gorm.DB, projection *ProjectionService, staff *StaffSessionService) *DiningSessionService {
	return &DiningSessionService{db: db, projection: projection, staff: staff}
}

type OpenSessionInput struct {
	GuestName    string `json:"guest_name"`
	GuestContact string `json:"guest_contact"`
	Occupancy    int    `json:"occupancy" binding:"required"`
}

// Open mendudukkan satu rombongan. Staff pemanggil harus sedang memegang
// meja tsb (dicek lewat projection), dan belum boleh ada session aktif lain
// untuk meja yang sama.
func (s *DiningSessionService) Open(tenantID uint, tableNumber string, staffID uint, in OpenSessionInput) (*models.DiningSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	number := utils.NormalizeTableNumber(tableNumber)

	var table models.Table
	err := s.db.Where("tenant_id = ? AND table_number = ?", tenantID, number).
		First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	if table.IsCombined && !table.IsMainTable {
		return nil, ErrSubTableLocked
	}
	if table.Status != TableStatusAvailable && table.Status != TableStatusReserved {
		return nil, fmt.Errorf("%w: table %s is %s", ErrTableNotAvailable, number, table.Status)
	}

	if in.Occupancy < 1 {
		return nil, ErrInvalidOccupancy
	}
	if in.Occupancy > table.Capacity {
		return nil, ErrOccupancyTooLarge
	}

	if err := s.requireAssigned(tenantID, number, staffID); err != nil {
		return nil, err
	}

	// Precondition last-validated-write-wins: penulis kedua gagal di sini
	// terhadap session yang sudah di-commit penulis pertama
	var active int64
	if err := s.db.Model(&models.DiningSession{}).
		Where("tenant_id = ? AND table_number = ? AND status = ?",
			tenantID, number, SessionStatusActive).
		Count(&active).Error; err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrSessionAlreadyActive
	}

	encrypted, err := utils.EncryptContact(in.GuestContact)
	if err != nil {
		return nil, err
	}

	session := models.DiningSession{
		TenantID:              tenantID,
		TableNumber:           number,
		PrimaryStaffID:        staffID,
		WaiterName:            fmt.Sprintf("staff-%d", staffID),
		GuestName:             in.GuestName,
		GuestContactEncrypted: encrypted,
		GuestContactMasked:    utils.MaskContact(in.GuestContact),
		GuestContactHash:      utils.HashContact(in.GuestContact),
		Occupancy:             in.Occupancy,
		Status:                SessionStatusActive,
		StartedAt:             time.Now(),
		OrderIDs:              []uint{},
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}

	// Order yang dibuat sebelum session ada ditarik masuk retroaktif
	if err := s.attachUnlinkedOrders(&session); err != nil {
		utils.ErrorLogger.Printf("Attach unlinked orders failed for table %s: %v", number, err)
	}

	table.Status = TableStatusOccupied
	table.CurrentStaffID = &staffID
	table.CurrentSessionID = &session.ID
	if err := s.db.Save(&table).Error; err != nil {
		return nil, err
	}

	s.projection.Rebuild(tenantID, number)
	events.BroadcastSessionCreated(number, session.GuestName, session.Occupancy)

	utils.InfoLogger.Printf("Dining session %d opened at table %s by staff %d (occupancy=%d)",
		session.ID, number, staffID, session.Occupancy)
	return &session, nil
}

// GetSession mengambil satu dining session milik tenant
func (s *DiningSessionService) GetSession(tenantID, sessionID uint) (*models.DiningSession, error) {
	var session models.DiningSession
	err := s.db.Preload("Handovers").
		Where("tenant_id = ? AND id = ?", tenantID, sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSessionForTable mencari session aktif untuk satu meja
func (s *DiningSessionService) ActiveSessionForTable(tenantID uint, tableNumber string) (*models.DiningSession, error) {
	var session models.DiningSession
	err := s.db.Where("tenant_id = ? AND table_number = ? AND status = ?",
		tenantID, utils.NormalizeTableNumber(tableNumber), SessionStatusActive).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByContact mencari session lewat hash kontak (kontak tersimpan terenkripsi)
func (s *DiningSessionService) FindByContact(tenantID uint, contact string) ([]models.DiningSession, error) {
	var sessions []models.DiningSession
	err := s.db.Where("tenant_id = ? AND guest_contact_hash = ?",
		tenantID, utils.HashContact(contact)).Find(&sessions).Error
	return sessions, err
}

// LinkOrder menautkan satu order ke session. Total session dihitung ulang
// dari seluruh order tertaut, bukan ditambah bebas, supaya tidak drift.
func (s *DiningSessionService) LinkOrder(tenantID, sessionID, orderID uint) (*models.DiningSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	session, err := s.GetSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != SessionStatusActive {
		return nil, ErrSessionNotActive
	}

	var order models.Order
	err = s.db.Where("tenant_id = ? AND id = ?", tenantID, orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.CustomerSessionID != nil && *order.CustomerSessionID != session.ID {
		return nil, ErrOrderAlreadyLinked
	}

	linked := false
	for _, id := range session.OrderIDs {
		if id == order.ID {
			linked = true
			break
		}
	}
	if !linked {
		session.OrderIDs = append(session.OrderIDs, order.ID)
	}

	order.CustomerSessionID = &session.ID
	if err := s.db.Save(&order).Error; err != nil {
		return nil, err
	}

	if err := s.recomputeTotal(session); err != nil {
		return nil, err
	}
	if err := s.db.Save(session).Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Order %d linked to session %d (total=%.2f)",
		order.ID, session.ID, session.TotalAmount)
	return session, nil
}

// Handover memindahkan tanggung jawab meja ke staff lain. Urutan commit
// tetap: session -> set meja staff -> projection; sisa risiko crash di
// tengah urutan diperbaiki Reconciler.
func (s *DiningSessionService) Handover(tenantID, sessionID, fromStaffID, toStaffID uint, reason string) (*models.DiningSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}
	if fromStaffID == toStaffID {
		return nil, ErrSameStaff
	}

	session, err := s.GetSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != SessionStatusActive {
		return nil, ErrSessionNotActive
	}
	if session.PrimaryStaffID != fromStaffID {
		return nil, ErrNotPrimaryStaff
	}

	// Penerima wajib sedang duty sebelum ada yang dimutasi
	toDuty, err := s.staff.ActiveSessionForStaff(tenantID, toStaffID)
	if err != nil {
		if errors.Is(err, ErrStaffSessionNotFound) {
			return nil, ErrNoActiveDuty
		}
		return nil, err
	}

	session.PrimaryStaffID = toStaffID
	session.WaiterName = fmt.Sprintf("staff-%d", toStaffID)
	if err := s.db.Save(session).Error; err != nil {
		return nil, err
	}
	record := models.Handover{
		SessionID:   session.ID,
		FromStaffID: fromStaffID,
		ToStaffID:   toStaffID,
		Reason:      reason,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	if _, err := s.staff.AddTable(tenantID, toDuty.ID, session.TableNumber); err != nil {
		return nil, err
	}
	if fromDuty, err := s.staff.ActiveSessionForStaff(tenantID, fromStaffID); err == nil {
		if _, err := s.staff.RemoveTable(tenantID, fromDuty.ID, session.TableNumber); err != nil {
			return nil, err
		}
	}

	s.db.Model(&models.Table{}).
		Where("tenant_id = ? AND table_number = ?", tenantID, session.TableNumber).
		Update("current_staff_id", toStaffID)

	s.projection.Rebuild(tenantID, session.TableNumber)
	events.BroadcastTableAssigned(session.TableNumber, toStaffID)

	utils.InfoLogger.Printf("Session %d handed over from staff %d to staff %d (reason=%s)",
		session.ID, fromStaffID, toStaffID, reason)
	return s.GetSession(tenantID, sessionID)
}

// Checkout memindahkan session ke payment_pending dan menghitung durasi
func (s *DiningSessionService) Checkout(tenantID, sessionID uint) (*models.DiningSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	session, err := s.GetSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != SessionStatusActive {
		if session.Status == SessionStatusClosed {
			return nil, ErrSessionClosed
		}
		return nil, ErrSessionNotActive
	}

	now := time.Now()
	session.Status = SessionStatusPaymentPending
	session.EndedAt = &now
	session.DurationMinutes = int(now.Sub(session.StartedAt).Minutes())
	if err := s.db.Save(session).Error; err != nil {
		return nil, err
	}

	s.projection.Rebuild(tenantID, session.TableNumber)
	events.BroadcastSessionCheckout(session.TableNumber, session.DurationMinutes, session.TotalAmount)

	utils.InfoLogger.Printf("Session %d checkout at table %s (duration=%dm, total=%.2f)",
		session.ID, session.TableNumber, session.DurationMinutes, session.TotalAmount)
	return session, nil
}

// Close menutup session setelah checkout. Meja dikembalikan ke available
// hanya kalau tidak ada order tertaut yang belum dibayar; status closed
// bersifat terminal.
func (s *DiningSessionService) Close(tenantID, sessionID uint, feedback string) (*models.DiningSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	session, err := s.GetSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == SessionStatusClosed {
		return nil, ErrSessionClosed
	}
	if session.Status != SessionStatusPaymentPending {
		return nil, ErrSessionNotPending
	}

	session.Status = SessionStatusClosed
	if err := s.db.Save(session).Error; err != nil {
		return nil, err
	}

	var unpaid int64
	if len(session.OrderIDs) > 0 {
		if err := s.db.Model(&models.Order{}).
			Where("tenant_id = ? AND id IN ? AND status = ?",
				tenantID, session.OrderIDs, OrderStatusPendingPayment).
			Count(&unpaid).Error; err != nil {
			return nil, err
		}
	}

	if unpaid == 0 {
		if err := s.db.Model(&models.Table{}).
			Where("tenant_id = ? AND table_number = ?", tenantID, session.TableNumber).
			Updates(map[string]interface{}{
				"status":             TableStatusAvailable,
				"current_staff_id":   nil,
				"current_session_id": nil,
			}).Error; err != nil {
			return nil, err
		}
		events.BroadcastTableReleased(session.TableNumber)
	} else {
		utils.InfoLogger.Printf("Session %d closed with %d unpaid orders; table %s stays occupied",
			session.ID, unpaid, session.TableNumber)
	}

	s.projection.Rebuild(tenantID, session.TableNumber)
	events.BroadcastSessionClosed(session.TableNumber)

	if feedback != "" {
		utils.InfoLogger.Printf("Feedback for session %d: %s", session.ID, feedback)
	}
	return session, nil
}

// requireAssigned cek penerbit adalah primary atau assisting staff untuk
// meja tsb menurut projection; fallback ke set meja duty bila projection
// belum terbentuk
func (s *DiningSessionService) requireAssigned(tenantID uint, tableNumber string, staffID uint) error {
	state, err := s.projection.Get(tenantID, tableNumber)
	if err == nil && state != nil {
		if state.PrimaryStaffID != nil && *state.PrimaryStaffID == staffID {
			return nil
		}
		for _, id := range state.AssistingStaffID {
			if id == staffID {
				return nil
			}
		}
	}

	duty, dutyErr := s.staff.ActiveSessionForStaff(tenantID, staffID)
	if dutyErr == nil && duty.HasTable(utils.NormalizeTableNumber(tableNumber)) {
		return nil
	}
	return ErrNotAssigned
}

// attachUnlinkedOrders menarik order tanpa session untuk meja yang sama
func (s *DiningSessionService) attachUnlinkedOrders(session *models.DiningSession) error {
	var orders []models.Order
	if err := s.db.Where("tenant_id = ? AND table_number = ? AND customer_session_id IS NULL",
		session.TenantID, session.TableNumber).Find(&orders).Error; err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	for i := range orders {
		orders[i].CustomerSessionID = &session.ID
		if err := s.db.Save(&orders[i]).Error; err != nil {
			return err
		}
		session.OrderIDs = append(session.OrderIDs, orders[i].ID)
	}

	if err := s.recomputeTotal(session); err != nil {
		return err
	}
	if err := s.db.Save(session).Error; err != nil {
		return err
	}

	utils.InfoLogger.Printf("Attached %d pre-existing orders to session %d", len(orders), session.ID)
	return nil
}

// recomputeTotal menjumlahkan ulang total seluruh order tertaut
func (s *DiningSessionService) recomputeTotal(session *models.DiningSession) error {
	if len(session.OrderIDs) == 0 {
		session.TotalAmount = 0
		return nil
	}
	var total float64
	err := s.db.Model(&models.Order{}).
		Where("tenant_id = ? AND id IN ?", session.TenantID, session.OrderIDs).
		Select("COALESCE(SUM(total), 0)").Scan(&total).Error
	if err != nil {
		return err
	}
	session.TotalAmount = total
	return nil
}
