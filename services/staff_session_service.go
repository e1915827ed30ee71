package services

import (
	"errors"
	"time"

	"github.com/yeremiapane/restaurant-seating/events"
	"github.com/yeremiapane/restaurant-seating/models"
	"github.com/yeremiapane/restaurant-seating/utils"
	"gorm.io/gorm"
)

// StaffSessionService registry duty session: siapa sedang bertugas dan
// memegang meja apa saja
type StaffSessionService struct {
	db         *gorm.DB
	projection *ProjectionService
}

func NewStaffSessionService(db *gorm.DB, projection *ProjectionService) *StaffSessionService {
	return &StaffSessionService{db: db, projection: projection}
}

// StartDuty membuka duty session baru. Session aktif lain milik staff yang
// sama ditutup dulu supaya invariant satu-session-aktif terjaga.
func (s *StaffSessionService) StartDuty(tenantID, staffID uint, device string) (*models.StaffSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	now := time.Now()

	var stale []models.StaffSession
	if err := s.db.Where("tenant_id = ? AND staff_id = ? AND is_active = ?",
		tenantID, staffID, true).Find(&stale).Error; err != nil {
		return nil, err
	}
	for i := range stale {
		old := &stale[i]
		old.IsActive = false
		old.LogoutAt = &now
		old.Tables = nil
		if err := s.db.Save(old).Error; err != nil {
			return nil, err
		}
		utils.InfoLogger.Printf("Implicitly closed stale duty session %d for staff %d", old.ID, staffID)
	}

	session := models.StaffSession{
		TenantID:       tenantID,
		StaffID:        staffID,
		Device:         device,
		Tables:         []string{},
		IsActive:       true,
		LoginAt:        now,
		LastActivityAt: now,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Staff %d started duty (session=%d, device=%s)", staffID, session.ID, device)
	return &session, nil
}

// GetSession mengambil satu duty session milik tenant
func (s *StaffSessionService) GetSession(tenantID, sessionID uint) (*models.StaffSession, error) {
	var session models.StaffSession
	err := s.db.Where("tenant_id = ? AND id = ?", tenantID, sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStaffSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ActiveSessionForStaff mencari duty session aktif milik satu staff
func (s *StaffSessionService) ActiveSessionForStaff(tenantID, staffID uint) (*models.StaffSession, error) {
	var session models.StaffSession
	err := s.db.Where("tenant_id = ? AND staff_id = ? AND is_active = ?",
		tenantID, staffID, true).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStaffSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListActive menampilkan seluruh duty session aktif tenant
func (s *StaffSessionService) ListActive(tenantID uint) ([]models.StaffSession, error) {
	var sessions []models.StaffSession
	err := s.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("last_activity_at DESC").Find(&sessions).Error
	return sessions, err
}

// AddTable menugaskan satu meja ke duty session. Idempotent: menambah dua
// kali adalah no-op.
func (s *StaffSessionService) AddTable(tenantID, sessionID uint, tableNumber string) (*models.StaffSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	session, err := s.GetSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrNoActiveDuty
	}

	number := utils.NormalizeTableNumber(tableNumber)
	if number == "" {
		return nil, ErrTableNumberEmpty
	}
	var count int64
	if err := s.db.Model(&models.Table{}).
		Where("tenant_id = ? AND table_number = ?", tenantID, number).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrTableNotFound
	}

	session.LastActivityAt = time.Now()
	if !session.HasTable(number) {
		session.Tables = append(session.Tables, number)
	}
	if err := s.db.Save(session).Error; err != nil {
		return nil, err
	}

	s.projection.Rebuild(tenantID, number)
	events.BroadcastTableAssigned(number, session.StaffID)

	utils.InfoLogger.Printf("Table %s assigned to staff %d (session=%d)", number, session.StaffID, session.ID)
	return session, nil
}

// RemoveTable melepaskan satu meja dari duty session; idempotent
func (s *StaffSessionService) RemoveTable(tenantID, sessionID uint, tableNumber string) (*models.StaffSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	session, err := s.GetSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	number := utils.NormalizeTableNumber(tableNumber)
	kept := session.Tables[:0]
	removed := false
	for _, t := range session.Tables {
		if utils.SameTableNumber(t, number) {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	session.Tables = kept
	session.LastActivityAt = time.Now()
	if err := s.db.Save(session).Error; err != nil {
		return nil, err
	}

	if removed {
		s.projection.Rebuild(tenantID, number)
	}
	return session, nil
}

// EndDuty menutup duty session. Ditolak selama masih ada meja dengan
// dining session aktif; tamu yang masih duduk bukan untuk di-drop diam-diam.
func (s *StaffSessionService) EndDuty(tenantID, sessionID uint) (*models.StaffSession, error) {
	if err := requireActiveTenant(s.db, tenantID); err != nil {
		return nil, err
	}

	session, err := s.GetSession(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return session, nil
	}

	for _, number := range session.Tables {
		var active int64
		if err := s.db.Model(&models.DiningSession{}).
			Where("tenant_id = ? AND table_number = ? AND status = ?",
				tenantID, utils.NormalizeTableNumber(number), SessionStatusActive).
			Count(&active).Error; err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, ErrGuestsStillSeated
		}
	}

	now := time.Now()
	released := session.Tables
	session.IsActive = false
	session.LogoutAt = &now
	session.Tables = nil
	if err := s.db.Save(session).Error; err != nil {
		return nil, err
	}

	for _, number := range released {
		s.projection.Rebuild(tenantID, number)
	}

	utils.InfoLogger.Printf("Staff %d ended duty (session=%d, tables released=%d)",
		session.StaffID, session.ID, len(released))
	return session, nil
}

// TouchActivity memperbarui stempel aktivitas terakhir
func (s *StaffSessionService) TouchActivity(tenantID, sessionID uint) error {
	return s.db.Model(&models.StaffSession{}).
		Where("tenant_id = ? AND id = ? AND is_active = ?", tenantID, sessionID, true).
		Update("last_activity_at", time.Now()).Error
}
