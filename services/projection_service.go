package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/yeremiapane/restaurant-seating/models"
	"github.com/yeremiapane/restaurant-seating/utils"
	"gorm.io/gorm"
)

// ProjectionService membangun ulang read-model TableState dari tiga registry
// sumber. Hanya service ini (dan Reconciler lewat service ini) yang menulis
// baris table_states; handler transport cukup membaca lewat Get.
type ProjectionService struct {
	db    *gorm.DB
	cache *gocache.Cache
}

func NewProjectionService(db *gorm.DB) *ProjectionService {
	return &ProjectionService{
		db:    db,
		cache: gocache.New(5*time.Second, time.Minute),
	}
}

func cacheKey(tenantID uint, tableNumber string) string {
	return fmt.Sprintf("%d:%s", tenantID, tableNumber)
}

// Get membaca projection lewat cache; miss memicu rebuild
func (s *ProjectionService) Get(tenantID uint, tableNumber string) (*models.TableState, error) {
	tableNumber = utils.NormalizeTableNumber(tableNumber)

	if cached, found := s.cache.Get(cacheKey(tenantID, tableNumber)); found {
		state := cached.(models.TableState)
		return &state, nil
	}

	var state models.TableState
	err := s.db.Where("tenant_id = ? AND table_number = ?", tenantID, tableNumber).
		First(&state).Error
	if err == nil {
		s.cache.Set(cacheKey(tenantID, tableNumber), state, gocache.DefaultExpiration)
		return &state, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	state2, _, rebuildErr := s.Rebuild(tenantID, tableNumber)
	return state2, rebuildErr
}

// Rebuild menghitung ulang status/staff/session dari registry sumber lalu
// upsert baris projection. Mengembalikan changed=true bila ada yang berubah.
func (s *ProjectionService) Rebuild(tenantID uint, tableNumber string) (*models.TableState, bool, error) {
	tableNumber = utils.NormalizeTableNumber(tableNumber)

	var table models.Table
	if err := s.db.Where("tenant_id = ? AND table_number = ?", tenantID, tableNumber).
		First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrTableNotFound
		}
		return nil, false, err
	}

	// Cari staff session aktif yang memegang meja ini
	var staffSessions []models.StaffSession
	if err := s.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Find(&staffSessions).Error; err != nil {
		return nil, false, err
	}

	var primaryStaffID *uint
	var assisting []uint
	var latest time.Time
	for i := range staffSessions {
		ss := &staffSessions[i]
		if !ss.HasTable(tableNumber) {
			continue
		}
		if primaryStaffID == nil || ss.LastActivityAt.After(latest) {
			if primaryStaffID != nil {
				assisting = append(assisting, *primaryStaffID)
			}
			id := ss.StaffID
			primaryStaffID = &id
			latest = ss.LastActivityAt
		} else {
			assisting = append(assisting, ss.StaffID)
		}
	}

	sort.Slice(assisting, func(i, j int) bool { return assisting[i] < assisting[j] })

	// Cari dining session aktif untuk meja ini
	var activeSessionID *uint
	var dining models.DiningSession
	err := s.db.Where("tenant_id = ? AND table_number = ? AND status = ?",
		tenantID, tableNumber, SessionStatusActive).First(&dining).Error
	switch {
	case err == nil:
		id := dining.ID
		activeSessionID = &id
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	var state models.TableState
	created := false
	err = s.db.Where("tenant_id = ? AND table_number = ?", tenantID, tableNumber).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = models.TableState{
			TenantID:    tenantID,
			TableNumber: tableNumber,
		}
		created = true
	} else if err != nil {
		return nil, false, err
	}

	changed := created ||
		state.Status != table.Status ||
		!uintPtrEqual(state.PrimaryStaffID, primaryStaffID) ||
		!uintPtrEqual(state.ActiveSessionID, activeSessionID) ||
		!uintSliceEqual(state.AssistingStaffID, assisting)

	if !uintPtrEqual(state.PrimaryStaffID, primaryStaffID) && primaryStaffID != nil {
		state.AssignmentLog = append(state.AssignmentLog, models.AssignmentEntry{
			StaffID:    *primaryStaffID,
			AssignedAt: time.Now(),
		})
	}

	state.Status = table.Status
	state.PrimaryStaffID = primaryStaffID
	state.AssistingStaffID = assisting
	state.ActiveSessionID = activeSessionID

	if changed {
		if err := s.db.Save(&state).Error; err != nil {
			return nil, false, err
		}
	}

	s.cache.Set(cacheKey(tenantID, tableNumber), state, gocache.DefaultExpiration)
	return &state, changed, nil
}

// RebuildAll menyapu seluruh meja milik tenant
func (s *ProjectionService) RebuildAll(tenantID uint) (int, error) {
	var tables []models.Table
	if err := s.db.Where("tenant_id = ?", tenantID).Find(&tables).Error; err != nil {
		return 0, err
	}

	rebuilt := 0
	for i := range tables {
		if _, changed, err := s.Rebuild(tenantID, tables[i].TableNumber); err != nil {
			utils.ErrorLogger.Printf("Rebuild failed for table %s: %v", tables[i].TableNumber, err)
		} else if changed {
			rebuilt++
		}
	}
	return rebuilt, nil
}

// Invalidate membuang entry cache untuk satu meja
func (s *ProjectionService) Invalidate(tenantID uint, tableNumber string) {
	s.cache.Delete(cacheKey(tenantID, utils.NormalizeTableNumber(tableNumber)))
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uintSliceEqual(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
