package services

import (
	"os"
	"testing"

	"github.com/yeremiapane/restaurant-seating/models"
	"github.com/yeremiapane/restaurant-seating/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	os.Exit(m.Run())
}

// setupTestDB SQLite in-memory + migrate + seed tenant aktif (ID=1)
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Tenant{},
		&models.Table{},
		&models.StaffSession{},
		&models.DiningSession{},
		&models.Handover{},
		&models.TableState{},
		&models.Order{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	tenant := models.Tenant{ID: 1, Name: "Warung Test", Active: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}
	return db
}

type testServices struct {
	db         *gorm.DB
	projection *ProjectionService
	tables     *TableService
	staff      *StaffSessionService
	dining     *DiningSessionService
	reconciler *Reconciler
}

func newTestServices(t *testing.T) *testServices {
	db := setupTestDB(t)
	projection := NewProjectionService(db)
	staff := NewStaffSessionService(db, projection)
	return &testServices{
		db:         db,
		projection: projection,
		tables:     NewTableService(db, projection),
		staff:      staff,
		dining:     NewDiningSessionService(db, projection, staff),
		reconciler: NewReconciler(db, projection),
	}
}

// seedTable meja available polos untuk test
func seedTable(t *testing.T, db *gorm.DB, number string, capacity int, combinesWith []string) models.Table {
	t.Helper()
	table := models.Table{
		TenantID:     1,
		TableNumber:  number,
		TableUID:     "uid-" + number,
		DisplayName:  "Table " + number,
		TableType:    "regular",
		MinCapacity:  1,
		MaxCapacity:  capacity,
		Capacity:     capacity,
		Status:       TableStatusAvailable,
		IsActive:     true,
		CombinesWith: combinesWith,
	}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("failed to seed table %s: %v", number, err)
	}
	return table
}

// seatStaff startDuty + addTable, jalur normal sebelum mendudukkan tamu
func seatStaff(t *testing.T, ts *testServices, staffID uint, tableNumbers ...string) *models.StaffSession {
	t.Helper()
	session, err := ts.staff.StartDuty(1, staffID, "test-device")
	if err != nil {
		t.Fatalf("StartDuty failed: %v", err)
	}
	for _, number := range tableNumbers {
		if _, err := ts.staff.AddTable(1, session.ID, number); err != nil {
			t.Fatalf("AddTable %s failed: %v", number, err)
		}
	}
	refreshed, err := ts.staff.GetSession(1, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	return refreshed
}
