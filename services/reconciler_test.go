package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/restaurant-seating/models"
)

func TestReconcileCleanStore(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileNormalizesTableNumbers(t *testing.T) {
	ts := newTestServices(t)
	// Nomor denormal masuk lewat import/restore lama
	seedTable(t, ts.db, "07", 4, nil)

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.NumbersNormalized)

	var table models.Table
	assert.NoError(t, ts.db.Where("tenant_id = ? AND table_number = ?", 1, "7").First(&table).Error)

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileNormalizesStaffTableSet(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	duty := seatStaff(t, ts, 1, "5")

	// Set meja denormal dan duplikat, ditulis langsung seolah dari restore
	duty.Tables = []string{"05", "5"}
	assert.NoError(t, ts.db.Save(duty).Error)

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.NumbersNormalized)

	refreshed, err := ts.staff.GetSession(1, duty.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"5"}, refreshed.Tables)

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileCreatesMissingProjection(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	assert.NoError(t, ts.db.Where("tenant_id = ? AND table_number = ?", 1, "5").
		Delete(&models.TableState{}).Error)

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.ProjectionsCreated)

	var state models.TableState
	assert.NoError(t, ts.db.Where("tenant_id = ? AND table_number = ?", 1, "5").
		First(&state).Error)
	if assert.NotNil(t, state.PrimaryStaffID) {
		assert.Equal(t, uint(1), *state.PrimaryStaffID)
	}

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileResolvesDuplicateClaims(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	w1 := seatStaff(t, ts, 1, "5")
	w2 := seatStaff(t, ts, 2, "5")

	// Klaim w2 paling baru: dialah pemenangnya
	ts.db.Model(&models.StaffSession{}).Where("id = ?", w1.ID).
		Update("last_activity_at", time.Now().Add(-2*time.Hour))
	ts.db.Model(&models.StaffSession{}).Where("id = ?", w2.ID).
		Update("last_activity_at", time.Now().Add(-1*time.Hour))

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.DuplicateClaimsRemoved)

	loser, err := ts.staff.GetSession(1, w1.ID)
	assert.NoError(t, err)
	assert.False(t, loser.HasTable("5"))
	// Set loser jadi kosong: session-nya ikut ditutup di pass yang sama
	assert.False(t, loser.IsActive)

	winner, err := ts.staff.GetSession(1, w2.ID)
	assert.NoError(t, err)
	assert.True(t, winner.HasTable("5"))

	state, err := ts.projection.Get(1, "5")
	assert.NoError(t, err)
	if assert.NotNil(t, state.PrimaryStaffID) {
		assert.Equal(t, uint(2), *state.PrimaryStaffID)
	}
	assert.Empty(t, state.AssistingStaffID)

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileClosesIdleStaffSessions(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	duty := seatStaff(t, ts, 1, "5")

	ts.db.Model(&models.StaffSession{}).Where("id = ?", duty.ID).
		Update("last_activity_at", time.Now().Add(-9*time.Hour))

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.StaffSessionsClosed)

	closed, err := ts.staff.GetSession(1, duty.ID)
	assert.NoError(t, err)
	assert.False(t, closed.IsActive)
	assert.NotNil(t, closed.LogoutAt)
	assert.Empty(t, closed.Tables)

	state, err := ts.projection.Get(1, "5")
	assert.NoError(t, err)
	assert.Nil(t, state.PrimaryStaffID)

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileRepairsDiningSessionBacking(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")
	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	// Meja kehilangan backing-nya (mis. crash di tengah urutan commit)
	ts.db.Model(&models.Table{}).
		Where("tenant_id = ? AND table_number = ?", 1, "5").
		Updates(map[string]interface{}{
			"status":             TableStatusAvailable,
			"current_session_id": nil,
		})

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.TablesRepaired)

	table, err := ts.tables.GetTable(1, "5")
	assert.NoError(t, err)
	assert.Equal(t, TableStatusOccupied, table.Status)
	if assert.NotNil(t, table.CurrentSessionID) {
		assert.Equal(t, session.ID, *table.CurrentSessionID)
	}

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileRepairsCrashedHandover(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	w1 := seatStaff(t, ts, 1, "5")
	w2 := seatStaff(t, ts, 2)

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	// Crash di tengah handover: session sudah pindah primary, set meja
	// kedua staff belum disentuh
	ts.db.Model(&models.DiningSession{}).Where("id = ?", session.ID).
		Update("primary_staff_id", 2)

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.StaffSetsRepaired)

	// Penerima mendapat mejanya, bukan ditutup sebagai session kosong
	to, err := ts.staff.GetSession(1, w2.ID)
	assert.NoError(t, err)
	assert.True(t, to.IsActive)
	assert.True(t, to.HasTable("5"))

	// Pemegang lama kehilangan meja; set-nya kosong dan ikut ditutup
	from, err := ts.staff.GetSession(1, w1.ID)
	assert.NoError(t, err)
	assert.False(t, from.HasTable("5"))
	assert.False(t, from.IsActive)

	state, err := ts.projection.Get(1, "5")
	assert.NoError(t, err)
	if assert.NotNil(t, state.PrimaryStaffID) {
		assert.Equal(t, uint(2), *state.PrimaryStaffID)
	}

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileAttachesOrphanOrders(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	// Order masuk tanpa session, seolah fold-in saat open gagal
	order := models.Order{TenantID: 1, TableNumber: "5", Total: 40000, Status: OrderStatusPendingPayment}
	assert.NoError(t, ts.db.Create(&order).Error)

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.OrdersLinked)

	refreshed, err := ts.dining.GetSession(1, session.ID)
	assert.NoError(t, err)
	assert.Equal(t, []uint{order.ID}, refreshed.OrderIDs)
	assert.Equal(t, 40000.0, refreshed.TotalAmount)

	var linked models.Order
	assert.NoError(t, ts.db.First(&linked, order.ID).Error)
	if assert.NotNil(t, linked.CustomerSessionID) {
		assert.Equal(t, session.ID, *linked.CustomerSessionID)
	}

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileClearsDanglingSessionRef(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")
	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	// Session ditutup di luar jalur normal; projection masih menunjuknya
	now := time.Now()
	ts.db.Model(&models.DiningSession{}).Where("id = ?", session.ID).
		Updates(map[string]interface{}{"status": SessionStatusClosed, "ended_at": now})

	report, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Greater(t, report.ProjectionsRepaired, 0)

	state, err := ts.projection.Get(1, "5")
	assert.NoError(t, err)
	assert.Nil(t, state.ActiveSessionID)

	report, err = ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Total())
}

func TestReconcileIdempotentAcrossDrift(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "08", 4, nil)
	seedTable(t, ts.db, "9", 2, nil)
	w1 := seatStaff(t, ts, 1, "9")
	w2 := seatStaff(t, ts, 2, "9")
	ts.db.Model(&models.StaffSession{}).Where("id = ?", w1.ID).
		Update("last_activity_at", time.Now().Add(-3*time.Hour))
	ts.db.Model(&models.StaffSession{}).Where("id = ?", w2.ID).
		Update("last_activity_at", time.Now().Add(-1*time.Hour))
	assert.NoError(t, ts.db.Where("tenant_id = ? AND table_number = ?", 1, "9").
		Delete(&models.TableState{}).Error)

	first, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Greater(t, first.Total(), 0)

	second, err := ts.reconciler.RunOnce(1)
	assert.NoError(t, err)
	assert.Equal(t, 0, second.Total(), "pass kedua tidak boleh mengoreksi apa pun")
}
