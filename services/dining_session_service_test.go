package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/restaurant-seating/models"
)

func TestOpenSession(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{
		GuestName:    "Alice",
		GuestContact: "081234567890",
		Occupancy:    2,
	})
	assert.NoError(t, err)
	assert.Equal(t, SessionStatusActive, session.Status)
	assert.Equal(t, uint(1), session.PrimaryStaffID)
	assert.Equal(t, 2, session.Occupancy)

	// Kontak tidak disimpan polos
	assert.NotEmpty(t, session.GuestContactEncrypted)
	assert.NotEqual(t, "081234567890", session.GuestContactEncrypted)
	assert.NotEqual(t, "081234567890", session.GuestContactMasked)
	assert.NotEmpty(t, session.GuestContactHash)

	table, err := ts.tables.GetTable(1, "5")
	assert.NoError(t, err)
	assert.Equal(t, TableStatusOccupied, table.Status)
	if assert.NotNil(t, table.CurrentSessionID) {
		assert.Equal(t, session.ID, *table.CurrentSessionID)
	}

	state, err := ts.projection.Get(1, "5")
	assert.NoError(t, err)
	assert.Equal(t, TableStatusOccupied, state.Status)
	if assert.NotNil(t, state.ActiveSessionID) {
		assert.Equal(t, session.ID, *state.ActiveSessionID)
	}
}

func TestOpenSessionConflict(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	_, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	// Penulis kedua gagal di precondition, tidak ada meja double-seated
	_, err = ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Bob", Occupancy: 2})
	assert.Error(t, err)

	var count int64
	ts.db.Model(&models.DiningSession{}).
		Where("table_number = ? AND status = ?", "5", SessionStatusActive).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestOpenSessionRequiresAssignment(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	// Staff 2 duty tapi tidak memegang meja 5
	seatStaff(t, ts, 2)

	_, err := ts.dining.Open(1, "5", 2, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestOpenSessionOccupancyValidation(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	_, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 0})
	assert.ErrorIs(t, err, ErrInvalidOccupancy)

	_, err = ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 9})
	assert.ErrorIs(t, err, ErrOccupancyTooLarge)
}

func TestOpenSessionOnSubTableRefused(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, []string{"6"})
	seedTable(t, ts.db, "6", 4, []string{"5"})
	_, err := ts.tables.Combine(1, "5", []string{"6"}, 1, "")
	assert.NoError(t, err)
	seatStaff(t, ts, 1, "6")

	_, err = ts.dining.Open(1, "6", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.ErrorIs(t, err, ErrSubTableLocked)
}

func TestOpenSessionAttachesUnlinkedOrders(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	// Order dibuat sebelum session ada
	order := models.Order{TenantID: 1, TableNumber: "5", Total: 45000, Status: OrderStatusPendingPayment}
	assert.NoError(t, ts.db.Create(&order).Error)

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)
	assert.Equal(t, []uint{order.ID}, session.OrderIDs)
	assert.Equal(t, 45000.0, session.TotalAmount)

	var linked models.Order
	assert.NoError(t, ts.db.First(&linked, order.ID).Error)
	if assert.NotNil(t, linked.CustomerSessionID) {
		assert.Equal(t, session.ID, *linked.CustomerSessionID)
	}
}

func TestLinkOrderRecomputesTotal(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")
	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	orderA := models.Order{TenantID: 1, TableNumber: "5", Total: 30000, Status: OrderStatusPaid}
	orderB := models.Order{TenantID: 1, TableNumber: "5", Total: 20000, Status: OrderStatusPendingPayment}
	assert.NoError(t, ts.db.Create(&orderA).Error)
	assert.NoError(t, ts.db.Create(&orderB).Error)

	session, err = ts.dining.LinkOrder(1, session.ID, orderA.ID)
	assert.NoError(t, err)
	assert.Equal(t, 30000.0, session.TotalAmount)

	session, err = ts.dining.LinkOrder(1, session.ID, orderB.ID)
	assert.NoError(t, err)
	assert.Equal(t, 50000.0, session.TotalAmount)

	// Link ulang order yang sama tidak menggandakan total
	session, err = ts.dining.LinkOrder(1, session.ID, orderA.ID)
	assert.NoError(t, err)
	assert.Equal(t, 50000.0, session.TotalAmount)
}

func TestLinkOrderRejectedWhenNotActive(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")
	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	_, err = ts.dining.Checkout(1, session.ID)
	assert.NoError(t, err)

	order := models.Order{TenantID: 1, TableNumber: "5", Total: 10000}
	assert.NoError(t, ts.db.Create(&order).Error)

	_, err = ts.dining.LinkOrder(1, session.ID, order.ID)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestHandover(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	w1 := seatStaff(t, ts, 1, "5")
	w2 := seatStaff(t, ts, 2)

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	session, err = ts.dining.Handover(1, session.ID, 1, 2, "break")
	assert.NoError(t, err)
	assert.Equal(t, uint(2), session.PrimaryStaffID)
	assert.Len(t, session.Handovers, 1)
	assert.Equal(t, uint(1), session.Handovers[0].FromStaffID)
	assert.Equal(t, uint(2), session.Handovers[0].ToStaffID)
	assert.Equal(t, "break", session.Handovers[0].Reason)

	// Mirror ke set meja masing-masing staff
	from, err := ts.staff.GetSession(1, w1.ID)
	assert.NoError(t, err)
	assert.False(t, from.HasTable("5"))

	to, err := ts.staff.GetSession(1, w2.ID)
	assert.NoError(t, err)
	assert.True(t, to.HasTable("5"))

	// Mirror ke projection
	state, err := ts.projection.Get(1, "5")
	assert.NoError(t, err)
	if assert.NotNil(t, state.PrimaryStaffID) {
		assert.Equal(t, uint(2), *state.PrimaryStaffID)
	}
}

func TestHandoverRequiresPrimary(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")
	seatStaff(t, ts, 2)
	seatStaff(t, ts, 3)

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	_, err = ts.dining.Handover(1, session.ID, 3, 2, "")
	assert.ErrorIs(t, err, ErrNotPrimaryStaff)
}

func TestHandoverRequiresReceiverOnDuty(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	// Staff 2 tidak pernah mulai duty; tidak ada yang dimutasi
	_, err = ts.dining.Handover(1, session.ID, 1, 2, "")
	assert.ErrorIs(t, err, ErrNoActiveDuty)

	unchanged, err := ts.dining.GetSession(1, session.ID)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), unchanged.PrimaryStaffID)
	assert.Empty(t, unchanged.Handovers)
}

func TestCheckoutComputesDuration(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	// Mundurkan start supaya durasi terukur
	started := session.StartedAt.Add(-95 * time.Minute)
	ts.db.Model(&models.DiningSession{}).Where("id = ?", session.ID).
		Update("started_at", started)

	session, err = ts.dining.Checkout(1, session.ID)
	assert.NoError(t, err)
	assert.Equal(t, SessionStatusPaymentPending, session.Status)
	assert.NotNil(t, session.EndedAt)
	assert.Equal(t, 95, session.DurationMinutes)
}

func TestCloseReleasesTable(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	order := models.Order{TenantID: 1, TableNumber: "5", Total: 30000, Status: OrderStatusPaid}
	assert.NoError(t, ts.db.Create(&order).Error)
	_, err = ts.dining.LinkOrder(1, session.ID, order.ID)
	assert.NoError(t, err)

	_, err = ts.dining.Checkout(1, session.ID)
	assert.NoError(t, err)
	session, err = ts.dining.Close(1, session.ID, "great service")
	assert.NoError(t, err)
	assert.Equal(t, SessionStatusClosed, session.Status)

	table, err := ts.tables.GetTable(1, "5")
	assert.NoError(t, err)
	assert.Equal(t, TableStatusAvailable, table.Status)
	assert.Nil(t, table.CurrentSessionID)
}

func TestCloseKeepsTableWithUnpaidOrders(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	order := models.Order{TenantID: 1, TableNumber: "5", Total: 30000, Status: OrderStatusPendingPayment}
	assert.NoError(t, ts.db.Create(&order).Error)
	_, err = ts.dining.LinkOrder(1, session.ID, order.ID)
	assert.NoError(t, err)

	_, err = ts.dining.Checkout(1, session.ID)
	assert.NoError(t, err)
	session, err = ts.dining.Close(1, session.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, SessionStatusClosed, session.Status)

	// Order belum dibayar: meja tidak dilepas
	table, err := ts.tables.GetTable(1, "5")
	assert.NoError(t, err)
	assert.Equal(t, TableStatusOccupied, table.Status)
}

func TestStateMachineNoSkip(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	session, err := ts.dining.Open(1, "5", 1, OpenSessionInput{GuestName: "Alice", Occupancy: 2})
	assert.NoError(t, err)

	// active -> closed langsung dilarang
	_, err = ts.dining.Close(1, session.ID, "")
	assert.ErrorIs(t, err, ErrSessionNotPending)

	_, err = ts.dining.Checkout(1, session.ID)
	assert.NoError(t, err)
	_, err = ts.dining.Close(1, session.ID, "")
	assert.NoError(t, err)

	// closed bersifat terminal
	_, err = ts.dining.Checkout(1, session.ID)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = ts.dining.Close(1, session.ID, "")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestFindByContact(t *testing.T) {
	ts := newTestServices(t)
	seedTable(t, ts.db, "5", 4, nil)
	seatStaff(t, ts, 1, "5")

	_, err := ts.dining.Open(1, "5", 1, OpenSessionInput{
		GuestName:    "Alice",
		GuestContact: "081234567890",
		Occupancy:    2,
	})
	assert.NoError(t, err)

	found, err := ts.dining.FindByContact(1, "081234567890")
	assert.NoError(t, err)
	assert.Len(t, found, 1)

	none, err := ts.dining.FindByContact(1, "080000000000")
	assert.NoError(t, err)
	assert.Empty(t, none)
}
