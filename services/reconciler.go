package services

import (
	"errors"
	"time"

	"github.com/yeremiapane/restaurant-seating/events"
	"github.com/yeremiapane/restaurant-seating/models"
	"github.com/yeremiapane/restaurant-seating/utils"
	"gorm.io/gorm"
)

// ReconcileReport ringkasan koreksi satu pass, untuk visibilitas operasional
type ReconcileReport struct {
	NumbersNormalized      int `json:"numbers_normalized"`
	ProjectionsCreated     int `json:"projections_created"`
	DuplicateClaimsRemoved int `json:"duplicate_claims_removed"`
	StaffSessionsClosed    int `json:"staff_sessions_closed"`
	StaffSetsRepaired      int `json:"staff_sets_repaired"`
	TablesRepaired         int `json:"tables_repaired"`
	ProjectionsRepaired    int `json:"projections_repaired"`
	OrdersLinked           int `json:"orders_linked"`
}

// Total jumlah seluruh koreksi; nol berarti store sudah konsisten
func (r *ReconcileReport) Total() int {
	return r.NumbersNormalized + r.ProjectionsCreated + r.DuplicateClaimsRemoved +
		r.StaffSessionsClosed + r.StaffSetsRepaired + r.TablesRepaired +
		r.ProjectionsRepaired + r.OrdersLinked
}

// Reconciler pass batch idempotent yang mendeteksi dan memperbaiki drift
// antar registry. Satu-satunya komponen yang boleh memutasi state semata
// untuk memulihkan invariant, bukan karena aksi user.
type Reconciler struct {
	DB          *gorm.DB
	Projection  *ProjectionService
	Interval    time.Duration
	IdleTimeout time.Duration
	StopChan    chan struct{}
}

func NewReconciler(db *gorm.DB, projection *ProjectionService) *Reconciler {
	return &Reconciler{
		DB:          db,
		Projection:  projection,
		Interval:    1 * time.Minute,
		IdleTimeout: 8 * time.Hour,
		StopChan:    make(chan struct{}),
	}
}

// Start menjalankan pass berkala untuk seluruh tenant aktif
func (r *Reconciler) Start() {
	go func() {
		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.runAllTenants()
			case <-r.StopChan:
				return
			}
		}
	}()
	utils.InfoLogger.Println("Reconciler started")
}

func (r *Reconciler) Stop() {
	close(r.StopChan)
}

func (r *Reconciler) runAllTenants() {
	var tenants []models.Tenant
	if err := r.DB.Where("active = ?", true).Find(&tenants).Error; err != nil {
		utils.ErrorLogger.Printf("Reconciler: error fetching tenants: %v", err)
		return
	}
	for _, tenant := range tenants {
		if _, err := r.RunOnce(tenant.ID); err != nil {
			utils.ErrorLogger.Printf("Reconciler: pass failed for tenant %d: %v", tenant.ID, err)
		}
	}
}

// RunOnce satu pass untuk satu tenant. Aman dijalankan kapan saja; state
// yang sudah konsisten tidak dikoreksi dua kali.
func (r *Reconciler) RunOnce(tenantID uint) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	// repairDiningSessions harus jalan sebelum closeEmptyStaffSessions:
	// handover yang crash di tengah meninggalkan duty session penerima
	// kosong, dan penerima harus diberi mejanya dulu sebelum sapu
	// session-kosong lewat
	if err := r.normalizeNumbers(tenantID, report); err != nil {
		return report, err
	}
	if err := r.closeIdleStaffSessions(tenantID, report); err != nil {
		return report, err
	}
	if err := r.repairDiningSessions(tenantID, report); err != nil {
		return report, err
	}
	if err := r.attachOrphanOrders(tenantID, report); err != nil {
		return report, err
	}
	if err := r.resolveStaffClaims(tenantID, report); err != nil {
		return report, err
	}
	if err := r.closeEmptyStaffSessions(tenantID, report); err != nil {
		return report, err
	}
	if err := r.repairProjections(tenantID, report); err != nil {
		return report, err
	}

	if report.Total() > 0 {
		utils.InfoLogger.Printf(
			"Reconcile tenant %d: normalized=%d projections_created=%d duplicate_claims=%d staff_closed=%d staff_sets=%d tables=%d projections=%d orders=%d",
			tenantID, report.NumbersNormalized, report.ProjectionsCreated,
			report.DuplicateClaimsRemoved, report.StaffSessionsClosed,
			report.StaffSetsRepaired, report.TablesRepaired,
			report.ProjectionsRepaired, report.OrdersLinked)
		events.BroadcastMessage(events.Message{
			Event: events.EventReconcileReport,
			Data:  report,
		})
	}
	return report, nil
}

// normalizeNumbers menyamakan format nomor meja antar registry supaya
// lookup cocok (mis. beda leading zero)
func (r *Reconciler) normalizeNumbers(tenantID uint, report *ReconcileReport) error {
	var tables []models.Table
	if err := r.DB.Where("tenant_id = ?", tenantID).Find(&tables).Error; err != nil {
		return err
	}
	for i := range tables {
		t := &tables[i]
		normalized := utils.NormalizeTableNumber(t.TableNumber)
		if normalized == t.TableNumber {
			continue
		}
		t.TableNumber = normalized
		if err := r.DB.Save(t).Error; err != nil {
			return err
		}
		report.NumbersNormalized++
	}

	var staffSessions []models.StaffSession
	if err := r.DB.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Find(&staffSessions).Error; err != nil {
		return err
	}
	for i := range staffSessions {
		ss := &staffSessions[i]
		changed := false
		seen := map[string]bool{}
		normalized := make([]string, 0, len(ss.Tables))
		for _, raw := range ss.Tables {
			number := utils.NormalizeTableNumber(raw)
			if number != raw {
				changed = true
			}
			if seen[number] {
				changed = true
				continue
			}
			seen[number] = true
			normalized = append(normalized, number)
		}
		if changed {
			ss.Tables = normalized
			if err := r.DB.Save(ss).Error; err != nil {
				return err
			}
			report.NumbersNormalized++
		}
	}

	var diningSessions []models.DiningSession
	if err := r.DB.Where("tenant_id = ? AND status <> ?", tenantID, SessionStatusClosed).
		Find(&diningSessions).Error; err != nil {
		return err
	}
	for i := range diningSessions {
		ds := &diningSessions[i]
		normalized := utils.NormalizeTableNumber(ds.TableNumber)
		if normalized == ds.TableNumber {
			continue
		}
		ds.TableNumber = normalized
		if err := r.DB.Save(ds).Error; err != nil {
			return err
		}
		report.NumbersNormalized++
	}

	var states []models.TableState
	if err := r.DB.Where("tenant_id = ?", tenantID).Find(&states).Error; err != nil {
		return err
	}
	for i := range states {
		st := &states[i]
		normalized := utils.NormalizeTableNumber(st.TableNumber)
		if normalized == st.TableNumber {
			continue
		}
		st.TableNumber = normalized
		if err := r.DB.Save(st).Error; err != nil {
			return err
		}
		report.NumbersNormalized++
	}
	return nil
}

// closeIdleStaffSessions tutup paksa duty session yang diam melewati
// IdleTimeout; jalur live tidak pernah melakukan ini
func (r *Reconciler) closeIdleStaffSessions(tenantID uint, report *ReconcileReport) error {
	cutoff := time.Now().Add(-r.IdleTimeout)
	var sessions []models.StaffSession
	if err := r.DB.Where("tenant_id = ? AND is_active = ? AND last_activity_at < ?",
		tenantID, true, cutoff).Find(&sessions).Error; err != nil {
		return err
	}

	for i := range sessions {
		ss := &sessions[i]
		released := ss.Tables
		now := time.Now()
		ss.IsActive = false
		ss.LogoutAt = &now
		ss.Tables = nil
		if err := r.DB.Save(ss).Error; err != nil {
			return err
		}
		report.StaffSessionsClosed++
		utils.InfoLogger.Printf("Reconcile: force-closed idle duty session %d (staff=%d)", ss.ID, ss.StaffID)

		for _, number := range released {
			r.Projection.Rebuild(tenantID, number)
		}
	}
	return nil
}

// resolveStaffClaims memastikan tiap meja yang dipegang staff punya baris
// projection yang menunjuk balik, dan meja yang diklaim lebih dari satu
// session aktif disisakan ke klaim paling baru
func (r *Reconciler) resolveStaffClaims(tenantID uint, report *ReconcileReport) error {
	var sessions []models.StaffSession
	if err := r.DB.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("last_activity_at DESC").Find(&sessions).Error; err != nil {
		return err
	}

	claims := map[string][]*models.StaffSession{}
	for i := range sessions {
		ss := &sessions[i]
		for _, number := range ss.Tables {
			claims[number] = append(claims[number], ss)
		}
	}

	for number, claimants := range claims {
		// Klaim ganda: pemenang yang paling baru aktif (urutan query)
		if len(claimants) > 1 {
			for _, loser := range claimants[1:] {
				kept := make([]string, 0, len(loser.Tables))
				for _, t := range loser.Tables {
					if t == number {
						continue
					}
					kept = append(kept, t)
				}
				loser.Tables = kept
				if err := r.DB.Save(loser).Error; err != nil {
					return err
				}
				report.DuplicateClaimsRemoved++
				utils.InfoLogger.Printf("Reconcile: stripped duplicate claim on table %s from session %d",
					number, loser.ID)
			}
		}

		var count int64
		if err := r.DB.Model(&models.TableState{}).
			Where("tenant_id = ? AND table_number = ?", tenantID, number).
			Count(&count).Error; err != nil {
			return err
		}
		missing := count == 0

		if _, changed, err := r.Projection.Rebuild(tenantID, number); err != nil {
			if err == ErrTableNotFound {
				// Klaim atas meja yang tidak ada: lepaskan dari set staff
				winner := claimants[0]
				kept := make([]string, 0, len(winner.Tables))
				for _, t := range winner.Tables {
					if t == number {
						continue
					}
					kept = append(kept, t)
				}
				winner.Tables = kept
				if err := r.DB.Save(winner).Error; err != nil {
					return err
				}
				report.DuplicateClaimsRemoved++
				continue
			}
			return err
		} else if missing {
			report.ProjectionsCreated++
		} else if changed && len(claimants) == 1 {
			report.ProjectionsRepaired++
		}
	}
	return nil
}

// closeEmptyStaffSessions menutup duty session aktif yang set mejanya kosong
func (r *Reconciler) closeEmptyStaffSessions(tenantID uint, report *ReconcileReport) error {
	var sessions []models.StaffSession
	if err := r.DB.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Find(&sessions).Error; err != nil {
		return err
	}

	for i := range sessions {
		ss := &sessions[i]
		if len(ss.Tables) > 0 {
			continue
		}
		now := time.Now()
		ss.IsActive = false
		ss.LogoutAt = &now
		if err := r.DB.Save(ss).Error; err != nil {
			return err
		}
		report.StaffSessionsClosed++
		utils.InfoLogger.Printf("Reconcile: closed empty duty session %d (staff=%d)", ss.ID, ss.StaffID)
	}
	return nil
}

// repairDiningSessions memastikan tiap dining session aktif didukung meja
// berstatus occupied, projection yang menunjuknya, dan set meja primary
// staff yang memuat mejanya. Kasus terakhir adalah handover yang crash di
// tengah: session sudah pindah primary tapi set meja staff belum disentuh.
func (r *Reconciler) repairDiningSessions(tenantID uint, report *ReconcileReport) error {
	var sessions []models.DiningSession
	if err := r.DB.Where("tenant_id = ? AND status = ?", tenantID, SessionStatusActive).
		Find(&sessions).Error; err != nil {
		return err
	}

	for i := range sessions {
		ds := &sessions[i]

		var table models.Table
		err := r.DB.Where("tenant_id = ? AND table_number = ?", tenantID, ds.TableNumber).
			First(&table).Error
		if err != nil {
			utils.ErrorLogger.Printf("Reconcile: active session %d references missing table %s",
				ds.ID, ds.TableNumber)
			continue
		}

		if table.Status != TableStatusOccupied ||
			!uintPtrEqual(table.CurrentSessionID, &ds.ID) ||
			!uintPtrEqual(table.CurrentStaffID, &ds.PrimaryStaffID) {
			table.Status = TableStatusOccupied
			table.CurrentSessionID = &ds.ID
			table.CurrentStaffID = &ds.PrimaryStaffID
			if err := r.DB.Save(&table).Error; err != nil {
				return err
			}
			report.TablesRepaired++
			utils.InfoLogger.Printf("Reconcile: table %s forced occupied for active session %d",
				table.TableNumber, ds.ID)
		}

		if err := r.alignPrimaryStaffSet(tenantID, ds, report); err != nil {
			return err
		}

		if _, changed, err := r.Projection.Rebuild(tenantID, ds.TableNumber); err != nil {
			return err
		} else if changed {
			report.ProjectionsRepaired++
		}
	}
	return nil
}

// alignPrimaryStaffSet menambahkan meja session ke duty session primary
// staff bila belum ada, dan mencabut klaim staff lain atas meja tsb
func (r *Reconciler) alignPrimaryStaffSet(tenantID uint, ds *models.DiningSession, report *ReconcileReport) error {
	var duty models.StaffSession
	err := r.DB.Where("tenant_id = ? AND staff_id = ? AND is_active = ?",
		tenantID, ds.PrimaryStaffID, true).First(&duty).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.ErrorLogger.Printf("Reconcile: primary staff %d of session %d has no active duty session",
			ds.PrimaryStaffID, ds.ID)
		return nil
	}
	if err != nil {
		return err
	}
	if duty.HasTable(ds.TableNumber) {
		return nil
	}

	duty.Tables = append(duty.Tables, ds.TableNumber)
	duty.LastActivityAt = time.Now()
	if err := r.DB.Save(&duty).Error; err != nil {
		return err
	}

	// Pemegang lama kehilangan mejanya, seperti pada handover yang utuh
	var others []models.StaffSession
	if err := r.DB.Where("tenant_id = ? AND is_active = ? AND id <> ?",
		tenantID, true, duty.ID).Find(&others).Error; err != nil {
		return err
	}
	for i := range others {
		ss := &others[i]
		if !ss.HasTable(ds.TableNumber) {
			continue
		}
		kept := make([]string, 0, len(ss.Tables))
		for _, t := range ss.Tables {
			if t == ds.TableNumber {
				continue
			}
			kept = append(kept, t)
		}
		ss.Tables = kept
		if err := r.DB.Save(ss).Error; err != nil {
			return err
		}
	}

	report.StaffSetsRepaired++
	utils.InfoLogger.Printf("Reconcile: table %s restored to primary staff %d for session %d",
		ds.TableNumber, ds.PrimaryStaffID, ds.ID)
	return nil
}

// attachOrphanOrders menarik order tanpa session yang mejanya punya dining
// session aktif; penyelamat bila fold-in saat open gagal transient
func (r *Reconciler) attachOrphanOrders(tenantID uint, report *ReconcileReport) error {
	var sessions []models.DiningSession
	if err := r.DB.Where("tenant_id = ? AND status = ?", tenantID, SessionStatusActive).
		Find(&sessions).Error; err != nil {
		return err
	}

	for i := range sessions {
		ds := &sessions[i]

		var orders []models.Order
		if err := r.DB.Where("tenant_id = ? AND table_number = ? AND customer_session_id IS NULL",
			tenantID, ds.TableNumber).Find(&orders).Error; err != nil {
			return err
		}
		if len(orders) == 0 {
			continue
		}

		for j := range orders {
			orders[j].CustomerSessionID = &ds.ID
			if err := r.DB.Save(&orders[j]).Error; err != nil {
				return err
			}
			ds.OrderIDs = append(ds.OrderIDs, orders[j].ID)
		}

		var total float64
		if err := r.DB.Model(&models.Order{}).
			Where("tenant_id = ? AND id IN ?", tenantID, ds.OrderIDs).
			Select("COALESCE(SUM(total), 0)").Scan(&total).Error; err != nil {
			return err
		}
		ds.TotalAmount = total
		if err := r.DB.Save(ds).Error; err != nil {
			return err
		}

		report.OrdersLinked += len(orders)
		utils.InfoLogger.Printf("Reconcile: attached %d orphan orders to session %d (total=%.2f)",
			len(orders), ds.ID, ds.TotalAmount)
	}
	return nil
}

// repairProjections membersihkan referensi session menggantung pada projection
func (r *Reconciler) repairProjections(tenantID uint, report *ReconcileReport) error {
	var states []models.TableState
	if err := r.DB.Where("tenant_id = ? AND active_session_id IS NOT NULL", tenantID).
		Find(&states).Error; err != nil {
		return err
	}

	for i := range states {
		st := &states[i]
		var active int64
		if err := r.DB.Model(&models.DiningSession{}).
			Where("tenant_id = ? AND id = ? AND status = ?",
				tenantID, *st.ActiveSessionID, SessionStatusActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			continue
		}

		if _, changed, err := r.Projection.Rebuild(tenantID, st.TableNumber); err != nil {
			if err == ErrTableNotFound {
				if err := r.DB.Delete(st).Error; err != nil {
					return err
				}
				report.ProjectionsRepaired++
			} else {
				return err
			}
		} else if changed {
			report.ProjectionsRepaired++
		}
	}
	return nil
}
