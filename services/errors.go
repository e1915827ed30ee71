package services

import (
	"errors"

	"github.com/yeremiapane/restaurant-seating/models"
	"gorm.io/gorm"
)

// Validation errors: ditolak sebelum ada tulisan apapun, caller bisa retry
var (
	ErrTenantRequired    = errors.New("tenant context is required")
	ErrTableNumberEmpty  = errors.New("table number is required")
	ErrInvalidCapacity   = errors.New("invalid capacity bounds")
	ErrInvalidStatus     = errors.New("invalid table status")
	ErrInvalidOccupancy  = errors.New("occupancy must be at least 1")
	ErrOccupancyTooLarge = errors.New("occupancy exceeds table capacity")
	ErrNotCombinable     = errors.New("table does not allow combination")
	ErrNotReciprocal     = errors.New("tables are not reciprocally combinable")
	ErrSelfCombination   = errors.New("table cannot be combined with itself")
	ErrSameStaff         = errors.New("handover requires two different staff members")
)

// Conflict errors: business conflict, tidak pernah ditimpa diam-diam
var (
	ErrDuplicateTableNumber = errors.New("table number already exists for tenant")
	ErrTableNotAvailable    = errors.New("table is not available")
	ErrTableOccupied        = errors.New("table is occupied")
	ErrAlreadyCombined      = errors.New("table is already combined")
	ErrNotCombined          = errors.New("table is not combined")
	ErrSubTableLocked       = errors.New("sub-table state is managed by its main table")
	ErrSessionAlreadyActive = errors.New("an active dining session already exists for this table")
	ErrSessionNotActive     = errors.New("dining session is not active")
	ErrSessionNotPending    = errors.New("dining session is not awaiting payment")
	ErrSessionClosed        = errors.New("dining session is closed")
	ErrNotAssigned          = errors.New("staff is not assigned to this table")
	ErrNotPrimaryStaff      = errors.New("staff is not the primary server of this session")
	ErrNoActiveDuty         = errors.New("staff has no active duty session")
	ErrGuestsStillSeated    = errors.New("cannot end duty while guests are still seated")
	ErrOrderAlreadyLinked   = errors.New("order is already linked to a session")
)

// Fatal errors: operasi dibatalkan seluruhnya
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantInactive = errors.New("tenant is not active")
)

// Not found
var (
	ErrTableNotFound        = errors.New("table not found")
	ErrSessionNotFound      = errors.New("dining session not found")
	ErrStaffSessionNotFound = errors.New("staff session not found")
	ErrOrderNotFound        = errors.New("order not found")
)

var validationErrors = []error{
	ErrTenantRequired, ErrTableNumberEmpty, ErrInvalidCapacity, ErrInvalidStatus,
	ErrInvalidOccupancy, ErrOccupancyTooLarge, ErrNotCombinable, ErrNotReciprocal,
	ErrSelfCombination, ErrSameStaff,
}

var conflictErrors = []error{
	ErrDuplicateTableNumber, ErrTableNotAvailable, ErrTableOccupied,
	ErrAlreadyCombined, ErrNotCombined, ErrSubTableLocked,
	ErrSessionAlreadyActive, ErrSessionNotActive, ErrSessionNotPending,
	ErrSessionClosed, ErrNotAssigned, ErrNotPrimaryStaff, ErrNoActiveDuty,
	ErrGuestsStillSeated, ErrOrderAlreadyLinked,
}

var notFoundErrors = []error{
	ErrTenantNotFound, ErrTableNotFound, ErrSessionNotFound,
	ErrStaffSessionNotFound, ErrOrderNotFound,
}

func matchAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// IsValidation cek apakah error termasuk kelas validation
func IsValidation(err error) bool { return matchAny(err, validationErrors) }

// IsConflict cek apakah error termasuk kelas business conflict
func IsConflict(err error) bool { return matchAny(err, conflictErrors) }

// IsNotFound cek apakah error termasuk kelas not-found
func IsNotFound(err error) bool { return matchAny(err, notFoundErrors) }

// requireActiveTenant prasyarat setiap create/mutate: tenant ada dan aktif
func requireActiveTenant(db *gorm.DB, tenantID uint) error {
	if tenantID == 0 {
		return ErrTenantRequired
	}
	var tenant models.Tenant
	if err := db.First(&tenant, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTenantNotFound
		}
		return err
	}
	if !tenant.Active {
		return ErrTenantInactive
	}
	return nil
}
