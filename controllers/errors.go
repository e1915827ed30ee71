package controllers

import (
	"errors"
	"net/http"

	"github.com/yeremiapane/restaurant-seating/services"
)

// ErrNoPermission contoh error custom untuk akses terlarang
var ErrNoPermission = &CustomError{"You do not have permission"}

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// statusForError memetakan taksonomi error service ke kode HTTP
func statusForError(err error) int {
	switch {
	case services.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTenantInactive):
		return http.StatusForbidden
	case services.IsNotFound(err):
		return http.StatusNotFound
	case services.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
