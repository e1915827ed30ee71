package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-seating/services"
	"github.com/yeremiapane/restaurant-seating/utils"
)

type StaffSessionController struct {
	Staff *services.StaffSessionService
}

func NewStaffSessionController(staff *services.StaffSessionService) *StaffSessionController {
	return &StaffSessionController{Staff: staff}
}

// StartDuty -> membuka duty session untuk staff yang login
func (sc *StaffSessionController) StartDuty(c *gin.Context) {
	var body struct {
		Device string `json:"device"`
	}
	// Body opsional
	_ = c.ShouldBindJSON(&body)

	session, err := sc.Staff.StartDuty(c.GetUint("tenant_id"), c.GetUint("staff_id"), body.Device)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Duty started", session)
}

// GetActiveSessions -> daftar duty session aktif tenant
func (sc *StaffSessionController) GetActiveSessions(c *gin.Context) {
	sessions, err := sc.Staff.ListActive(c.GetUint("tenant_id"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active duty sessions", sessions)
}

// AddTable -> menugaskan meja ke duty session
func (sc *StaffSessionController) AddTable(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		TableNumber string `json:"table_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := sc.Staff.AddTable(c.GetUint("tenant_id"), uint(sessionID), body.TableNumber)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table assigned", session)
}

// RemoveTable -> melepaskan meja dari duty session
func (sc *StaffSessionController) RemoveTable(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := sc.Staff.RemoveTable(c.GetUint("tenant_id"), uint(sessionID),
		c.Param("table_number"))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table unassigned", session)
}

// EndDuty -> menutup duty session; ditolak kalau masih ada tamu duduk
func (sc *StaffSessionController) EndDuty(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := sc.Staff.EndDuty(c.GetUint("tenant_id"), uint(sessionID))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Duty ended", session)
}
