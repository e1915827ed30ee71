package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-seating/services"
	"github.com/yeremiapane/restaurant-seating/utils"
)

type DiningSessionController struct {
	Sessions *services.DiningSessionService
}

func NewDiningSessionController(sessions *services.DiningSessionService) *DiningSessionController {
	return &DiningSessionController{Sessions: sessions}
}

// OpenSession -> mendudukkan rombongan di satu meja
func (dc *DiningSessionController) OpenSession(c *gin.Context) {
	var req services.OpenSessionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := dc.Sessions.Open(c.GetUint("tenant_id"), c.Param("table_number"),
		c.GetUint("staff_id"), req)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Dining session opened", session)
}

// GetSession -> detail satu dining session beserta riwayat handover
func (dc *DiningSessionController) GetSession(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := dc.Sessions.GetSession(c.GetUint("tenant_id"), uint(sessionID))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dining session detail", session)
}

// FindByContact -> cari session lewat kontak tamu (?contact=)
func (dc *DiningSessionController) FindByContact(c *gin.Context) {
	contact := c.Query("contact")
	if contact == "" {
		utils.RespondError(c, http.StatusBadRequest, &CustomError{"contact query is required"})
		return
	}

	sessions, err := dc.Sessions.FindByContact(c.GetUint("tenant_id"), contact)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sessions found", sessions)
}

// LinkOrder -> menautkan order ke session berjalan
func (dc *DiningSessionController) LinkOrder(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		OrderID uint `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := dc.Sessions.LinkOrder(c.GetUint("tenant_id"), uint(sessionID), body.OrderID)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order linked", session)
}

// Handover -> memindahkan tanggung jawab meja ke staff lain
func (dc *DiningSessionController) Handover(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		ToStaffID uint   `json:"to_staff_id" binding:"required"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := dc.Sessions.Handover(c.GetUint("tenant_id"), uint(sessionID),
		c.GetUint("staff_id"), body.ToStaffID, body.Reason)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session handed over", session)
}

// Checkout -> session masuk payment_pending, durasi dihitung
func (dc *DiningSessionController) Checkout(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := dc.Sessions.Checkout(c.GetUint("tenant_id"), uint(sessionID))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session checkout", session)
}

// CloseSession -> menutup session; meja dilepas bila tidak ada order belum bayar
func (dc *DiningSessionController) CloseSession(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("session_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var body struct {
		Feedback string `json:"feedback"`
	}
	_ = c.ShouldBindJSON(&body)

	session, err := dc.Sessions.Close(c.GetUint("tenant_id"), uint(sessionID), body.Feedback)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Session closed", session)
}
