package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-seating/services"
	"github.com/yeremiapane/restaurant-seating/utils"
)

type ReconcilerController struct {
	Reconciler *services.Reconciler
}

func NewReconcilerController(reconciler *services.Reconciler) *ReconcilerController {
	return &ReconcilerController{Reconciler: reconciler}
}

// RunReconcile -> pass rekonsiliasi on-demand, hasilnya ringkasan koreksi
func (rc *ReconcilerController) RunReconcile(c *gin.Context) {
	roleInterface, _ := c.Get("role")
	if roleInterface != "admin" && roleInterface != "staff" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	report, err := rc.Reconciler.RunOnce(c.GetUint("tenant_id"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Reconciliation completed", report)
}
