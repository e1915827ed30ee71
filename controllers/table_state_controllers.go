package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-seating/services"
	"github.com/yeremiapane/restaurant-seating/utils"
)

// TableStateController membaca projection untuk layar service. Handler di
// sini tidak pernah menulis baris table_states langsung; penulisan hanya
// lewat jalur rebuild/reconcile.
type TableStateController struct {
	Projection *services.ProjectionService
}

func NewTableStateController(projection *services.ProjectionService) *TableStateController {
	return &TableStateController{Projection: projection}
}

// GetTableState -> view cepat status/staff/session satu meja
func (tsc *TableStateController) GetTableState(c *gin.Context) {
	state, err := tsc.Projection.Get(c.GetUint("tenant_id"), c.Param("table_number"))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table state", state)
}

// RebuildTableStates -> rebuild seluruh projection tenant (admin)
func (tsc *TableStateController) RebuildTableStates(c *gin.Context) {
	roleInterface, _ := c.Get("role")
	if roleInterface != "admin" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	rebuilt, err := tsc.Projection.RebuildAll(c.GetUint("tenant_id"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Projections rebuilt", gin.H{"rebuilt": rebuilt})
}
