package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-seating/services"
	"github.com/yeremiapane/restaurant-seating/utils"
)

type TableController struct {
	Tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{Tables: tables}
}

// CreateTable -> menambahkan meja baru
func (tc *TableController) CreateTable(c *gin.Context) {
	var req services.CreateTableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.CreateTable(c.GetUint("tenant_id"), req)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> menampilkan seluruh meja, opsional filter ?status=
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.ListTables(c.GetUint("tenant_id"), c.Query("status"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// GetTable -> detail satu meja
func (tc *TableController) GetTable(c *gin.Context) {
	table, err := tc.Tables.GetTable(c.GetUint("tenant_id"), c.Param("table_number"))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// UpdateTableStatus -> update status meja
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.UpdateStatus(c.GetUint("tenant_id"),
		c.Param("table_number"), body.Status, body.Reason)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table status updated", table)
}

// CombineTables -> menggabungkan meja di bawah satu meja utama
func (tc *TableController) CombineTables(c *gin.Context) {
	var body struct {
		SubTables   []string `json:"sub_tables" binding:"required"`
		Arrangement string   `json:"arrangement"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.Combine(c.GetUint("tenant_id"), c.Param("table_number"),
		body.SubTables, c.GetUint("staff_id"), body.Arrangement)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Tables combined", table)
}

// SplitTable -> membubarkan kombinasi meja
func (tc *TableController) SplitTable(c *gin.Context) {
	table, err := tc.Tables.Split(c.GetUint("tenant_id"), c.Param("table_number"),
		c.GetUint("staff_id"))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables split", table)
}

// DeactivateTable -> menonaktifkan meja secara logis
func (tc *TableController) DeactivateTable(c *gin.Context) {
	roleInterface, _ := c.Get("role")
	if roleInterface != "admin" {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	table, err := tc.Tables.Deactivate(c.GetUint("tenant_id"), c.Param("table_number"))
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deactivated", table)
}

// BulkUpdateStatus -> ubah status banyak meja sekaligus
func (tc *TableController) BulkUpdateStatus(c *gin.Context) {
	var body struct {
		TableNumbers []string `json:"table_numbers" binding:"required"`
		Status       string   `json:"status" binding:"required"`
		Reason       string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := tc.Tables.BulkUpdateStatus(c.GetUint("tenant_id"),
		body.TableNumbers, body.Status, body.Reason)
	if err != nil {
		utils.RespondError(c, statusForError(err), err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Tables updated", gin.H{"updated": updated})
}

// GetDashboardStats -> jumlah meja per status untuk dashboard
func (tc *TableController) GetDashboardStats(c *gin.Context) {
	stats, err := tc.Tables.DashboardStats(c.GetUint("tenant_id"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}
