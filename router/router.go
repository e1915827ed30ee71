package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-seating/controllers"
	"github.com/yeremiapane/restaurant-seating/middlewares"
	"github.com/yeremiapane/restaurant-seating/services"
	"gorm.io/gorm"
)

// SetupRouter merangkai seluruh handler. Projection dan reconciler diberikan
// dari luar supaya ticker background dan request path memakai satu instance
// (satu cache) yang sama.
func SetupRouter(db *gorm.DB, projection *services.ProjectionService, reconciler *services.Reconciler) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	tables := services.NewTableService(db, projection)
	staff := services.NewStaffSessionService(db, projection)
	dining := services.NewDiningSessionService(db, projection, staff)

	tableCtrl := controllers.NewTableController(tables)
	staffCtrl := controllers.NewStaffSessionController(staff)
	diningCtrl := controllers.NewDiningSessionController(dining)
	stateCtrl := controllers.NewTableStateController(projection)
	reconcileCtrl := controllers.NewReconcilerController(reconciler)

	api := r.Group("/api/v1")
	api.Use(middlewares.AuthMiddleware())
	api.Use(middlewares.TenantMiddleware(db))
	{
		api.POST("/tables", tableCtrl.CreateTable)
		api.GET("/tables", tableCtrl.GetAllTables)
		api.GET("/dashboard/stats", tableCtrl.GetDashboardStats)
		api.PATCH("/tables", tableCtrl.BulkUpdateStatus)
		api.GET("/tables/:table_number", tableCtrl.GetTable)
		api.PATCH("/tables/:table_number/status", tableCtrl.UpdateTableStatus)
		api.POST("/tables/:table_number/combine", tableCtrl.CombineTables)
		api.POST("/tables/:table_number/split", tableCtrl.SplitTable)
		api.DELETE("/tables/:table_number", tableCtrl.DeactivateTable)

		api.POST("/staff-sessions", staffCtrl.StartDuty)
		api.GET("/staff-sessions", staffCtrl.GetActiveSessions)
		api.POST("/staff-sessions/:session_id/tables", staffCtrl.AddTable)
		api.DELETE("/staff-sessions/:session_id/tables/:table_number", staffCtrl.RemoveTable)
		api.POST("/staff-sessions/:session_id/end", staffCtrl.EndDuty)

		api.POST("/tables/:table_number/sessions", diningCtrl.OpenSession)
		api.GET("/dining-sessions", diningCtrl.FindByContact)
		api.GET("/dining-sessions/:session_id", diningCtrl.GetSession)
		api.POST("/dining-sessions/:session_id/orders", diningCtrl.LinkOrder)
		api.POST("/dining-sessions/:session_id/handover", diningCtrl.Handover)
		api.POST("/dining-sessions/:session_id/checkout", diningCtrl.Checkout)
		api.POST("/dining-sessions/:session_id/close", diningCtrl.CloseSession)

		api.GET("/table-states/:table_number", stateCtrl.GetTableState)
		api.POST("/table-states/rebuild", stateCtrl.RebuildTableStates)

		api.POST("/reconcile", middlewares.NewStrictRateLimiter(), reconcileCtrl.RunReconcile)
	}

	// WebSocket untuk layar service
	ws := r.Group("/ws")
	ws.Use(middlewares.AuthMiddleware())
	ws.GET("/events", controllers.EventsHandler)

	return r
}
