package middlewares

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-seating/models"
	"github.com/yeremiapane/restaurant-seating/utils"
	"gorm.io/gorm"
)

// TenantMiddleware membaca X-Tenant-ID dan memastikan tenant ada serta
// aktif sebelum request menyentuh registry manapun
func TenantMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-Tenant-ID")
		if header == "" {
			utils.RespondError(c, http.StatusBadRequest, errors.New("X-Tenant-ID header missing"))
			c.Abort()
			return
		}

		tenantID, err := strconv.Atoi(header)
		if err != nil || tenantID <= 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid tenant id"))
			c.Abort()
			return
		}

		var tenant models.Tenant
		if err := db.First(&tenant, tenantID).Error; err != nil {
			utils.RespondError(c, http.StatusNotFound, errors.New("tenant not found"))
			c.Abort()
			return
		}
		if !tenant.Active {
			utils.RespondError(c, http.StatusForbidden, errors.New("tenant is not active"))
			c.Abort()
			return
		}

		c.Set("tenant_id", tenant.ID)
		c.Next()
	}
}
