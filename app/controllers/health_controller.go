package controllers

import (
	"net/http"

	"github.com/bkplatform/backend-go/internal/database"
)

// HealthController 存活与就绪探针
type HealthController struct {
	BaseController
}

// Health GET /health
func (c *HealthController) Health() {
	c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// Ready GET /ready 依赖就绪检查（当前只看数据库连通性）
func (c *HealthController) Ready() {
	if database.DB == nil {
		c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "database": "down"})
		return
	}
	sqlDB, err := database.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "database": "up"})
}
