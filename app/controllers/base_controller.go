package controllers

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"

	apperrors "github.com/bkplatform/backend-go/internal/errors"
	"github.com/bkplatform/backend-go/internal/logger"
	"go.uber.org/zap"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 按业务错误码映射HTTP状态后输出错误信封
func (c *BaseController) JSONAppError(err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		c.JSONError(appErr.HTTPCode, appErr.Message)
		return
	}
	logger.Error("未分类的请求处理错误",
		zap.String("path", c.Ctx.Request.RequestURI),
		zap.Error(err))
	c.JSONError(http.StatusInternalServerError, "internal server error")
}

// currentUserID 读取JWT过滤器写入的认证用户ID
func (c *BaseController) currentUserID() (uint, bool) {
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		if userID, ok := v.(uint); ok && userID > 0 {
			return userID, true
		}
	}
	c.JSONError(http.StatusUnauthorized, "authentication required")
	return 0, false
}
