package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web/context"

	"github.com/bkplatform/backend-go/internal/auth"
)

// 无需认证即可访问的路径
var publicPaths = []string{
	"/health",
	"/ready",
	"/metrics",
	"/api/auth/register",
	"/api/auth/login",
}

// JWTFilter 校验Bearer token并把user_id写入请求上下文
// 注册为/api/*的前置过滤器，白名单路径直接放行。
func JWTFilter(jwtService *auth.JWTService) func(ctx *context.Context) {
	return func(ctx *context.Context) {
		path := ctx.Input.URL()
		for _, p := range publicPaths {
			if path == p {
				return
			}
		}
		if ctx.Input.Method() == http.MethodOptions {
			return
		}

		token, err := auth.ExtractTokenFromHeader(ctx.Input.Header("Authorization"))
		if err != nil {
			unauthorized(ctx, "missing or malformed authorization header")
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			msg := "invalid token"
			if strings.Contains(err.Error(), "expired") {
				msg = "token expired"
			}
			unauthorized(ctx, msg)
			return
		}

		ctx.Input.SetData("user_id", claims.UserID)
		ctx.Input.SetData("user_email", claims.Email)
	}
}

func unauthorized(ctx *context.Context, message string) {
	body, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   message,
	})
	ctx.Output.Header("Content-Type", "application/json; charset=utf-8")
	ctx.Output.SetStatus(http.StatusUnauthorized)
	ctx.Output.Body(body)
}
