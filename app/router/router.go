package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/bkplatform/backend-go/app/controllers"
	"github.com/bkplatform/backend-go/app/middleware"
	"github.com/bkplatform/backend-go/internal/auth"
	"github.com/bkplatform/backend-go/internal/metrics"
)

// Init 注册全部路由与过滤器，必须在服务装配完成后调用
func Init(jwtService *auth.JWTService) {
	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)
	web.InsertFilter("/api/*", web.BeforeRouter, middleware.JWTFilter(jwtService))

	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/ready", &controllers.HealthController{}, "get:Ready")
	metrics.RegisterHandler()

	// 认证
	web.Router("/api/auth/register", &controllers.AuthController{}, "post:Register")
	web.Router("/api/auth/login", &controllers.AuthController{}, "post:Login")
	web.Router("/api/auth/profile", &controllers.AuthController{}, "get:Profile")

	// 文档
	documentController := &controllers.DocumentController{}
	web.Router("/api/documents/upload", documentController, "post:Upload")
	web.Router("/api/documents", documentController, "get:List")
	web.Router("/api/documents/:id", documentController, "get:Get;delete:Delete")

	// 检索与问答
	web.Router("/api/search", &controllers.SearchController{}, "get:Search")
	web.Router("/api/knowledge/ask", &controllers.KnowledgeController{}, "post:Ask")
}
