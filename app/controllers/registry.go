package controllers

import (
	"github.com/bkplatform/backend-go/internal/auth"
	"github.com/bkplatform/backend-go/internal/services"
)

// Registry 控制器依赖的服务集合
// beego按请求反射创建控制器实例，字段无法在路由注册时注入，
// 因此由bootstrap装配后统一挂到包级注册表，Prepare阶段取用。
type Registry struct {
	JWT       *auth.JWTService
	Users     *services.UserService
	Documents *services.DocumentService
	Search    *services.SearchService
	Knowledge *services.KnowledgeService
}

var registry *Registry

// SetRegistry 注入服务注册表（bootstrap初始化时调用一次）
func SetRegistry(r *Registry) {
	registry = r
}
