package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/bkplatform/backend-go/app/bootstrap"
	"github.com/bkplatform/backend-go/app/router"
	"github.com/bkplatform/backend-go/internal/config"
	"github.com/bkplatform/backend-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	router.Init(app.JWT)

	web.BConfig.AppName = "bk-platform"
	web.BConfig.CopyRequestBody = true
	if config.AppConfig.Server.Env == "production" {
		web.BConfig.RunMode = web.PROD
	}
	if p, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = p
	}

	logger.Info("starting server", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
