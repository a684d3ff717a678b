package bootstrap

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bkplatform/backend-go/app/controllers"
	"github.com/bkplatform/backend-go/internal/auth"
	"github.com/bkplatform/backend-go/internal/config"
	"github.com/bkplatform/backend-go/internal/database"
	"github.com/bkplatform/backend-go/internal/kafka"
	"github.com/bkplatform/backend-go/internal/knowledge"
	"github.com/bkplatform/backend-go/internal/logger"
	"github.com/bkplatform/backend-go/internal/services"
	"github.com/bkplatform/backend-go/internal/storage"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	JWT          *auth.JWTService
	cleanupTasks []func() error
}

// Global app instance for the entrypoint to access.
var globalApp *App

// GetApp returns the global app instance.
func GetApp() *App {
	return globalApp
}

// Init bootstraps configuration, logger, database connections and the service
// graph required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	app := &App{}
	cfg := config.AppConfig

	db, err := database.InitDB()
	if err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, database.CloseDB)

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = database.InitRedis()
		if err != nil {
			logger.Warn("Redis不可用，搜索缓存关闭", zap.Error(err))
			cache = nil
		} else {
			app.cleanupTasks = append(app.cleanupTasks, database.CloseRedis)
		}
	}

	if cfg.Kafka.Enabled {
		if err := kafka.InitProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("Kafka不可用，审计事件关闭", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				return kafka.GetProducer().Close()
			})
		}
	}

	store, err := buildObjectStore(cfg)
	if err != nil {
		return nil, err
	}

	vectors, err := buildVectorStore(cfg)
	if err != nil {
		return nil, err
	}

	embedder := knowledge.NewOpenAIEmbedder(cfg.Knowledge.Embedding.APIKey, cfg.Knowledge.Embedding.Model)
	if !embedder.Ready() {
		logger.Warn("未配置嵌入凭据，文档摄取与检索将不可用")
	}

	chunker, err := knowledge.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	ingestor := knowledge.NewIngestor(chunker, embedder, vectors, knowledge.NewGormChunkStore(db))
	retriever := knowledge.NewRetriever(embedder, vectors)

	app.JWT = auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer,
		time.Duration(cfg.JWT.ExpiresInMins)*time.Minute)

	activity := services.NewActivityService(db)
	controllers.SetRegistry(&controllers.Registry{
		JWT:       app.JWT,
		Users:     services.NewUserService(db),
		Documents: services.NewDocumentService(db, store, ingestor, activity, cfg.FileUpload.MaxSize),
		Search:    services.NewSearchService(retriever, activity, cache, cfg.Knowledge.Retrieval),
		Knowledge: services.NewKnowledgeService(retriever, activity, cfg.LLM, cfg.Knowledge.Retrieval, cfg.Knowledge.QA),
	})

	globalApp = app
	logger.Info("应用初始化完成",
		zap.String("object_store", cfg.Knowledge.Storage.Provider),
		zap.String("vector_store", cfg.Knowledge.VectorStore.Provider),
		zap.Bool("redis", cache != nil))
	return app, nil
}

// Shutdown runs cleanup tasks in reverse registration order.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			logger.Warn("清理任务失败", zap.Error(err))
		}
	}
	logger.Sync()
}

func buildObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	sc := cfg.Knowledge.Storage
	switch sc.Provider {
	case "minio", "s3":
		if sc.Endpoint == "" {
			logger.Warn("对象存储选择minio但未配置endpoint，回退到本地目录")
			return storage.NewLocalStore(sc.BasePath)
		}
		return storage.NewMinIOStore(sc)
	default:
		return storage.NewLocalStore(sc.BasePath)
	}
}

func buildVectorStore(cfg *config.Config) (knowledge.VectorStore, error) {
	vc := cfg.Knowledge.VectorStore
	if vc.Provider == "milvus" {
		return knowledge.NewMilvusVectorStore(knowledge.MilvusOptions{
			Address:    vc.Milvus.Address,
			Username:   vc.Milvus.Username,
			Password:   vc.Milvus.Password,
			Collection: vc.Milvus.Collection,
			Database:   vc.Milvus.Database,
			VectorSize: vc.Milvus.VectorSize,
			UseTLS:     vc.Milvus.TLS,
		})
	}
	// 内存实现：进程重启后索引丢失，适用于开发与测试
	return knowledge.NewMemoryVectorStore(), nil
}
