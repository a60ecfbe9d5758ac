package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/newspress/revisions-backend/internal/config"
	"github.com/newspress/revisions-backend/internal/handler"
	"github.com/newspress/revisions-backend/internal/middleware"
	"github.com/newspress/revisions-backend/internal/migration"
	"github.com/newspress/revisions-backend/internal/plugin"
	"github.com/newspress/revisions-backend/internal/repository"
	"github.com/newspress/revisions-backend/internal/routes"
	"github.com/newspress/revisions-backend/internal/service"
	"github.com/newspress/revisions-backend/pkg/cache"
	"github.com/newspress/revisions-backend/pkg/jwt"
	pkglogger "github.com/newspress/revisions-backend/pkg/logger"
	pkgredis "github.com/newspress/revisions-backend/pkg/redis"
	"github.com/newspress/revisions-backend/pkg/strings"
)

func configPath(env string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	pkglogger.Init()

	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	path := configPath(env)
	pkglogger.Info("Loading config from: %s", path)
	cfg, err := config.Load(path)
	if err != nil {
		pkglogger.Fatal("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	db, err := initDB(cfg)
	if err != nil {
		pkglogger.Fatal("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")

	if err := migration.Migrate(db); err != nil {
		pkglogger.Info("Migration warning: %v", err)
	}

	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Info("Warning: Failed to connect to Redis: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}

	cacheService := cache.NewService(redisClient)

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	hooks := plugin.NewHookManager(plugin.NewDefaultLogger("hooks"))

	stringsRegistry := strings.NewRegistry(hooks)
	stringsRegistry.Load()

	// Repositories
	postRepo := repository.NewPostRepository(db)
	metaRepo := repository.NewMetaRepository(db)
	userRepo := repository.NewUserRepository(db)
	lockRepo := repository.NewLockRepository(redisClient)

	// Services
	metaService := service.NewMetaService(
		postRepo, metaRepo, hooks, cacheService,
		cfg.Revisions.CompareMetaKeys, cfg.Revisions.MetaDefaults,
	)
	postService := service.NewPostService(postRepo, metaService)
	restoreService := service.NewRestoreService(
		postRepo, metaRepo, lockRepo, metaService, postService, hooks, cacheService,
	)
	articleService := service.NewArticleService(
		postRepo, metaRepo, userRepo, metaService, restoreService, hooks, cacheService,
		cfg.Revisions.PerPage, cfg.App.EditLinkFmt, cfg.App.RestURL,
	)

	// Handlers
	handlers := &routes.Handlers{
		Revisions: handler.NewRevisionHandler(articleService, restoreService, metaService),
		Posts:     handler.NewPostHandler(postService),
		Locks:     handler.NewLockHandler(lockRepo),
		View: handler.NewViewHandler(
			articleService, restoreService, stringsRegistry, hooks,
			cfg.Revisions.PerPage, cfg.App.RestURL,
			cfg.Assets.BaseURL+cfg.Assets.ViewJS,
			cfg.Assets.BaseURL+cfg.Assets.ViewCSS,
		),
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.SecurityHeaders())

	allowOrigins := cfg.CORS.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.Setup(router, handlers, jwtManager)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	pkglogger.Info("Server listening on %s", addr)
	if err := router.Run(addr); err != nil {
		pkglogger.Fatal("Server failed: %v", err)
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}
