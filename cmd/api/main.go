package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/authclient"
	"backend/internal/database"
	"backend/internal/guard"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/permission"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/session"
	"backend/internal/websocket"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title           Laundry Dashboard Access Gateway
// @version         1.0
// @description     Role-based route protection, session restore and navigation shell for the laundry dashboard.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	sessionTTL := 7 * 24 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			sessionTTL = d
		} else {
			logger.Warn("invalid SESSION_TTL, using default", zap.String("value", raw))
		}
	}

	store, db, err := newTokenStore(logger)
	if err != nil {
		logger.Fatal("token store init failed", zap.Error(err))
	}

	// Audit trail lives in postgres when available, otherwise it
	// degrades to structured log entries.
	var auditService service.AuditService
	if db != nil {
		auditService = service.NewAuditService(repository.NewAuditRepository(db), logger)
	} else {
		auditService = service.NewLoggingAuditService(logger)
	}

	authURL := os.Getenv("AUTH_SERVICE_URL")
	if authURL == "" {
		authURL = "http://localhost:9000"
	}
	auth := authclient.New(authURL, middleware.GetJWTSecret(), logger)

	eval := permission.NewEvaluator(permission.DefaultTable())
	routeGuard := guard.New(eval, auditService, logger)

	// Set up WebSocket Hub for the navigation shells
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Per-request session managers: each request restores independently.
	managers := func() *session.Manager {
		return session.NewManager(auth, store, sessionTTL, logger)
	}

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(auth, store, eval, auditService, wsHub, sessionTTL, logger)
	pageHandler := handler.NewPageHandler(eval, routeGuard)
	navigationHandler := handler.NewNavigationHandler(eval)
	roleHandler := handler.NewRoleHandler(eval)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// Session restore runs before every access decision.
	router.Use(middleware.Authenticate(managers))

	// WebSocket endpoint for the navigation shell
	router.GET("/ws/shell", func(c *gin.Context) {
		websocket.ServeShell(wsHub, eval, auth, auditService, logger, c)
	})

	// Register API Routes
	root := router.Group("")
	authHandler.RegisterRoutes(root)
	pageHandler.RegisterRoutes(root)
	navigationHandler.RegisterRoutes(root)
	roleHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("GIN_MODE") == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newTokenStore picks the durable session backend from SESSION_STORE:
// postgres (default), redis, or memory for local development. The gorm
// handle is returned when postgres is in play so the audit trail can
// share the connection.
func newTokenStore(logger *zap.Logger) (session.TokenStore, *gorm.DB, error) {
	switch os.Getenv("SESSION_STORE") {
	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		logger.Info("using redis session store", zap.String("addr", addr))
		return repository.NewRedisTokenStore(client), nil, nil

	case "memory":
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), nil, nil

	default:
		db, err := database.NewConnection(postgresDSN())
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres session store")
		return repository.NewTokenRepository(db), db, nil
	}
}

func postgresDSN() string {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	host := get("DB_HOST", "localhost")
	port := get("DB_PORT", "5432")
	user := get("DB_USER", "postgres")
	password := get("DB_PASSWORD", "postgres")
	name := get("DB_NAME", "postgres")
	sslMode := get("DB_SSLMODE", "disable")
	return "postgres://" + user + ":" + password + "@" + host + ":" + port + "/" + name + "?sslmode=" + sslMode
}
