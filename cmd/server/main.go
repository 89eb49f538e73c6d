package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/review-portal/internal/config"
	"github.com/yukikurage/review-portal/internal/constants"
	"github.com/yukikurage/review-portal/internal/database"
	"github.com/yukikurage/review-portal/internal/handlers"
	"github.com/yukikurage/review-portal/internal/identity"
	"github.com/yukikurage/review-portal/internal/logger"
	"github.com/yukikurage/review-portal/internal/metrics"
	"github.com/yukikurage/review-portal/internal/middleware"
	"github.com/yukikurage/review-portal/internal/repository"
	"github.com/yukikurage/review-portal/internal/services"
	"github.com/yukikurage/review-portal/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.GinMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db, zlog); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	content, err := storage.NewOsContentStore(cfg.UploadDir)
	if err != nil {
		zlog.Fatal("failed to prepare upload directory", zap.Error(err), zap.String("dir", cfg.UploadDir))
	}

	m := metrics.New()
	gw := repository.NewGateway(db)

	authService := services.NewAuthService(gw.Users, cfg.BcryptCost, zlog, m)
	svc := handlers.Services{
		Auth:           authService,
		SSO:            services.NewSSOService(authService, identityProviders(cfg.SSO, zlog)),
		Users:          services.NewUserService(gw),
		Tasks:          services.NewTaskService(gw, zlog, m),
		Files:          services.NewFileService(gw, content, cfg.MaxUploadBytes, cfg.BcryptCost, zlog, m),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	if cfg.AdminEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
		cancel()
		if err != nil {
			zlog.Fatal("failed to seed admin account", zap.Error(err))
		}
		if created {
			zlog.Info("seeded admin account", zap.String("email", cfg.AdminEmail))
		}
	}

	if err := handlers.RegisterValidators(); err != nil {
		zlog.Fatal("failed to register validators", zap.Error(err))
	}

	loginLimiter, err := middleware.RateLimit(cfg.LoginRateLimit)
	if err != nil {
		zlog.Fatal("invalid LOGIN_RATE_LIMIT", zap.Error(err))
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(m.GinMiddleware(), middleware.RequestLogger(zlog), gin.Recovery())

	store, err := sessionStore(cfg)
	if err != nil {
		zlog.Fatal("failed to create session store", zap.Error(err), zap.String("store", cfg.SessionStore))
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction, // true in production (HTTPS), false in development
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	handlers.RegisterRoutes(r, svc, handlers.RouteOptions{
		LoginLimiter: loginLimiter,
		Metrics:      m,
	})

	// Start server
	addr := ":" + cfg.Port
	zlog.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}

func sessionStore(cfg *config.Config) (sessions.Store, error) {
	if cfg.SessionStore == "cookie" {
		return cookie.NewStore([]byte(cfg.SessionSecret)), nil
	}

	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	return redisStore.NewStore(
		10,                        // Redis pool size
		"tcp",                     // network type
		redisAddr,                 // Redis address from config
		"",                        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
}

// identityProviders builds the SSO providers. OAuth2 mode registers a single
// provider named "oauth2" against the configured endpoints.
func identityProviders(cfg config.SSOConfig, zlog *zap.Logger) *identity.Registry {
	if cfg.Mode != "oauth2" {
		return identity.NewRegistry(identity.DefaultSimulatedProviders()...)
	}

	zlog.Info("using oauth2 identity provider", zap.String("token_url", cfg.TokenURL))
	return identity.NewRegistry(identity.NewOAuth2Provider("oauth2", &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}, cfg.UserInfoURL))
}
