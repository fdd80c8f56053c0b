package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	_ "github.com/sbilibin2017/gw-user-accounts/docs"
	"github.com/sbilibin2017/gw-user-accounts/internal/handlers"
	"github.com/sbilibin2017/gw-user-accounts/internal/hasher"
	"github.com/sbilibin2017/gw-user-accounts/internal/health"
	"github.com/sbilibin2017/gw-user-accounts/internal/jwt"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
	"github.com/sbilibin2017/gw-user-accounts/internal/media"
	"github.com/sbilibin2017/gw-user-accounts/internal/middlewares"
	"github.com/sbilibin2017/gw-user-accounts/internal/migrations"
	"github.com/sbilibin2017/gw-user-accounts/internal/repositories"
	"github.com/sbilibin2017/gw-user-accounts/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// config holds everything parseConfig reads from the environment.
type config struct {
	AppHost    string
	AppPort    string
	LogLevel   string
	UploadDir  string
	HealthPort string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	JWTAccessSecret  string
	JWTAccessExp     time.Duration
	JWTRefreshSecret string
	JWTRefreshExp    time.Duration
	CookieSecure     bool

	BcryptCost int

	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3Bucket        string
	S3PublicBaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	LoginRateLimit  int
	LoginRateWindow time.Duration
	ChannelCacheTTL time.Duration
}

// @title gw-user-accounts API
// @version 1.0.0
// @description User accounts, sessions and channel subscriptions
// @host localhost:8080
// @BasePath /api/v1/users
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the
// application, database, Redis, JWT, S3, Kafka and limiter configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")
	cfg.UploadDir = getEnv("UPLOAD_DIR", os.TempDir())
	cfg.HealthPort = getEnv("GRPC_HEALTH_PORT", "50051")

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	if cfg.PGPort, err = strconv.Atoi(getEnv("POSTGRES_PORT", "5432")); err != nil {
		return
	}
	if cfg.PGMaxOpenConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_OPEN_CONNS", "16")); err != nil {
		return
	}
	if cfg.PGMaxIdleConns, err = strconv.Atoi(getEnv("POSTGRES_MAX_IDLE_CONNS", "8")); err != nil {
		return
	}

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	if cfg.RedisPort, err = strconv.Atoi(getEnv("REDIS_PORT", "6379")); err != nil {
		return
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisPoolSize, err = strconv.Atoi(getEnv("REDIS_POOL_SIZE", "10")); err != nil {
		return
	}
	if cfg.RedisMinIdleConns, err = strconv.Atoi(getEnv("REDIS_MIN_IDLE_CONNS", "2")); err != nil {
		return
	}

	// JWT config
	cfg.JWTAccessSecret = getEnv("JWT_ACCESS_SECRET", "my_super_secret_access_key")
	if cfg.JWTAccessExp, err = time.ParseDuration(getEnv("JWT_ACCESS_EXP", "15m")); err != nil {
		return
	}
	cfg.JWTRefreshSecret = getEnv("JWT_REFRESH_SECRET", "my_super_secret_refresh_key")
	if cfg.JWTRefreshExp, err = time.ParseDuration(getEnv("JWT_REFRESH_EXP", "240h")); err != nil {
		return
	}
	if cfg.CookieSecure, err = strconv.ParseBool(getEnv("COOKIE_SECURE", "true")); err != nil {
		return
	}
	if cfg.BcryptCost, err = strconv.Atoi(getEnv("BCRYPT_COST", "10")); err != nil {
		return
	}

	// S3 config
	cfg.S3Region = getEnv("S3_REGION", "us-east-1")
	cfg.S3AccessKey = getEnv("S3_ACCESS_KEY", "")
	cfg.S3SecretKey = getEnv("S3_SECRET_KEY", "")
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.S3Bucket = getEnv("S3_BUCKET", "user-media")
	cfg.S3PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", "")

	// Kafka config
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "user-accounts")

	// Limiter and cache config
	if cfg.LoginRateLimit, err = strconv.Atoi(getEnv("LOGIN_RATE_LIMIT", "10")); err != nil {
		return
	}
	if cfg.LoginRateWindow, err = time.ParseDuration(getEnv("LOGIN_RATE_WINDOW", "1m")); err != nil {
		return
	}
	if cfg.ChannelCacheTTL, err = time.ParseDuration(getEnv("CHANNEL_CACHE_TTL", "30s")); err != nil {
		return
	}

	return
}

// run initializes the logger, database, Redis, S3, Kafka, the gRPC health
// server and the HTTP server. It sets up routes, applies middleware, and
// handles graceful shutdown.
func run(ctx context.Context, cfg config) error {
	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	logger.Log.Infow("Connecting to PostgreSQL", "host", cfg.PGHost, "port", cfg.PGPort, "db", cfg.PGDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)

	if err := migrations.Up(ctx, db.DB); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection error: %w", err)
	}
	defer rdb.Close()

	// Kafka writer for account events, disabled without brokers
	var eventWriter services.KafkaWriter
	if len(cfg.KafkaBrokers) > 0 {
		kw := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			Topic:                  cfg.KafkaTopic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
		defer kw.Close()
		eventWriter = kw
	} else {
		logger.Log.Warn("KAFKA_BROKERS is empty, account events are disabled")
	}

	// Media host
	uploader, err := media.NewS3Uploader(ctx, media.S3Config{
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Endpoint:      cfg.S3Endpoint,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to init S3 uploader: %w", err)
	}

	// Token issuers
	accessTokens := jwt.New(
		jwt.WithSecretKey(cfg.JWTAccessSecret),
		jwt.WithExpiration(cfg.JWTAccessExp),
		jwt.WithCookieName(handlers.AccessTokenCookie),
	)
	refreshTokens := jwt.New(
		jwt.WithSecretKey(cfg.JWTRefreshSecret),
		jwt.WithExpiration(cfg.JWTRefreshExp),
	)

	// Initialize repositories
	userReadRepo := repositories.NewUserReadRepository(db, middlewares.GetTxFromContext)
	userWriteRepo := repositories.NewUserWriteRepository(db, middlewares.GetTxFromContext)
	channelReadRepo := repositories.NewChannelReadRepository(db)
	subscriptionRepo := repositories.NewSubscriptionWriteRepository(db, middlewares.GetTxFromContext)
	channelCache := repositories.NewChannelCacheRepository(rdb, cfg.ChannelCacheTTL)
	loginLimiter := repositories.NewLoginLimiterRepository(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow)

	// Initialize services
	events := services.NewEventPublisher(eventWriter)
	credentials := services.NewCredentialStore(userReadRepo, userWriteRepo, hasher.New(cfg.BcryptCost, 0))
	sessions := services.NewSessionIssuer(credentials, accessTokens, refreshTokens, events)
	accounts := services.NewAccountService(credentials, uploader, channelReadRepo, subscriptionRepo, channelCache, events)

	// Initialize handlers
	cookies := handlers.CookieOptions{Secure: cfg.CookieSecure}

	registerHandler := handlers.NewRegisterHandler(accounts, cfg.UploadDir)
	loginHandler := handlers.NewLoginHandler(sessions, cookies)
	refreshHandler := handlers.NewRefreshHandler(sessions, cookies)
	logoutHandler := handlers.NewLogoutHandler(sessions, cookies)
	changePasswordHandler := handlers.NewChangePasswordHandler(accounts)
	currentUserHandler := handlers.NewCurrentUserHandler(accounts)
	updateAccountHandler := handlers.NewUpdateAccountHandler(accounts)
	avatarHandler := handlers.NewAvatarHandler(accounts, cfg.UploadDir)
	coverImageHandler := handlers.NewCoverImageHandler(accounts, cfg.UploadDir)
	channelProfileHandler := handlers.NewChannelProfileHandler(accounts)
	subscribeHandler := handlers.NewSubscribeHandler(accounts)
	unsubscribeHandler := handlers.NewUnsubscribeHandler(accounts)

	// Setup router
	txMiddleware := middlewares.TxMiddleware(db)
	authMiddleware := middlewares.AuthMiddleware(accessTokens)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middlewares.LoggingMiddleware)

	r.Route("/api/v1/users", func(r chi.Router) {
		// Public routes
		r.With(txMiddleware).Post("/register", registerHandler)
		r.With(middlewares.RateLimitMiddleware(loginLimiter)).Post("/login", loginHandler)
		r.Post("/refresh-token", refreshHandler)

		// Protected routes with JWT middleware
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", logoutHandler)
			r.With(txMiddleware).Post("/change-password", changePasswordHandler)
			r.Get("/current-user", currentUserHandler)
			r.With(txMiddleware).Patch("/update-account", updateAccountHandler)
			r.Patch("/avatar", avatarHandler)
			r.Patch("/cover-image", coverImageHandler)
			r.Get("/c/{username}", channelProfileHandler)
			r.Post("/c/{username}/subscription", subscribeHandler)
			r.Delete("/c/{username}/subscription", unsubscribeHandler)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// gRPC health server
	healthLis, err := net.Listen("tcp", fmt.Sprintf("%s:%s", cfg.AppHost, cfg.HealthPort))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC health: %w", err)
	}
	healthSrv := health.NewServer()

	// Graceful shutdown
	errChan := make(chan error, 2)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		if err := healthSrv.Serve(healthLis); err != nil {
			errChan <- fmt.Errorf("gRPC health server failed: %w", err)
		}
	}()

	go func() {
		logger.Log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()
	healthSrv.SetServing(true)

	var serveErr error
	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping servers...")
	case serveErr = <-errChan:
		logger.Log.Errorw("server failed, shutting down", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthSrv.SetServing(false)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}
	healthSrv.Stop(shutdownCtx)

	logger.Log.Info("Servers stopped gracefully")
	return serveErr
}
