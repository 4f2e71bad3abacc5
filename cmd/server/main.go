// Command server runs the investor accreditation HTTP API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	accrrepo "investaccred/backend/internal/accreditation/repository"
	accrservice "investaccred/backend/internal/accreditation/service"
	"investaccred/backend/internal/activity"
	"investaccred/backend/internal/activity/producer"
	activityrepo "investaccred/backend/internal/activity/repository"
	authservice "investaccred/backend/internal/auth/service"
	"investaccred/backend/internal/authz"
	authzrepo "investaccred/backend/internal/authz/repository"
	"investaccred/backend/internal/config"
	"investaccred/backend/internal/db"
	docrepo "investaccred/backend/internal/document/repository"
	"investaccred/backend/internal/identity"
	"investaccred/backend/internal/mfa"
	"investaccred/backend/internal/notification"
	"investaccred/backend/internal/notification/email"
	"investaccred/backend/internal/notification/sms"
	prefrepo "investaccred/backend/internal/preference/repository"
	"investaccred/backend/internal/security"
	"investaccred/backend/internal/server"
	sessionrepo "investaccred/backend/internal/session/repository"
	"investaccred/backend/internal/telemetry"
	userrepo "investaccred/backend/internal/user/repository"
	userservice "investaccred/backend/internal/user/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	providers, err := telemetry.NewProviders(ctx, cfg.OTLPEndpoint, "investaccred-backend", false)
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	codes := mfa.NewRedisStore(redisClient)

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("jwt private key", zap.Error(err))
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Fatal("jwt public key", zap.Error(err))
	}
	tokens := security.NewTokenProvider(privateKey, publicKey,
		cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshTTL(), cfg.MFATTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	prefs := prefrepo.NewPostgresRepository(database)
	accreditations := accrrepo.NewPostgresRepository(database)
	documents := docrepo.NewPostgresRepository(database)
	activities := activityrepo.NewPostgresRepository(database)
	roles := authzrepo.NewPostgresRepository(database)

	notifier := notification.NewService(
		sms.NewClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender),
		email.NewClient(cfg.EmailAPIKey, cfg.EmailBaseURL, cfg.EmailFrom),
	)

	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokers(), cfg.ActivityKafkaTopic)
	if err != nil {
		logger.Fatal("kafka producer", zap.Error(err))
	}
	var stream activity.Producer = telemetry.NewActivityEmitter(providers.LoggerProvider)
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		stream = activity.Multi(kafkaProducer, stream)
	}
	recorder := activity.NewLogger(activities, stream, server.RequestMetaFromContext, logger)

	evaluator := authz.NewEvaluator(roles, logger)
	provider := identity.NewLocalProvider(users, hasher, codes)
	methods := mfa.NewRegistry(provider, notifier)

	authSvc := authservice.NewAuthService(provider, users, sessions, prefs,
		methods, tokens, recorder, cfg.TOTPIssuer, logger)
	accountSvc := userservice.NewAccountService(users, hasher, codes,
		notifier, sessions, recorder, logger)
	accrSvc := accrservice.NewService(accreditations, documents, users,
		notifier, recorder, evaluator, logger)

	router := server.NewRouter(server.Deps{
		Auth:          server.NewAuthHandler(authSvc, logger),
		Account:       server.NewAccountHandler(accountSvc, logger),
		Accreditation: server.NewAccreditationHandler(accrSvc, logger),
		Tokens:        tokens,
		DB:            database,
		Authz:         evaluator,
		Log:           logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// newLogger builds a production zap logger, or a development one outside
// production.
func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
