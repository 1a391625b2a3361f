package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/clinprot/regdocs/pkg/audit"
	"github.com/clinprot/regdocs/pkg/common/config"
	"github.com/clinprot/regdocs/pkg/common/database"
	"github.com/clinprot/regdocs/pkg/common/kafka"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/extraction"
	"github.com/clinprot/regdocs/pkg/fda"
	"github.com/clinprot/regdocs/pkg/gateway/auth"
	"github.com/clinprot/regdocs/pkg/gateway/middleware"
	"github.com/clinprot/regdocs/pkg/identity"
	"github.com/clinprot/regdocs/pkg/insilico"
	"github.com/clinprot/regdocs/pkg/jobs"
	"github.com/clinprot/regdocs/pkg/observability/metrics"
	"github.com/clinprot/regdocs/pkg/phi"
	"github.com/clinprot/regdocs/pkg/screening"
	"github.com/clinprot/regdocs/pkg/submissions"
	"github.com/clinprot/regdocs/pkg/trials"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to postgres")
	}
	rdb := database.GetRedis()

	// Repositories and migrations.
	auditRepo := audit.NewRepository(db)
	fdaRepo := fda.NewRepository(db)
	trialRepo := trials.NewRepository(db)
	screeningRepo := screening.NewRepository(db)
	submissionRepo := submissions.NewRepository(db)
	identityRepo := identity.NewRepository(db)
	for name, migrate := range map[string]func() error{
		"audit":       auditRepo.AutoMigrate,
		"documents":   fdaRepo.AutoMigrate,
		"trials":      trialRepo.AutoMigrate,
		"screening":   screeningRepo.AutoMigrate,
		"submissions": submissionRepo.AutoMigrate,
		"identity":    identityRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("schema", name).Fatal("Migration failed")
		}
	}

	// Shared infrastructure.
	auditor := audit.NewService(auditRepo)
	tracker := jobs.NewTracker(rdb, cfg.JobTTL)
	extractor := extraction.NewClient(cfg)
	documentEvents := kafka.NewProducer(cfg.DocumentEventsTopic)
	analysisJobs := kafka.NewProducer(cfg.AnalysisJobsTopic)
	defer documentEvents.Close()
	defer analysisJobs.Close()

	phiRules, err := phi.LoadRules(cfg.PHIRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("PHI rules file not loaded, using built-in rules")
		phiRules = phi.DefaultRules()
	}
	redactor, err := phi.NewRedactor(phiRules)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to compile PHI rules")
	}

	glossary, err := trials.LoadGlossary(cfg.GlossaryPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Glossary catalog not loaded, using built-in terms")
	}

	tokens, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize token manager")
	}
	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
	if err != nil {
		logger.Log.WithError(err).Warn("OIDC not configured, password login only")
		oidcAuth = nil
	}

	// Domain services.
	trialService := trials.NewService(trialRepo, extractor, auditor, analysisJobs, glossary)
	fdaService := fda.NewService(fdaRepo, extractor, tracker, redactor, auditor, documentEvents, trialService)
	insilicoService := insilico.NewService(trialService, insilico.NewCache(rdb, cfg.InsilicoCacheTTL))
	screeningService := screening.NewService(screeningRepo, trialService, auditor)
	submissionService := submissions.NewService(submissionRepo, trialService, screeningRepo, auditor, documentEvents)
	identityService := identity.NewService(identityRepo, auditor)

	identityHandler := identity.NewHandler(identityService, tokens, oidcAuth)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxUploadBytes))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	identityHandler.RegisterPublic(router.PathPrefix("/api/auth").Subrouter())

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Authenticate(tokens))
	identityHandler.RegisterProtected(api.PathPrefix("/auth").Subrouter())
	fda.NewHandler(fdaService).Register(api.PathPrefix("/fda").Subrouter())
	trials.NewHandler(trialService).Register(api.PathPrefix("/trials").Subrouter())
	insilico.NewHandler(insilicoService).Register(api.PathPrefix("/insilico").Subrouter())
	screening.NewHandler(screeningService).Register(api.PathPrefix("/patient-analysis").Subrouter())
	submissions.NewHandler(submissionService).Register(api.PathPrefix("/submissions").Subrouter())
	audit.NewHandler(auditor).Register(api.PathPrefix("/audit").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Regulatory document server started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Server stopped")
}
