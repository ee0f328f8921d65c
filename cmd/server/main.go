package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"querygate/internal/api"
	"querygate/internal/config"
	internaldb "querygate/internal/db"
	"querygate/internal/db/repository"
	"querygate/internal/engine"
	"querygate/internal/middleware"
	"querygate/internal/service/governance"
	"querygate/internal/service/nlquery"
	"querygate/internal/service/security"
	"querygate/internal/translator"
)

// auditViewerRoles are the roles allowed to read the audit trail.
var auditViewerRoles = []string{"Admin", "Manager"}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	// Audit ledger and principal directory live in one SQLite file with a
	// single-connection write pool and a wider read pool.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.AuditDBPath, 4)
	if err != nil {
		return err
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	// The governed dataset is a separate file with its own serialized pool.
	eng, err := engine.Open(cfg.DatasetDBPath, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	directory := repository.NewPrincipalRepo(readDB)
	auditRepo := repository.NewAuditRepo(writeDB, readDB)

	coordinator := nlquery.NewCoordinator(
		translator.New(cfg.Translator),
		security.NewPermissionService(directory),
		security.NewSafetyValidator(),
		eng,
		auditRepo,
		logger,
	)

	issuer, err := middleware.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	handler := api.NewHandler(
		directory,
		coordinator,
		nlquery.NewSessionManager(),
		governance.NewAuditService(auditRepo, auditViewerRoles),
		eng,
		issuer,
		logger,
	)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	handler.Routes(r)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "dataset", eng.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
