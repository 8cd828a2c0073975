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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/eduhub-assess/internal/api/http"
	"github.com/mind-engage/eduhub-assess/internal/assessment"
	auth "github.com/mind-engage/eduhub-assess/internal/auth/middleware"
	"github.com/mind-engage/eduhub-assess/internal/config"
	"github.com/mind-engage/eduhub-assess/internal/db"
	"github.com/mind-engage/eduhub-assess/internal/notify"
	"github.com/mind-engage/eduhub-assess/internal/seed"
	"github.com/mind-engage/eduhub-assess/internal/storage"
	syncx "github.com/mind-engage/eduhub-assess/internal/sync"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

func main() {
	cfg := config.Load()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	store := assessment.NewSQLStore(dbh, cfg.DBDriver)
	accounts := users.NewRepo(dbh)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if err := seed.Apply(ctx, f, accounts, store); err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("seeded %d users, %d assessments, %d assignments from %s",
			len(f.Users), len(f.Assessments), len(f.Assignments), cfg.SeedFile)
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath, "")
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Local login (on by default offline; can be enabled online via env)
	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, accounts))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Protected API (JWT -> role from users table -> RBAC)
	r.Route("/api", func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(accounts, cfg.Mode == config.ModeOffline))
		api.Mount(pr, api.Deps{
			Store:    store,
			Notes:    notify.NewSQLStore(dbh),
			Blobs:    bs,
			Events:   events,
			Accounts: accounts,
			Users:    accounts,
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s (mode=%s, db=%s, site=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.SiteID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
