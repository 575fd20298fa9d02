package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"libhub/internal/auth"
	"libhub/internal/config"
	"libhub/internal/database"
	"libhub/internal/handlers"
	"libhub/internal/jobs"
	"libhub/internal/models"
	"libhub/internal/registry"
	"libhub/internal/repositories"
	"libhub/internal/services"
	"libhub/internal/validation"
)

func main() {
	createStaff := flag.String("create-staff", "", "create or promote a staff account given as email:password, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	validate := validation.New()
	reg := registry.Default()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)

	catalogService := services.NewCatalogService(db, reg, validate,
		repositories.NewCatalogRepository[models.Language](db),
		repositories.NewCatalogRepository[models.Publisher](db),
		repositories.NewCatalogRepository[models.Genre](db),
		repositories.NewCatalogRepository[models.Author](db),
		bookRepo,
	)
	accountService := services.NewAccountService(db, validate, userRepo, tokens)
	loanService := services.NewLoanService(db, bookRepo, loanRepo)
	exportService := services.NewExportService(db, reg, repositories.NewExportRepository(db), bookRepo)

	if *createStaff != "" {
		email, password, ok := strings.Cut(*createStaff, ":")
		if !ok {
			log.Fatal("-create-staff expects email:password")
		}
		user, err := accountService.EnsureStaff(context.Background(), email, password)
		if err != nil {
			log.Fatalf("failed to create staff account: %v", err)
		}
		log.Printf("staff account ready: %s (%s)", user.Email, user.ID)
		return
	}

	var expiry *jobs.LoanExpiry
	if cfg.ExpirySchedule != "" {
		if expiry, err = jobs.NewLoanExpiry(cfg.ExpirySchedule, loanService); err != nil {
			log.Fatalf("failed to schedule loan expiry: %v", err)
		}
		expiry.Start()
	}

	router := gin.Default()
	handlers.RegisterRoutes(router, handlers.Deps{
		Catalog:            catalogService,
		Accounts:           accountService,
		Loans:              loanService,
		Export:             exportService,
		Registry:           reg,
		Tokens:             tokens,
		LoginRatePerSecond: cfg.LoginRatePerSecond,
		LoginRateBurst:     cfg.LoginRateBurst,
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if expiry != nil {
		select {
		case <-expiry.Stop().Done():
		case <-ctx.Done():
			log.Println("loan expiry sweep still running at exit")
		}
	}
}
