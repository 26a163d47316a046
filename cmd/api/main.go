package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"sitecost/internal/config"
	"sitecost/internal/database"
	"sitecost/internal/middleware"
	"sitecost/internal/modules/auth"
	"sitecost/internal/modules/events"
	"sitecost/internal/modules/job"
	"sitecost/internal/modules/receipt"
	"sitecost/internal/modules/stats"
	jwtsvc "sitecost/internal/pkg/jwt"
	"sitecost/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	var store storage.Storage
	if cfg.Storage.Endpoint == "memory" {
		log.Println("Using in-memory object storage (dev only)")
		store = storage.NewMemory()
	} else {
		store, err = storage.NewMinioStorage(
			cfg.Storage.Endpoint,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.Bucket,
			cfg.Storage.UseSSL,
		)
		if err != nil {
			log.Fatal(err)
		}
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	userRepo := auth.NewUserRepository(db)
	companyRepo := auth.NewCompanyRepository(db)
	authService := auth.NewService(userRepo, companyRepo, j)
	authHandler := auth.NewHandler(authService)

	jobService := job.NewService(job.NewRepository(db))
	jobHandler := job.NewHandler(jobService)

	hub := events.NewHub()
	defer hub.Close()
	eventsHandler := events.NewHandler(hub)

	uploader := receipt.NewUploader(store, receipt.UploaderConfig{
		MaxBytes:       cfg.Upload.MaxBytes,
		MinDimension:   cfg.Upload.MinDimension,
		ThumbnailWidth: cfg.Upload.ThumbnailWidth,
		SignedURLTTL:   cfg.Upload.SignedURLTTL,
		BatchWorkers:   cfg.Upload.BatchWorkers,
	})
	receiptService := receipt.NewService(receipt.NewRepository(db), uploader, hub)
	receiptHandler := receipt.NewHandler(receiptService)

	statsHandler := stats.NewHandler(stats.NewRepository(db))

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterPublicRoutes(v1)

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			jobHandler.RegisterRoutes(protected)
			receiptHandler.RegisterRoutes(protected)
			statsHandler.RegisterRoutes(protected)
			eventsHandler.RegisterRoutes(protected)
		}
	}

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
