package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/api/handlers"
	"github.com/socialflowhq/socialflow-api/internal/api/middleware"
	job "github.com/socialflowhq/socialflow-api/internal/jobs"
	"github.com/socialflowhq/socialflow-api/internal/platform"
	"github.com/socialflowhq/socialflow-api/internal/queue"
	"github.com/socialflowhq/socialflow-api/internal/repository"
	"github.com/socialflowhq/socialflow-api/internal/service"
	"github.com/socialflowhq/socialflow-api/internal/vault"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	tokenVault, err := vault.New([]byte(cfg.EncryptionKey))
	if err != nil {
		log.Fatalf("Invalid encryption key: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	jobRepo := repository.NewJobRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	registry := platform.NewRegistry(cfg.Dispatcher.RequestTimeout)

	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	r2Service, err := service.NewR2Service(*cfg)
	if err != nil {
		log.Fatalf("Failed to set up media storage: %v", err)
	}
	postService := service.NewPostService(*cfg, db, postRepo, jobRepo, socialAccountRepo, r2Service)
	connectService := service.NewConnectService(*cfg, db, socialAccountRepo, auditService, tokenVault)
	refreshService := service.NewRefreshService(*cfg, socialAccountRepo, auditService, tokenVault)
	dispatcherService := service.NewDispatcherService(*cfg, jobRepo, postRepo, socialAccountRepo, refreshService, auditService, registry)
	aiService := service.NewAIService(*cfg)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService, userService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	account := handlers.NewAccountHandler(*cfg, connectService, refreshService)
	app.Get("/auth/:platform/callback", account.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/auth/:platform", account.ConnectSocialAccount)
	api.Get("/accounts", account.ListSocialAccounts)
	api.Post("/accounts/refresh", account.RefreshSocialAccount)
	api.Post("/accounts/remove", account.DisconnectSocialAccount)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	apiKeys := handlers.NewKeysHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveKey)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/jobs", post.ListPostJobs)
	api.Post("/posts/remove", post.RemovePost)

	jobsH := handlers.NewJobHandler(dispatcherService)
	api.Post("/jobs/retry", jobsH.RetryJob)

	ai := handlers.NewAIHandler(aiService)
	api.Post("/ai/generate", ai.GenerateContent)

	audit := handlers.NewAuditHandler(auditService)
	api.Get("/events", audit.ListEvents)

	// cron jobs
	dispatchJob := job.NewDispatchJob(dispatcherService)
	refreshTokenJob := job.NewTokenRefreshJob(refreshService)
	reconcileJob := job.NewReconcileJob(dispatcherService)

	queueW := queue.NewQueue(jobRepo, dispatcherService)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", dispatchJob.Run)
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h05m00s", reconcileJob.RequeueStale)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.Dispatcher.Concurrency,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeDispatchPost, queueW.HandleDispatchPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
