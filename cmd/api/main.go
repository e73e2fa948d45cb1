package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seedlane/outreach/internal/config"
	"github.com/seedlane/outreach/internal/infra/database"
	"github.com/seedlane/outreach/internal/infra/http/handlers"
	"github.com/seedlane/outreach/internal/infra/http/middleware"
	"github.com/seedlane/outreach/internal/infra/importer"
	"github.com/seedlane/outreach/internal/infra/integration/anthropic"
	"github.com/seedlane/outreach/internal/infra/integration/apify"
	"github.com/seedlane/outreach/internal/infra/integration/gmail"
	"github.com/seedlane/outreach/internal/infra/mail"
	"github.com/seedlane/outreach/internal/infra/queue"
	"github.com/seedlane/outreach/internal/infra/templates"
	"github.com/seedlane/outreach/internal/infra/worker"
	"github.com/seedlane/outreach/internal/usecase"
)

func main() {
	godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}

	settings, err := config.Load(configDir)
	if err != nil {
		log.Fatalf("❌ Configuração inválida: %v", err)
	}

	db, err := database.NewDBConnection(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("❌ Falha ao conectar no banco: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("❌ Falha ao migrar schema: %v", err)
	}

	rabbitMQ, err := queue.NewRabbitMQ(
		os.Getenv("RABBITMQ_USER"), os.Getenv("RABBITMQ_PASS"),
		os.Getenv("RABBITMQ_HOST"), os.Getenv("RABBITMQ_PORT"),
	)
	if err != nil {
		log.Fatalf("❌ Falha ao conectar no RabbitMQ: %v", err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositório (Lead Store)
	leadRepo := database.NewLeadRepository(db)

	// 2. Collaborators externos
	templateStore := templates.NewStore(configDir)
	mailer := gmail.NewClient(
		os.Getenv("GMAIL_ACCESS_TOKEN"),
		settings.Gmail.FromName,
		os.Getenv("GMAIL_FROM_ADDRESS"),
		os.Getenv("GMAIL_BASE_URL"),
	)
	composer := anthropic.NewClient(os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("ANTHROPIC_BASE_URL"), templateStore)
	enricher := apify.NewClient(os.Getenv("APIFY_API_KEY"), os.Getenv("APIFY_BASE_URL"))
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)

	smtpPort, _ := strconv.Atoi(os.Getenv("MAIL_PORT"))
	if smtpPort == 0 {
		smtpPort = 587
	}
	notifier := mail.NewSummaryNotifier(
		os.Getenv("MAIL_HOST"), smtpPort,
		os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"),
		os.Getenv("MAIL_FROM"), os.Getenv("SUMMARY_TO"),
	)

	// 3. UseCases
	importUC := usecase.NewImportLeadUseCase(leadRepo, producer)
	statsUC := usecase.NewPipelineStatsUseCase(leadRepo)
	runCycleUC := usecase.NewRunCycleUseCase(
		leadRepo, mailer, composer, enricher, templateStore, producer, settings,
	)

	// 4. Workers
	importWorker := queue.NewWorker(rabbitMQ.Ch, &queueImporter{uc: importUC})
	go importWorker.Start(queue.ImportsQueueName)

	cycleWorker := worker.NewCycleWorker(runCycleUC, notifier, settings.CycleInterval())
	go cycleWorker.Start(ctx)

	// 5. Handlers
	leadHandler := handlers.NewLeadHandler(importUC, leadRepo)
	cycleHandler := handlers.NewCycleHandler(runCycleUC)
	statsHandler := handlers.NewStatsHandler(statsUC)
	importHandler := handlers.NewImportHandler(importer.NewExcelImporter(importUC))
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Post("/leads", leadHandler.HandleImport)
	r.Get("/leads/{email}", leadHandler.HandleGet)
	r.Post("/import", importHandler.HandleImportFile)
	r.Post("/cycle/run", cycleHandler.HandleRun)
	r.Get("/stats", statsHandler.HandleGet)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Printf("🔥 Outreach engine rodando na porta :%s", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// queueImporter adapta o use case de import para o contrato do worker
// de fila.
type queueImporter struct {
	uc *usecase.ImportLeadUseCase
}

func (q *queueImporter) Import(ctx context.Context, payload queue.LeadImportPayload) error {
	_, err := q.uc.Execute(ctx, usecase.ImportLeadInput{
		Email:       payload.Email,
		FirstName:   payload.FirstName,
		LastName:    payload.LastName,
		Company:     payload.Company,
		Title:       payload.Title,
		LinkedInURL: payload.LinkedInURL,
	})
	return err
}
