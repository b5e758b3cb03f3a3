package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/PayButton/paybutton-server/app/repository"
	apiv1 "github.com/PayButton/paybutton-server/internal/api/v1"
	"github.com/PayButton/paybutton-server/internal/pkg/cache"
	"github.com/PayButton/paybutton-server/internal/pkg/database"
	"github.com/PayButton/paybutton-server/internal/pkg/dispatch"
	"github.com/PayButton/paybutton-server/internal/pkg/env"
	"github.com/PayButton/paybutton-server/internal/pkg/jobqueue"
	"github.com/PayButton/paybutton-server/internal/pkg/mail"
	"github.com/PayButton/paybutton-server/internal/pkg/metrics/counter"
)

func main() {
	app, queue, stopFlusher := NewApplication()

	// graceful shutdown on SIGINT/SIGTERM
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		queue.Stop()
		close(stopFlusher)
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *jobqueue.Queue, chan struct{}) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.DB)

	cfg := dispatch.ConfigFromEnv()
	stats := counter.NewRecorder()
	dispatcher := dispatch.NewDispatcher(
		dispatch.NewRepository(database.DB, cfg.LogChunkSize),
		mail.NewSMTPMailer(),
		nil,
		stats,
		cfg,
	)

	queue := jobqueue.NewQueue(env.GetEnvInt("JOB_WORKERS", 3), dispatcher)
	queue.Start()

	stopFlusher := make(chan struct{})
	go counter.StartFlusher(30*time.Second, stopFlusher)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "paybutton-server",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	apiv1.RegisterRoutes(app, apiv1.NewAPIServer(queue, repository.GetGlobalFactory().GetTriggerLogRepository()))

	return app, queue, stopFlusher
}
