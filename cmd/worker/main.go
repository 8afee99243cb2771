package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	bookjob "physlib-backend/internal/domains/book/job"
	borrowjob "physlib-backend/internal/domains/borrow/job"
	uploadjob "physlib-backend/internal/domains/upload/job"
	userjob "physlib-backend/internal/domains/user/job"
	"physlib-backend/internal/infrastructure/queue"
	types "physlib-backend/internal/shared"
	"physlib-backend/pkg/container"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	c, err := container.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer c.Cleanup()

	redisOpt := asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			types.QueueStorage: 5,
			types.QueueEmail:   3,
			types.QueueDefault: 2,
		},
	})

	mux := asynq.NewServeMux()
	mux.Handle(types.TypeSendInvitationEmail, userjob.NewInvitationEmailHandler(c.EmailService))
	mux.Handle(types.TypeSendBorrowDecisionEmail, borrowjob.NewBorrowDecisionHandler(c.EmailService))
	mux.Handle(types.TypeProcessBookImage, bookjob.NewProcessImageHandler(c.ImageService))
	mux.Handle(types.TypeDeleteBookImages, bookjob.NewDeleteImagesHandler(c.ImageService))
	mux.Handle(types.TypeSweepUploadSessions, uploadjob.NewSweepTempObjectsHandler(
		c.Storage, c.Cache, c.Config.Upload.SessionIdleTTL))
	mux.Handle(types.TypeFlushViewCounts, bookjob.NewFlushViewCountsHandler(c.BookService))

	scheduler := queue.NewScheduler(c.Config.Redis)
	if err := scheduler.RegisterMaintenanceJobs(); err != nil {
		log.Fatalf("Failed to register scheduled jobs: %v", err)
	}

	go func() {
		log.Println("[Scheduler] Starting...")
		if err := scheduler.Start(); err != nil {
			log.Fatalf("[Scheduler] Failed: %v", err)
		}
	}()

	go func() {
		log.Println("[Worker] Starting...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("[Worker] Failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("[Shutdown] Gracefully stopping...")
	scheduler.Shutdown()
	srv.Shutdown()
	log.Println("[Shutdown] Stopped")
}
