package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/fibre52/survey-api/internal/apperr"
	"github.com/fibre52/survey-api/internal/auth"
	"github.com/fibre52/survey-api/internal/config"
	"github.com/fibre52/survey-api/internal/database"
	"github.com/fibre52/survey-api/internal/handler"
	"github.com/fibre52/survey-api/internal/middleware"
	"github.com/fibre52/survey-api/internal/otp"
	"github.com/fibre52/survey-api/internal/queue"
	"github.com/fibre52/survey-api/internal/repository"
	"github.com/fibre52/survey-api/internal/router"
	queue_publisher "github.com/fibre52/survey-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	otps := repository.NewOTPRepo(db)

	otpSvc := otp.New(otps, queue_publisher.NewOTPNotifier(),
		time.Duration(cfg.OTPExpiresMin)*time.Minute)
	authSvc := auth.NewService(users, otpSvc, cfg)

	// Counters live in Redis so limits hold across instances; fall back to
	// process memory when Redis is unreachable at startup.
	var counters middleware.CounterStore
	if rdb := config.NewRedisClient(); rdb != nil {
		counters = middleware.NewRedisCounterStore(rdb)
	} else {
		log.Println("redis unavailable, rate limiting falls back to in-process counters")
		counters = middleware.NewMemoryCounterStore()
	}

	// The OTP delivery consumer (mailer stand-in) runs for the lifetime of
	// the process and reconnects on broker failures.
	go func() {
		if err := queue.StartOTPConsumer(); err != nil {
			log.Printf("otp consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HTTPErrorHandler = apperr.ErrorHandler
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewAuthHandler(cfg, authSvc),
		handler.NewUserHandler(cfg, users),
		users, cfg, config.LoadRateLimitPolicies(), counters)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
