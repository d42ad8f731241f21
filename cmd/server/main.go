package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/task_tracker/internal/config"
	"github.com/Skotchmaster/task_tracker/internal/db"
	"github.com/Skotchmaster/task_tracker/internal/httpserver"
	"github.com/Skotchmaster/task_tracker/internal/logging"
	"github.com/Skotchmaster/task_tracker/internal/middleware"
	"github.com/Skotchmaster/task_tracker/internal/mykafka"
	"github.com/Skotchmaster/task_tracker/internal/repo"
	"github.com/Skotchmaster/task_tracker/internal/search"
	"github.com/Skotchmaster/task_tracker/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("Ошибка инициализации БД: %v", err)
	}

	producer := mykafka.NewProducer(cfg.KafkaBrokers)

	var searchClient *search.Client
	if cfg.ESURL != "" {
		searchClient, err = search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword, cfg.ESIndex)
		if err != nil {
			log.Fatalf("es init error: %v", err)
		}
	} else {
		logger.Warn("ES_URL is empty, task search is disabled")
	}

	gormRepo := repo.GormRepo{DB: database}

	authSvc := &service.AuthService{
		Repo:          gormRepo,
		JWTSecret:     cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Producer:      producer,
	}
	taskSvc := &service.TaskService{
		Repo:     gormRepo,
		Search:   searchClient,
		Producer: producer,
	}

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: authSvc},
		TaskHandler: &httpserver.TaskHTTP{Svc: taskSvc},
		AuthMW:      &middleware.AuthMiddleware{Repo: gormRepo, JWTSecret: cfg.JWTSecret},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
