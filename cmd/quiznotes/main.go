// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aleutian-tutor/lessonforge/internal/quiz"
	"github.com/aleutian-tutor/lessonforge/pkg/config"
	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/eventbus"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
	"github.com/aleutian-tutor/lessonforge/pkg/llm"
	"github.com/aleutian-tutor/lessonforge/pkg/logging"
	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
	"github.com/aleutian-tutor/lessonforge/pkg/retry"
)

type quizConfig struct {
	Port            string
	StorePath       string
	NATSURL         string
	GeneratorBase   string
	GeneratorAPIKey string
	GeneratorModel  string
	SigningKeyHex   string
	ShutdownTimeout time.Duration
}

func loadConfig() quizConfig {
	return quizConfig{
		Port:            config.String("QUIZ_PORT", "8084"),
		StorePath:       config.String("QUIZ_STORE_PATH", "./data/quiz"),
		NATSURL:         config.String("NATS_URL", "nats://localhost:4222"),
		GeneratorBase:   config.String("QUIZ_GENERATOR_BASE_URL", ""),
		GeneratorAPIKey: config.String("QUIZ_GENERATOR_API_KEY", ""),
		GeneratorModel:  config.String("QUIZ_GENERATOR_MODEL", "gpt-4o-mini"),
		SigningKeyHex:   config.String("JWT_SIGNING_KEY", ""),
		ShutdownTimeout: config.Duration("QUIZ_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func main() {
	cfg := loadConfig()

	logger := logging.New(logging.Config{Service: "quiznotes", JSON: true})
	defer logger.Close()
	metrics.Init("quiznotes")

	dbCfg := docstore.DefaultConfig()
	dbCfg.Path = cfg.StorePath
	db, err := docstore.OpenDB(dbCfg)
	if err != nil {
		log.Fatalf("quiznotes: open store: %v", err)
	}
	defer db.Close()
	store := docstore.New(db)

	bus, err := eventbus.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("quiznotes: connect event bus: %v", err)
	}
	defer bus.Close()

	var model llm.Generator
	switch {
	case cfg.GeneratorBase != "":
		model = llm.NewHTTPClient(cfg.GeneratorBase, cfg.GeneratorAPIKey, cfg.GeneratorModel)
	case cfg.GeneratorAPIKey != "":
		model = llm.NewOpenAIClient(cfg.GeneratorAPIKey, "", cfg.GeneratorModel)
	default:
		logger.Warn("quiznotes: no generator backend configured, using the deterministic mock generator")
		model = &llm.MockGenerator{}
	}

	gen := quiz.NewGenerator(store, bus, model, retry.Default())
	if err := gen.Subscribe(); err != nil {
		log.Fatalf("quiznotes: subscribe lesson.ready: %v", err)
	}

	if cfg.SigningKeyHex == "" {
		log.Fatalf("quiznotes: JWT_SIGNING_KEY must be set")
	}
	keyring, err := jwtauth.KeyringFromHex(cfg.SigningKeyHex)
	if err != nil {
		log.Fatalf("quiznotes: load signing keyring: %v", err)
	}
	verifier := jwtauth.NewVerifier(keyring)

	svc := quiz.NewService(store)

	engine := gin.New()
	engine.Use(gin.Recovery(), httpx.Recovery())
	if metrics.Default != nil {
		engine.Use(metrics.Default.GinMiddleware())
	}
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := engine.Group("/")
	authed.Use(httpx.AuthMiddleware(verifier))
	svc.Routes(authed)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("quiznotes: listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("quiznotes shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("quiznotes: graceful shutdown failed", "error", err)
	}
}
