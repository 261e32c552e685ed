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

	"github.com/aleutian-tutor/lessonforge/internal/ingestion"
	"github.com/aleutian-tutor/lessonforge/pkg/config"
	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/eventbus"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
	"github.com/aleutian-tutor/lessonforge/pkg/logging"
	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
)

type ingestionConfig struct {
	Port            string
	StorePath       string
	NATSURL         string
	WorkerCount     int
	QueueDepth      int
	SigningKeyHex   string
	ShutdownTimeout time.Duration
}

func loadConfig() ingestionConfig {
	return ingestionConfig{
		Port:            config.String("INGESTION_PORT", "8086"),
		StorePath:       config.String("INGESTION_STORE_PATH", "./data/ingestion"),
		NATSURL:         config.String("NATS_URL", "nats://localhost:4222"),
		WorkerCount:     config.Int("INGESTION_WORKER_COUNT", 4),
		QueueDepth:      config.Int("INGESTION_QUEUE_DEPTH", 64),
		SigningKeyHex:   config.String("JWT_SIGNING_KEY", ""),
		ShutdownTimeout: config.Duration("INGESTION_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func main() {
	cfg := loadConfig()

	logger := logging.New(logging.Config{Service: "ingestion", JSON: true})
	defer logger.Close()
	metrics.Init("ingestion")

	dbCfg := docstore.DefaultConfig()
	dbCfg.Path = cfg.StorePath
	db, err := docstore.OpenDB(dbCfg)
	if err != nil {
		log.Fatalf("ingestion: open store: %v", err)
	}
	defer db.Close()
	store := docstore.New(db)

	bus, err := eventbus.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("ingestion: connect event bus: %v", err)
	}
	defer bus.Close()

	pool := ingestion.NewPool(store, bus, ingestion.NewStdlibExtractor(0), cfg.WorkerCount, cfg.QueueDepth)
	pool.Start(cfg.WorkerCount)
	defer pool.Stop()

	svc := ingestion.New(store, pool)

	if cfg.SigningKeyHex == "" {
		log.Fatalf("ingestion: JWT_SIGNING_KEY must be set so uploads can be attributed to a verified user")
	}
	keyring, err := jwtauth.KeyringFromHex(cfg.SigningKeyHex)
	if err != nil {
		log.Fatalf("ingestion: load signing keyring: %v", err)
	}
	verifier := jwtauth.NewVerifier(keyring)

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
			log.Fatalf("ingestion: listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("ingestion shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ingestion: graceful shutdown failed", "error", err)
	}
}
