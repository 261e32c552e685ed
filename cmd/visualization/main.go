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

	"github.com/aleutian-tutor/lessonforge/internal/visualization"
	"github.com/aleutian-tutor/lessonforge/pkg/config"
	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/eventbus"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
	"github.com/aleutian-tutor/lessonforge/pkg/logging"
	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
)

type visualizationConfig struct {
	Port            string
	StorePath       string
	NATSURL         string
	SigningKeyHex   string
	ShutdownTimeout time.Duration
}

func loadConfig() visualizationConfig {
	return visualizationConfig{
		Port:            config.String("VISUALIZATION_PORT", "8085"),
		StorePath:       config.String("VISUALIZATION_STORE_PATH", "./data/visualization"),
		NATSURL:         config.String("NATS_URL", "nats://localhost:4222"),
		SigningKeyHex:   config.String("JWT_SIGNING_KEY", ""),
		ShutdownTimeout: config.Duration("VISUALIZATION_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func main() {
	cfg := loadConfig()

	logger := logging.New(logging.Config{Service: "visualization", JSON: true})
	defer logger.Close()
	metrics.Init("visualization")

	dbCfg := docstore.DefaultConfig()
	dbCfg.Path = cfg.StorePath
	db, err := docstore.OpenDB(dbCfg)
	if err != nil {
		log.Fatalf("visualization: open store: %v", err)
	}
	defer db.Close()
	store := docstore.New(db)

	bus, err := eventbus.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("visualization: connect event bus: %v", err)
	}
	defer bus.Close()

	svc := visualization.New(store, bus)
	if err := svc.Subscribe(); err != nil {
		log.Fatalf("visualization: subscribe lesson.ready: %v", err)
	}

	if cfg.SigningKeyHex == "" {
		log.Fatalf("visualization: JWT_SIGNING_KEY must be set")
	}
	keyring, err := jwtauth.KeyringFromHex(cfg.SigningKeyHex)
	if err != nil {
		log.Fatalf("visualization: load signing keyring: %v", err)
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
			log.Fatalf("visualization: listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("visualization shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("visualization: graceful shutdown failed", "error", err)
	}
}
