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

	"github.com/aleutian-tutor/lessonforge/internal/conversation"
	"github.com/aleutian-tutor/lessonforge/pkg/config"
	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
	"github.com/aleutian-tutor/lessonforge/pkg/logging"
	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
)

type conversationConfig struct {
	Port            string
	StorePath       string
	SigningKeyHex   string
	ShutdownTimeout time.Duration
}

func loadConfig() conversationConfig {
	return conversationConfig{
		Port:            config.String("CONVERSATION_PORT", "8083"),
		StorePath:       config.String("CONVERSATION_STORE_PATH", "./data/conversation"),
		SigningKeyHex:   config.String("JWT_SIGNING_KEY", ""),
		ShutdownTimeout: config.Duration("CONVERSATION_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func main() {
	cfg := loadConfig()

	logger := logging.New(logging.Config{Service: "conversation", JSON: true})
	defer logger.Close()
	metrics.Init("conversation")

	dbCfg := docstore.DefaultConfig()
	dbCfg.Path = cfg.StorePath
	db, err := docstore.OpenDB(dbCfg)
	if err != nil {
		log.Fatalf("conversation: open store: %v", err)
	}
	defer db.Close()
	store := docstore.New(db)

	if cfg.SigningKeyHex == "" {
		log.Fatalf("conversation: JWT_SIGNING_KEY must be set")
	}
	keyring, err := jwtauth.KeyringFromHex(cfg.SigningKeyHex)
	if err != nil {
		log.Fatalf("conversation: load signing keyring: %v", err)
	}
	verifier := jwtauth.NewVerifier(keyring)

	svc := conversation.New(store)

	engine := gin.New()
	engine.Use(gin.Recovery(), httpx.Recovery())
	if metrics.Default != nil {
		engine.Use(metrics.Default.GinMiddleware())
	}
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The teaching WebSocket upgrade needs the bearer token verified the
	// same way as every other route: the client sends it as a normal
	// Authorization header on the upgrade request.
	authed := engine.Group("/")
	authed.Use(httpx.AuthMiddleware(verifier))
	svc.Routes(authed)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("conversation: listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("conversation shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("conversation: graceful shutdown failed", "error", err)
	}
}
