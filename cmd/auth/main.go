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

	"github.com/aleutian-tutor/lessonforge/internal/auth"
	"github.com/aleutian-tutor/lessonforge/pkg/config"
	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
	"github.com/aleutian-tutor/lessonforge/pkg/logging"
	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
	"github.com/aleutian-tutor/lessonforge/pkg/schedule"
)

type authConfig struct {
	Port            string
	StorePath       string
	RefreshGCCron   string
	SigningKeyHex   string
	ShutdownTimeout time.Duration
}

func loadConfig() authConfig {
	return authConfig{
		Port:            config.String("AUTH_PORT", "8081"),
		StorePath:       config.String("AUTH_STORE_PATH", "./data/auth"),
		RefreshGCCron:   config.String("AUTH_REFRESH_GC_CRON", "0 3 * * *"),
		SigningKeyHex:   config.String("JWT_SIGNING_KEY", ""),
		ShutdownTimeout: config.Duration("AUTH_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func main() {
	cfg := loadConfig()

	logger := logging.New(logging.Config{Service: "auth", JSON: true})
	defer logger.Close()
	metrics.Init("auth")

	dbCfg := docstore.DefaultConfig()
	dbCfg.Path = cfg.StorePath
	db, err := docstore.OpenDB(dbCfg)
	if err != nil {
		log.Fatalf("auth: open store: %v", err)
	}
	defer db.Close()
	store := docstore.New(db)

	var keyring *jwtauth.Keyring
	if cfg.SigningKeyHex != "" {
		keyring, err = jwtauth.KeyringFromHex(cfg.SigningKeyHex)
		if err != nil {
			log.Fatalf("auth: load signing keyring: %v", err)
		}
	} else {
		logger.Warn("auth: JWT_SIGNING_KEY unset, generating an ephemeral key; tokens will not verify across restarts or against other services")
		keyring, err = jwtauth.GenerateKeyring()
		if err != nil {
			log.Fatalf("auth: generate signing keyring: %v", err)
		}
	}
	issuer := jwtauth.NewIssuer(keyring, 0, 0)

	svc := auth.New(store, issuer, auth.NopMailer{})

	cronSched := schedule.NewCronScheduler()
	if _, err := cronSched.AddFunc(cfg.RefreshGCCron, func() {
		removed, err := svc.SweepExpiredRefreshTokens(context.Background())
		if err != nil {
			logger.Error("auth: refresh-token sweep failed", "error", err)
			return
		}
		logger.Info("auth: refresh-token sweep complete", "removed", removed)
	}); err != nil {
		log.Fatalf("auth: schedule refresh gc: %v", err)
	}
	cronSched.Start()
	defer cronSched.Stop()

	engine := gin.New()
	engine.Use(gin.Recovery(), httpx.Recovery())
	if metrics.Default != nil {
		engine.Use(metrics.Default.GinMiddleware())
	}
	svc.Routes(engine)
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("auth: listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("auth shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("auth: graceful shutdown failed", "error", err)
	}
}
