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

	"github.com/aleutian-tutor/lessonforge/internal/gateway"
	"github.com/aleutian-tutor/lessonforge/pkg/config"
	"github.com/aleutian-tutor/lessonforge/pkg/extensions"
	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
	"github.com/aleutian-tutor/lessonforge/pkg/logging"
	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
	"github.com/aleutian-tutor/lessonforge/pkg/schedule"
)

// gatewayConfig is loaded entirely from the environment through
// pkg/config's env helpers.
type gatewayConfig struct {
	Port              string
	AuthBase          string
	LessonBase        string
	ConversationBase  string
	QuizBase          string
	VisualizationBase string
	IngestionBase     string
	HealthPollCron    string
	SigningKeyHex     string
	ShutdownTimeout   time.Duration
}

func loadConfig() gatewayConfig {
	return gatewayConfig{
		Port:              config.String("GATEWAY_PORT", "8080"),
		AuthBase:          config.String("AUTH_BASE_URL", "http://localhost:8081"),
		LessonBase:        config.String("LESSON_BASE_URL", "http://localhost:8082"),
		ConversationBase:  config.String("CONVERSATION_BASE_URL", "http://localhost:8083"),
		QuizBase:          config.String("QUIZ_BASE_URL", "http://localhost:8084"),
		VisualizationBase: config.String("VISUALIZATION_BASE_URL", "http://localhost:8085"),
		IngestionBase:     config.String("INGESTION_BASE_URL", "http://localhost:8086"),
		HealthPollCron:    config.String("GATEWAY_HEALTH_POLL_CRON", "* * * * *"),
		SigningKeyHex:     config.String("JWT_SIGNING_KEY", ""),
		ShutdownTimeout:   config.Duration("GATEWAY_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func main() {
	cfg := loadConfig()

	logger := logging.New(logging.Config{Service: "gateway", JSON: true})
	defer logger.Close()
	logger.Info("gateway starting", "port", cfg.Port)

	metrics.Init("gateway")

	routes := gateway.DefaultRoutes(
		cfg.AuthBase, cfg.LessonBase, cfg.ConversationBase,
		cfg.QuizBase, cfg.VisualizationBase, cfg.IngestionBase,
	)
	health := gateway.NewHealthCache()

	cronSched := schedule.NewCronScheduler()
	if err := health.StartPolling(cronSched, cfg.HealthPollCron, routes); err != nil {
		log.Fatalf("gateway: schedule health poll: %v", err)
	}
	cronSched.Start()
	defer cronSched.Stop()

	var authProvider extensions.AuthProvider
	if cfg.SigningKeyHex != "" {
		keyring, err := jwtauth.KeyringFromHex(cfg.SigningKeyHex)
		if err != nil {
			log.Fatalf("gateway: load signing keyring: %v", err)
		}
		authProvider = jwtauth.NewAuthProvider(jwtauth.NewVerifier(keyring))
	} else {
		logger.Warn("gateway: JWT_SIGNING_KEY unset, gateway-level auth gating disabled; downstream services still verify their own tokens")
		authProvider = &extensions.NopAuthProvider{}
		for i := range routes {
			routes[i].RequireAuth = false
		}
	}

	gw := gateway.New(routes, health, authProvider)

	engine := gin.New()
	engine.Use(gin.Recovery())
	gw.Register(engine)
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("gateway: listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("gateway shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway: graceful shutdown failed", "error", err)
	}
}
