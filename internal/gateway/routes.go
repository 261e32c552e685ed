// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway is the single entry point every client request passes
// through: it proxies HTTP and WebSocket traffic to the owning
// downstream service by declarative path prefix, gates on downstream
// liveness, and applies CORS.
package gateway

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aleutian-tutor/lessonforge/pkg/extensions"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
)

// Route is one declarative prefix -> downstream mapping.
type Route struct {
	Prefix      string // e.g. "/api/auth"
	TargetBase  string // e.g. "http://auth:8081"
	WebSocket   bool
	RequireAuth bool // gate this route on a valid bearer token before proxying
}

// DefaultRoutes returns the gateway's declarative routing table, with
// target bases supplied by config. The auth group is left ungated here
// since it mixes public endpoints (signup, login) with ones the auth
// service itself protects (logout, verify) — every other group requires
// a session.
func DefaultRoutes(auth, lessons, conversations, quiz, visualizations, ingestion string) []Route {
	return []Route{
		{Prefix: "/api/auth", TargetBase: auth},
		{Prefix: "/api/lessons", TargetBase: lessons, RequireAuth: true},
		{Prefix: "/api/conversations", TargetBase: conversations, RequireAuth: true},
		{Prefix: "/api/quiz", TargetBase: quiz, RequireAuth: true},
		{Prefix: "/api/visualizations", TargetBase: visualizations, RequireAuth: true},
		{Prefix: "/api/pdf", TargetBase: ingestion, RequireAuth: true},
		{Prefix: "/api/upload", TargetBase: ingestion, RequireAuth: true},
		{Prefix: "/ws/teaching", TargetBase: conversations, WebSocket: true, RequireAuth: true},
	}
}

// Gateway wires the routing table, health cache, and proxies onto a gin
// engine.
type Gateway struct {
	routes []Route
	health *HealthCache
	auth   extensions.AuthProvider
}

// New builds a Gateway over routes, polling each downstream's /healthz
// via health. auth gates every route with RequireAuth set; pass
// &extensions.NopAuthProvider{} to disable gateway-level gating (e.g. in
// a local single-user deployment) and rely on downstream services alone.
func New(routes []Route, health *HealthCache, auth extensions.AuthProvider) *Gateway {
	return &Gateway{routes: routes, health: health, auth: auth}
}

// Register mounts every route on r under its prefix, in the order the
// route table lists them.
func (g *Gateway) Register(r *gin.Engine) {
	if metrics.Default != nil {
		r.Use(metrics.Default.GinMiddleware())
	}
	r.Use(corsMiddleware())

	for _, route := range g.routes {
		route := route
		group := r.Group(route.Prefix)
		if route.RequireAuth {
			group.Use(authGateMiddleware(g.auth))
		}
		group.Any("/*path", g.proxyHandler(route))
	}
}

// authGateMiddleware rejects a request before it ever reaches a
// downstream service unless it carries a bearer token that auth accepts,
// and stamps the resolved identity onto the proxied request so
// downstream services can trust it instead of re-deriving it from the
// raw token. Each service still verifies the token itself — this is a
// fail-fast gate, not a replacement for that check.
func authGateMiddleware(auth extensions.AuthProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
			return
		}

		info, err := auth.Validate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			httpx.AbortWithError(c, httpx.Unauthorized("invalid_token"))
			return
		}

		c.Request.Header.Set("X-User-Id", info.UserID)
		c.Request.Header.Set("X-User-Email", info.Email)
		if len(info.Roles) > 0 {
			c.Request.Header.Set("X-User-Role", info.Roles[0])
		}
		c.Next()
	}
}

// corsMiddleware allows browser SPAs served from any origin to call the
// gateway directly; the gateway is the only public surface, so per-route
// CORS policy would just duplicate this everywhere.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
