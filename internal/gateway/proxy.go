// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
)

// defaultUpstreamTimeout bounds every outbound call the gateway makes to
// a downstream service. A hang past this deadline surfaces as 504
// upstream_timeout rather than blocking the client indefinitely. A var,
// not a const, so tests can shrink it instead of sleeping 30s.
var defaultUpstreamTimeout = 30 * time.Second

// newReverseProxy builds an httputil.ReverseProxy targeting targetBase,
// translating dial/timeout failures into the shared error envelope
// instead of httputil's default plaintext 502. The proxy's Transport
// carries its own dial/response-header timeouts, and proxyHandler binds
// an overall per-request deadline so a slow or hung downstream can't
// outlive defaultUpstreamTimeout.
func newReverseProxy(targetBase string) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(targetBase)
	if err != nil {
		return nil, err
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = &http.Transport{
		DialContext:           (&net.Dialer{Timeout: defaultUpstreamTimeout}).DialContext,
		ResponseHeaderTimeout: defaultUpstreamTimeout,
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("gateway: proxy to downstream failed", "target", targetBase, "error", err)
		w.Header().Set("Content-Type", "application/json")

		var netErr net.Error
		timedOut := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
		if timedOut {
			w.WriteHeader(http.StatusGatewayTimeout)
			_, _ = w.Write([]byte(`{"error":"upstream_timeout","message":"downstream did not respond in time"}`))
			return
		}

		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"upstream_unavailable","message":"downstream service unavailable"}`))
	}
	return proxy, nil
}

// proxyHandler returns a gin.HandlerFunc that proxies route.Prefix's
// traffic to route.TargetBase, gating on the health cache and choosing
// between a WebSocket relay and a plain HTTP reverse proxy.
func (g *Gateway) proxyHandler(route Route) gin.HandlerFunc {
	httpProxy, err := newReverseProxy(route.TargetBase)
	if err != nil {
		slog.Error("gateway: invalid downstream target", "target", route.TargetBase, "error", err)
	}
	if httpProxy != nil && g.health != nil {
		translate := httpProxy.ErrorHandler
		httpProxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				g.health.Set(route.TargetBase, false)
			}
			translate(w, r, err)
		}
		httpProxy.ModifyResponse = func(*http.Response) error {
			g.health.Set(route.TargetBase, true)
			return nil
		}
	}

	return func(c *gin.Context) {
		if g.health != nil && !g.health.IsLive(route.TargetBase) {
			httpx.AbortWithError(c, httpx.New(httpx.CodeUpstreamUnavailable, "downstream is not currently healthy"))
			return
		}

		if route.WebSocket && websocket.IsWebSocketUpgrade(c.Request) {
			proxyWebSocket(c, route.TargetBase)
			return
		}

		if httpProxy == nil {
			httpx.AbortWithError(c, httpx.Internal("downstream misconfigured"))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), defaultUpstreamTimeout)
		defer cancel()
		httpProxy.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
	}
}

// proxyWebSocket upgrades the inbound connection, dials the downstream
// as a WebSocket client, and copies frames bidirectionally until either
// side closes. The gateway never inspects frame contents.
func proxyWebSocket(c *gin.Context, targetBase string) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	clientConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("gateway: client ws upgrade failed", "error", err)
		return
	}
	defer clientConn.Close()

	downstreamURL := strings.Replace(targetBase, "http", "ws", 1) + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		downstreamURL += "?" + c.Request.URL.RawQuery
	}

	var header http.Header
	if auth := c.GetHeader("Authorization"); auth != "" {
		header = http.Header{"Authorization": []string{auth}}
	}
	downstreamConn, _, err := websocket.DefaultDialer.Dial(downstreamURL, header)
	if err != nil {
		slog.Error("gateway: downstream ws dial failed", "target", downstreamURL, "error", err)
		_ = clientConn.WriteJSON(map[string]string{"type": "error", "error": "upstream_unavailable"})
		return
	}
	defer downstreamConn.Close()

	errc := make(chan error, 2)
	go relay(clientConn, downstreamConn, errc)
	go relay(downstreamConn, clientConn, errc)
	<-errc
}

// relay copies frames from src to dst until either read or write fails.
func relay(src, dst *websocket.Conn, errc chan<- error) {
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			errc <- err
			return
		}
	}
}
