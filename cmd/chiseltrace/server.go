// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/chiseltrace/chiseltrace-go/internal/progress"
	"github.com/chiseltrace/chiseltrace-go/pkg/logging"
	"github.com/chiseltrace/chiseltrace-go/pkg/obs"
)

// statusServer is an optional HTTP surface, started only when
// --metrics-addr is set: liveness/status over gin, Prometheus scraping
// over the obs.Provider's registered handler, and a best-effort
// websocket broadcast of the run's final progress snapshot.
type statusServer struct {
	addr   string
	obs    *obs.Provider
	logger *logging.Logger
	srv    *http.Server

	mu      sync.Mutex
	latest  progress.Stats
	clients map[*websocket.Conn]struct{}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newStatusServer(addr string, p *obs.Provider, logger *logging.Logger) *statusServer {
	return &statusServer{addr: addr, obs: p, logger: logger, clients: make(map[*websocket.Conn]struct{})}
}

// SetStats records the latest progress snapshot and fans it out to every
// connected websocket client; safe for concurrent use.
func (s *statusServer) SetStats(stats progress.Stats) {
	s.mu.Lock()
	s.latest = stats
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.WriteJSON(stats); err != nil {
			s.logger.Warn("dropping progress websocket client", "error", err)
			s.removeClient(c)
		}
	}
}

func (s *statusServer) removeClient(c *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.Close()
}

func (s *statusServer) Start() {
	router := gin.Default()
	router.Use(otelgin.Middleware("chiseltrace"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		s.mu.Lock()
		latest := s.latest
		s.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"progress": progress.Line(latest), "stats": latest})
	})
	if h := s.obs.Handler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}
	router.GET("/ws/progress", func(c *gin.Context) {
		conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		s.mu.Lock()
		s.clients[conn] = struct{}{}
		s.mu.Unlock()
	})

	s.srv = &http.Server{Addr: s.addr, Handler: router}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server exited", "error", err)
		}
	}()
}

func (s *statusServer) Shutdown(ctx context.Context) {
	if s.srv == nil {
		return
	}
	s.mu.Lock()
	for c := range s.clients {
		c.Close()
	}
	s.mu.Unlock()
	_ = s.srv.Shutdown(ctx)
}
