// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the catalog's JSON HTTP API on top of the
// catalog service.
package handlers

import (
	"context"
	"net/http"
	"time"

	"postcatalog/internal/catalog"
	"postcatalog/internal/session"
)

// SessionManager issues and revokes bearer-token sessions.
type SessionManager interface {
	Create(ctx context.Context, data *session.Data) (string, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

// Handler groups the API endpoints and their dependencies.
type Handler struct {
	svc      *catalog.Service
	sessions SessionManager
}

// New creates a Handler.
func New(svc *catalog.Service, sessions SessionManager) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
