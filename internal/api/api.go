// Package api wires the HTTP surface: gin handlers over the domain
// packages, with dependencies passed in explicitly rather than looked up
// from ambient state.
package api

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"mangavault/internal/notification"
	"mangavault/internal/notify"
	"mangavault/internal/storage"
)

// TokenTTL is the lifetime of issued session tokens.
const TokenTTL = 24 * time.Hour

// Deps carries everything the handlers need.
type Deps struct {
	DB        *sql.DB
	Logger    *zap.Logger
	JWTSecret []byte

	// Store handles server-proxied uploads (possibly a Fallback).
	Store storage.Strategy
	// Presigner is nil when the configured store cannot presign; the
	// presign route then reports the capability as unavailable.
	Presigner      storage.Presigner
	MaxUploadBytes int64

	Fanout *notification.Fanout
	Hub    *notify.Hub

	// RateLimitPerSecond for mutating routes; 0 disables limiting.
	RateLimitPerSecond int
}
