// Package audit provides middleware for auditing HTTP requests
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cyberguard/cyberguard/pkg/monitor"
	"github.com/cyberguard/cyberguard/pkg/sessions"
)

// Recorder receives audit events. *monitor.Service satisfies it, so audited
// requests show up in the dashboard event feed.
type Recorder interface {
	CreateSystemEvent(ctx context.Context, arg monitor.CreateSystemEventParams) (monitor.SystemEvent, error)
}

// Config holds the configuration for the audit middleware
type Config struct {
	// Recorder receives one event per audited request
	Recorder Recorder
	// EventType labels recorded events. Defaults to "api_activity".
	EventType string
	// Methods restricts auditing to the listed HTTP methods. Empty means
	// mutating methods only (POST, PUT, PATCH, DELETE).
	Methods []string
}

// Middleware handles HTTP request auditing
type Middleware struct {
	config  Config
	methods map[string]bool
}

// NewMiddleware creates a new audit middleware instance
func NewMiddleware(config Config) (*Middleware, error) {
	if config.Recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}

	if config.EventType == "" {
		config.EventType = "api_activity"
	}

	if len(config.Methods) == 0 {
		config.Methods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	}
	methods := make(map[string]bool, len(config.Methods))
	for _, m := range config.Methods {
		methods[m] = true
	}

	return &Middleware{
		config:  config,
		methods: methods,
	}, nil
}

// AuditEvent represents an audit event
type AuditEvent struct {
	AccountID uuid.UUID
	URI       string
	Method    string
	Timestamp time.Time
}

// Handler is an HTTP middleware that audits authenticated requests
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.methods[r.Method] {
			event := AuditEvent{
				AccountID: sessions.AccountIDFromContext(r.Context()),
				URI:       r.URL.Path,
				Method:    r.Method,
				Timestamp: time.Now(),
			}

			// Record asynchronously so a slow store never delays the request
			go m.record(context.WithoutCancel(r.Context()), event)
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) record(ctx context.Context, event AuditEvent) {
	account := "anonymous"
	if event.AccountID != uuid.Nil {
		account = event.AccountID.String()
	}

	_, err := m.config.Recorder.CreateSystemEvent(ctx, monitor.CreateSystemEventParams{
		Type:     m.config.EventType,
		Message:  fmt.Sprintf("%s %s by account %s", event.Method, event.URI, account),
		Severity: "info",
	})
	if err != nil {
		slog.Error("Failed to record audit event", "error", err, "method", event.Method, "uri", event.URI)
	}
}
