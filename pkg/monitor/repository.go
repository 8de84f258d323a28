package monitor

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a monitor record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository stores the monitoring data behind the dashboard.
type Repository interface {
	// Threats, newest detection first
	ListThreats(ctx context.Context) ([]Threat, error)
	GetThreat(ctx context.Context, id int64) (Threat, error)
	CreateThreat(ctx context.Context, arg CreateThreatParams) (Threat, error)
	UpdateThreatStatus(ctx context.Context, id int64, status string, resolvedAt *time.Time) (Threat, error)
	CountActiveThreats(ctx context.Context) (int, error)

	// Scanned files, newest scan first
	ListScannedFiles(ctx context.Context) ([]ScannedFile, error)
	CreateScannedFile(ctx context.Context, arg CreateScannedFileParams) (ScannedFile, error)
	UpdateFileStatus(ctx context.Context, id int64, status string, threatFound *string) (ScannedFile, error)
	CountScannedFiles(ctx context.Context) (int, error)

	// System events, newest first
	ListSystemEvents(ctx context.Context, limit int) ([]SystemEvent, error)
	CreateSystemEvent(ctx context.Context, arg CreateSystemEventParams) (SystemEvent, error)

	// Security configuration, keyed by service name
	ListSecurityConfig(ctx context.Context) ([]SecurityConfig, error)
	UpdateSecurityConfig(ctx context.Context, service, status string) (SecurityConfig, error)

	// Connected devices
	ListConnectedDevices(ctx context.Context) ([]ConnectedDevice, error)
	CreateConnectedDevice(ctx context.Context, arg CreateConnectedDeviceParams) (ConnectedDevice, error)
	UpdateDeviceStatus(ctx context.Context, id int64, status string) (ConnectedDevice, error)
}
