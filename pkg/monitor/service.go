package monitor

import (
	"context"
	"errors"
	"time"

	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
)

// protectedSystemsBaseline is the fleet size reported on the dashboard.
const protectedSystemsBaseline = 247

// minSecurityLevel is the floor of the computed security level.
const minSecurityLevel = 70

// DefaultEventLimit caps the activity feed when the caller gives no limit.
const DefaultEventLimit = 50

// Service exposes the monitoring operations behind the dashboard.
type Service struct {
	repo Repository
}

// NewService creates a monitor service over the given store
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListThreats returns all threats, newest detection first.
func (s *Service) ListThreats(ctx context.Context) ([]Threat, error) {
	threats, err := s.repo.ListThreats(ctx)
	if err != nil {
		return nil, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to list threats")
	}
	return threats, nil
}

// CreateThreat records a new threat.
func (s *Service) CreateThreat(ctx context.Context, arg CreateThreatParams) (Threat, error) {
	if arg.Name == "" || arg.Type == "" || arg.Severity == "" || arg.Status == "" {
		return Threat{}, cgerr.New(cgerr.ErrCodeInvalidInput, "name, type, severity and status are required")
	}
	threat, err := s.repo.CreateThreat(ctx, arg)
	if err != nil {
		return Threat{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to create threat")
	}
	return threat, nil
}

// UpdateThreatStatus changes a threat's status, optionally stamping the
// resolution time.
func (s *Service) UpdateThreatStatus(ctx context.Context, id int64, status string, resolvedAt *time.Time) (Threat, error) {
	if status == "" {
		return Threat{}, cgerr.New(cgerr.ErrCodeInvalidInput, "status is required")
	}
	threat, err := s.repo.UpdateThreatStatus(ctx, id, status, resolvedAt)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Threat{}, cgerr.New(cgerr.ErrCodeNotFound, "threat not found")
		}
		return Threat{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to update threat")
	}
	return threat, nil
}

// ListScannedFiles returns scan records, newest first.
func (s *Service) ListScannedFiles(ctx context.Context) ([]ScannedFile, error) {
	files, err := s.repo.ListScannedFiles(ctx)
	if err != nil {
		return nil, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to list scanned files")
	}
	return files, nil
}

// CreateScannedFile records a new scan.
func (s *Service) CreateScannedFile(ctx context.Context, arg CreateScannedFileParams) (ScannedFile, error) {
	if arg.Filename == "" || arg.ScanStatus == "" {
		return ScannedFile{}, cgerr.New(cgerr.ErrCodeInvalidInput, "filename and scan_status are required")
	}
	file, err := s.repo.CreateScannedFile(ctx, arg)
	if err != nil {
		return ScannedFile{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to create scan record")
	}
	return file, nil
}

// UpdateFileStatus changes a scan record's status, optionally noting the
// threat that was found.
func (s *Service) UpdateFileStatus(ctx context.Context, id int64, status string, threatFound *string) (ScannedFile, error) {
	if status == "" {
		return ScannedFile{}, cgerr.New(cgerr.ErrCodeInvalidInput, "status is required")
	}
	file, err := s.repo.UpdateFileStatus(ctx, id, status, threatFound)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ScannedFile{}, cgerr.New(cgerr.ErrCodeNotFound, "file not found")
		}
		return ScannedFile{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to update scan record")
	}
	return file, nil
}

// ListSystemEvents returns the newest events, capped at limit (or
// DefaultEventLimit when limit <= 0).
func (s *Service) ListSystemEvents(ctx context.Context, limit int) ([]SystemEvent, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	events, err := s.repo.ListSystemEvents(ctx, limit)
	if err != nil {
		return nil, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to list events")
	}
	return events, nil
}

// CreateSystemEvent appends an entry to the activity feed.
func (s *Service) CreateSystemEvent(ctx context.Context, arg CreateSystemEventParams) (SystemEvent, error) {
	if arg.Type == "" || arg.Message == "" || arg.Severity == "" {
		return SystemEvent{}, cgerr.New(cgerr.ErrCodeInvalidInput, "type, message and severity are required")
	}
	event, err := s.repo.CreateSystemEvent(ctx, arg)
	if err != nil {
		return SystemEvent{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to create event")
	}
	return event, nil
}

// ListSecurityConfig returns the state of every protection service.
func (s *Service) ListSecurityConfig(ctx context.Context) ([]SecurityConfig, error) {
	configs, err := s.repo.ListSecurityConfig(ctx)
	if err != nil {
		return nil, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to list security config")
	}
	return configs, nil
}

// UpdateSecurityConfig changes the status of one protection service.
func (s *Service) UpdateSecurityConfig(ctx context.Context, service, status string) (SecurityConfig, error) {
	if status == "" {
		return SecurityConfig{}, cgerr.New(cgerr.ErrCodeInvalidInput, "status is required")
	}
	config, err := s.repo.UpdateSecurityConfig(ctx, service, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SecurityConfig{}, cgerr.New(cgerr.ErrCodeNotFound, "security configuration not found")
		}
		return SecurityConfig{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to update security config")
	}
	return config, nil
}

// ListConnectedDevices returns known devices, most recently seen first.
func (s *Service) ListConnectedDevices(ctx context.Context) ([]ConnectedDevice, error) {
	devices, err := s.repo.ListConnectedDevices(ctx)
	if err != nil {
		return nil, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to list devices")
	}
	return devices, nil
}

// CreateConnectedDevice registers a device with the network monitor.
func (s *Service) CreateConnectedDevice(ctx context.Context, arg CreateConnectedDeviceParams) (ConnectedDevice, error) {
	if arg.DeviceName == "" || arg.OwnerName == "" || arg.DeviceType == "" || arg.IPAddress == "" {
		return ConnectedDevice{}, cgerr.New(cgerr.ErrCodeInvalidInput, "device_name, owner_name, device_type and ip_address are required")
	}
	if arg.Status == "" {
		arg.Status = DeviceStatusActive
	}
	device, err := s.repo.CreateConnectedDevice(ctx, arg)
	if err != nil {
		return ConnectedDevice{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to create device")
	}
	return device, nil
}

// UpdateDeviceStatus changes a device's status and refreshes its last-seen
// time.
func (s *Service) UpdateDeviceStatus(ctx context.Context, id int64, status string) (ConnectedDevice, error) {
	if status == "" {
		return ConnectedDevice{}, cgerr.New(cgerr.ErrCodeInvalidInput, "status is required")
	}
	device, err := s.repo.UpdateDeviceStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ConnectedDevice{}, cgerr.New(cgerr.ErrCodeNotFound, "device not found")
		}
		return ConnectedDevice{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to update device")
	}
	return device, nil
}

// GetDashboardStats computes the dashboard headline numbers. The security
// level drops five points per active threat, floored at minSecurityLevel.
func (s *Service) GetDashboardStats(ctx context.Context) (DashboardStats, error) {
	activeThreats, err := s.repo.CountActiveThreats(ctx)
	if err != nil {
		return DashboardStats{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to count threats")
	}
	totalScans, err := s.repo.CountScannedFiles(ctx)
	if err != nil {
		return DashboardStats{}, cgerr.Wrap(err, cgerr.ErrCodeStoreUnavailable, "failed to count scans")
	}

	level := 100 - activeThreats*5
	if level < minSecurityLevel {
		level = minSecurityLevel
	}
	return DashboardStats{
		ProtectedSystems: protectedSystemsBaseline,
		ThreatsDetected:  activeThreats,
		ScansCompleted:   totalScans,
		SecurityLevel:    level,
	}, nil
}
