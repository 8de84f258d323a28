package api

import "time"

// CreateThreatRequest represents a new threat report
type CreateThreatRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

// UpdateThreatRequest changes a threat's status
type UpdateThreatRequest struct {
	Status     string     `json:"status"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// CreateFileRequest represents a new scan record
type CreateFileRequest struct {
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size"`
	ScanStatus string `json:"scan_status"`
}

// UpdateFileRequest changes a scan record's status
type UpdateFileRequest struct {
	Status      string  `json:"status"`
	ThreatFound *string `json:"threat_found,omitempty"`
}

// CreateEventRequest represents a new activity feed entry
type CreateEventRequest struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// UpdateConfigRequest changes a protection service's status
type UpdateConfigRequest struct {
	Status string `json:"status"`
}

// CreateDeviceRequest registers a device
type CreateDeviceRequest struct {
	DeviceName      string  `json:"device_name"`
	OwnerName       string  `json:"owner_name"`
	DeviceType      string  `json:"device_type"`
	IPAddress       string  `json:"ip_address"`
	MACAddress      *string `json:"mac_address,omitempty"`
	OperatingSystem *string `json:"operating_system,omitempty"`
	Status          string  `json:"status,omitempty"`
}

// UpdateDeviceRequest changes a device's status
type UpdateDeviceRequest struct {
	Status string `json:"status"`
}

// ThreatResponse is the JSON view of a threat
type ThreatResponse struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	Location   string     `json:"location"`
	DetectedAt time.Time  `json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// FileResponse is the JSON view of a scan record
type FileResponse struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ScanStatus  string    `json:"scan_status"`
	ThreatFound *string   `json:"threat_found,omitempty"`
	ScannedAt   time.Time `json:"scanned_at"`
}

// EventResponse is the JSON view of an activity feed entry
type EventResponse struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// ConfigResponse is the JSON view of a protection service
type ConfigResponse struct {
	ID          int64     `json:"id"`
	Service     string    `json:"service"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// DeviceResponse is the JSON view of a connected device
type DeviceResponse struct {
	ID              int64     `json:"id"`
	DeviceName      string    `json:"device_name"`
	OwnerName       string    `json:"owner_name"`
	DeviceType      string    `json:"device_type"`
	IPAddress       string    `json:"ip_address"`
	MACAddress      *string   `json:"mac_address,omitempty"`
	OperatingSystem *string   `json:"operating_system,omitempty"`
	Status          string    `json:"status"`
	LastSeen        time.Time `json:"last_seen"`
	ConnectedAt     time.Time `json:"connected_at"`
}

// StatsResponse is the dashboard headline summary
type StatsResponse struct {
	ProtectedSystems int `json:"protected_systems"`
	ThreatsDetected  int `json:"threats_detected"`
	ScansCompleted   int `json:"scans_completed"`
	SecurityLevel    int `json:"security_level"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}
