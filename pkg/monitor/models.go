package monitor

import "time"

// Threat statuses
const (
	ThreatStatusActive        = "active"
	ThreatStatusInvestigating = "investigating"
	ThreatStatusResolved      = "resolved"
)

// Scan statuses
const (
	ScanStatusClean    = "clean"
	ScanStatusScanning = "scanning"
	ScanStatusInfected = "infected"
)

// Device statuses
const (
	DeviceStatusActive      = "active"
	DeviceStatusInactive    = "inactive"
	DeviceStatusQuarantined = "quarantined"
)

// Threat is a detected security threat.
type Threat struct {
	ID         int64
	Name       string
	Type       string
	Severity   string
	Status     string
	Location   string
	DetectedAt time.Time
	ResolvedAt *time.Time
}

// ScannedFile is a file processed by the scanner.
type ScannedFile struct {
	ID          int64
	Filename    string
	FileSize    int64
	ScanStatus  string
	ThreatFound *string
	ScannedAt   time.Time
}

// SystemEvent is an entry in the activity feed.
type SystemEvent struct {
	ID        int64
	Type      string
	Message   string
	Severity  string
	Timestamp time.Time
}

// SecurityConfig is the state of one protection service (firewall,
// antivirus, ...), keyed by service name.
type SecurityConfig struct {
	ID          int64
	Service     string
	Status      string
	LastUpdated time.Time
}

// ConnectedDevice is a device known to the network monitor.
type ConnectedDevice struct {
	ID              int64
	DeviceName      string
	OwnerName       string
	DeviceType      string
	IPAddress       string
	MACAddress      *string
	OperatingSystem *string
	Status          string
	LastSeen        time.Time
	ConnectedAt     time.Time
}

// DashboardStats is the headline summary shown on the dashboard.
type DashboardStats struct {
	ProtectedSystems int
	ThreatsDetected  int
	ScansCompleted   int
	SecurityLevel    int
}

// CreateThreatParams holds the caller-supplied fields of a new threat.
type CreateThreatParams struct {
	Name     string
	Type     string
	Severity string
	Status   string
	Location string
}

// CreateScannedFileParams holds the caller-supplied fields of a new scan record.
type CreateScannedFileParams struct {
	Filename   string
	FileSize   int64
	ScanStatus string
}

// CreateSystemEventParams holds the caller-supplied fields of a new event.
type CreateSystemEventParams struct {
	Type     string
	Message  string
	Severity string
}

// CreateConnectedDeviceParams holds the caller-supplied fields of a new device.
type CreateConnectedDeviceParams struct {
	DeviceName      string
	OwnerName       string
	DeviceType      string
	IPAddress       string
	MACAddress      *string
	OperatingSystem *string
	Status          string
}
