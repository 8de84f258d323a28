package monitor

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository keeps monitoring data in process memory, pre-seeded
// with a small demo dataset. Suitable for development and tests.
type InMemoryRepository struct {
	mu sync.RWMutex

	nextID         int64
	threats        map[int64]Threat
	scannedFiles   map[int64]ScannedFile
	systemEvents   map[int64]SystemEvent
	securityConfig map[string]SecurityConfig
	devices        map[int64]ConnectedDevice
}

// NewInMemoryRepository creates a seeded in-memory monitor store.
func NewInMemoryRepository() *InMemoryRepository {
	r := &InMemoryRepository{
		nextID:         1,
		threats:        make(map[int64]Threat),
		scannedFiles:   make(map[int64]ScannedFile),
		systemEvents:   make(map[int64]SystemEvent),
		securityConfig: make(map[string]SecurityConfig),
		devices:        make(map[int64]ConnectedDevice),
	}
	r.seed()
	return r
}

func (r *InMemoryRepository) seed() {
	now := time.Now().UTC()

	for _, c := range []struct{ service, status string }{
		{"firewall", "active"},
		{"antivirus", "active"},
		{"updates", "scheduled"},
		{"access", "restricted"},
	} {
		id := r.nextID
		r.nextID++
		r.securityConfig[c.service] = SecurityConfig{ID: id, Service: c.service, Status: c.status, LastUpdated: now}
	}

	resolved := now.Add(-5 * time.Minute)
	threats := []Threat{
		{Name: "Malware Trojan.Win32.Agent", Type: "malware", Severity: "critical", Status: ThreatStatusActive, Location: "/home/user/downloads/suspicious.exe", DetectedAt: now.Add(-10 * time.Minute)},
		{Name: "Suspicious network activity", Type: "network", Severity: "medium", Status: ThreatStatusInvestigating, Location: "IP: 192.168.1.105", DetectedAt: now.Add(-25 * time.Minute)},
		{Name: "Threat neutralized", Type: "malware", Severity: "high", Status: ThreatStatusResolved, Location: "File removed", DetectedAt: now.Add(-40 * time.Minute), ResolvedAt: &resolved},
	}
	for _, t := range threats {
		t.ID = r.nextID
		r.nextID++
		r.threats[t.ID] = t
	}

	trojan := "Trojan.Generic"
	files := []ScannedFile{
		{Filename: "document.pdf", FileSize: 2457600, ScanStatus: ScanStatusClean, ScannedAt: now.Add(-15 * time.Minute)},
		{Filename: "archive.zip", FileSize: 16777216, ScanStatus: ScanStatusScanning, ScannedAt: now.Add(-2 * time.Minute)},
		{Filename: "script.exe", FileSize: 5242880, ScanStatus: ScanStatusInfected, ThreatFound: &trojan, ScannedAt: now.Add(-30 * time.Minute)},
	}
	for _, f := range files {
		f.ID = r.nextID
		r.nextID++
		r.scannedFiles[f.ID] = f
	}

	events := []SystemEvent{
		{Type: "security", Message: "Unauthorized access attempt", Severity: "high", Timestamp: now.Add(-8 * time.Minute)},
		{Type: "firewall", Message: "Firewall blocked a connection", Severity: "medium", Timestamp: now.Add(-18 * time.Minute)},
		{Type: "update", Message: "Security update applied", Severity: "low", Timestamp: now.Add(-28 * time.Minute)},
		{Type: "threat", Message: "Malware detected and removed", Severity: "high", Timestamp: now.Add(-38 * time.Minute)},
		{Type: "scan", Message: "Scheduled scan completed", Severity: "low", Timestamp: now.Add(-48 * time.Minute)},
	}
	for _, e := range events {
		e.ID = r.nextID
		r.nextID++
		r.systemEvents[e.ID] = e
	}
}

func (r *InMemoryRepository) ListThreats(ctx context.Context) ([]Threat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Threat, 0, len(r.threats))
	for _, t := range r.threats {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.After(out[j].DetectedAt) })
	return out, nil
}

func (r *InMemoryRepository) GetThreat(ctx context.Context, id int64) (Threat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.threats[id]
	if !ok {
		return Threat{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepository) CreateThreat(ctx context.Context, arg CreateThreatParams) (Threat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := Threat{
		ID:         r.nextID,
		Name:       arg.Name,
		Type:       arg.Type,
		Severity:   arg.Severity,
		Status:     arg.Status,
		Location:   arg.Location,
		DetectedAt: time.Now().UTC(),
	}
	r.nextID++
	r.threats[t.ID] = t
	return t, nil
}

func (r *InMemoryRepository) UpdateThreatStatus(ctx context.Context, id int64, status string, resolvedAt *time.Time) (Threat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threats[id]
	if !ok {
		return Threat{}, ErrNotFound
	}
	t.Status = status
	if resolvedAt != nil {
		t.ResolvedAt = resolvedAt
	}
	r.threats[id] = t
	return t, nil
}

func (r *InMemoryRepository) CountActiveThreats(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, t := range r.threats {
		if t.Status == ThreatStatusActive {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) ListScannedFiles(ctx context.Context) ([]ScannedFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ScannedFile, 0, len(r.scannedFiles))
	for _, f := range r.scannedFiles {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScannedAt.After(out[j].ScannedAt) })
	return out, nil
}

func (r *InMemoryRepository) CreateScannedFile(ctx context.Context, arg CreateScannedFileParams) (ScannedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := ScannedFile{
		ID:         r.nextID,
		Filename:   arg.Filename,
		FileSize:   arg.FileSize,
		ScanStatus: arg.ScanStatus,
		ScannedAt:  time.Now().UTC(),
	}
	r.nextID++
	r.scannedFiles[f.ID] = f
	return f, nil
}

func (r *InMemoryRepository) UpdateFileStatus(ctx context.Context, id int64, status string, threatFound *string) (ScannedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.scannedFiles[id]
	if !ok {
		return ScannedFile{}, ErrNotFound
	}
	f.ScanStatus = status
	if threatFound != nil {
		f.ThreatFound = threatFound
	}
	r.scannedFiles[id] = f
	return f, nil
}

func (r *InMemoryRepository) CountScannedFiles(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scannedFiles), nil
}

func (r *InMemoryRepository) ListSystemEvents(ctx context.Context, limit int) ([]SystemEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SystemEvent, 0, len(r.systemEvents))
	for _, e := range r.systemEvents {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) CreateSystemEvent(ctx context.Context, arg CreateSystemEventParams) (SystemEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := SystemEvent{
		ID:        r.nextID,
		Type:      arg.Type,
		Message:   arg.Message,
		Severity:  arg.Severity,
		Timestamp: time.Now().UTC(),
	}
	r.nextID++
	r.systemEvents[e.ID] = e
	return e, nil
}

func (r *InMemoryRepository) ListSecurityConfig(ctx context.Context) ([]SecurityConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SecurityConfig, 0, len(r.securityConfig))
	for _, c := range r.securityConfig {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) UpdateSecurityConfig(ctx context.Context, service, status string) (SecurityConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.securityConfig[service]
	if !ok {
		return SecurityConfig{}, ErrNotFound
	}
	c.Status = status
	c.LastUpdated = time.Now().UTC()
	r.securityConfig[service] = c
	return c, nil
}

func (r *InMemoryRepository) ListConnectedDevices(ctx context.Context) ([]ConnectedDevice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnectedDevice, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}

func (r *InMemoryRepository) CreateConnectedDevice(ctx context.Context, arg CreateConnectedDeviceParams) (ConnectedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	d := ConnectedDevice{
		ID:              r.nextID,
		DeviceName:      arg.DeviceName,
		OwnerName:       arg.OwnerName,
		DeviceType:      arg.DeviceType,
		IPAddress:       arg.IPAddress,
		MACAddress:      arg.MACAddress,
		OperatingSystem: arg.OperatingSystem,
		Status:          arg.Status,
		LastSeen:        now,
		ConnectedAt:     now,
	}
	r.nextID++
	r.devices[d.ID] = d
	return d, nil
}

func (r *InMemoryRepository) UpdateDeviceStatus(ctx context.Context, id int64, status string) (ConnectedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if !ok {
		return ConnectedDevice{}, ErrNotFound
	}
	d.Status = status
	d.LastSeen = time.Now().UTC()
	r.devices[id] = d
	return d, nil
}
