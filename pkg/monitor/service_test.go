package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cgerr "github.com/cyberguard/cyberguard/pkg/errors"
)

func TestSeedData(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	threats, err := svc.ListThreats(ctx)
	require.NoError(t, err)
	assert.Len(t, threats, 3)
	// Newest detection first
	for i := 1; i < len(threats); i++ {
		assert.False(t, threats[i].DetectedAt.After(threats[i-1].DetectedAt))
	}

	files, err := svc.ListScannedFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	events, err := svc.ListSystemEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 5)

	configs, err := svc.ListSecurityConfig(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 4)
	assert.Equal(t, "firewall", configs[0].Service)
}

func TestDashboardStats(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	// Seed data has one active threat and three scans
	stats, err := svc.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 247, stats.ProtectedSystems)
	assert.Equal(t, 1, stats.ThreatsDetected)
	assert.Equal(t, 3, stats.ScansCompleted)
	assert.Equal(t, 95, stats.SecurityLevel)

	// Enough active threats push the level down to the floor
	for i := 0; i < 10; i++ {
		_, err := svc.CreateThreat(ctx, CreateThreatParams{
			Name: "worm", Type: "malware", Severity: "high", Status: ThreatStatusActive,
		})
		require.NoError(t, err)
	}
	stats, err = svc.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, stats.ThreatsDetected)
	assert.Equal(t, 70, stats.SecurityLevel)
}

func TestThreatLifecycle(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	threat, err := svc.CreateThreat(ctx, CreateThreatParams{
		Name: "Backdoor.Agent", Type: "malware", Severity: "high",
		Status: ThreatStatusActive, Location: "/tmp/payload",
	})
	require.NoError(t, err)
	assert.NotZero(t, threat.ID)
	assert.Nil(t, threat.ResolvedAt)

	resolvedAt := time.Now().UTC()
	updated, err := svc.UpdateThreatStatus(ctx, threat.ID, ThreatStatusResolved, &resolvedAt)
	require.NoError(t, err)
	assert.Equal(t, ThreatStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)

	_, err = svc.UpdateThreatStatus(ctx, 99999, ThreatStatusResolved, nil)
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeNotFound))
}

func TestCreateThreat_Validation(t *testing.T) {
	svc := NewService(NewInMemoryRepository())

	_, err := svc.CreateThreat(context.Background(), CreateThreatParams{Name: "x"})
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeInvalidInput))
}

func TestScannedFileLifecycle(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	file, err := svc.CreateScannedFile(ctx, CreateScannedFileParams{
		Filename: "report.xlsx", FileSize: 1024, ScanStatus: ScanStatusScanning,
	})
	require.NoError(t, err)
	assert.Nil(t, file.ThreatFound)

	found := "Worm.VBS.Generic"
	updated, err := svc.UpdateFileStatus(ctx, file.ID, ScanStatusInfected, &found)
	require.NoError(t, err)
	assert.Equal(t, ScanStatusInfected, updated.ScanStatus)
	require.NotNil(t, updated.ThreatFound)
	assert.Equal(t, found, *updated.ThreatFound)

	_, err = svc.UpdateFileStatus(ctx, 99999, ScanStatusClean, nil)
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeNotFound))
}

func TestSystemEvents_LimitAndOrder(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	event, err := svc.CreateSystemEvent(ctx, CreateSystemEventParams{
		Type: "scan", Message: "manual scan started", Severity: "low",
	})
	require.NoError(t, err)

	events, err := svc.ListSystemEvents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	// The just-created event is the newest
	assert.Equal(t, event.ID, events[0].ID)
}

func TestSecurityConfigUpdate(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	config, err := svc.UpdateSecurityConfig(ctx, "updates", "active")
	require.NoError(t, err)
	assert.Equal(t, "active", config.Status)

	_, err = svc.UpdateSecurityConfig(ctx, "honeypot", "active")
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeNotFound))
}

func TestConnectedDeviceLifecycle(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	device, err := svc.CreateConnectedDevice(ctx, CreateConnectedDeviceParams{
		DeviceName: "ops-laptop-01", OwnerName: "M. Ruiz",
		DeviceType: "laptop", IPAddress: "192.168.1.42",
	})
	require.NoError(t, err)
	assert.Equal(t, DeviceStatusActive, device.Status)

	updated, err := svc.UpdateDeviceStatus(ctx, device.ID, DeviceStatusQuarantined)
	require.NoError(t, err)
	assert.Equal(t, DeviceStatusQuarantined, updated.Status)

	devices, err := svc.ListConnectedDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)

	_, err = svc.UpdateDeviceStatus(ctx, 99999, DeviceStatusInactive)
	assert.True(t, cgerr.IsCode(err, cgerr.ErrCodeNotFound))
}
