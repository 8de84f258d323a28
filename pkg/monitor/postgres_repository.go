package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgreSQL monitor store
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const threatColumns = `id, name, type, severity, status, location, detected_at, resolved_at`

func scanThreat(row pgx.Row) (Threat, error) {
	var t Threat
	err := row.Scan(&t.ID, &t.Name, &t.Type, &t.Severity, &t.Status, &t.Location, &t.DetectedAt, &t.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Threat{}, ErrNotFound
		}
		return Threat{}, err
	}
	return t, nil
}

func (r *PostgresRepository) ListThreats(ctx context.Context) ([]Threat, error) {
	rows, err := r.db.Query(ctx, `SELECT `+threatColumns+` FROM threats ORDER BY detected_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Threat
	for rows.Next() {
		t, err := scanThreat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetThreat(ctx context.Context, id int64) (Threat, error) {
	return scanThreat(r.db.QueryRow(ctx, `SELECT `+threatColumns+` FROM threats WHERE id = $1`, id))
}

func (r *PostgresRepository) CreateThreat(ctx context.Context, arg CreateThreatParams) (Threat, error) {
	return scanThreat(r.db.QueryRow(ctx, `
		INSERT INTO threats (name, type, severity, status, location, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+threatColumns,
		arg.Name, arg.Type, arg.Severity, arg.Status, arg.Location, time.Now().UTC(),
	))
}

func (r *PostgresRepository) UpdateThreatStatus(ctx context.Context, id int64, status string, resolvedAt *time.Time) (Threat, error) {
	return scanThreat(r.db.QueryRow(ctx, `
		UPDATE threats SET status = $2, resolved_at = COALESCE($3, resolved_at)
		WHERE id = $1
		RETURNING `+threatColumns,
		id, status, resolvedAt,
	))
}

func (r *PostgresRepository) CountActiveThreats(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM threats WHERE status = $1`, ThreatStatusActive).Scan(&count)
	return count, err
}

const fileColumns = `id, filename, file_size, scan_status, threat_found, scanned_at`

func scanFile(row pgx.Row) (ScannedFile, error) {
	var f ScannedFile
	err := row.Scan(&f.ID, &f.Filename, &f.FileSize, &f.ScanStatus, &f.ThreatFound, &f.ScannedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ScannedFile{}, ErrNotFound
		}
		return ScannedFile{}, err
	}
	return f, nil
}

func (r *PostgresRepository) ListScannedFiles(ctx context.Context) ([]ScannedFile, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fileColumns+` FROM scanned_files ORDER BY scanned_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScannedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateScannedFile(ctx context.Context, arg CreateScannedFileParams) (ScannedFile, error) {
	return scanFile(r.db.QueryRow(ctx, `
		INSERT INTO scanned_files (filename, file_size, scan_status, scanned_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+fileColumns,
		arg.Filename, arg.FileSize, arg.ScanStatus, time.Now().UTC(),
	))
}

func (r *PostgresRepository) UpdateFileStatus(ctx context.Context, id int64, status string, threatFound *string) (ScannedFile, error) {
	return scanFile(r.db.QueryRow(ctx, `
		UPDATE scanned_files SET scan_status = $2, threat_found = COALESCE($3, threat_found)
		WHERE id = $1
		RETURNING `+fileColumns,
		id, status, threatFound,
	))
}

func (r *PostgresRepository) CountScannedFiles(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM scanned_files`).Scan(&count)
	return count, err
}

func (r *PostgresRepository) ListSystemEvents(ctx context.Context, limit int) ([]SystemEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, type, message, severity, timestamp FROM system_events
		ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SystemEvent
	for rows.Next() {
		var e SystemEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.Message, &e.Severity, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateSystemEvent(ctx context.Context, arg CreateSystemEventParams) (SystemEvent, error) {
	var e SystemEvent
	err := r.db.QueryRow(ctx, `
		INSERT INTO system_events (type, message, severity, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id, type, message, severity, timestamp`,
		arg.Type, arg.Message, arg.Severity, time.Now().UTC(),
	).Scan(&e.ID, &e.Type, &e.Message, &e.Severity, &e.Timestamp)
	if err != nil {
		return SystemEvent{}, err
	}
	return e, nil
}

func (r *PostgresRepository) ListSecurityConfig(ctx context.Context) ([]SecurityConfig, error) {
	rows, err := r.db.Query(ctx, `SELECT id, service, status, last_updated FROM security_config ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SecurityConfig
	for rows.Next() {
		var c SecurityConfig
		if err := rows.Scan(&c.ID, &c.Service, &c.Status, &c.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateSecurityConfig(ctx context.Context, service, status string) (SecurityConfig, error) {
	var c SecurityConfig
	err := r.db.QueryRow(ctx, `
		UPDATE security_config SET status = $2, last_updated = $3
		WHERE service = $1
		RETURNING id, service, status, last_updated`,
		service, status, time.Now().UTC(),
	).Scan(&c.ID, &c.Service, &c.Status, &c.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SecurityConfig{}, ErrNotFound
		}
		return SecurityConfig{}, err
	}
	return c, nil
}

const deviceColumns = `id, device_name, owner_name, device_type, ip_address, mac_address, operating_system, status, last_seen, connected_at`

func scanDevice(row pgx.Row) (ConnectedDevice, error) {
	var d ConnectedDevice
	err := row.Scan(&d.ID, &d.DeviceName, &d.OwnerName, &d.DeviceType, &d.IPAddress,
		&d.MACAddress, &d.OperatingSystem, &d.Status, &d.LastSeen, &d.ConnectedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ConnectedDevice{}, ErrNotFound
		}
		return ConnectedDevice{}, err
	}
	return d, nil
}

func (r *PostgresRepository) ListConnectedDevices(ctx context.Context) ([]ConnectedDevice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+deviceColumns+` FROM connected_devices ORDER BY last_seen DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConnectedDevice
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateConnectedDevice(ctx context.Context, arg CreateConnectedDeviceParams) (ConnectedDevice, error) {
	now := time.Now().UTC()
	return scanDevice(r.db.QueryRow(ctx, `
		INSERT INTO connected_devices (device_name, owner_name, device_type, ip_address, mac_address, operating_system, status, last_seen, connected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+deviceColumns,
		arg.DeviceName, arg.OwnerName, arg.DeviceType, arg.IPAddress, arg.MACAddress, arg.OperatingSystem, arg.Status, now, now,
	))
}

func (r *PostgresRepository) UpdateDeviceStatus(ctx context.Context, id int64, status string) (ConnectedDevice, error) {
	return scanDevice(r.db.QueryRow(ctx, `
		UPDATE connected_devices SET status = $2, last_seen = $3
		WHERE id = $1
		RETURNING `+deviceColumns,
		id, status, time.Now().UTC(),
	))
}
