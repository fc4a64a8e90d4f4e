package db

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/anstrom/netsweep/internal/discovery"
	"github.com/anstrom/netsweep/internal/scanning"
)

const (
	insertSessionQuery = `
		INSERT INTO scan_sessions (id, network, profile, started_at, duration_ms, interrupted,
			addresses_probed, live_hosts, ports_probed, open_ports)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertHostQuery = `
		INSERT INTO hosts (id, session_id, ip_address, hostname, mac_address, vendor, os_guess,
			open_ports, response_time_ms, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertServiceQuery = `INSERT INTO host_services (host_id, port, label) VALUES ($1, $2, $3)`

	listSessionsQuery = `
		SELECT id, network::text AS network, profile, started_at, duration_ms, interrupted,
			addresses_probed, live_hosts, ports_probed, open_ports
		FROM scan_sessions
		ORDER BY started_at DESC
		LIMIT $1`
)

// SessionRow is a stored scan session.
type SessionRow struct {
	ID              uuid.UUID `db:"id"`
	Network         string    `db:"network"`
	Profile         string    `db:"profile"`
	StartedAt       time.Time `db:"started_at"`
	DurationMs      int64     `db:"duration_ms"`
	Interrupted     bool      `db:"interrupted"`
	AddressesProbed int64     `db:"addresses_probed"`
	LiveHosts       int64     `db:"live_hosts"`
	PortsProbed     int64     `db:"ports_probed"`
	OpenPorts       int64     `db:"open_ports"`
}

// Duration returns the stored scan duration.
func (s SessionRow) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// ScanRepository stores scan results.
type ScanRepository struct {
	db *DB
}

// NewScanRepository creates a repository on an open database.
func NewScanRepository(db *DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// SaveResult writes the session, its hosts and their services in one
// transaction.
func (r *ScanRepository) SaveResult(ctx context.Context, result *scanning.Result) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return sanitizeDBError("begin save result", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The cidr column rejects host bits.
	network := result.Network
	if masked, err := discovery.Normalize(network); err == nil {
		network = masked
	}

	_, err = tx.ExecContext(ctx, insertSessionQuery,
		result.SessionID, network, result.Profile, result.StartedAt,
		result.Duration.Milliseconds(), result.Interrupted,
		result.Stats.AddressesProbed, result.Stats.LiveHosts,
		result.Stats.PortsProbed, result.Stats.OpenPorts)
	if err != nil {
		return sanitizeDBError("insert scan session", err)
	}

	for _, h := range result.Hosts() {
		hostID := uuid.New()
		open := h.OpenPorts()
		ports := make([]int64, len(open))
		for i, p := range open {
			ports[i] = int64(p)
		}

		_, err = tx.ExecContext(ctx, insertHostQuery,
			hostID, result.SessionID, h.Address().String(),
			nullString(h.Hostname()), nullString(h.MAC()), nullString(h.Vendor()),
			h.OSGuess(), pq.Array(ports), h.ResponseTimeMs(), h.DiscoveredAt())
		if err != nil {
			return sanitizeDBError("insert host", err)
		}

		services := h.Services()
		sorted := make([]int, 0, len(services))
		for p := range services {
			sorted = append(sorted, p)
		}
		sort.Ints(sorted)
		for _, p := range sorted {
			if _, err := tx.ExecContext(ctx, insertServiceQuery, hostID, p, services[p]); err != nil {
				return sanitizeDBError("insert host service", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return sanitizeDBError("commit save result", err)
	}
	return nil
}

// ListSessions returns the most recent sessions, newest first.
func (r *ScanRepository) ListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	if limit < 1 {
		limit = 20
	}
	var rows []SessionRow
	if err := r.db.SelectContext(ctx, &rows, listSessionsQuery, limit); err != nil {
		return nil, sanitizeDBError("list scan sessions", err)
	}
	return rows, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
