package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/martinsuchenak/wgprov/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStorage implements Storage with a SQLite backend
type SQLiteStorage struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite-based roster under dataDir
func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, "peers.db")

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ss := &SQLiteStorage{
		db:   db,
		path: dbPath,
	}

	if err := ss.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return ss, nil
}

func (ss *SQLiteStorage) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	_, err = ss.db.Exec(string(schema))
	return err
}

// Close closes the database connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

// ListPeers returns all peers, optionally filtered, ordered by name
func (ss *SQLiteStorage) ListPeers(filter *model.PeerFilter) ([]model.Peer, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	query := `
		SELECT id, name, public_key, address, allowed_ips, created_at, updated_at
		FROM peers
		ORDER BY name
	`

	rows, err := ss.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying peers: %w", err)
	}
	defer rows.Close()

	var peers []model.Peer
	for rows.Next() {
		var p model.Peer
		if err := rows.Scan(&p.ID, &p.Name, &p.PublicKey, &p.Address, &p.AllowedIPs, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning peer: %w", err)
		}
		peers = append(peers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if filter != nil && filter.Name != "" {
		matched := peers[:0]
		for _, p := range peers {
			if strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
				matched = append(matched, p)
			}
		}
		peers = matched
	}

	return peers, nil
}

// GetPeer retrieves a peer by ID or name
func (ss *SQLiteStorage) GetPeer(idOrName string) (*model.Peer, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if idOrName == "" {
		return nil, ErrInvalidID
	}

	query := `
		SELECT id, name, public_key, address, allowed_ips, created_at, updated_at
		FROM peers
		WHERE id = ? OR name = ?
		LIMIT 1
	`

	var p model.Peer
	err := ss.db.QueryRow(query, idOrName, idOrName).
		Scan(&p.ID, &p.Name, &p.PublicKey, &p.Address, &p.AllowedIPs, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPeerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying peer %q: %w", idOrName, err)
	}

	return &p, nil
}

// CreatePeer adds a new peer to the roster
func (ss *SQLiteStorage) CreatePeer(peer *model.Peer) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if peer.ID == "" {
		return ErrInvalidID
	}

	var existing int
	err := ss.db.QueryRow(`SELECT COUNT(*) FROM peers WHERE id = ? OR name = ?`, peer.ID, peer.Name).Scan(&existing)
	if err != nil {
		return fmt.Errorf("checking for existing peer: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("%w: %s", ErrPeerExists, peer.Name)
	}

	_, err = ss.db.Exec(`
		INSERT INTO peers (id, name, public_key, address, allowed_ips, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, peer.ID, peer.Name, peer.PublicKey, peer.Address, peer.AllowedIPs, peer.CreatedAt, peer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting peer %q: %w", peer.Name, err)
	}

	return nil
}

// DeletePeer removes a peer by ID or name
func (ss *SQLiteStorage) DeletePeer(idOrName string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if idOrName == "" {
		return ErrInvalidID
	}

	result, err := ss.db.Exec(`DELETE FROM peers WHERE id = ? OR name = ?`, idOrName, idOrName)
	if err != nil {
		return fmt.Errorf("deleting peer %q: %w", idOrName, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPeerNotFound
	}

	return nil
}
