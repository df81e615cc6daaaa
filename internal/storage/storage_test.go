package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/martinsuchenak/wgprov/internal/model"
)

// setupTestStorage creates a temporary roster for testing
func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testPeer(id, name, address string) *model.Peer {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Peer{
		ID:         id,
		Name:       name,
		PublicKey:  "pub-" + id,
		Address:    address,
		AllowedIPs: "0.0.0.0/0",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestCreateAndGetPeer(t *testing.T) {
	store := setupTestStorage(t)

	peer := testPeer("peer-1", "laptop", "10.0.0.2")
	if err := store.CreatePeer(peer); err != nil {
		t.Fatalf("CreatePeer() error = %v", err)
	}

	for _, key := range []string{"peer-1", "laptop"} {
		got, err := store.GetPeer(key)
		if err != nil {
			t.Fatalf("GetPeer(%q) error = %v", key, err)
		}
		if got.Name != "laptop" || got.Address != "10.0.0.2" || got.PublicKey != "pub-peer-1" {
			t.Errorf("GetPeer(%q) = %+v", key, got)
		}
	}
}

func TestCreatePeerDuplicate(t *testing.T) {
	store := setupTestStorage(t)

	if err := store.CreatePeer(testPeer("peer-1", "laptop", "10.0.0.2")); err != nil {
		t.Fatalf("CreatePeer() error = %v", err)
	}

	err := store.CreatePeer(testPeer("peer-2", "laptop", "10.0.0.3"))
	if !errors.Is(err, ErrPeerExists) {
		t.Fatalf("CreatePeer() with duplicate name error = %v, want %v", err, ErrPeerExists)
	}
}

func TestCreatePeerMissingID(t *testing.T) {
	store := setupTestStorage(t)

	err := store.CreatePeer(testPeer("", "laptop", "10.0.0.2"))
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("CreatePeer() error = %v, want %v", err, ErrInvalidID)
	}
}

func TestGetPeerNotFound(t *testing.T) {
	store := setupTestStorage(t)

	_, err := store.GetPeer("missing")
	if !errors.Is(err, ErrPeerNotFound) {
		t.Fatalf("GetPeer() error = %v, want %v", err, ErrPeerNotFound)
	}
}

func TestListPeers(t *testing.T) {
	store := setupTestStorage(t)

	for _, p := range []*model.Peer{
		testPeer("peer-1", "laptop", "10.0.0.2"),
		testPeer("peer-2", "phone", "10.0.0.3"),
		testPeer("peer-3", "work-laptop", "10.0.0.4"),
	} {
		if err := store.CreatePeer(p); err != nil {
			t.Fatalf("CreatePeer(%s) error = %v", p.Name, err)
		}
	}

	all, err := store.ListPeers(nil)
	if err != nil {
		t.Fatalf("ListPeers() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListPeers() returned %d peers, want 3", len(all))
	}
	// Ordered by name
	if all[0].Name != "laptop" || all[1].Name != "phone" || all[2].Name != "work-laptop" {
		t.Errorf("ListPeers() order = %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	filtered, err := store.ListPeers(&model.PeerFilter{Name: "laptop"})
	if err != nil {
		t.Fatalf("ListPeers(filter) error = %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("ListPeers(filter) returned %d peers, want 2", len(filtered))
	}
}

func TestDeletePeer(t *testing.T) {
	store := setupTestStorage(t)

	if err := store.CreatePeer(testPeer("peer-1", "laptop", "10.0.0.2")); err != nil {
		t.Fatalf("CreatePeer() error = %v", err)
	}

	if err := store.DeletePeer("laptop"); err != nil {
		t.Fatalf("DeletePeer() error = %v", err)
	}
	if _, err := store.GetPeer("laptop"); !errors.Is(err, ErrPeerNotFound) {
		t.Fatalf("GetPeer() after delete error = %v, want %v", err, ErrPeerNotFound)
	}

	if err := store.DeletePeer("laptop"); !errors.Is(err, ErrPeerNotFound) {
		t.Fatalf("DeletePeer() again error = %v, want %v", err, ErrPeerNotFound)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSQLiteStorage(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	if err := store.CreatePeer(testPeer("peer-1", "laptop", "10.0.0.2")); err != nil {
		t.Fatalf("CreatePeer() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStorage(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetPeer("laptop")
	if err != nil {
		t.Fatalf("GetPeer() after reopen error = %v", err)
	}
	if got.Address != "10.0.0.2" {
		t.Errorf("GetPeer() after reopen = %+v", got)
	}
}
