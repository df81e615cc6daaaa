package storage

import (
	"errors"

	"github.com/martinsuchenak/wgprov/internal/model"
)

var (
	ErrPeerNotFound = errors.New("peer not found")
	ErrPeerExists   = errors.New("peer already exists")
	ErrInvalidID    = errors.New("invalid peer ID")
)

// Storage defines the interface for the peer roster
type Storage interface {
	ListPeers(filter *model.PeerFilter) ([]model.Peer, error)
	GetPeer(idOrName string) (*model.Peer, error)
	CreatePeer(peer *model.Peer) error
	DeletePeer(idOrName string) error
	Close() error
}
