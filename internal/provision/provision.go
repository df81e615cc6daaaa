// Package provision implements the add-peer workflow: address selection,
// key generation, live registration, roster bookkeeping and client config
// rendering.
package provision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/martinsuchenak/wgprov/internal/config"
	"github.com/martinsuchenak/wgprov/internal/endpoint"
	"github.com/martinsuchenak/wgprov/internal/log"
	"github.com/martinsuchenak/wgprov/internal/model"
	"github.com/martinsuchenak/wgprov/internal/netcalc"
	"github.com/martinsuchenak/wgprov/internal/storage"
	"github.com/martinsuchenak/wgprov/internal/wgconf"
	"github.com/martinsuchenak/wgprov/internal/wgdev"
	"github.com/martinsuchenak/wgprov/internal/wgkeys"
)

var (
	ErrDuplicatePeerName      = errors.New("peer name already in use")
	ErrAddressAlreadyAssigned = errors.New("address already assigned")
)

// AutoAssign is the sentinel requested address meaning "pick one for me".
const AutoAssign = "0.0.0.0"

// DefaultAllowedIPs is the range a peer may route when the caller does not
// narrow it.
const DefaultAllowedIPs = "0.0.0.0/0"

// Registrar applies peer changes to the running device.
type Registrar interface {
	AddPeer(publicKey, address string) error
	RemovePeer(publicKey string) error
	Peers() ([]wgdev.DevicePeer, error)
}

// EndpointSource resolves the server's public hostname and, optionally,
// its published public key.
type EndpointSource interface {
	Domain(ctx context.Context) (string, error)
	ServerPublicKey(ctx context.Context) (string, error)
}

// Provisioner wires the collaborators behind one add/remove operation.
// Each call reads a fresh snapshot of the server config; callers must not
// run two provisioning requests against the same server concurrently.
type Provisioner struct {
	WGConfPath string
	ClientDir  string

	GenerateKeys func() (wgkeys.KeyPair, error)
	Registrar    Registrar
	Roster       storage.Storage
	Endpoint     EndpointSource
}

// New builds a Provisioner with the production collaborators.
func New(cfg *config.Config, roster storage.Storage) *Provisioner {
	return &Provisioner{
		WGConfPath:   cfg.WGConfPath,
		ClientDir:    cfg.ClientDir,
		GenerateKeys: wgkeys.Generate,
		Registrar:    wgdev.NewRegistrar(cfg.Device),
		Roster:       roster,
		Endpoint: endpoint.New(cfg.Endpoint, endpoint.VaultConfig{
			Address: cfg.VaultAddr,
			Token:   cfg.VaultToken,
			Mount:   cfg.VaultMount,
			Secret:  cfg.VaultSecret,
		}),
	}
}

// AddRequest describes one peer-addition request.
type AddRequest struct {
	Name        string
	AllowedIPs  string // traffic the peer may route; also the range searched on auto-assign
	RequestedIP string // AutoAssign to let the enumerator choose
}

// Result is what a successful AddPeer produced.
type Result struct {
	Peer       model.Peer
	ConfigPath string
	Rendered   string
}

// AddPeer performs one full provisioning operation. There is no rollback:
// a failure after live registration leaves the device ahead of the roster,
// and the error carries enough context for manual repair.
func (p *Provisioner) AddPeer(ctx context.Context, req AddRequest) (*Result, error) {
	if req.Name == "" {
		return nil, errors.New("peer name is required")
	}
	if req.AllowedIPs == "" {
		req.AllowedIPs = DefaultAllowedIPs
	}
	if req.RequestedIP == "" {
		req.RequestedIP = AutoAssign
	}

	confPath := filepath.Join(p.ClientDir, req.Name+".conf")
	if _, err := os.Stat(confPath); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", ErrDuplicatePeerName, confPath)
	}
	if _, err := p.Roster.GetPeer(req.Name); err == nil {
		return nil, fmt.Errorf("%w: %q is already in the roster", ErrDuplicatePeerName, req.Name)
	}

	server, err := wgconf.ReadServerConfigFile(p.WGConfPath)
	if err != nil {
		return nil, err
	}

	address, err := selectAddress(server, req)
	if err != nil {
		return nil, err
	}

	keys, err := p.GenerateKeys()
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", err)
	}

	if err := p.Registrar.AddPeer(keys.PublicKey, address); err != nil {
		return nil, fmt.Errorf("registering peer with device: %w", err)
	}

	now := time.Now().UTC()
	peer := model.Peer{
		ID:         newID(),
		Name:       req.Name,
		PublicKey:  keys.PublicKey,
		Address:    address,
		AllowedIPs: req.AllowedIPs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.Roster.CreatePeer(&peer); err != nil {
		return nil, fmt.Errorf("recording peer in roster: %w", err)
	}

	rendered, err := p.renderClient(ctx, server, keys, address, req.AllowedIPs)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.ClientDir, 0700); err != nil {
		return nil, fmt.Errorf("creating client dir: %w", err)
	}
	if err := os.WriteFile(confPath, []byte(rendered), 0600); err != nil {
		return nil, fmt.Errorf("writing client config: %w", err)
	}

	log.Info("peer provisioned", "name", req.Name, "address", address, "config", confPath)
	return &Result{Peer: peer, ConfigPath: confPath, Rendered: rendered}, nil
}

// RemovePeer deregisters a peer from the device and drops its roster row
// and rendered config.
func (p *Provisioner) RemovePeer(ctx context.Context, name string) error {
	peer, err := p.Roster.GetPeer(name)
	if err != nil {
		return err
	}

	if err := p.Registrar.RemovePeer(peer.PublicKey); err != nil {
		return fmt.Errorf("removing peer from device: %w", err)
	}
	if err := p.Roster.DeletePeer(peer.ID); err != nil {
		return err
	}

	confPath := filepath.Join(p.ClientDir, peer.Name+".conf")
	if err := os.Remove(confPath); err != nil && !os.IsNotExist(err) {
		log.Warn("could not remove client config", "path", confPath, "error", err)
	}

	log.Info("peer removed", "name", peer.Name, "address", peer.Address)
	return nil
}

// NextFreeAddress previews the address the enumerator would assign,
// searching subnet (or the server's own subnet when empty).
func (p *Provisioner) NextFreeAddress(subnet string) (string, error) {
	server, err := wgconf.ReadServerConfigFile(p.WGConfPath)
	if err != nil {
		return "", err
	}
	if subnet == "" {
		subnet = server.Address
	}
	return selectAddress(server, AddRequest{AllowedIPs: subnet, RequestedIP: AutoAssign})
}

// Reconcile compares the roster against the peers registered on the
// running device and logs drift in both directions.
func (p *Provisioner) Reconcile(ctx context.Context) error {
	devicePeers, err := p.Registrar.Peers()
	if err != nil {
		return fmt.Errorf("listing device peers: %w", err)
	}
	rosterPeers, err := p.Roster.ListPeers(nil)
	if err != nil {
		return fmt.Errorf("listing roster peers: %w", err)
	}

	onDevice := make(map[string]struct{}, len(devicePeers))
	for _, dp := range devicePeers {
		onDevice[dp.PublicKey] = struct{}{}
	}
	inRoster := make(map[string]string, len(rosterPeers))
	for _, rp := range rosterPeers {
		inRoster[rp.PublicKey] = rp.Name
	}

	drift := 0
	for _, rp := range rosterPeers {
		if _, ok := onDevice[rp.PublicKey]; !ok {
			drift++
			log.Warn("roster peer missing from device", "name", rp.Name, "address", rp.Address)
		}
	}
	for _, dp := range devicePeers {
		if _, ok := inRoster[dp.PublicKey]; !ok {
			drift++
			log.Warn("device peer not in roster", "public_key", dp.PublicKey, "allowed_ips", dp.AllowedIPs)
		}
	}

	log.Debug("reconcile pass complete", "device_peers", len(devicePeers), "roster_peers", len(rosterPeers), "drift", drift)
	return nil
}

// selectAddress resolves the peer's virtual address: the caller's choice
// checked against the taken set, or the next free address in the
// allowed-ips range. The server's own address is never assignable,
// whichever range the caller asked to draw from.
func selectAddress(server *wgconf.ServerConfig, req AddRequest) (string, error) {
	taken := make(map[string]struct{}, len(server.TakenIPs)+1)
	for ip := range server.TakenIPs {
		taken[netcalc.StripPrefix(ip)] = struct{}{}
	}
	taken[netcalc.StripPrefix(server.Address)] = struct{}{}

	if req.RequestedIP != AutoAssign {
		requested := netcalc.StripPrefix(req.RequestedIP)
		if _, ok := taken[requested]; ok {
			return "", fmt.Errorf("%w: %s", ErrAddressAlreadyAssigned, requested)
		}
		return requested, nil
	}

	subnet, err := netcalc.ParseCIDR(req.AllowedIPs)
	if err != nil {
		return "", fmt.Errorf("allowed-ips %q: %w", req.AllowedIPs, err)
	}
	return netcalc.NextFree(subnet, taken)
}

func (p *Provisioner) renderClient(ctx context.Context, server *wgconf.ServerConfig, keys wgkeys.KeyPair, address, allowedIPs string) (string, error) {
	domain, err := p.Endpoint.Domain(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving server domain: %w", err)
	}

	serverPub, err := p.Endpoint.ServerPublicKey(ctx)
	if err != nil {
		return "", err
	}
	if serverPub == "" {
		if server.PrivateKey == "" {
			return "", errors.New("server config has no PrivateKey and no public key is published")
		}
		serverPub, err = wgkeys.PublicFromPrivate(server.PrivateKey)
		if err != nil {
			return "", fmt.Errorf("deriving server public key: %w", err)
		}
	}

	client := wgconf.ClientConfig{
		PrivateKey:      keys.PrivateKey,
		Address:         address,
		ServerPublicKey: serverPub,
		Endpoint:        net.JoinHostPort(domain, server.ListenPort),
		AllowedIPs:      allowedIPs,
	}
	return client.Render(), nil
}

// newID generates a UUIDv7 for a peer
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
