// Package wgdev applies peer changes to the running WireGuard device
// through the wgctrl interface.
package wgdev

import (
	"fmt"
	"net"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Registrar registers and removes peers on a named device.
type Registrar struct {
	device string
}

// DevicePeer is a peer entry read back from the device.
type DevicePeer struct {
	PublicKey  string
	AllowedIPs []string
}

func NewRegistrar(device string) *Registrar {
	return &Registrar{device: device}
}

// AddPeer registers publicKey with address routed as a /32.
func (r *Registrar) AddPeer(publicKey, address string) error {
	key, err := wgtypes.ParseKey(publicKey)
	if err != nil {
		return fmt.Errorf("parsing peer key: %w", err)
	}
	_, ipNet, err := net.ParseCIDR(address + "/32")
	if err != nil {
		return fmt.Errorf("parsing peer address %q: %w", address, err)
	}

	peer := wgtypes.PeerConfig{
		PublicKey:         key,
		ReplaceAllowedIPs: true,
		AllowedIPs:        []net.IPNet{*ipNet},
	}
	return r.configure(wgtypes.Config{Peers: []wgtypes.PeerConfig{peer}})
}

// RemovePeer deregisters publicKey from the device.
func (r *Registrar) RemovePeer(publicKey string) error {
	key, err := wgtypes.ParseKey(publicKey)
	if err != nil {
		return fmt.Errorf("parsing peer key: %w", err)
	}

	peer := wgtypes.PeerConfig{
		PublicKey: key,
		Remove:    true,
	}
	return r.configure(wgtypes.Config{Peers: []wgtypes.PeerConfig{peer}})
}

// Peers lists the peers currently registered on the device.
func (r *Registrar) Peers() ([]DevicePeer, error) {
	wg, err := wgctrl.New()
	if err != nil {
		return nil, err
	}
	defer wg.Close()

	dev, err := wg.Device(r.device)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", r.device, err)
	}

	peers := make([]DevicePeer, 0, len(dev.Peers))
	for _, p := range dev.Peers {
		dp := DevicePeer{PublicKey: p.PublicKey.String()}
		for _, ipNet := range p.AllowedIPs {
			dp.AllowedIPs = append(dp.AllowedIPs, ipNet.String())
		}
		peers = append(peers, dp)
	}
	return peers, nil
}

func (r *Registrar) configure(cfg wgtypes.Config) error {
	wg, err := wgctrl.New()
	if err != nil {
		return err
	}
	defer wg.Close()

	if _, err := wg.Device(r.device); err != nil {
		return fmt.Errorf("device %s: %w", r.device, err)
	}
	if err := wg.ConfigureDevice(r.device, cfg); err != nil {
		return fmt.Errorf("configuring %s: %w", r.device, err)
	}
	return nil
}
