// Package peer holds the peer management commands.
package peer

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/wgprov/internal/config"
	"github.com/martinsuchenak/wgprov/internal/model"
	"github.com/martinsuchenak/wgprov/internal/provision"
	"github.com/martinsuchenak/wgprov/internal/storage"
)

// Commands returns the peer command tree
func Commands() []*cli.Command {
	return []*cli.Command{
		addCommand(),
		listCommand(),
		removeCommand(),
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:        "add",
		Usage:       "Provision a new peer",
		Description: "Allocate an address, generate a key pair, register the peer with the device and write its config",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name", Required: true},
			&cli.StringArg{Name: "allowed-ips"},
			&cli.StringArg{Name: "ip"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			prov, store, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := prov.AddPeer(ctx, provision.AddRequest{
				Name:        cmd.GetStringArg("name"),
				AllowedIPs:  cmd.GetStringArg("allowed-ips"),
				RequestedIP: cmd.GetStringArg("ip"),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Peer %s provisioned with address %s\n", result.Peer.Name, result.Peer.Address)
			fmt.Printf("Config written to %s\n\n", result.ConfigPath)
			fmt.Print(result.Rendered)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List provisioned peers",
		Description: "List all peers in the roster",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Usage: "Filter by name (partial match)"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			_, store, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			peers, err := store.ListPeers(&model.PeerFilter{Name: cmd.GetString("filter")})
			if err != nil {
				return fmt.Errorf("failed to list peers: %w", err)
			}
			printPeers(peers)
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:        "remove",
		Usage:       "Remove a peer",
		Description: "Deregister a peer from the device and delete its roster entry and config",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			prov, store, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			name := cmd.GetStringArg("name")
			if err := prov.RemovePeer(ctx, name); err != nil {
				return err
			}
			fmt.Printf("Peer %s removed\n", name)
			return nil
		},
	}
}

func setup() (*provision.Provisioner, storage.Storage, error) {
	cfg := config.Load(nil)
	store, err := storage.NewSQLiteStorage(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing roster: %w", err)
	}
	return provision.New(cfg, store), store, nil
}

func printPeers(peers []model.Peer) {
	if len(peers) == 0 {
		fmt.Println("No peers found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tALLOWED IPS\tCREATED")
	for _, p := range peers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Address, p.AllowedIPs, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}
