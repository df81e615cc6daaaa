// Package mcpserver exposes peer provisioning as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/paularlott/mcp"

	"github.com/martinsuchenak/wgprov/internal/log"
	"github.com/martinsuchenak/wgprov/internal/model"
	"github.com/martinsuchenak/wgprov/internal/provision"
	"github.com/martinsuchenak/wgprov/internal/storage"
)

// Server wraps the MCP server with the roster and provisioner
type Server struct {
	mcpServer   *mcp.Server
	storage     storage.Storage
	provisioner *provision.Provisioner
	bearerToken string
}

// NewServer creates a new MCP server for peer provisioning
func NewServer(s storage.Storage, p *provision.Provisioner, bearerToken string) *Server {
	srv := &Server{
		mcpServer:   mcp.NewServer("wgprov", "1.0.0"),
		storage:     s,
		provisioner: p,
		bearerToken: bearerToken,
	}
	srv.registerTools()
	return srv
}

func (s *Server) registerTools() {
	// peer_add - Provision a new peer
	s.mcpServer.RegisterTool(
		mcp.NewTool("peer_add", "Provision a new peer: allocate an address, generate keys, register with the device and return the rendered client config.",
			mcp.String("name", "Peer name", mcp.Required()),
			mcp.String("allowed_ips", "CIDR range the peer may route (default 0.0.0.0/0); also the range searched on auto-assign"),
			mcp.String("ip", "Requested address (default auto-assign)"),
		),
		s.handlePeerAdd,
	)

	// peer_get - Get a peer by ID or name
	s.mcpServer.RegisterTool(
		mcp.NewTool("peer_get", "Get a peer by ID or name",
			mcp.String("id", "Peer ID or name", mcp.Required()),
		),
		s.handlePeerGet,
	)

	// peer_list - List peers with optional name filter
	s.mcpServer.RegisterTool(
		mcp.NewTool("peer_list", "List all peers, optionally filtered by name",
			mcp.String("name", "Filter by name (partial match)"),
		),
		s.handlePeerList,
	)

	// peer_remove - Deregister and delete a peer
	s.mcpServer.RegisterTool(
		mcp.NewTool("peer_remove", "Remove a peer from the device, the roster and the client config directory",
			mcp.String("id", "Peer ID or name", mcp.Required()),
		),
		s.handlePeerRemove,
	)

	// next_free_ip - Preview the next assignable address
	s.mcpServer.RegisterTool(
		mcp.NewTool("next_free_ip", "Get the next address the allocator would assign, without assigning it",
			mcp.String("subnet", "CIDR range to search (default: the server's own subnet)"),
		),
		s.handleNextFreeIP,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token authentication
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if token != s.bearerToken {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

// Tool handlers

func (s *Server) handlePeerAdd(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	name, err := req.String("name")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("name is required: " + err.Error())
	}

	log.Debug("MCP peer add request", "name", name)

	result, err := s.provisioner.AddPeer(ctx, provision.AddRequest{
		Name:        name,
		AllowedIPs:  req.StringOr("allowed_ips", ""),
		RequestedIP: req.StringOr("ip", ""),
	})
	if err != nil {
		if errors.Is(err, provision.ErrDuplicatePeerName) || errors.Is(err, provision.ErrAddressAlreadyAssigned) {
			return nil, mcp.NewToolErrorInvalidParams(err.Error())
		}
		log.Error("MCP peer add failed", "error", err, "name", name)
		return nil, mcp.NewToolErrorInternal("failed to provision peer: " + err.Error())
	}

	log.Info("MCP peer provisioned", "name", name, "address", result.Peer.Address)

	var b strings.Builder
	b.WriteString(formatPeerSummary(&result.Peer))
	fmt.Fprintf(&b, "Config written to: %s\n\n%s", result.ConfigPath, result.Rendered)
	return mcp.NewToolResponseText(b.String()), nil
}

func (s *Server) handlePeerGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	peer, err := s.storage.GetPeer(id)
	if errors.Is(err, storage.ErrPeerNotFound) {
		return mcp.NewToolResponseText(fmt.Sprintf("No peer found matching %q", id)), nil
	}
	if err != nil {
		log.Error("MCP peer get failed", "error", err, "id", id)
		return nil, mcp.NewToolErrorInternal("failed to get peer: " + err.Error())
	}

	return mcp.NewToolResponseText(formatPeerSummary(peer)), nil
}

func (s *Server) handlePeerList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	filter := &model.PeerFilter{Name: req.StringOr("name", "")}

	peers, err := s.storage.ListPeers(filter)
	if err != nil {
		log.Error("MCP peer list failed", "error", err)
		return nil, mcp.NewToolErrorInternal("failed to list peers: " + err.Error())
	}

	if len(peers) == 0 {
		return mcp.NewToolResponseText("No peers found"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d peer(s):\n\n", len(peers))
	for i := range peers {
		b.WriteString(formatPeerSummary(&peers[i]))
		b.WriteString("\n")
	}
	return mcp.NewToolResponseText(b.String()), nil
}

func (s *Server) handlePeerRemove(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	err = s.provisioner.RemovePeer(ctx, id)
	if errors.Is(err, storage.ErrPeerNotFound) {
		return nil, mcp.NewToolErrorInvalidParams(fmt.Sprintf("no peer found matching %q", id))
	}
	if err != nil {
		log.Error("MCP peer remove failed", "error", err, "id", id)
		return nil, mcp.NewToolErrorInternal("failed to remove peer: " + err.Error())
	}

	log.Info("MCP peer removed", "id", id)
	return mcp.NewToolResponseText(fmt.Sprintf("Peer %q removed", id)), nil
}

func (s *Server) handleNextFreeIP(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	subnet := req.StringOr("subnet", "")

	ip, err := s.provisioner.NextFreeAddress(subnet)
	if err != nil {
		log.Error("MCP next free IP failed", "error", err, "subnet", subnet)
		return nil, mcp.NewToolErrorInternal("failed to find a free address: " + err.Error())
	}

	return mcp.NewToolResponseText(ip), nil
}

func formatPeerSummary(peer *model.Peer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", peer.Name)
	fmt.Fprintf(&b, "ID: %s\n", peer.ID)
	fmt.Fprintf(&b, "Address: %s\n", peer.Address)
	fmt.Fprintf(&b, "Public key: %s\n", peer.PublicKey)
	if peer.AllowedIPs != "" {
		fmt.Fprintf(&b, "Allowed IPs: %s\n", peer.AllowedIPs)
	}
	return b.String()
}

// GetHTTPHandler returns the HTTP handler for the MCP server
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs MCP server startup information
func (s *Server) LogStartup() {
	log.Info("MCP server initialized", "version", "1.0.0")
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	tools := s.mcpServer.ListTools()
	log.Info("MCP tools registered", "count", len(tools))
	for _, tool := range tools {
		log.Debug("MCP tool registered", "name", tool.Name, "description", tool.Description)
	}
}
