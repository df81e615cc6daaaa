package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/martinsuchenak/wgprov/internal/log"
	"github.com/martinsuchenak/wgprov/internal/model"
	"github.com/martinsuchenak/wgprov/internal/netcalc"
	"github.com/martinsuchenak/wgprov/internal/provision"
	"github.com/martinsuchenak/wgprov/internal/storage"
)

// Handler handles HTTP requests
type Handler struct {
	storage     storage.Storage
	provisioner *provision.Provisioner
}

// NewHandler creates a new API handler
func NewHandler(s storage.Storage, p *provision.Provisioner) *Handler {
	return &Handler{storage: s, provisioner: p}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/peers", h.listPeers)
	mux.HandleFunc("POST /api/peers", h.addPeer)
	mux.HandleFunc("GET /api/peers/{name}", h.getPeer)
	mux.HandleFunc("DELETE /api/peers/{name}", h.removePeer)
	mux.HandleFunc("GET /api/next-ip", h.nextIP)
	mux.HandleFunc("GET /healthz", h.health)
}

// addPeerRequest is the body of POST /api/peers
type addPeerRequest struct {
	Name        string `json:"name"`
	AllowedIPs  string `json:"allowed_ips,omitempty"`
	RequestedIP string `json:"ip,omitempty"`
}

// addPeerResponse carries the provisioned peer and its rendered config
type addPeerResponse struct {
	Peer       model.Peer `json:"peer"`
	ConfigPath string     `json:"config_path"`
	Config     string     `json:"config"`
}

// listPeers handles GET /api/peers
func (h *Handler) listPeers(w http.ResponseWriter, r *http.Request) {
	filter := &model.PeerFilter{Name: r.URL.Query().Get("name")}

	peers, err := h.storage.ListPeers(filter)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if peers == nil {
		peers = []model.Peer{}
	}

	h.writeJSON(w, http.StatusOK, peers)
}

// addPeer handles POST /api/peers
func (h *Handler) addPeer(w http.ResponseWriter, r *http.Request) {
	var req addPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	result, err := h.provisioner.AddPeer(r.Context(), provision.AddRequest{
		Name:        req.Name,
		AllowedIPs:  req.AllowedIPs,
		RequestedIP: req.RequestedIP,
	})
	if err != nil {
		h.provisionError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, addPeerResponse{
		Peer:       result.Peer,
		ConfigPath: result.ConfigPath,
		Config:     result.Rendered,
	})
}

// getPeer handles GET /api/peers/{name}
func (h *Handler) getPeer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	peer, err := h.storage.GetPeer(name)
	if errors.Is(err, storage.ErrPeerNotFound) {
		h.writeError(w, http.StatusNotFound, "peer not found")
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, peer)
}

// removePeer handles DELETE /api/peers/{name}
func (h *Handler) removePeer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	err := h.provisioner.RemovePeer(r.Context(), name)
	if errors.Is(err, storage.ErrPeerNotFound) {
		h.writeError(w, http.StatusNotFound, "peer not found")
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// nextIP handles GET /api/next-ip
func (h *Handler) nextIP(w http.ResponseWriter, r *http.Request) {
	subnet := r.URL.Query().Get("subnet")

	ip, err := h.provisioner.NextFreeAddress(subnet)
	if err != nil {
		h.provisionError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"ip": ip})
}

// health handles GET /healthz
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// provisionError maps provisioning failures onto HTTP statuses
func (h *Handler) provisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provision.ErrDuplicatePeerName),
		errors.Is(err, provision.ErrAddressAlreadyAssigned),
		errors.Is(err, netcalc.ErrSubnetExhausted):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, netcalc.ErrInvalidAddressFormat),
		errors.Is(err, netcalc.ErrPrefixOutOfRange):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.internalError(w, err)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// internalError logs the error and writes a generic 500
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("internal server error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}
