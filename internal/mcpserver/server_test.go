package mcpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleRequestAuth(t *testing.T) {
	srv := NewServer(nil, nil, "sekrit")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic sekrit", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.HandleRequest(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestToolRegistration(t *testing.T) {
	srv := NewServer(nil, nil, "")

	tools := srv.mcpServer.ListTools()
	want := map[string]bool{
		"peer_add":     false,
		"peer_get":     false,
		"peer_list":    false,
		"peer_remove":  false,
		"next_free_ip": false,
	}
	for _, tool := range tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("tool %q not registered", name)
		}
	}
}
