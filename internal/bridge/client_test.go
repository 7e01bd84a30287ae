package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatguard/internal/config"
)

func newTestGateway(t *testing.T, handler http.Handler) *HTTPGateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPGateway(config.BridgeConfig{BaseURL: server.URL, AuthToken: "secret", TimeoutSeconds: 2})
}

func TestResolveExternalRoomHandle(t *testing.T) {
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rooms/room1/handle" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"handle": "#bridged:ext"})
	}))

	handle, err := gateway.ResolveExternalRoomHandle(context.Background(), "room1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if handle != "#bridged:ext" {
		t.Fatalf("expected #bridged:ext, got %q", handle)
	}

	if _, err := gateway.ResolveExternalRoomHandle(context.Background(), "unmapped"); !errors.Is(err, ErrRoomNotBridged) {
		t.Fatalf("expected ErrRoomNotBridged, got %v", err)
	}
}

func TestBanIdentity(t *testing.T) {
	var got map[string]string
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/rooms/#bridged:ext/bans" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := gateway.BanIdentity(context.Background(), "#bridged:ext", "@v:ext", "abuse"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if got["external_id"] != "@v:ext" || got["reason"] != "abuse" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestBanIdentityUpstreamError(t *testing.T) {
	gateway := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	if err := gateway.BanIdentity(context.Background(), "#bridged:ext", "@v:ext", "abuse"); err == nil {
		t.Fatalf("expected error on upstream failure")
	}
}
