package app

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openpodium/podium/internal/debate/domain"
	"github.com/openpodium/podium/internal/platform/id"
)

func TestNewWithAddrRequiresAPIKey(t *testing.T) {
	t.Setenv("PODIUM_OPENAI_API_KEY", "")
	if _, err := NewWithAddr("127.0.0.1:0"); err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestServerServesSessionAPI(t *testing.T) {
	t.Setenv("PODIUM_OPENAI_API_KEY", "test-key")
	t.Setenv("PODIUM_DB_PATH", "")

	server, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = server.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	baseURL := "http://" + server.Addr()
	res, err := http.Post(baseURL+"/api/sessions", "application/json", strings.NewReader(`{"title": "Round 1"}`))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var payload struct {
		ID    string `json:"id"`
		Phase string `json:"phase"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Phase != "setup" || payload.ID == "" {
		t.Fatalf("payload = %+v", payload)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerUsesSQLiteStoreWhenConfigured(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "podium.db")
	t.Setenv("PODIUM_OPENAI_API_KEY", "test-key")
	t.Setenv("PODIUM_DB_PATH", dbPath)

	server, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Setenv("PODIUM_OPENAI_API_KEY", "test-key")
	t.Setenv("PODIUM_DB_PATH", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunWithAddr(ctx, "127.0.0.1:0") }()

	// Give the listener a moment to come up before cancelling.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	store, closer, err := openStore("  ")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if store == nil {
		t.Fatal("expected a store")
	}
	if closer != nil {
		t.Fatal("memory store needs no closer")
	}

	session, err := domain.CreateSession(domain.CreateSessionInput{Title: "Round 1"}, nil, id.NewID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.PutSession(context.Background(), session); err != nil {
		t.Fatalf("put: %v", err)
	}
}
