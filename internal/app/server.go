// Package app assembles the debate server: storage, collaborators, the
// orchestration service, and the HTTP transport.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/openpodium/podium/internal/debate/ai"
	"github.com/openpodium/podium/internal/debate/service"
	"github.com/openpodium/podium/internal/platform/config"
	"github.com/openpodium/podium/internal/platform/timeouts"
	"github.com/openpodium/podium/internal/storage"
	"github.com/openpodium/podium/internal/storage/memory"
	"github.com/openpodium/podium/internal/storage/sqlite"
	"github.com/openpodium/podium/internal/transport/httpapi"
)

const defaultOpenAIModel = "gpt-4o-mini"

// serverEnv holds env-parsed configuration for the debate server.
type serverEnv struct {
	DBPath             string `env:"PODIUM_DB_PATH"`
	OpenAIAPIKey       string `env:"PODIUM_OPENAI_API_KEY"`
	OpenAIModel        string `env:"PODIUM_OPENAI_MODEL"`
	OpenAIResponsesURL string `env:"PODIUM_OPENAI_RESPONSES_URL"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = defaultOpenAIModel
	}
	return cfg
}

// Server hosts the debate HTTP API and the timer loop.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	service    *service.Service
	closeStore func() error
	closeOnce  sync.Once
}

// New creates a configured debate server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured debate server listening on the provided
// address. Collaborator credentials come from the environment; startup is
// refused without an API key so the server never fabricates evaluations.
func NewWithAddr(addr string) (*Server, error) {
	srvEnv := loadServerEnv()

	apiKey := strings.TrimSpace(srvEnv.OpenAIAPIKey)
	if apiKey == "" {
		return nil, errors.New("PODIUM_OPENAI_API_KEY is required")
	}
	collaborators, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		ResponsesURL: srvEnv.OpenAIResponsesURL,
		APIKey:       apiKey,
		Model:        srvEnv.OpenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("build collaborator client: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	store, closeStore, err := openStore(srvEnv.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	broadcaster := httpapi.NewBroadcaster()
	svc := service.New(store, collaborators, service.WithNotify(broadcaster.Publish))
	handler := httpapi.New(svc, broadcaster)

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		service:    svc,
		closeStore: closeStore,
	}, nil
}

func openStore(dbPath string) (storage.SessionStore, func() error, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return memory.NewStore(), nil, nil
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	return store, store.Close, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve runs the HTTP server and the timer loop until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	timerCtx, stopTimers := context.WithCancel(ctx)
	defer stopTimers()
	go func() {
		if err := s.service.RunTimerLoop(timerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("timer loop: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the listener and the session store.
func (s *Server) Close() error {
	var firstErr error
	s.closeOnce.Do(func() {
		if err := s.httpServer.Close(); err != nil {
			firstErr = err
		}
		if s.closeStore != nil {
			if err := s.closeStore(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// Run creates a server on the given port and serves until ctx is cancelled.
func Run(ctx context.Context, port int) error {
	return RunWithAddr(ctx, fmt.Sprintf(":%d", port))
}

// RunWithAddr creates a server on the given address and serves until ctx is
// cancelled.
func RunWithAddr(ctx context.Context, addr string) error {
	server, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Printf("close server: %v", err)
		}
	}()

	log.Printf("listening on %s", server.Addr())
	return server.Serve(ctx)
}
