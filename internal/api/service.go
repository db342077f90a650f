// Package api exposes the connectivity monitor over a small HTTP
// surface: health and readiness checks, a JSON status document, and a
// websocket stream of state changes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmdmdm-nz/zeroconf"
	log "github.com/sirupsen/logrus"

	"github.com/jmcardle/netpathd/internal/netpath"
)

// StateSource is the view of the connectivity monitor the API serves.
type StateSource interface {
	State() netpath.State
	Subscribe() (<-chan netpath.StateChange, func())
}

// Service is the HTTP server publishing the current network path state.
type Service struct {
	address  string
	port     int
	announce bool

	source StateSource

	mu     sync.Mutex
	srv    *http.Server
	mdns   *zeroconf.Server
	closed bool
}

func NewService(host string, port int, announce bool) *Service {
	return &Service{
		address:  host,
		port:     port,
		announce: announce,
	}
}

// AttachMonitor provides the state source to serve. Must be called
// before Start.
func (s *Service) AttachMonitor(source StateSource) {
	s.source = source
}

// Start serves the API until the context is cancelled or the server
// fails.
func (s *Service) Start(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("no state source attached")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on %s:%d: %w", s.address, s.port, err)
	}

	srv := &http.Server{Handler: s.routes()}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.srv = srv
	s.mu.Unlock()

	log.Infof("Starting API service at %s", ln.Addr())
	defer log.Info("Stopping API service")

	if s.announce {
		s.startAnnouncer(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			return err
		}
		s.srv = nil
	}
	return nil
}

func (s *Service) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if s.source == nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws/events", s.handleEvents)
	return mux
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Add("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(statusResponse(s.source.State())); err != nil {
			http.Error(w, fmt.Sprintf("Failed to encode status: %v", err), http.StatusInternalServerError)
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
