package server

import (
	"errors"
	"fmt"
	"net"

	"streamchat/internal/logging"
)

// Server owns the TCP listener and hands every accepted connection to the
// engine.
type Server struct {
	cfg    *Config
	engine *Engine
	log    *logging.Logger

	listener net.Listener
}

// NewServer creates a TCP front for the engine.
func NewServer(cfg *Config, engine *Engine, log *logging.Logger) *Server {
	cfg.sanitize()
	return &Server{cfg: cfg, engine: engine, log: log}
}

// Start binds the listener and begins accepting in the background. It
// returns once the address is bound, so callers can read Addr.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = ln

	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listen address. Useful with port 0 in tests.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("accept: %v", err)
			continue
		}
		s.engine.Connect(newTCPTransport(conn))
	}
}

// Shutdown stops accepting new connections and releases the listener. Live
// sessions are not drained; they persist until logout or disconnect.
func (s *Server) Shutdown() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
