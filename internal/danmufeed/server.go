// Package danmufeed streams every posted danmu to connected TCP clients
// as newline-delimited JSON. Moderation tooling tails this feed; see
// cmd/tcp-monitor.
package danmufeed

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"vidhub/pkg/models"
)

type Server struct {
	addr string
	log  *logrus.Entry

	mu      sync.Mutex
	clients map[net.Conn]struct{}

	events <-chan models.DanmuEvent
}

func New(addr string, events <-chan models.DanmuEvent) *Server {
	return &Server{
		addr:    addr,
		log:     logrus.WithField("component", "danmu-feed"),
		clients: make(map[net.Conn]struct{}),
		events:  events,
	}
}

// Start listens and serves until the listener fails. Run it in its own
// goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.log.WithField("addr", s.addr).Info("danmu feed listening")

	go s.broadcastLoop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.log.WithError(err).Warn("accept failed")
			continue
		}
		s.addClient(conn)
		s.log.WithField("client", conn.RemoteAddr().String()).Info("feed client connected")

		go s.readLoop(conn)
	}
}

func (s *Server) addClient(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn] = struct{}{}
}

func (s *Server) removeClient(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
	_ = conn.Close()
}

// readLoop discards anything the client sends; it exists to notice the
// disconnect.
func (s *Server) readLoop(conn net.Conn) {
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
	}
	s.removeClient(conn)
	s.log.WithField("client", conn.RemoteAddr().String()).Info("feed client disconnected")
}

func (s *Server) broadcastLoop() {
	for evt := range s.events {
		b, err := json.Marshal(evt)
		if err != nil {
			s.log.WithError(err).Warn("marshal event")
			continue
		}
		b = append(b, '\n')

		s.mu.Lock()
		for conn := range s.clients {
			if _, err := conn.Write(b); err != nil {
				delete(s.clients, conn)
				_ = conn.Close()
			}
		}
		s.mu.Unlock()
	}
}
