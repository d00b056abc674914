// Package udpnotify announces new catalog entries to UDP subscribers.
// Clients send "SUBSCRIBE" / "UNSUBSCRIBE" datagrams; the server pushes a
// JSON Notification for every video that enters the catalog. See
// cmd/udp-monitor.
package udpnotify

import (
	"encoding/json"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vidhub/pkg/models"
)

const notificationType = "catalog"

type Server struct {
	addr string
	log  *logrus.Entry

	mu      sync.Mutex
	clients map[string]*net.UDPAddr // key = ip:port

	conn *net.UDPConn
}

func New(addr string) *Server {
	return &Server{
		addr:    addr,
		log:     logrus.WithField("component", "udp-notify"),
		clients: make(map[string]*net.UDPAddr),
	}
}

// Start binds the socket and handles subscription datagrams until the
// socket fails. Run it in its own goroutine.
func (s *Server) Start() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	s.log.WithField("addr", s.addr).Info("udp notify listening")

	buf := make([]byte, 2048)
	for {
		n, clientAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			s.log.WithError(err).Warn("udp read")
			continue
		}

		switch strings.ToUpper(strings.TrimSpace(string(buf[:n]))) {
		case "SUBSCRIBE":
			s.mu.Lock()
			s.clients[clientAddr.String()] = clientAddr
			total := len(s.clients)
			s.mu.Unlock()
			s.log.WithFields(logrus.Fields{"client": clientAddr.String(), "total": total}).Info("subscribed")
		case "UNSUBSCRIBE":
			s.mu.Lock()
			delete(s.clients, clientAddr.String())
			total := len(s.clients)
			s.mu.Unlock()
			s.log.WithFields(logrus.Fields{"client": clientAddr.String(), "total": total}).Info("unsubscribed")
		}
	}
}

// Announce pushes a new-video notification to every subscriber. Safe to
// call before Start; it just does nothing then.
func (s *Server) Announce(video models.VideoRecord) {
	if s.conn == nil {
		return
	}

	b, err := json.Marshal(models.Notification{
		Type:      notificationType,
		VideoID:   video.ID,
		Message:   "new video: " + video.Title,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		s.log.WithError(err).Warn("marshal notification")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, addr := range s.clients {
		if _, err := s.conn.WriteToUDP(b, addr); err != nil {
			s.log.WithError(err).WithField("client", key).Warn("udp send failed")
		}
	}
}
