package api

import (
	"fmt"
	"net"
	"os"

	"github.com/dmdmdm-nz/zeroconf"
	log "github.com/sirupsen/logrus"
)

const mdnsService = "_netpathd._tcp"

// startAnnouncer registers the API endpoint over mDNS so local tooling
// can find it without configuration.
func (s *Service) startAnnouncer(addr net.Addr) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		log.Warn("Cannot announce non-TCP listener over mDNS")
		return
	}

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "netpathd"
	}
	instance := fmt.Sprintf("netpathd-%s", host)

	server, err := zeroconf.Register(instance, mdnsService, "local.", tcpAddr.Port, []string{"path=/status"}, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to announce API service over mDNS")
		return
	}

	// A Close that raced the registration must not leave it running.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		server.Shutdown()
		return
	}
	s.mdns = server
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"instance": instance,
		"service":  mdnsService,
		"port":     tcpAddr.Port,
	}).Info("Announced API service over mDNS")
}
