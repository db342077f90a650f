package netpath

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultPollInterval = 5 * time.Second

// pollSource derives the path from periodic interface scans. It is the
// fallback for platforms without a native change feed and for
// environments where the native facility cannot be attached. Without a
// routing table to consult it reports the lowest-index up interface
// holding a global unicast address as the active one.
type pollSource struct {
	interval time.Duration
	list     func() ([]net.Interface, error)
	addrs    func(iface *net.Interface) ([]net.Addr, error)
	classify func(name string) InterfaceKind
}

// NewPollSource returns a source that re-scans the interface table at
// the given interval. A non-positive interval selects the default.
func NewPollSource(interval time.Duration) Source {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	classify := newSysfsClassifier()
	return &pollSource{
		interval: interval,
		list:     net.Interfaces,
		addrs:    func(iface *net.Interface) ([]net.Addr, error) { return iface.Addrs() },
		classify: classify.Classify,
	}
}

func (s *pollSource) Subscribe() (Subscription, error) {
	sub := newChannelSubscription(subscriberBuffer)
	go s.watch(sub)
	return sub, nil
}

func (s *pollSource) watch(sub *channelSubscription) {
	defer close(sub.paths)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := s.evaluate()
	if !sub.send(last) {
		return
	}

	for {
		select {
		case <-sub.done:
			return
		case <-ticker.C:
		}

		next := s.evaluate()
		if next == last {
			continue
		}
		if !sub.send(next) {
			return
		}
		last = next
	}
}

func (s *pollSource) evaluate() Path {
	interfaces, err := s.list()
	if err != nil {
		log.WithError(err).Debug("Failed to list network interfaces")
		return Path{Status: StatusUnsatisfied}
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if !s.hasGlobalAddress(&iface) {
			continue
		}
		return pathFor(StatusSatisfied, iface.Name, s.classify(iface.Name))
	}
	return Path{Status: StatusUnsatisfied}
}

func (s *pollSource) hasGlobalAddress(iface *net.Interface) bool {
	addrs, err := s.addrs(iface)
	if err != nil {
		log.WithError(err).WithField("interface", iface.Name).Trace("Failed to get interface addresses")
		return false
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ipNet.IP.IsGlobalUnicast() {
			return true
		}
	}
	return false
}
