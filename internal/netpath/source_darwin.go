//go:build darwin

package netpath

import (
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// routeSource reports the path carried by the default route, watching
// the kernel's routing socket for changes. Interface kinds come from
// the system configuration profiles, since BSD names alone do not
// distinguish Wi-Fi from wired.
type routeSource struct {
	profilesPath string
}

// NewSource returns the native path source for this platform.
func NewSource() Source {
	return NewRouteSource()
}

func NewRouteSource() Source {
	return &routeSource{profilesPath: defaultProfilesPath}
}

func (s *routeSource) Subscribe() (Subscription, error) {
	fd, err := unix.Socket(unix.AF_ROUTE, unix.SOCK_RAW, unix.AF_UNSPEC)
	if err != nil {
		return nil, fmt.Errorf("failed to open route socket: %w", err)
	}

	classify := s.loadClassifier()

	sub := newChannelSubscription(subscriberBuffer)

	// The socket is closed exactly once, by whichever comes first:
	// Cancel (closing it is what unblocks the read loop) or the read
	// loop dying on its own.
	var closeOnce sync.Once
	closeFd := func() { closeOnce.Do(func() { unix.Close(fd) }) }

	go func() {
		<-sub.done
		closeFd()
	}()
	go func() {
		defer closeFd()
		s.watch(sub, fd, classify)
	}()
	return sub, nil
}

func (s *routeSource) loadClassifier() *profileClassifier {
	classify, err := loadProfileClassifier(s.profilesPath)
	if err != nil {
		log.WithError(err).Debug("Interface profiles unavailable; link kinds will be unknown")
		return &profileClassifier{kinds: map[string]InterfaceKind{}}
	}
	return classify
}

// watch re-evaluates the path on every routing socket message and
// forwards it when the derived path differs from the last one sent.
// The current path is always sent first.
func (s *routeSource) watch(sub *channelSubscription, fd int, classify *profileClassifier) {
	defer close(sub.paths)

	last := s.evaluate(classify)
	if !sub.send(last) {
		return
	}

	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(fd, buf)
		if err != nil {
			select {
			case <-sub.done:
				return
			default:
			}
			if err == unix.EINTR || err == unix.ENOBUFS {
				continue
			}
			log.WithError(err).Warn("Error reading from route socket")
			return
		}
		if n == 0 {
			return
		}

		msgs, err := route.ParseRIB(route.RIBTypeRoute, buf[:n])
		if err != nil || len(msgs) == 0 {
			continue
		}

		next := s.evaluate(classify)
		if next == last {
			continue
		}
		if !sub.send(next) {
			return
		}
		last = next
	}
}

// evaluate derives the current path from the routing table: the first
// up default route names the active interface. No default route, or a
// default route over a downed link, means the path is unsatisfied.
func (s *routeSource) evaluate(classify *profileClassifier) Path {
	rib, err := route.FetchRIB(unix.AF_UNSPEC, route.RIBTypeRoute, 0)
	if err != nil {
		log.WithError(err).Debug("Failed to fetch routing table")
		return Path{Status: StatusUnsatisfied}
	}
	msgs, err := route.ParseRIB(route.RIBTypeRoute, rib)
	if err != nil {
		log.WithError(err).Debug("Failed to parse routing table")
		return Path{Status: StatusUnsatisfied}
	}

	ifindex := 0
	for _, m := range msgs {
		rm, ok := m.(*route.RouteMessage)
		if !ok {
			continue
		}
		if rm.Flags&unix.RTF_UP == 0 || rm.Flags&unix.RTF_GATEWAY == 0 {
			continue
		}
		if len(rm.Addrs) <= unix.RTAX_DST || !isUnspecifiedAddr(rm.Addrs[unix.RTAX_DST]) {
			continue
		}
		if rm.Index == 0 {
			continue
		}
		ifindex = rm.Index
		break
	}
	if ifindex == 0 {
		return Path{Status: StatusUnsatisfied}
	}

	iface, err := net.InterfaceByIndex(ifindex)
	if err != nil {
		log.WithError(err).WithField("ifindex", ifindex).Debug("Failed to get interface for default route")
		return Path{Status: StatusUnsatisfied}
	}

	status := StatusSatisfied
	if iface.Flags&net.FlagUp == 0 {
		status = StatusUnsatisfied
	}
	return pathFor(status, iface.Name, classify.Classify(iface.Name))
}

func isUnspecifiedAddr(addr route.Addr) bool {
	switch a := addr.(type) {
	case *route.Inet4Addr:
		return a.IP == [4]byte{}
	case *route.Inet6Addr:
		return a.IP == [16]byte{}
	}
	return false
}
