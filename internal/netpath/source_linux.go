//go:build linux

package netpath

import (
	"fmt"
	"math"
	"net"

	log "github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// netlinkSource reports the path carried by the default route, watching
// rtnetlink for link, address and route changes.
type netlinkSource struct {
	classify *sysfsClassifier
}

// NewSource returns the native path source for this platform.
func NewSource() Source {
	return NewNetlinkSource()
}

func NewNetlinkSource() Source {
	return &netlinkSource{classify: newSysfsClassifier()}
}

func (s *netlinkSource) Subscribe() (Subscription, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err == nil {
		release := unix.ByteSliceToString(uts.Release[:])
		if !kernelSupportsNetlink(release) {
			log.WithField("release", release).Warn("Kernel predates the rtnetlink groups used for path monitoring; the poll source may be more reliable")
		}
	}

	linkCh := make(chan netlink.LinkUpdate, 16)
	linkDone := make(chan struct{})
	if err := netlink.LinkSubscribe(linkCh, linkDone); err != nil {
		return nil, fmt.Errorf("failed to subscribe to link updates: %w", err)
	}

	addrCh := make(chan netlink.AddrUpdate, 16)
	addrDone := make(chan struct{})
	if err := netlink.AddrSubscribe(addrCh, addrDone); err != nil {
		close(linkDone)
		return nil, fmt.Errorf("failed to subscribe to address updates: %w", err)
	}

	routeCh := make(chan netlink.RouteUpdate, 16)
	routeDone := make(chan struct{})
	if err := netlink.RouteSubscribe(routeCh, routeDone); err != nil {
		close(linkDone)
		close(addrDone)
		return nil, fmt.Errorf("failed to subscribe to route updates: %w", err)
	}

	sub := newChannelSubscription(subscriberBuffer)
	go func() {
		defer close(linkDone)
		defer close(addrDone)
		defer close(routeDone)
		s.watch(sub, linkCh, addrCh, routeCh)
	}()
	return sub, nil
}

// watch re-evaluates the path on every rtnetlink event and forwards it
// when the derived path differs from the last one sent. The current
// path is always sent first.
func (s *netlinkSource) watch(
	sub *channelSubscription,
	linkCh chan netlink.LinkUpdate,
	addrCh chan netlink.AddrUpdate,
	routeCh chan netlink.RouteUpdate,
) {
	defer close(sub.paths)

	last := s.evaluate()
	if !sub.send(last) {
		return
	}

	for {
		select {
		case <-sub.done:
			return
		case _, ok := <-linkCh:
			if !ok {
				log.Debug("Netlink link subscription closed")
				return
			}
		case _, ok := <-addrCh:
			if !ok {
				log.Debug("Netlink address subscription closed")
				return
			}
		case _, ok := <-routeCh:
			if !ok {
				log.Debug("Netlink route subscription closed")
				return
			}
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

// evaluate derives the current path from the routing table: the lowest
// metric default route names the active interface, classified through
// sysfs. No default route, or a default route over a downed link,
// means the path is unsatisfied.
func (s *netlinkSource) evaluate() Path {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_ALL)
	if err != nil {
		log.WithError(err).Debug("Failed to list routes")
		return Path{Status: StatusUnsatisfied}
	}

	ifindex := 0
	bestPriority := math.MaxInt
	for _, route := range routes {
		if !isDefaultRoute(route) || route.LinkIndex <= 0 {
			continue
		}
		if route.Priority < bestPriority {
			bestPriority = route.Priority
			ifindex = route.LinkIndex
		}
	}
	if ifindex == 0 {
		return Path{Status: StatusUnsatisfied}
	}

	link, err := netlink.LinkByIndex(ifindex)
	if err != nil {
		log.WithError(err).WithField("ifindex", ifindex).Debug("Failed to get link for default route")
		return Path{Status: StatusUnsatisfied}
	}

	attrs := link.Attrs()
	status := StatusSatisfied
	if attrs.Flags&net.FlagUp == 0 {
		status = StatusUnsatisfied
	}
	return pathFor(status, attrs.Name, s.classify.Classify(attrs.Name))
}

func isDefaultRoute(route netlink.Route) bool {
	if route.Dst == nil {
		return true
	}
	ones, _ := route.Dst.Mask.Size()
	return ones == 0
}
