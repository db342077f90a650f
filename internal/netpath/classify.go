package netpath

import (
	"os"
	"path/filepath"
	"strings"
)

var kindByPrefix = []struct {
	prefix string
	kind   InterfaceKind
}{
	{"wlan", KindWifi},
	{"wlp", KindWifi},
	{"wlx", KindWifi},
	{"wifi", KindWifi},
	{"ath", KindWifi},
	{"wwan", KindCellular},
	{"wwp", KindCellular},
	{"rmnet", KindCellular},
	{"ccmni", KindCellular},
	{"eth", KindEthernet},
	{"en", KindEthernet},
	{"em", KindEthernet},
}

// kindFromName guesses the link kind from conventional interface name
// prefixes. It is the weakest signal the sources use, consulted only
// when the platform offers nothing better.
func kindFromName(name string) InterfaceKind {
	for _, p := range kindByPrefix {
		if strings.HasPrefix(name, p.prefix) {
			return p.kind
		}
	}
	return KindUnknown
}

// sysfsClassifier resolves link kinds from the kernel's view of the
// device. The root is /sys/class/net in production and a temp tree in
// tests.
type sysfsClassifier struct {
	root string
}

func newSysfsClassifier() *sysfsClassifier {
	return &sysfsClassifier{root: "/sys/class/net"}
}

// Classify inspects the sysfs entry for name. Wireless links also
// report ARPHRD_ETHER in the type file, so the wireless markers and the
// device DEVTYPE are checked before falling back to the type file.
func (c *sysfsClassifier) Classify(name string) InterfaceKind {
	base := filepath.Join(c.root, name)

	if _, err := os.Stat(filepath.Join(base, "wireless")); err == nil {
		return KindWifi
	}
	if _, err := os.Stat(filepath.Join(base, "phy80211")); err == nil {
		return KindWifi
	}
	// The netdev's own uevent carries DEVTYPE=wwan for mobile-broadband
	// links; the parent device uevent describes the bus device instead.
	if ueventDevtype(filepath.Join(base, "uevent")) == "wwan" {
		return KindCellular
	}
	if ueventDevtype(filepath.Join(base, "device", "uevent")) == "wwan" {
		return KindCellular
	}
	if kind := kindFromName(name); kind != KindUnknown {
		return kind
	}
	if raw, err := os.ReadFile(filepath.Join(base, "type")); err == nil {
		if strings.TrimSpace(string(raw)) == "1" {
			return KindEthernet
		}
	}
	return KindUnknown
}

func ueventDevtype(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(line, "DEVTYPE=") {
			return strings.TrimSpace(strings.TrimPrefix(line, "DEVTYPE="))
		}
	}
	return ""
}

// pathFor builds the Path reported for an active interface of the
// given kind. Exactly one Uses predicate is set for a known kind.
func pathFor(status Status, name string, kind InterfaceKind) Path {
	return Path{
		Status:       status,
		Interface:    name,
		UsesWifi:     kind == KindWifi,
		UsesCellular: kind == KindCellular,
		UsesEthernet: kind == KindEthernet,
	}
}
