package netpath

import (
	"fmt"
	"os"

	"howett.net/plist"
)

// defaultProfilesPath is where macOS stores the hardware profile of
// every network interface it has seen, including its interface type.
const defaultProfilesPath = "/Library/Preferences/SystemConfiguration/NetworkInterfaces.plist"

type interfaceProfile struct {
	BSDName string `plist:"BSD Name"`
	Type    string `plist:"SCNetworkInterfaceType"`
}

type interfaceProfiles struct {
	Interfaces []interfaceProfile `plist:"Interfaces"`
}

// profileClassifier maps BSD interface names to link kinds using the
// system configuration profiles. BSD names alone are ambiguous on
// Darwin (en0 is Wi-Fi on laptops and wired on desktops), so the
// stored profile type is the only trustworthy signal.
type profileClassifier struct {
	kinds map[string]InterfaceKind
}

func loadProfileClassifier(path string) (*profileClassifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read interface profiles: %w", err)
	}

	var profiles interfaceProfiles
	if _, err := plist.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse interface profiles: %w", err)
	}

	kinds := make(map[string]InterfaceKind, len(profiles.Interfaces))
	for _, p := range profiles.Interfaces {
		if p.BSDName == "" {
			continue
		}
		kinds[p.BSDName] = kindFromProfileType(p.Type)
	}
	return &profileClassifier{kinds: kinds}, nil
}

func (c *profileClassifier) Classify(name string) InterfaceKind {
	if kind, ok := c.kinds[name]; ok {
		return kind
	}
	return KindUnknown
}

func kindFromProfileType(interfaceType string) InterfaceKind {
	switch interfaceType {
	case "IEEE80211":
		return KindWifi
	case "Cellular", "WWAN":
		return KindCellular
	case "Ethernet":
		return KindEthernet
	}
	return KindUnknown
}
