package netpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindFromName(t *testing.T) {
	tests := []struct {
		name string
		want InterfaceKind
	}{
		{"wlan0", KindWifi},
		{"wlp2s0", KindWifi},
		{"wlx001122334455", KindWifi},
		{"ath0", KindWifi},
		{"wwan0", KindCellular},
		{"wwp0s20f0u2", KindCellular},
		{"rmnet_data0", KindCellular},
		{"ccmni0", KindCellular},
		{"eth0", KindEthernet},
		{"enp3s0", KindEthernet},
		{"eno1", KindEthernet},
		{"em1", KindEthernet},
		{"lo", KindUnknown},
		{"tun0", KindUnknown},
		{"docker0", KindUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, kindFromName(tc.name))
		})
	}
}

// writeSysfsEntry builds a minimal /sys/class/net style entry for one
// interface under root. devtype, when set, lands in the netdev's own
// uevent the way the kernel publishes it.
func writeSysfsEntry(t *testing.T, root, name string, wireless bool, devtype, linkType string) {
	t.Helper()
	base := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(base, 0o755))

	uevent := ""
	if devtype != "" {
		uevent = "DEVTYPE=" + devtype + "\n"
	}
	uevent += "INTERFACE=" + name + "\nIFINDEX=2\n"
	require.NoError(t, os.WriteFile(filepath.Join(base, "uevent"), []byte(uevent), 0o644))

	if wireless {
		require.NoError(t, os.MkdirAll(filepath.Join(base, "wireless"), 0o755))
	}
	if linkType != "" {
		require.NoError(t, os.WriteFile(filepath.Join(base, "type"), []byte(linkType+"\n"), 0o644))
	}
}

// writeParentDevice attaches a bus-device uevent under <if>/device.
func writeParentDevice(t *testing.T, root, name, devtype string) {
	t.Helper()
	dir := filepath.Join(root, name, "device")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "DEVTYPE=" + devtype + "\nDRIVER=cdc_ncm\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uevent"), []byte(content), 0o644))
}

func TestSysfsClassifier_Classify(t *testing.T) {
	root := t.TempDir()
	c := &sysfsClassifier{root: root}

	// Wireless directory marks wifi even though the link type is ether.
	writeSysfsEntry(t, root, "wlp2s0", true, "", "1")
	assert.Equal(t, KindWifi, c.Classify("wlp2s0"))

	// mac80211 devices expose phy80211 even when the wireless dir is
	// absent; the name alone would classify as unknown.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mlan0", "phy80211"), 0o755))
	assert.Equal(t, KindWifi, c.Classify("mlan0"))

	// A wwan netdev marks cellular even though the parent bus device
	// reports its own DEVTYPE and the link type is ether.
	writeSysfsEntry(t, root, "usb0", false, "wwan", "1")
	writeParentDevice(t, root, "usb0", "usb_interface")
	assert.Equal(t, KindCellular, c.Classify("usb0"))

	// An ethernet-style name does not override the wwan DEVTYPE.
	writeSysfsEntry(t, root, "enx0a1b2c3d4e5f", false, "wwan", "1")
	assert.Equal(t, KindCellular, c.Classify("enx0a1b2c3d4e5f"))

	// The parent device uevent still counts when the netdev carries no
	// DEVTYPE of its own.
	writeSysfsEntry(t, root, "usb1", false, "", "1")
	writeParentDevice(t, root, "usb1", "wwan")
	assert.Equal(t, KindCellular, c.Classify("usb1"))

	// Plain ether link type.
	writeSysfsEntry(t, root, "br0", false, "", "1")
	assert.Equal(t, KindEthernet, c.Classify("br0"))

	// Non-ether link type with no other signal.
	writeSysfsEntry(t, root, "sit0", false, "", "776")
	assert.Equal(t, KindUnknown, c.Classify("sit0"))
}

func TestSysfsClassifier_NameFallback(t *testing.T) {
	// No sysfs entry at all: the name prefix is the only signal.
	c := &sysfsClassifier{root: t.TempDir()}

	assert.Equal(t, KindWifi, c.Classify("wlan1"))
	assert.Equal(t, KindEthernet, c.Classify("eth3"))
	assert.Equal(t, KindUnknown, c.Classify("tailscale0"))
}

func TestUeventDevtype(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uevent")

	require.NoError(t, os.WriteFile(path, []byte("MAJOR=189\nMINOR=0\nDEVTYPE=wwan\n"), 0o644))
	assert.Equal(t, "wwan", ueventDevtype(path))

	require.NoError(t, os.WriteFile(path, []byte("MAJOR=189\n"), 0o644))
	assert.Equal(t, "", ueventDevtype(path))

	assert.Equal(t, "", ueventDevtype(filepath.Join(dir, "missing")))
}

func TestPathFor(t *testing.T) {
	p := pathFor(StatusSatisfied, "wlan0", KindWifi)
	assert.True(t, p.UsesWifi)
	assert.False(t, p.UsesCellular)
	assert.False(t, p.UsesEthernet)
	assert.Equal(t, KindWifi, p.Kind())

	p = pathFor(StatusUnsatisfied, "gre0", KindUnknown)
	assert.False(t, p.UsesWifi)
	assert.False(t, p.UsesCellular)
	assert.False(t, p.UsesEthernet)
	assert.Equal(t, KindUnknown, p.Kind())
}
