package netpath

import (
	"strings"

	"github.com/Masterminds/semver"
)

// minNetlinkKernel is the oldest kernel release whose rtnetlink
// multicast groups behave the way the netlink source expects.
var minNetlinkKernel = semver.MustParse("3.10.0")

// kernelSupportsNetlink reports whether the given uname release is new
// enough for the netlink source. Vendor suffixes such as the
// "-91-generic" in "5.15.0-91-generic" are stripped before parsing.
// Unparseable releases are assumed to be new enough.
func kernelSupportsNetlink(release string) bool {
	core := release
	if i := strings.IndexAny(core, "-+ "); i >= 0 {
		core = core[:i]
	}
	v, err := semver.NewVersion(core)
	if err != nil {
		return true
	}
	return !v.LessThan(minNetlinkKernel)
}
