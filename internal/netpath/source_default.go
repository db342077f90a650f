//go:build !linux && !darwin

package netpath

// NewSource returns the path source for platforms without a native
// change feed: the polling source at its default interval.
func NewSource() Source {
	return NewPollSource(0)
}
