//go:build darwin

package netpath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteSource_SubscribeCancel(t *testing.T) {
	s := NewRouteSource()

	sub, err := s.Subscribe()
	require.NoError(t, err)

	// The current path arrives before any routing message.
	select {
	case p, ok := <-sub.Paths():
		require.True(t, ok)
		assert.NotEmpty(t, p.Status)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial path")
	}

	// Cancel closes the socket under the read loop; the loop's own
	// close on exit must tolerate that.
	sub.Cancel()
	sub.Cancel() // safe to repeat

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.Paths():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for channel close")
		}
	}
}
