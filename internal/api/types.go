package api

import "github.com/jmcardle/netpathd/internal/netpath"

// StatusResponse is the JSON document served by /status.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Kind      string `json:"kind"`
	Interface string `json:"interface,omitempty"`
}

func statusResponse(state netpath.State) StatusResponse {
	return StatusResponse{
		Connected: state.Connected,
		Kind:      string(state.Kind),
		Interface: state.Interface,
	}
}

// EventMessage is one state transition pushed over /ws/events. The
// first message on a connection is a snapshot with Previous equal to
// Current.
type EventMessage struct {
	Previous StatusResponse `json:"previous"`
	Current  StatusResponse `json:"current"`
}

func eventMessage(change netpath.StateChange) EventMessage {
	return EventMessage{
		Previous: statusResponse(change.Previous),
		Current:  statusResponse(change.Current),
	}
}
