// Package netpath watches the operating system's network path and keeps a
// process-wide answer to two questions: is connectivity currently usable,
// and what category of interface carries it.
package netpath

// Status is the usability of a network path as reported by the platform.
type Status string

const (
	StatusSatisfied   Status = "satisfied"
	StatusUnsatisfied Status = "unsatisfied"
)

// Usable reports whether the path provides a usable route. Any status
// other than unsatisfied counts as usable, matching the platform
// semantics this package mirrors.
func (s Status) Usable() bool {
	return s != StatusUnsatisfied
}

// InterfaceKind is the category of the link carrying the active path.
type InterfaceKind string

const (
	KindWifi     InterfaceKind = "wifi"
	KindCellular InterfaceKind = "cellular"
	KindEthernet InterfaceKind = "ethernet"
	KindUnknown  InterfaceKind = "unknown"
)

// Path is a snapshot of the device's network path, delivered by a Source
// on every transition. The three Uses predicates come straight from the
// platform; a link may satisfy more than one of them.
type Path struct {
	Status    Status
	Interface string

	UsesWifi     bool
	UsesCellular bool
	UsesEthernet bool
}

// Kind classifies the path by testing the interface-type predicates in
// fixed priority order: wifi, then cellular, then ethernet. The first
// match wins; a path matching none of them is unknown. The ordering is
// part of the contract and must not change. Classification is
// independent of Status.
func (p Path) Kind() InterfaceKind {
	switch {
	case p.UsesWifi:
		return KindWifi
	case p.UsesCellular:
		return KindCellular
	case p.UsesEthernet:
		return KindEthernet
	}
	return KindUnknown
}

// State is the monitor's published view of the current path. It is
// immutable once published; readers always see a consistent pair of
// Connected and Kind taken from the same path update.
type State struct {
	Connected bool          `json:"connected"`
	Kind      InterfaceKind `json:"kind"`
	Interface string        `json:"interface,omitempty"`
}

// StateChange describes one observed transition. The initial snapshot a
// subscriber receives has Previous equal to Current.
type StateChange struct {
	Previous State `json:"previous"`
	Current  State `json:"current"`
}
