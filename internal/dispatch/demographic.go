package dispatch

// DemographicKind names the class of delivery selector a Demographic holds.
type DemographicKind int

const (
	// GlobalSingle delivers to exactly one peer able to handle the event.
	GlobalSingle DemographicKind = iota
	// Local delivers only to this node, bypassing the broker entirely.
	Local
	// GlobalAll delivers to every peer bound to the event.
	GlobalAll
	// Node delivers to a single, explicitly named peer.
	Node
)

// Demographic selects which peers receive a triggered event. The zero value
// is GlobalSingle, the default demographic for a Trigger call.
type Demographic struct {
	kind   DemographicKind
	nodeID string
}

// LocalDemographic returns the LOCAL demographic.
func LocalDemographic() Demographic { return Demographic{kind: Local} }

// GlobalSingleDemographic returns the GLOBAL_SINGLE demographic.
func GlobalSingleDemographic() Demographic { return Demographic{kind: GlobalSingle} }

// GlobalAllDemographic returns the GLOBAL_ALL demographic.
func GlobalAllDemographic() Demographic { return Demographic{kind: GlobalAll} }

// ToNode returns a demographic addressing a single named node.
func ToNode(nodeID string) Demographic { return Demographic{kind: Node, nodeID: nodeID} }

// Kind reports which class of demographic this is.
func (d Demographic) Kind() DemographicKind { return d.kind }

// NodeID returns the target node identifier. Only meaningful when Kind() is
// Node.
func (d Demographic) NodeID() string { return d.nodeID }

// IsLocal reports whether this demographic bypasses the broker.
func (d Demographic) IsLocal() bool { return d.kind == Local }

func (d Demographic) String() string {
	switch d.kind {
	case Local:
		return "LOCAL"
	case GlobalSingle:
		return "GLOBAL_SINGLE"
	case GlobalAll:
		return "GLOBAL_ALL"
	case Node:
		return "node:" + d.nodeID
	default:
		return "unknown"
	}
}
