package pktsim

// forward.go implements the per-packet state machine that carries a
// packet hop by hop from its source host toward its destination.  A
// packet alternates between an at-node decision (pick the next hop from
// the current node's routing table) and transit along the chosen link.
// The decision for the next leg is made in the same tick the previous
// leg completes, so every live packet always occupies a link; any
// fraction of progress beyond the end of a link is discarded rather than
// carried into the next leg.

// initialTTL is the hop budget assigned to every generated packet
const initialTTL = 64

// msecPerSec scales a dt expressed in seconds against link latencies
// expressed in milliseconds: a packet needs latency milliseconds of
// simulated time to cross a link
const msecPerSec = 1000.0

// nextHopDrop is the sentinel recorded in a packet whose next hop could
// not be resolved
const nextHopDrop = "drop"

// dropReason is the base type for an enumerated type of causes for
// removing a packet short of delivery
type dropReason int

const (
	dropNone dropReason = iota
	dropRouteUnresolved
	dropLinkMissing
	dropTTLExhausted
)

// dropReasonToStr returns a string corresponding to an input dropReason
func dropReasonToStr(reason dropReason) string {
	switch reason {
	case dropRouteUnresolved:
		return "no route"
	case dropLinkMissing:
		return "link missing"
	case dropTTLExhausted:
		return "TTL exhausted"
	}

	return "none"
}

// pktOutcome reports what a tick of processing did with a packet
type pktOutcome int

const (
	pktActive pktOutcome = iota
	pktDelivered
	pktDropped
)

// The Packet struct is the run-time representation of one simulated
// datagram.  CurrentNode names the node the packet most recently
// departed from while Progress > 0; Path records every node visited so
// far, so its length is always one more than the number of completed hops.
type Packet struct {
	ID          int     // unique, monotonically assigned
	SrcAddr     string  // address of the originating host
	DstAddr     string  // address of the target host
	TTL         int     // remaining hop budget
	CurrentNode int     // id of the node occupied or departed from
	NextHopAddr string  // resolved next hop address, or nextHopDrop
	Progress    float64 // fraction of the current link traversed, in [0,1)
	Path        []int   // ordered node ids visited
	Layer       string  // cosmetic OSI layer tag, no forwarding semantics

	nextHopNode int // node id the current leg ends at
	linkID      int // id of the link being traversed
	dropCause   dropReason
}

// enterNode runs the at-node decision for a packet sitting on its
// CurrentNode: deliver if this is the destination, otherwise consult the
// node's routing table, resolve the next hop node by address, and find
// the link to it.  Lookup failures mark the packet dropped rather than
// panicking; an inconsistent table is the packet's problem, not the
// simulation's.
func (sim *Simulation) enterNode(pkt *Packet) pktOutcome {
	node := sim.topo.nodeByID[pkt.CurrentNode]

	if node.addr == pkt.DstAddr {
		return pktDelivered
	}

	destNW, err := addrToNW(pkt.DstAddr)
	if err != nil {
		// an unparsable destination can never match a table entry
		pkt.NextHopAddr = nextHopDrop
		pkt.dropCause = dropRouteUnresolved
		return pktDropped
	}

	entry, found := lookupRoute(node.routes, destNW)
	if !found {
		pkt.NextHopAddr = nextHopDrop
		pkt.dropCause = dropRouteUnresolved
		return pktDropped
	}

	// a direct route means the destination is locally attached;
	// the next hop is then the destination address itself
	nextHopAddr := entry.nextHop
	if nextHopAddr == nextHopDirect {
		nextHopAddr = pkt.DstAddr
	}

	// next hops are keyed by address, the one namespace routing tables
	// speak.  A next hop naming no known node is the same
	// table/topology inconsistency as a missing link
	nhNode, present := sim.topo.nodeByAddr[nextHopAddr]
	if !present {
		pkt.NextHopAddr = nextHopDrop
		pkt.dropCause = dropLinkMissing
		return pktDropped
	}

	link := sim.topo.linkBetween(node.number, nhNode.number)
	if link == nil {
		pkt.NextHopAddr = nextHopDrop
		pkt.dropCause = dropLinkMissing
		return pktDropped
	}

	pkt.NextHopAddr = nextHopAddr
	pkt.nextHopNode = nhNode.number
	pkt.linkID = link.number
	pkt.Progress = 0.0

	return pktActive
}

// advancePacket moves an in-transit packet along its link by one tick's
// worth of progress.  When the link is fully traversed the hop
// transition runs: the TTL is decremented exactly once, the packet
// either expires or takes up residence at the far end, and the at-node
// decision for the next leg runs immediately.
func (sim *Simulation) advancePacket(pkt *Packet, dt float64) pktOutcome {
	link := sim.topo.linkByID[pkt.linkID]
	pkt.Progress += dt * msecPerSec / link.latency

	if pkt.Progress < 1.0 {
		return pktActive
	}

	pkt.TTL -= 1
	if pkt.TTL <= 0 {
		// record the final hop before discarding
		pkt.CurrentNode = pkt.nextHopNode
		pkt.Path = append(pkt.Path, pkt.nextHopNode)
		pkt.Progress = 0.0
		pkt.dropCause = dropTTLExhausted
		return pktDropped
	}

	pkt.CurrentNode = pkt.nextHopNode
	pkt.Path = append(pkt.Path, pkt.nextHopNode)
	pkt.Progress = 0.0

	sim.logPktEvent(pkt, pkt.CurrentNode, "hop", dropNone)

	return sim.enterNode(pkt)
}

// hops returns the number of completed hop transitions the packet has made
func (pkt *Packet) hops() int {
	return len(pkt.Path) - 1
}
