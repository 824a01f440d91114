package pktsim

// sim.go holds the Simulation struct that owns the topology, the set of
// in-flight packets, and the counters describing a run.  A Simulation is
// driven externally: some frame loop calls Update once per frame with
// the elapsed simulated time, and reads whatever node/link/packet state
// it wants to present afterward.  All mutation happens synchronously
// inside Update; there is no concurrency to guard against.

import (
	"fmt"
	"github.com/iti/rngstream"
	"gopkg.in/yaml.v3"
)

// routing protocol labels recognized in SimParams.  Only static
// forwarding is ever computed; the RIP and OSPF values are display
// labels carried through to the state description.
const (
	ProtocolStatic = iota
	ProtocolRIP
	ProtocolOSPF
)

// protocolToStr returns the display label for a protocol selector
func protocolToStr(protocol int) string {
	switch protocol {
	case ProtocolRIP:
		return "RIP"
	case ProtocolOSPF:
		return "OSPF"
	}

	return "static"
}

// defaultPacketGenRate is the generation rate used when none is configured
const defaultPacketGenRate = 2.0

// utilPerPacket is the utilization charged to a link for each packet
// occupying it during a tick, on a 0-100 scale
const utilPerPacket = 20.0

// maxUtilization caps a link's per-tick utilization snapshot
const maxUtilization = 100.0

// SimParams is the configuration bag accepted by Update.  A nil params
// argument leaves the previously applied values in place.
type SimParams struct {
	// packets generated per simulated second, > 0
	PacketGenRate float64 `json:"packetgenrate" yaml:"packetgenrate"`

	// ProtocolStatic, ProtocolRIP, or ProtocolOSPF.  Cosmetic except
	// for the label reported in the state description
	RoutingProtocol int `json:"routingprotocol" yaml:"routingprotocol"`

	// rendering hint carried for the display layer, no effect on forwarding
	ShowLayers bool `json:"showlayers" yaml:"showlayers"`
}

// DefaultSimParams returns the parameter values used before any Update
// supplies its own
func DefaultSimParams() *SimParams {
	return &SimParams{PacketGenRate: defaultPacketGenRate, RoutingProtocol: ProtocolStatic, ShowLayers: false}
}

// The Simulation struct owns everything one run of the packet-routing
// model touches.  Two Simulations share no mutable state, so they can be
// stepped independently (and tested in isolation).
type Simulation struct {
	name string

	// the description the topology is (re)built from at Init and Reset
	cfg *TopoCfg

	// run-time parameter assignments, re-applied on every rebuild
	expCfg *ExpCfg

	topo *Topology

	// in-flight packets.  A packet leaves this slice exactly once,
	// on delivery or drop, and is never mutated afterward
	pkts []*Packet

	params SimParams

	// simulated seconds since Init
	now float64

	// generator state: simulated seconds since the last emission
	sinceLastPkt float64

	rngstrm *rngstream.RngStream

	// counters reported through StateDescription
	nxtPktID  int
	generated int
	delivered int
	dropped   map[dropReason]int
	hopTotal  int // summed completed hops of delivered packets

	traceMgr *TraceManager
}

// CreateSimulation is a constructor.  The TopoCfg is retained so Reset
// can rebuild the topology from scratch; passing nil selects the
// classroom default topology.  The returned Simulation is initialized
// and ready for Update calls.
func CreateSimulation(name string, tc *TopoCfg) *Simulation {
	if tc == nil {
		tc = DefaultTopoCfg()
	}

	sim := new(Simulation)
	sim.name = name
	sim.cfg = tc
	sim.traceMgr = CreateTraceManager(name, false)
	sim.Init()

	return sim
}

// Init constructs the run-time topology from the stored description,
// verifies that every source host can reach every destination host,
// clears the packet set, and zeroes every counter.  A fresh random
// number stream is drawn for the generator.
func (sim *Simulation) Init() {
	sim.topo = buildTopology(sim.cfg)
	if sim.expCfg != nil {
		applyExpCfg(sim.expCfg, sim.topo)
	}
	sim.topo.checkConnectivity()

	if len(sim.topo.sourceIDs) == 0 || len(sim.topo.destIDs) == 0 {
		panic(fmt.Errorf("topology %s offers no source/destination host pair", sim.cfg.Name))
	}

	sim.pkts = make([]*Packet, 0)
	sim.params = *DefaultSimParams()
	sim.now = 0.0
	sim.sinceLastPkt = 0.0
	sim.rngstrm = rngstream.New(sim.name)
	sim.nxtPktID = 0
	sim.generated = 0
	sim.delivered = 0
	sim.dropped = make(map[dropReason]int)
	sim.hopTotal = 0

	sim.traceMgr.RecordNames(sim.topo)
}

// Reset is equivalent to re-running Init: the topology is rebuilt and
// every in-flight packet disappears.
func (sim *Simulation) Reset() {
	sim.Init()
}

// Destroy releases the held collections.  Update calls after Destroy
// are no-ops.
func (sim *Simulation) Destroy() {
	sim.topo = nil
	sim.pkts = nil
	sim.dropped = nil
	sim.rngstrm = nil
}

// Update advances the simulation by dt simulated seconds: maybe generate
// a packet, advance every in-flight packet independently, then recompute
// the per-link utilization snapshot from the surviving packet positions.
// Packet removals happen here and only here.
func (sim *Simulation) Update(dt float64, params *SimParams) {
	if sim.topo == nil {
		return
	}

	if params != nil {
		sim.params = *params
	}

	sim.now += dt

	sim.maybeGeneratePacket(dt)

	// each packet's transition depends only on its own state, so the
	// iteration order here is immaterial
	live := sim.pkts[:0]
	for _, pkt := range sim.pkts {
		outcome := sim.advancePacket(pkt, dt)
		switch outcome {
		case pktActive:
			live = append(live, pkt)
		case pktDelivered:
			sim.delivered += 1
			sim.hopTotal += pkt.hops()
			sim.logPktEvent(pkt, pkt.CurrentNode, "deliver", dropNone)
		case pktDropped:
			sim.dropped[pkt.dropCause] += 1
			sim.logPktEvent(pkt, pkt.CurrentNode, "drop", pkt.dropCause)
		}
	}
	// clear the tail so removed packets are not retained
	for idx := len(live); idx < len(sim.pkts); idx++ {
		sim.pkts[idx] = nil
	}
	sim.pkts = live

	sim.refreshUtilization()
}

// maybeGeneratePacket implements the fixed-rate generation policy: once
// the time since the last emission exceeds the generation period, one
// packet is created at a random non-destination host, addressed to a
// random destination host, and its first at-node decision runs
// immediately.
func (sim *Simulation) maybeGeneratePacket(dt float64) {
	sim.sinceLastPkt += dt

	rate := sim.params.PacketGenRate
	if rate <= 0.0 {
		return
	}
	if sim.sinceLastPkt <= 1.0/rate {
		return
	}
	sim.sinceLastPkt = 0.0

	src := sim.topo.nodeByID[sim.pickNodeID(sim.topo.sourceIDs)]
	dst := sim.topo.nodeByID[sim.pickNodeID(sim.topo.destIDs)]

	sim.nxtPktID += 1
	pkt := new(Packet)
	pkt.ID = sim.nxtPktID
	pkt.SrcAddr = src.addr
	pkt.DstAddr = dst.addr
	pkt.TTL = initialTTL
	pkt.CurrentNode = src.number
	pkt.Path = []int{src.number}
	pkt.Layer = "network"

	sim.generated += 1
	sim.logPktEvent(pkt, src.number, "generate", dropNone)

	// the first routing decision happens at generation time.  A source
	// with no usable route loses the packet the moment it is created
	sim.admitPacket(pkt)
}

// InjectPacket creates a packet at the node holding srcAddr, addressed
// to dstAddr, outside the generator's random policy.  Used by drivers
// that let a viewer launch a specific packet, and by tests that need a
// deterministic flow.  The returned pointer stays valid after the packet
// is delivered or dropped, since terminal packets are never mutated.
func (sim *Simulation) InjectPacket(srcAddr, dstAddr string) (*Packet, error) {
	if sim.topo == nil {
		return nil, fmt.Errorf("simulation %s is destroyed", sim.name)
	}
	src, present := sim.topo.nodeByAddr[srcAddr]
	if !present {
		return nil, fmt.Errorf("no node holds address %s", srcAddr)
	}

	sim.nxtPktID += 1
	pkt := new(Packet)
	pkt.ID = sim.nxtPktID
	pkt.SrcAddr = srcAddr
	pkt.DstAddr = dstAddr
	pkt.TTL = initialTTL
	pkt.CurrentNode = src.number
	pkt.Path = []int{src.number}
	pkt.Layer = "network"

	sim.generated += 1
	sim.logPktEvent(pkt, src.number, "generate", dropNone)
	sim.admitPacket(pkt)

	return pkt, nil
}

// admitPacket runs a fresh packet's first at-node decision and either
// places it in the active set or accounts for its immediate fate
func (sim *Simulation) admitPacket(pkt *Packet) {
	outcome := sim.enterNode(pkt)
	switch outcome {
	case pktActive:
		sim.pkts = append(sim.pkts, pkt)
	case pktDelivered:
		sim.delivered += 1
		sim.logPktEvent(pkt, pkt.CurrentNode, "deliver", dropNone)
	case pktDropped:
		sim.dropped[pkt.dropCause] += 1
		sim.logPktEvent(pkt, pkt.CurrentNode, "drop", pkt.dropCause)
	}
}

// NodeName resolves a node id from a packet path back to its name, or
// an empty string for an unknown id
func (sim *Simulation) NodeName(id int) string {
	if sim.topo == nil {
		return ""
	}
	node, present := sim.topo.nodeByID[id]
	if !present {
		return ""
	}
	return node.name
}

// LinkLoads reports every link's utilization snapshot keyed by link name
func (sim *Simulation) LinkLoads() map[string]float64 {
	loads := make(map[string]float64)
	if sim.topo == nil {
		return loads
	}
	for _, link := range sim.topo.links {
		loads[link.name] = link.utilization
	}
	return loads
}

// pickNodeID draws uniformly from a non-empty list of candidate node ids
func (sim *Simulation) pickNodeID(candidates []int) int {
	idx := int(sim.rngstrm.RandU01() * float64(len(candidates)))
	if idx >= len(candidates) {
		idx = len(candidates) - 1
	}
	return candidates[idx]
}

// refreshUtilization recomputes every link's utilization snapshot from
// scratch: zero everywhere, then a fixed charge per packet occupying the
// link, clamped to the scale maximum.  The snapshot never feeds back
// into forwarding.
func (sim *Simulation) refreshUtilization() {
	for _, link := range sim.topo.links {
		link.utilization = 0.0
	}

	for _, pkt := range sim.pkts {
		link := sim.topo.linkByID[pkt.linkID]
		link.utilization += utilPerPacket
		if link.utilization > maxUtilization {
			link.utilization = maxUtilization
		}
	}
}

// ActivePackets returns the in-flight packets, for a display layer to
// interpolate positions from.  Callers must not retain the slice across
// Update calls.
func (sim *Simulation) ActivePackets() []*Packet {
	return sim.pkts
}

// LinkUtilization reports the named link's current snapshot, or -1 if
// the endpoints name no link
func (sim *Simulation) LinkUtilization(fromName, toName string) float64 {
	from, presentA := sim.topo.nodeByName[fromName]
	to, presentB := sim.topo.nodeByName[toName]
	if !presentA || !presentB {
		return -1.0
	}
	link := sim.topo.linkBetween(from.number, to.number)
	if link == nil {
		return -1.0
	}
	return link.utilization
}

// A StateDescription summarizes a simulation for diagnostic or
// narration use
type StateDescription struct {
	Name          string  `json:"name" yaml:"name"`
	Nodes         int     `json:"nodes" yaml:"nodes"`
	Links         int     `json:"links" yaml:"links"`
	ActivePackets int     `json:"activepackets" yaml:"activepackets"`
	Generated     int     `json:"generated" yaml:"generated"`
	Delivered     int     `json:"delivered" yaml:"delivered"`
	NoRoute       int     `json:"noroute" yaml:"noroute"`
	LinkMissing   int     `json:"linkmissing" yaml:"linkmissing"`
	TTLExhausted  int     `json:"ttlexhausted" yaml:"ttlexhausted"`
	AvgHopCount   float64 `json:"avghopcount" yaml:"avghopcount"`
	Protocol      string  `json:"protocol" yaml:"protocol"`
}

// StateDescription builds the summary from the current counters.  The
// average hop count covers delivered packets only.
func (sim *Simulation) StateDescription() StateDescription {
	sd := StateDescription{Name: sim.name, Protocol: protocolToStr(sim.params.RoutingProtocol)}

	if sim.topo != nil {
		sd.Nodes = len(sim.topo.nodes)
		sd.Links = len(sim.topo.links)
	}

	sd.ActivePackets = len(sim.pkts)
	sd.Generated = sim.generated
	sd.Delivered = sim.delivered
	sd.NoRoute = sim.dropped[dropRouteUnresolved]
	sd.LinkMissing = sim.dropped[dropLinkMissing]
	sd.TTLExhausted = sim.dropped[dropTTLExhausted]

	if sim.delivered > 0 {
		sd.AvgHopCount = float64(sim.hopTotal) / float64(sim.delivered)
	}

	return sd
}

// Serialize renders the description as yaml for inclusion in logs or panels
func (sd *StateDescription) Serialize() string {
	bytes, merr := yaml.Marshal(*sd)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}
