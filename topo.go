package pktsim

// topo.go builds the run-time representation of the simulated network
// from its TopoCfg description.  All lookup maps are owned by a Topology
// value rather than package globals so that independent simulations can
// coexist, and so a Reset can throw the whole structure away and rebuild.

import (
	"fmt"
)

// nodeCode is the base type for an enumerated type of network devices
type nodeCode int

const (
	hostCode nodeCode = iota
	switchCode
	routerCode
	unknownCode
)

// nodeCodeFromStr returns the nodeCode corresponding to a string name for it
func nodeCodeFromStr(code string) nodeCode {
	switch code {
	case "Host", "host":
		return hostCode
	case "Switch", "switch":
		return switchCode
	case "Router", "router", "rtr":
		return routerCode
	default:
		return unknownCode
	}
}

// nodeCodeToStr returns a string corresponding to an input nodeCode for it
func nodeCodeToStr(code nodeCode) string {
	switch code {
	case hostCode:
		return "Host"
	case switchCode:
		return "Switch"
	case routerCode:
		return "Router"
	}

	return "Unknown"
}

type intPair struct {
	i, j int
}

// The nodeStruct holds the run-time representation of one network device.
// The routing table keeps its description order, which the lookup
// tie-break depends on.
type nodeStruct struct {
	name        string       // unique name
	number      int          // unique integer id, assigned at model-load time
	kind        nodeCode     // host, switch, or router
	addr        string       // network address in dotted-quad form
	addrNW      uint32       // the same address in numeric form
	subnet      string       // subnet the node belongs to, bookkeeping only
	destination bool         // whether generated packets may target this node
	groups      []string     // groups the node belongs to
	trace       bool         // switch for calling trace saving
	routes      []routeEntry // static routing table, order preserved
}

// The linkStruct holds the run-time representation of an undirected
// connection between two nodes.  utilization is a per-tick snapshot,
// recomputed from scratch by the simulation every Update.
type linkStruct struct {
	name        string  // derived from the endpoint names
	number      int     // unique integer id, assigned at model-load time
	endptA      int     // node id of one endpoint
	endptB      int     // node id of the other endpoint
	endptAName  string  // node name of one endpoint
	endptBName  string  // node name of the other endpoint
	latency     float64 // traversal time for a packet, in milliseconds
	bandwidth   float64 // capacity label, cosmetic
	utilization float64 // 0-100, recomputed every tick
	trace       bool    // switch for calling trace saving
}

// A Topology owns the node and link collections and the index maps that
// make lookup by id, name, address, or endpoint pair O(1).  Constructed
// once by buildTopology and read-only afterward (links' utilization and
// trace switches excepted).
type Topology struct {
	name string

	nodes []*nodeStruct
	links []*linkStruct

	nodeByID   map[int]*nodeStruct
	nodeByName map[string]*nodeStruct
	nodeByAddr map[string]*nodeStruct

	linkByID     map[int]*linkStruct
	linkByEndpts map[intPair]*linkStruct

	// adjacency lists by node id, feeds the min-hop oracle in paths.go
	edges map[int][]int

	// shortest-path machinery, built lazily, see paths.go
	pathCache *minHopCache

	// node ids of candidate packet sources and destinations
	sourceIDs []int
	destIDs   []int

	idCounter int
}

// nxtID creates an id unique within this topology
func (topo *Topology) nxtID() int {
	topo.idCounter += 1
	return topo.idCounter
}

// addNodeLookup puts a new entry in the by-id, by-name, and by-address
// maps, panicking on collisions.  Address and name collisions are model
// description errors we want surfaced at build time, not at forwarding time.
func (topo *Topology) addNodeLookup(node *nodeStruct) {
	_, present := topo.nodeByName[node.name]
	if present {
		panic(fmt.Errorf("node name %s over-used in topology %s", node.name, topo.name))
	}
	_, present = topo.nodeByAddr[node.addr]
	if present {
		panic(fmt.Errorf("address %s over-used in topology %s", node.addr, topo.name))
	}

	topo.nodeByID[node.number] = node
	topo.nodeByName[node.name] = node
	topo.nodeByAddr[node.addr] = node
}

// connectIds remembers the asserted communication linkage between
// nodes with the given id numbers through modification of the edges map
func (topo *Topology) connectIds(id1, id2 int) {
	// don't save connections to self if offered
	if id1 == id2 {
		return
	}

	present := false
	for _, peer := range topo.edges[id1] {
		if peer == id2 {
			present = true
			break
		}
	}
	if !present {
		topo.edges[id1] = append(topo.edges[id1], id2)
		topo.edges[id2] = append(topo.edges[id2], id1)
	}
}

// createNodeStruct is a constructor, building a nodeStruct from a desc
// description of the node
func (topo *Topology) createNodeStruct(nd *NodeDesc) *nodeStruct {
	node := new(nodeStruct)
	node.name = nd.Name
	node.number = topo.nxtID()

	node.kind = nodeCodeFromStr(nd.Kind)
	if node.kind == unknownCode {
		panic(fmt.Errorf("node %s has unrecognized kind %s", nd.Name, nd.Kind))
	}

	addrNW, err := addrToNW(nd.Address)
	if err != nil {
		panic(fmt.Errorf("node %s: %w", nd.Name, err))
	}
	node.addr = nd.Address
	node.addrNW = addrNW
	node.subnet = nd.Subnet
	node.destination = nd.Destination
	node.groups = nd.Groups

	node.routes = make([]routeEntry, 0, len(nd.Routes))
	for _, red := range nd.Routes {
		entry, rerr := createRouteEntry(&red)
		if rerr != nil {
			panic(fmt.Errorf("node %s: %w", nd.Name, rerr))
		}
		node.routes = append(node.routes, entry)
	}

	return node
}

// createLinkStruct is a constructor, building a linkStruct from a desc
// description of the link.  The named endpoints must already exist.
func (topo *Topology) createLinkStruct(ld *LinkDesc) *linkStruct {
	from, present := topo.nodeByName[ld.From]
	if !present {
		panic(fmt.Errorf("link endpoint %s not a known node", ld.From))
	}
	to, present := topo.nodeByName[ld.To]
	if !present {
		panic(fmt.Errorf("link endpoint %s not a known node", ld.To))
	}

	if ld.Latency <= 0.0 {
		panic(fmt.Errorf("link %s-%s has non-positive latency", ld.From, ld.To))
	}

	link := new(linkStruct)
	link.name = ld.From + "-" + ld.To
	link.number = topo.nxtID()
	link.endptA = from.number
	link.endptB = to.number
	link.endptAName = from.name
	link.endptBName = to.name
	link.latency = ld.Latency
	link.bandwidth = ld.Bandwidth
	link.utilization = 0.0

	return link
}

// buildTopology creates the run-time topology from its description.
// Malformed descriptions panic, the convention for model-load errors.
func buildTopology(tc *TopoCfg) *Topology {
	topo := new(Topology)
	topo.name = tc.Name

	topo.nodes = make([]*nodeStruct, 0, len(tc.Nodes))
	topo.links = make([]*linkStruct, 0, len(tc.Links))

	topo.nodeByID = make(map[int]*nodeStruct)
	topo.nodeByName = make(map[string]*nodeStruct)
	topo.nodeByAddr = make(map[string]*nodeStruct)

	topo.linkByID = make(map[int]*linkStruct)
	topo.linkByEndpts = make(map[intPair]*linkStruct)

	topo.edges = make(map[int][]int)

	for idx := range tc.Nodes {
		node := topo.createNodeStruct(&tc.Nodes[idx])
		topo.nodes = append(topo.nodes, node)
		topo.addNodeLookup(node)

		// seed the adjacency map so nodes without links still appear
		// in the connectivity graph
		topo.edges[node.number] = []int{}
	}

	for idx := range tc.Links {
		link := topo.createLinkStruct(&tc.Links[idx])

		key := intPair{i: link.endptA, j: link.endptB}
		_, present := topo.linkByEndpts[key]
		if !present {
			_, present = topo.linkByEndpts[intPair{i: link.endptB, j: link.endptA}]
		}
		if present {
			panic(fmt.Errorf("duplicated link %s", link.name))
		}

		topo.links = append(topo.links, link)
		topo.linkByID[link.number] = link
		topo.linkByEndpts[key] = link
		topo.connectIds(link.endptA, link.endptB)
	}

	topo.refreshCandidates()

	return topo
}

// refreshCandidates recomputes which hosts may originate and which may
// receive generated traffic.  Re-run after parameter application, which
// can flip a host's destination flag.
func (topo *Topology) refreshCandidates() {
	topo.sourceIDs = topo.sourceIDs[:0]
	topo.destIDs = topo.destIDs[:0]
	for _, node := range topo.nodes {
		if node.kind != hostCode {
			continue
		}
		if node.destination {
			topo.destIDs = append(topo.destIDs, node.number)
		} else {
			topo.sourceIDs = append(topo.sourceIDs, node.number)
		}
	}
}

// linkBetween answers the link connecting the two named node ids,
// in either endpoint order.  A nil return is a drop condition for the
// forwarding engine, never a crash.
func (topo *Topology) linkBetween(idA, idB int) *linkStruct {
	link, present := topo.linkByEndpts[intPair{i: idA, j: idB}]
	if !present {
		link, present = topo.linkByEndpts[intPair{i: idB, j: idA}]
		if !present {
			return nil
		}
	}
	return link
}
