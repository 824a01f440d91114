package pktsim

// desc.go holds the serializable descriptions of a simulated network.
// Following the usual split, the *Desc structs are pointer-free so that
// they round-trip cleanly through yaml or json; the run-time structures
// built from them (see topo.go) hold pointers and index maps.

import (
	"encoding/json"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path"
)

// A RouteEntryDesc describes one row of a node's static routing table.
// The entry order in a NodeDesc matters: when two entries match a
// destination with equal prefix length, the earlier entry wins.
type RouteEntryDesc struct {
	// destination prefix, dotted quad, e.g. "192.168.2.0"
	Network string `json:"network" yaml:"network"`

	// netmask for the prefix, dotted quad, e.g. "255.255.255.0"
	Netmask string `json:"netmask" yaml:"netmask"`

	// address of the node to forward to, or the literal "direct"
	// when the destination is locally attached
	NextHop string `json:"nexthop" yaml:"nexthop"`

	// cosmetic interface name, e.g. "eth0"
	Iface string `json:"iface" yaml:"iface"`

	// route cost, reported but never used for entry selection
	Metric int `json:"metric" yaml:"metric"`
}

// A NodeDesc describes a host, switch, or router.
type NodeDesc struct {
	// unique name, e.g. "host1"
	Name string `json:"name" yaml:"name"`

	// device kind, one of "Host", "Switch", "Router"
	Kind string `json:"kind" yaml:"kind"`

	// network address of the node, dotted quad
	Address string `json:"address" yaml:"address"`

	// CIDR-style subnet the node belongs to, bookkeeping only
	Subnet string `json:"subnet" yaml:"subnet"`

	// whether generated packets may be addressed to this node
	Destination bool `json:"destination" yaml:"destination"`

	// groups the node belongs to, referenced by run-time parameters
	Groups []string `json:"groups" yaml:"groups"`

	// static routing table, order preserved
	Routes []RouteEntryDesc `json:"routes" yaml:"routes"`
}

// A LinkDesc describes an undirected connection between two named nodes.
type LinkDesc struct {
	// names of the endpoint nodes
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`

	// time (in milliseconds of simulated time) a packet takes to
	// traverse the link
	Latency float64 `json:"latency" yaml:"latency"`

	// capacity label (in Mbits/sec), cosmetic
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`
}

// A TopoCfg gathers all the descriptions needed to build a simulated network
type TopoCfg struct {
	// identifier for the topology
	Name string `json:"name" yaml:"name"`

	Nodes []NodeDesc `json:"nodes" yaml:"nodes"`
	Links []LinkDesc `json:"links" yaml:"links"`
}

// CreateTopoCfg is an initialization constructor.
func CreateTopoCfg(name string) *TopoCfg {
	tc := new(TopoCfg)
	tc.Name = name
	tc.Nodes = make([]NodeDesc, 0)
	tc.Links = make([]LinkDesc, 0)
	return tc
}

// AddNode appends a node description, giving it an empty routing table
// to be filled in by AddRoute calls.
func (tc *TopoCfg) AddNode(name, kind, address, subnet string, destination bool) {
	nd := NodeDesc{Name: name, Kind: kind, Address: address, Subnet: subnet,
		Destination: destination, Groups: []string{}, Routes: []RouteEntryDesc{}}
	tc.Nodes = append(tc.Nodes, nd)
}

// AddLink appends a link description between two named nodes.
func (tc *TopoCfg) AddLink(from, to string, latency, bandwidth float64) {
	tc.Links = append(tc.Links, LinkDesc{From: from, To: to, Latency: latency, Bandwidth: bandwidth})
}

// AddRoute appends a routing table row to the named node, preserving
// the order of the calls.  Panics if the node is unknown, a modeling
// error we want surfaced at build time.
func (tc *TopoCfg) AddRoute(node, network, netmask, nextHop, iface string, metric int) {
	for idx := range tc.Nodes {
		if tc.Nodes[idx].Name == node {
			red := RouteEntryDesc{Network: network, Netmask: netmask,
				NextHop: nextHop, Iface: iface, Metric: metric}
			tc.Nodes[idx].Routes = append(tc.Nodes[idx].Routes, red)
			return
		}
	}
	panic(fmt.Errorf("route added to unknown node %s", node))
}

// WriteToFile stores the TopoCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (tc *TopoCfg) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tc)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tc, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()

	return werr
}

// ReadTopoCfg deserializes a byte slice holding a representation of a TopoCfg struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.  A deserialized representation is returned, or an error if one is generated
// from a file read or the deserialization.
func ReadTopoCfg(filename string, useYAML bool, dict []byte) (*TopoCfg, error) {
	var err error

	// if the dict slice of bytes is empty we get them from the file whose name is an argument
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := TopoCfg{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}

// DefaultTopoCfg builds the classroom topology: two /24 subnets of two
// hosts each, a switch in front of each subnet, and three routers between
// them.  The static tables route subnet 1 to subnet 2 through all three
// routers; router1 carries two equal-length routes toward subnet 2 so the
// first-entry tie-break decides which middle router is actually used.
func DefaultTopoCfg() *TopoCfg {
	tc := CreateTopoCfg("classroom")

	tc.AddNode("host1", "Host", "192.168.1.10", "192.168.1.0/24", false)
	tc.AddNode("host2", "Host", "192.168.1.20", "192.168.1.0/24", false)
	tc.AddNode("host3", "Host", "192.168.2.10", "192.168.2.0/24", true)
	tc.AddNode("host4", "Host", "192.168.2.20", "192.168.2.0/24", true)
	tc.AddNode("switch1", "Switch", "192.168.1.1", "192.168.1.0/24", false)
	tc.AddNode("switch2", "Switch", "192.168.2.1", "192.168.2.0/24", false)
	tc.AddNode("router1", "Router", "10.0.0.1", "10.0.0.0/8", false)
	tc.AddNode("router2", "Router", "10.0.0.2", "10.0.0.0/8", false)
	tc.AddNode("router3", "Router", "10.0.0.3", "10.0.0.0/8", false)

	tc.AddLink("host1", "switch1", 20.0, 100.0)
	tc.AddLink("host2", "switch1", 20.0, 100.0)
	tc.AddLink("switch1", "router1", 30.0, 1000.0)
	tc.AddLink("router1", "router2", 50.0, 1000.0)
	tc.AddLink("router1", "router3", 50.0, 1000.0)
	tc.AddLink("router2", "router3", 50.0, 1000.0)
	tc.AddLink("router3", "switch2", 30.0, 1000.0)
	tc.AddLink("switch2", "host3", 20.0, 100.0)
	tc.AddLink("switch2", "host4", 20.0, 100.0)

	// hosts reach their own subnet directly and default to their switch
	tc.AddRoute("host1", "192.168.1.0", "255.255.255.0", "direct", "eth0", 1)
	tc.AddRoute("host1", "0.0.0.0", "0.0.0.0", "192.168.1.1", "eth0", 10)
	tc.AddRoute("host2", "192.168.1.0", "255.255.255.0", "direct", "eth0", 1)
	tc.AddRoute("host2", "0.0.0.0", "0.0.0.0", "192.168.1.1", "eth0", 10)
	tc.AddRoute("host3", "192.168.2.0", "255.255.255.0", "direct", "eth0", 1)
	tc.AddRoute("host3", "0.0.0.0", "0.0.0.0", "192.168.2.1", "eth0", 10)
	tc.AddRoute("host4", "192.168.2.0", "255.255.255.0", "direct", "eth0", 1)
	tc.AddRoute("host4", "0.0.0.0", "0.0.0.0", "192.168.2.1", "eth0", 10)

	// switches deliver their own subnet and hand everything else to a router
	tc.AddRoute("switch1", "192.168.1.0", "255.255.255.0", "direct", "port1", 1)
	tc.AddRoute("switch1", "0.0.0.0", "0.0.0.0", "10.0.0.1", "port2", 10)
	tc.AddRoute("switch2", "192.168.2.0", "255.255.255.0", "direct", "port1", 1)
	tc.AddRoute("switch2", "0.0.0.0", "0.0.0.0", "10.0.0.3", "port2", 10)

	// router1 has two routes toward subnet 2 with equal prefix length.
	// The via-router2 entry comes first, so it wins the tie-break even
	// though its metric is larger.
	tc.AddRoute("router1", "192.168.1.0", "255.255.255.0", "192.168.1.1", "ge0", 1)
	tc.AddRoute("router1", "192.168.2.0", "255.255.255.0", "10.0.0.2", "ge1", 3)
	tc.AddRoute("router1", "192.168.2.0", "255.255.255.0", "10.0.0.3", "ge2", 2)

	tc.AddRoute("router2", "192.168.1.0", "255.255.255.0", "10.0.0.1", "ge0", 2)
	tc.AddRoute("router2", "192.168.2.0", "255.255.255.0", "10.0.0.3", "ge1", 2)

	tc.AddRoute("router3", "192.168.1.0", "255.255.255.0", "10.0.0.1", "ge0", 2)
	tc.AddRoute("router3", "192.168.2.0", "255.255.255.0", "192.168.2.1", "ge1", 1)

	return tc
}
