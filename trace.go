package pktsim

// trace.go gathers per-packet events (generation, hops, deliveries,
// drops with their cause) for post-run analysis.  The manager is
// inactive by default: the simulation's drop semantics stay silent
// unless a caller switches tracing on.

import (
	"encoding/json"
	"github.com/iti/evt/vrtime"
	"gopkg.in/yaml.v3"
	"os"
	"path"
)

// A PktTrace records one event in a packet's passage through the network
type PktTrace struct {
	Time     float64 `json:"time" yaml:"time"`         // simulated time in seconds
	Ticks    int64   `json:"ticks" yaml:"ticks"`       // ticks variable of time
	Priority int64   `json:"priority" yaml:"priority"` // priority field of time-stamp
	PktID    int     `json:"pktid" yaml:"pktid"`       // packet the event belongs to
	NodeID   int     `json:"nodeid" yaml:"nodeid"`     // node where the event happened
	TTL      int     `json:"ttl" yaml:"ttl"`           // packet's remaining hop budget
	Op       string  `json:"op" yaml:"op"`             // "generate", "hop", "deliver", "drop"
	Reason   string  `json:"reason" yaml:"reason"`     // drop cause, "none" otherwise
}

// NameType is a an entry in a dictionary created for a trace
// that maps object id numbers to a (name,type) pair
type NameType struct {
	Name string
	Type string
}

// TraceManager gathers information about an execution of the simulation
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each objID
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, grouped by packet id
	Traces map[int][]PktTrace `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(ExpName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = ExpName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]PktTrace)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// SetActive switches trace gathering on or off
func (tm *TraceManager) SetActive(active bool) {
	tm.InUse = active
}

// AddTrace creates a record of the trace using its calling arguments, and stores it
func (tm *TraceManager) AddTrace(vrt vrtime.Time, pktID, nodeID, ttl int, op string, reason dropReason) {
	// return if we aren't using the trace manager
	if !tm.InUse {
		return
	}

	_, present := tm.Traces[pktID]
	if !present {
		tm.Traces[pktID] = make([]PktTrace, 0)
	}

	pt := PktTrace{Time: vrt.Seconds(), Ticks: vrt.Ticks(), Priority: vrt.Pri(),
		PktID: pktID, NodeID: nodeID, TTL: ttl, Op: op, Reason: dropReasonToStr(reason)}

	tm.Traces[pktID] = append(tm.Traces[pktID], pt)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if tm.InUse {
		_, present := tm.NameByID[id]
		if present {
			panic("duplicated id in AddName")
		}
		tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	}
}

// RecordNames rebuilds the id -> (name,type) dictionary from a freshly
// built topology.  Called on Init/Reset, when every object gets new ids.
// Runs even while the manager is inactive so that a trace switched on
// later still resolves names.
func (tm *TraceManager) RecordNames(topo *Topology) {
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]PktTrace)

	for _, node := range topo.nodes {
		tm.NameByID[node.number] = NameType{Name: node.name, Type: nodeCodeToStr(node.kind)}
	}
	for _, link := range topo.links {
		tm.NameByID[link.number] = NameType{Name: link.name, Type: "link"}
	}
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (tm *TraceManager) WriteToFile(filename string) bool {
	if !tm.InUse {
		return false
	}
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tm)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tm, "", "\t")
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
	return true
}

// TraceMgr exposes the simulation's trace manager so a driver can
// activate it or write its gathered records out
func (sim *Simulation) TraceMgr() *TraceManager {
	return sim.traceMgr
}

// logPktEvent saves a packet event, gated on the trace manager being
// active and on the trace switch of the node involved
func (sim *Simulation) logPktEvent(pkt *Packet, nodeID int, op string, reason dropReason) {
	if !sim.traceMgr.Active() {
		return
	}
	node, present := sim.topo.nodeByID[nodeID]
	if present && !node.trace {
		return
	}
	sim.traceMgr.AddTrace(vrtime.SecondsToTime(sim.now), pkt.ID, nodeID, pkt.TTL, op, reason)
}
