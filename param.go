package pktsim

// param.go supports run-time configuration of topology objects.  An
// ExpCfg lists parameter assignments, each naming the object type it
// applies to, a set of attributes an object must match, the parameter,
// and its value.  Assignments are applied most-general-first: wildcard
// assignments land before attribute-matched ones, which land before
// assignments naming a specific object, so that a specific setting
// always overrides a broad default.

import (
	"encoding/json"
	"fmt"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
	"os"
	"path"
	"sort"
	"strconv"
)

// An AttrbStruct names an attribute and a value an object must carry
// for a parameter assignment to apply
type AttrbStruct struct {
	AttrbName  string `json:"attrbname" yaml:"attrbname"`
	AttrbValue string `json:"attrbvalue" yaml:"attrbvalue"`
}

// An ExpParameter is one configuration assignment
type ExpParameter struct {
	// object type the assignment applies to, "Node" or "Link"
	ParamObj string `json:"paramobj" yaml:"paramobj"`

	// attributes an object must match, all of them.  An attribute
	// named "*" matches every object of the type
	Attributes []AttrbStruct `json:"attributes" yaml:"attributes"`

	// parameter being set, e.g. "latency", "trace"
	Param string `json:"param" yaml:"param"`

	// value to assign, converted by type at application time
	Value string `json:"value" yaml:"value"`
}

// Eq reports whether two parameter assignments are identical, used to
// strip duplicates after ordering
func (epp *ExpParameter) Eq(other *ExpParameter) bool {
	if epp.ParamObj != other.ParamObj || epp.Param != other.Param || epp.Value != other.Value {
		return false
	}
	if len(epp.Attributes) != len(other.Attributes) {
		return false
	}
	for idx, attrb := range epp.Attributes {
		if attrb != other.Attributes[idx] {
			return false
		}
	}
	return true
}

// An ExpCfg gathers the parameter assignments for an experiment
type ExpCfg struct {
	// identifier for this configuration
	Name string `json:"name" yaml:"name"`

	Parameters []ExpParameter `json:"parameters" yaml:"parameters"`
}

// CreateExpCfg is an initialization constructor
func CreateExpCfg(name string) *ExpCfg {
	xc := new(ExpCfg)
	xc.Name = name
	xc.Parameters = make([]ExpParameter, 0)
	return xc
}

// AddParameter appends an assignment built from its parts
func (xc *ExpCfg) AddParameter(paramObj string, attributes []AttrbStruct, param, value string) {
	if paramObj != "Node" && paramObj != "Link" {
		panic(fmt.Errorf("surprise ParamObj %s", paramObj))
	}
	xc.Parameters = append(xc.Parameters,
		ExpParameter{ParamObj: paramObj, Attributes: attributes, Param: param, Value: value})
}

// WriteToFile stores the ExpCfg struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (xc *ExpCfg) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error = nil

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*xc)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*xc, "", "\t")
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

// ReadExpCfg deserializes a byte slice holding a representation of an ExpCfg struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.
func ReadExpCfg(filename string, useYAML bool, dict []byte) (*ExpCfg, error) {
	var err error

	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	example := ExpCfg{}

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

// A valueStruct holds the different types a parameter value might have;
// which one is meaningful is known from the parameter being set
type valueStruct struct {
	intValue    int
	floatValue  float64
	stringValue string
	boolValue   bool
}

// stringToValueStruct takes a string from a configuration file and
// determines whether it is an integer, floating point, boolean, or string
func stringToValueStruct(v string) valueStruct {
	vs := valueStruct{intValue: 0, floatValue: 0.0, stringValue: "", boolValue: false}

	// try conversion to int
	ivalue, ierr := strconv.Atoi(v)
	if ierr == nil {
		vs.intValue = ivalue
		vs.floatValue = float64(ivalue)
		return vs
	}

	// failing that, try conversion to float
	fvalue, ferr := strconv.ParseFloat(v, 64)
	if ferr == nil {
		vs.floatValue = fvalue
		return vs
	}

	// left with it being a string.  See if true, True
	if v == "true" || v == "True" {
		vs.boolValue = true
		return vs
	}

	vs.stringValue = v
	return vs
}

// the paramObj interface is satisfied by every topology object that can
// be configured at run time, here nodes and links
type paramObj interface {
	matchParam(string, string) bool
	setParam(string, valueStruct)
	paramObjName() string
}

// matchParam is used to determine whether a run-time parameter
// description should be applied to the node.  The testable attributes
// are the node's name, kind, address, subnet, and group membership.
func (node *nodeStruct) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "name":
		return node.name == attrbValue
	case "kind":
		return nodeCodeFromStr(attrbValue) == node.kind
	case "address":
		return node.addr == attrbValue
	case "subnet":
		return node.subnet == attrbValue
	case "group":
		return slices.Contains(node.groups, attrbValue)
	}

	// an error really, as we should match only the names given in the switch statement above
	return false
}

// setParam assigns the parameter named in input with the value given.
// A node accepts its trace switch and its destination flag.
func (node *nodeStruct) setParam(param string, value valueStruct) {
	switch param {
	case "trace":
		node.trace = value.boolValue
	case "destination":
		node.destination = value.boolValue
	}
}

// paramObjName helps nodeStruct satisfy the paramObj interface, returns the node's name
func (node *nodeStruct) paramObjName() string {
	return node.name
}

// matchParam is used to determine whether a run-time parameter
// description should be applied to the link.  The testable attributes
// are the link's name and either endpoint's node name.
func (link *linkStruct) matchParam(attrbName, attrbValue string) bool {
	switch attrbName {
	case "name":
		return link.name == attrbValue
	case "device":
		return link.endptAName == attrbValue || link.endptBName == attrbValue
	}

	// an error really, as we should match only the names given in the switch statement above
	return false
}

// setParam assigns the parameter named in input with the value given.
// A link accepts latency, bandwidth, and its trace switch.
func (link *linkStruct) setParam(param string, value valueStruct) {
	switch param {
	case "latency":
		// units of latency are milliseconds
		if value.floatValue > 0.0 {
			link.latency = value.floatValue
		}
	case "bandwidth":
		// units of bandwidth are Mbits/sec
		link.bandwidth = value.floatValue
	case "trace":
		link.trace = value.boolValue
	}
}

// paramObjName helps linkStruct satisfy the paramObj interface, returns the link's name
func (link *linkStruct) paramObjName() string {
	return link.name
}

// reorderExpParams puts parameter assignments into an order such that
// earlier elements have a broader range of application than later ones
// touching the same object: wildcard assignments first, then assignments
// matched on ordinary attributes, with assignments naming a specific
// object last.  This is the same idea as preferring the most specific
// routing rule, run in reverse so the specific assignment lands last.
func reorderExpParams(pL []ExpParameter) []ExpParameter {
	wc := []ExpParameter{}
	nm := []ExpParameter{}
	sg := []ExpParameter{}

	// assign wc, sg, or nm based on attribute
	for _, param := range pL {
		assigned := false

		for _, attrb := range param.Attributes {
			if attrb.AttrbName == "*" {
				wc = append(wc, param)
				assigned = true
				break
			} else if attrb.AttrbName == "name" {
				nm = append(nm, param)
				assigned = true
				break
			}
		}
		if !assigned {
			sg = append(sg, param)
		}
	}

	// bring identical elements together within each class so duplicates
	// can be detected and removed below
	byKey := func(list []ExpParameter) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].Param != list[j].Param {
				return list[i].Param < list[j].Param
			}
			return list[i].Value < list[j].Value
		}
	}
	sort.SliceStable(wc, byKey(wc))
	sort.SliceStable(sg, byKey(sg))
	sort.SliceStable(nm, byKey(nm))

	// pull them together with wc first, followed by sg, and finally nm
	wc = append(wc, sg...)
	wc = append(wc, nm...)

	// get rid of duplicates
	for idx := len(wc) - 1; idx > 0; idx = idx - 1 {
		if wc[idx].Eq(&wc[idx-1]) {
			wc = append(wc[:idx], wc[(idx+1):]...)
		}
	}

	return wc
}

// ApplyExpCfg applies the configuration's assignments to the
// simulation's current topology and retains the configuration so that
// Init and Reset re-apply it to the rebuilt one.
func (sim *Simulation) ApplyExpCfg(xc *ExpCfg) {
	sim.expCfg = xc
	if xc != nil && sim.topo != nil {
		applyExpCfg(xc, sim.topo)
	}
}

// applyExpCfg walks the ordered assignment list and applies each
// assignment to every object of its type whose attributes all match.
// An attribute named "*" overrides all others and matches everything.
func applyExpCfg(xc *ExpCfg, topo *Topology) {
	nodeParams := []ExpParameter{}
	linkParams := []ExpParameter{}

	for _, param := range xc.Parameters {
		switch param.ParamObj {
		case "Node":
			nodeParams = append(nodeParams, param)
		case "Link":
			linkParams = append(linkParams, param)
		default:
			panic(fmt.Errorf("surprise ParamObj %s", param.ParamObj))
		}
	}

	nodeParams = reorderExpParams(nodeParams)
	linkParams = reorderExpParams(linkParams)

	nodeList := []paramObj{}
	for _, node := range topo.nodes {
		nodeList = append(nodeList, node)
	}
	linkList := []paramObj{}
	for _, link := range topo.links {
		linkList = append(linkList, link)
	}

	apply := func(params []ExpParameter, testList []paramObj) {
		for _, param := range params {
			for _, testObj := range testList {
				var matched bool = true
				for _, attrb := range param.Attributes {
					// wild card matches the whole set
					if attrb.AttrbName == "*" {
						matched = true
						break
					}
					// if any of the attributes don't match we don't match
					if !testObj.matchParam(attrb.AttrbName, attrb.AttrbValue) {
						matched = false
						break
					}
				}

				if matched {
					vs := stringToValueStruct(param.Value)
					testObj.setParam(param.Param, vs)
				}
			}
		}
	}

	apply(nodeParams, nodeList)
	apply(linkParams, linkList)

	// a node parameter can flip a destination flag, so the generator's
	// candidate lists need recomputation
	topo.refreshCandidates()
}
