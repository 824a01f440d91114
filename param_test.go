package pktsim

import (
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func TestWildcardThenSpecificOrdering(t *testing.T) {
	sim := CreateSimulation("ordering", nil)

	// the specific assignment is added first, but application order puts
	// the wildcard before it, so the named link keeps its own value
	xc := CreateExpCfg("ordering")
	xc.AddParameter("Link", []AttrbStruct{{AttrbName: "name", AttrbValue: "host1-switch1"}},
		"latency", "10.0")
	xc.AddParameter("Link", []AttrbStruct{{AttrbName: "*", AttrbValue: ""}},
		"latency", "40.0")
	sim.ApplyExpCfg(xc)

	topo := sim.topo
	host1 := topo.nodeByName["host1"]
	switch1 := topo.nodeByName["switch1"]
	host2 := topo.nodeByName["host2"]

	require.Equal(t, 10.0, topo.linkBetween(host1.number, switch1.number).latency)
	require.Equal(t, 40.0, topo.linkBetween(host2.number, switch1.number).latency)
}

func TestDeviceAttributeMatchesEitherEndpoint(t *testing.T) {
	sim := CreateSimulation("device", nil)

	xc := CreateExpCfg("device")
	xc.AddParameter("Link", []AttrbStruct{{AttrbName: "device", AttrbValue: "switch1"}},
		"latency", "15.0")
	sim.ApplyExpCfg(xc)

	topo := sim.topo
	host1 := topo.nodeByName["host1"]
	switch1 := topo.nodeByName["switch1"]
	router1 := topo.nodeByName["router1"]
	router2 := topo.nodeByName["router2"]

	// switch1 appears as From on one link and To on another
	require.Equal(t, 15.0, topo.linkBetween(host1.number, switch1.number).latency)
	require.Equal(t, 15.0, topo.linkBetween(switch1.number, router1.number).latency)
	require.Equal(t, 50.0, topo.linkBetween(router1.number, router2.number).latency)
}

func TestNonPositiveLatencyAssignmentIgnored(t *testing.T) {
	sim := CreateSimulation("badlatency", nil)

	xc := CreateExpCfg("badlatency")
	xc.AddParameter("Link", []AttrbStruct{{AttrbName: "name", AttrbValue: "host1-switch1"}},
		"latency", "-5.0")
	sim.ApplyExpCfg(xc)

	topo := sim.topo
	host1 := topo.nodeByName["host1"]
	switch1 := topo.nodeByName["switch1"]
	require.Equal(t, 20.0, topo.linkBetween(host1.number, switch1.number).latency)
}

func TestDestinationFlipChangesGeneratorCandidates(t *testing.T) {
	sim := CreateSimulation("flip", nil)
	require.Len(t, sim.topo.sourceIDs, 2)
	require.Len(t, sim.topo.destIDs, 2)

	xc := CreateExpCfg("flip")
	xc.AddParameter("Node", []AttrbStruct{{AttrbName: "name", AttrbValue: "host2"}},
		"destination", "true")
	sim.ApplyExpCfg(xc)

	require.Len(t, sim.topo.sourceIDs, 1)
	require.Len(t, sim.topo.destIDs, 3)
}

func TestKindAndSubnetAttributeMatch(t *testing.T) {
	sim := CreateSimulation("kinds", nil)

	xc := CreateExpCfg("kinds")
	xc.AddParameter("Node", []AttrbStruct{{AttrbName: "kind", AttrbValue: "Router"}},
		"trace", "true")
	xc.AddParameter("Node", []AttrbStruct{{AttrbName: "subnet", AttrbValue: "192.168.1.0/24"}},
		"trace", "true")
	sim.ApplyExpCfg(xc)

	require.True(t, sim.topo.nodeByName["router2"].trace)
	require.True(t, sim.topo.nodeByName["host1"].trace)
	require.True(t, sim.topo.nodeByName["switch1"].trace)
	require.False(t, sim.topo.nodeByName["host3"].trace)
}

func TestLatencyAssignmentChangesTraversalTime(t *testing.T) {
	sim := CreateSimulation("slowlink", nil)

	// stretch every link so nothing can finish in the frames we run
	xc := CreateExpCfg("slowlink")
	xc.AddParameter("Link", []AttrbStruct{{AttrbName: "*", AttrbValue: ""}},
		"latency", "500.0")
	sim.ApplyExpCfg(xc)

	_, err := sim.InjectPacket("192.168.1.10", "192.168.2.20")
	require.NoError(t, err)
	stepTicks(sim, 40)

	sd := sim.StateDescription()
	require.Equal(t, 0, sd.Delivered)
	require.Equal(t, 1, sd.ActivePackets)
}

func TestExpCfgSurvivesReset(t *testing.T) {
	sim := CreateSimulation("survive", nil)

	xc := CreateExpCfg("survive")
	xc.AddParameter("Link", []AttrbStruct{{AttrbName: "name", AttrbValue: "host1-switch1"}},
		"latency", "75.0")
	sim.ApplyExpCfg(xc)
	sim.Reset()

	topo := sim.topo
	host1 := topo.nodeByName["host1"]
	switch1 := topo.nodeByName["switch1"]
	require.Equal(t, 75.0, topo.linkBetween(host1.number, switch1.number).latency)
}

func TestReorderStripsDuplicates(t *testing.T) {
	attrbs := []AttrbStruct{{AttrbName: "*", AttrbValue: ""}}
	params := []ExpParameter{
		{ParamObj: "Link", Attributes: attrbs, Param: "latency", Value: "25.0"},
		{ParamObj: "Link", Attributes: attrbs, Param: "latency", Value: "25.0"},
		{ParamObj: "Link", Attributes: attrbs, Param: "bandwidth", Value: "100.0"},
	}

	ordered := reorderExpParams(params)
	require.Len(t, ordered, 2)
}

func TestAddParameterRejectsUnknownObjectType(t *testing.T) {
	xc := CreateExpCfg("badobj")
	require.Panics(t, func() {
		xc.AddParameter("Switch", []AttrbStruct{}, "latency", "10.0")
	})
}

func TestExpCfgFileRoundTrip(t *testing.T) {
	xc := CreateExpCfg("roundtrip")
	xc.AddParameter("Node", []AttrbStruct{{AttrbName: "kind", AttrbValue: "Host"}},
		"trace", "true")
	xc.AddParameter("Link", []AttrbStruct{{AttrbName: "*", AttrbValue: ""}},
		"latency", "35.0")

	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "exp.yaml")
	require.NoError(t, xc.WriteToFile(yamlFile))
	fromYaml, err := ReadExpCfg(yamlFile, true, []byte{})
	require.NoError(t, err)
	require.Equal(t, xc.Name, fromYaml.Name)
	require.Equal(t, xc.Parameters, fromYaml.Parameters)

	jsonFile := filepath.Join(dir, "exp.json")
	require.NoError(t, xc.WriteToFile(jsonFile))
	fromJson, err := ReadExpCfg(jsonFile, false, []byte{})
	require.NoError(t, err)
	require.Equal(t, xc.Parameters, fromJson.Parameters)
}
