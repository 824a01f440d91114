package pktsim

import (
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func TestDefaultTopoCfgShape(t *testing.T) {
	tc := DefaultTopoCfg()

	require.Len(t, tc.Nodes, 9)
	require.Len(t, tc.Links, 9)

	kinds := map[string]int{}
	for _, nd := range tc.Nodes {
		kinds[nd.Kind] += 1
	}
	require.Equal(t, 4, kinds["Host"])
	require.Equal(t, 2, kinds["Switch"])
	require.Equal(t, 3, kinds["Router"])

	// every node carries at least one routing table row
	for _, nd := range tc.Nodes {
		require.NotEmpty(t, nd.Routes, "node %s has an empty table", nd.Name)
	}
}

func TestTopoCfgFileRoundTrip(t *testing.T) {
	tc := DefaultTopoCfg()
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "topo.yaml")
	require.NoError(t, tc.WriteToFile(yamlFile))
	fromYaml, err := ReadTopoCfg(yamlFile, true, []byte{})
	require.NoError(t, err)
	require.Equal(t, tc.Name, fromYaml.Name)
	require.Equal(t, tc.Nodes, fromYaml.Nodes)
	require.Equal(t, tc.Links, fromYaml.Links)

	jsonFile := filepath.Join(dir, "topo.json")
	require.NoError(t, tc.WriteToFile(jsonFile))
	fromJson, err := ReadTopoCfg(jsonFile, false, []byte{})
	require.NoError(t, err)
	require.Equal(t, tc.Nodes, fromJson.Nodes)

	// a round-tripped description builds and forwards like the original
	sim := CreateSimulation("roundtrip", fromYaml)
	pkt, ierr := sim.InjectPacket("192.168.1.10", "192.168.2.20")
	require.NoError(t, ierr)
	stepTicks(sim, 40)
	require.Equal(t, 6, pkt.hops())
}

func TestAddRouteToUnknownNodePanics(t *testing.T) {
	tc := CreateTopoCfg("badroute")
	tc.AddNode("only", "Host", "10.6.1.1", "10.6.1.0/24", false)
	require.Panics(t, func() {
		tc.AddRoute("nosuch", "0.0.0.0", "0.0.0.0", "10.6.1.1", "eth0", 1)
	})
}
