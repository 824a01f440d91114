package pktsim

import (
	"github.com/stretchr/testify/require"
	"testing"
)

// baseTopoCfg builds a minimal two-host description the malformed-input
// tests each perturb in one way
func baseTopoCfg() *TopoCfg {
	tc := CreateTopoCfg("base")
	tc.AddNode("ha", "Host", "10.7.1.1", "10.7.1.0/24", false)
	tc.AddNode("hb", "Host", "10.7.2.1", "10.7.2.0/24", true)
	tc.AddLink("ha", "hb", 10.0, 100.0)
	tc.AddRoute("ha", "10.7.2.0", "255.255.255.0", "direct", "eth0", 1)
	return tc
}

func TestBuildTopology(t *testing.T) {
	topo := buildTopology(baseTopoCfg())

	require.Len(t, topo.nodes, 2)
	require.Len(t, topo.links, 1)

	ha := topo.nodeByName["ha"]
	hb := topo.nodeByName["hb"]
	require.Equal(t, hostCode, ha.kind)
	require.Same(t, ha, topo.nodeByAddr["10.7.1.1"])
	require.Same(t, ha, topo.nodeByID[ha.number])

	link := topo.linkBetween(ha.number, hb.number)
	require.NotNil(t, link)
	require.Equal(t, "ha-hb", link.name)
	require.Same(t, link, topo.linkBetween(hb.number, ha.number))
	require.Nil(t, topo.linkBetween(ha.number, ha.number))

	require.Equal(t, []int{ha.number}, topo.sourceIDs)
	require.Equal(t, []int{hb.number}, topo.destIDs)
}

func TestBuildTopologyRejectsDuplicateName(t *testing.T) {
	tc := baseTopoCfg()
	tc.AddNode("ha", "Host", "10.7.3.1", "10.7.3.0/24", false)
	require.Panics(t, func() { buildTopology(tc) })
}

func TestBuildTopologyRejectsDuplicateAddress(t *testing.T) {
	tc := baseTopoCfg()
	tc.AddNode("hc", "Host", "10.7.1.1", "10.7.1.0/24", false)
	require.Panics(t, func() { buildTopology(tc) })
}

func TestBuildTopologyRejectsUnknownKind(t *testing.T) {
	tc := baseTopoCfg()
	tc.AddNode("hc", "Hub", "10.7.3.1", "10.7.3.0/24", false)
	require.Panics(t, func() { buildTopology(tc) })
}

func TestBuildTopologyRejectsMalformedAddress(t *testing.T) {
	tc := baseTopoCfg()
	tc.AddNode("hc", "Host", "10.7.3", "10.7.3.0/24", false)
	require.Panics(t, func() { buildTopology(tc) })
}

func TestBuildTopologyRejectsUnknownLinkEndpoint(t *testing.T) {
	tc := baseTopoCfg()
	tc.AddLink("ha", "nosuch", 10.0, 100.0)
	require.Panics(t, func() { buildTopology(tc) })
}

func TestBuildTopologyRejectsNonPositiveLatency(t *testing.T) {
	tc := baseTopoCfg()
	tc.AddNode("hc", "Host", "10.7.3.1", "10.7.3.0/24", false)
	tc.AddLink("ha", "hc", 0.0, 100.0)
	require.Panics(t, func() { buildTopology(tc) })
}

func TestBuildTopologyRejectsDuplicateLink(t *testing.T) {
	tc := baseTopoCfg()
	tc.AddLink("ha", "hb", 15.0, 100.0)
	require.Panics(t, func() { buildTopology(tc) })

	// the reversed endpoint order is the same link
	tc = baseTopoCfg()
	tc.AddLink("hb", "ha", 15.0, 100.0)
	require.Panics(t, func() { buildTopology(tc) })
}

func TestBuildTopologyRejectsMalformedRoute(t *testing.T) {
	tc := baseTopoCfg()
	tc.AddRoute("hb", "not-a-prefix", "255.255.255.0", "direct", "eth0", 1)
	require.Panics(t, func() { buildTopology(tc) })
}

func TestNodeCodeStrings(t *testing.T) {
	require.Equal(t, hostCode, nodeCodeFromStr("Host"))
	require.Equal(t, hostCode, nodeCodeFromStr("host"))
	require.Equal(t, routerCode, nodeCodeFromStr("rtr"))
	require.Equal(t, unknownCode, nodeCodeFromStr("toaster"))

	require.Equal(t, "Switch", nodeCodeToStr(switchCode))
	require.Equal(t, "Unknown", nodeCodeToStr(unknownCode))
}
