package pktsim

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func mustEntry(t *testing.T, network, netmask, nextHop string, metric int) routeEntry {
	t.Helper()
	red := RouteEntryDesc{Network: network, Netmask: netmask, NextHop: nextHop, Iface: "eth0", Metric: metric}
	entry, err := createRouteEntry(&red)
	require.NoError(t, err)
	return entry
}

func mustAddr(t *testing.T, addr string) uint32 {
	t.Helper()
	nw, err := addrToNW(addr)
	require.NoError(t, err)
	return nw
}

func TestAddrConversion(t *testing.T) {
	nw := mustAddr(t, "192.168.1.10")
	require.Equal(t, uint32(0xc0a8010a), nw)
	require.Equal(t, "192.168.1.10", nwToAddr(nw))

	for _, bad := range []string{"", "300.1.1.1", "10.0.0", "10.0.0.0.0", "a.b.c.d", "10.-1.0.1"} {
		_, err := addrToNW(bad)
		require.Error(t, err, "address %q should not parse", bad)
	}
}

func TestLookupPrefersLongestPrefix(t *testing.T) {
	table := []routeEntry{
		mustEntry(t, "0.0.0.0", "0.0.0.0", "10.0.0.1", 10),
		mustEntry(t, "192.168.0.0", "255.255.0.0", "10.0.0.2", 5),
		mustEntry(t, "192.168.2.0", "255.255.255.0", "10.0.0.3", 1),
	}

	entry, found := lookupRoute(table, mustAddr(t, "192.168.2.20"))
	require.True(t, found)
	require.Equal(t, "10.0.0.3", entry.nextHop)

	// inside the /16 but outside the /24
	entry, found = lookupRoute(table, mustAddr(t, "192.168.9.1"))
	require.True(t, found)
	require.Equal(t, "10.0.0.2", entry.nextHop)

	// only the default route covers this one
	entry, found = lookupRoute(table, mustAddr(t, "172.16.0.1"))
	require.True(t, found)
	require.Equal(t, "10.0.0.1", entry.nextHop)
	require.Equal(t, 0, entry.prefixLen)
}

func TestLookupNotFound(t *testing.T) {
	table := []routeEntry{
		mustEntry(t, "192.168.1.0", "255.255.255.0", nextHopDirect, 1),
	}

	_, found := lookupRoute(table, mustAddr(t, "10.9.9.9"))
	require.False(t, found)

	_, found = lookupRoute(nil, mustAddr(t, "10.9.9.9"))
	require.False(t, found)
}

func TestLookupTieBreakIsFirstInserted(t *testing.T) {
	table := []routeEntry{
		mustEntry(t, "192.168.2.0", "255.255.255.0", "10.0.0.2", 3),
		mustEntry(t, "192.168.2.0", "255.255.255.0", "10.0.0.3", 1),
	}

	// the first-inserted entry wins every time, metric notwithstanding
	for trial := 0; trial < 100; trial++ {
		entry, found := lookupRoute(table, mustAddr(t, "192.168.2.20"))
		require.True(t, found)
		require.Equal(t, "10.0.0.2", entry.nextHop)
	}
}

func TestLookupDefaultOnlyWhenNothingMoreSpecific(t *testing.T) {
	table := []routeEntry{
		mustEntry(t, "0.0.0.0", "0.0.0.0", "10.0.0.1", 10),
		mustEntry(t, "10.1.0.0", "255.255.0.0", "10.0.0.2", 2),
	}

	entry, found := lookupRoute(table, mustAddr(t, "10.1.3.4"))
	require.True(t, found)
	require.Equal(t, "10.0.0.2", entry.nextHop)

	entry, found = lookupRoute(table, mustAddr(t, "10.2.3.4"))
	require.True(t, found)
	require.Equal(t, "10.0.0.1", entry.nextHop)
}

func TestCreateRouteEntryRejectsMalformedRows(t *testing.T) {
	bad := []RouteEntryDesc{
		{Network: "bogus", Netmask: "255.255.255.0", NextHop: "10.0.0.1"},
		{Network: "192.168.1.0", Netmask: "255.255.255.256", NextHop: "10.0.0.1"},
		{Network: "192.168.1.0", Netmask: "255.255.255.0", NextHop: "not-an-address"},
	}
	for idx := range bad {
		_, err := createRouteEntry(&bad[idx])
		require.Error(t, err)
	}

	// the direct token is not an address but is always legal
	red := RouteEntryDesc{Network: "192.168.1.0", Netmask: "255.255.255.0", NextHop: nextHopDirect}
	entry, err := createRouteEntry(&red)
	require.NoError(t, err)
	require.Equal(t, 24, entry.prefixLen)
}
