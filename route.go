package pktsim

// route.go holds the routing table representation and the
// longest-prefix-match lookup the forwarding engine uses to pick a
// packet's next hop.

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// nextHopDirect is the routing table token meaning the destination is
// locally attached, so the next hop is the destination address itself
const nextHopDirect = "direct"

// addrToNW converts a dotted-quad address string to its numeric form
func addrToNW(addr string) (uint32, error) {
	fields := strings.Split(addr, ".")
	if len(fields) != 4 {
		return 0, fmt.Errorf("malformed address %s", addr)
	}

	var nw uint32 = 0
	for _, field := range fields {
		octet, err := strconv.Atoi(field)
		if err != nil || octet < 0 || octet > 255 {
			return 0, fmt.Errorf("malformed address %s", addr)
		}
		nw = nw<<8 | uint32(octet)
	}
	return nw, nil
}

// nwToAddr converts a numeric address back to its dotted-quad form
func nwToAddr(nw uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", nw>>24, (nw>>16)&0xff, (nw>>8)&0xff, nw&0xff)
}

// A routeEntry is the run-time form of one routing table row.  The
// prefix length is the number of set bits in the netmask, computed once
// at model-load time.
type routeEntry struct {
	network   uint32 // destination prefix
	netmask   uint32 // mask the prefix applies under
	prefixLen int    // set bits in netmask
	nextHop   string // address of the forwarding target, or nextHopDirect
	iface     string // cosmetic interface name
	metric    int    // route cost, reporting only
}

// createRouteEntry builds the run-time form of a routing table row from
// its description
func createRouteEntry(red *RouteEntryDesc) (routeEntry, error) {
	var entry routeEntry
	var err error

	entry.network, err = addrToNW(red.Network)
	if err != nil {
		return entry, err
	}
	entry.netmask, err = addrToNW(red.Netmask)
	if err != nil {
		return entry, err
	}
	entry.prefixLen = bits.OnesCount32(entry.netmask)

	if red.NextHop != nextHopDirect {
		// a concrete next hop has to at least parse as an address
		_, err = addrToNW(red.NextHop)
		if err != nil {
			return entry, err
		}
	}
	entry.nextHop = red.NextHop
	entry.iface = red.Iface
	entry.metric = red.Metric

	return entry, nil
}

// matches reports whether the destination address falls inside the
// entry's prefix
func (entry *routeEntry) matches(destNW uint32) bool {
	return (destNW & entry.netmask) == (entry.network & entry.netmask)
}

// lookupRoute performs the longest-prefix-match selection over an
// ordered routing table: among all entries whose prefix covers the
// destination, the one with the most set bits in its netmask wins.  A
// default route (0.0.0.0/0) covers everything with prefix length 0, so
// it is picked only when nothing more specific matches.  Two matching
// entries of equal, maximal prefix length are broken in favor of the one
// appearing earlier in the table, so table order is part of the routing
// policy.  The bool return is false
// when no entry matches at all, which the caller must treat as a drop.
func lookupRoute(table []routeEntry, destNW uint32) (*routeEntry, bool) {
	var best *routeEntry
	bestLen := -1

	for idx := range table {
		entry := &table[idx]
		if !entry.matches(destNW) {
			continue
		}
		// strict inequality keeps the earliest of equal-length matches
		if entry.prefixLen > bestLen {
			best = entry
			bestLen = entry.prefixLen
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}
