package pktsim

// paths.go provides a minimum-hop path oracle over the topology graph.
// The approach converts the link set into the data structures of the
// gonum graph package, weights every edge by 1, and lets its Dijkstra
// implementation produce shortest-path trees, cached per source.  The
// static routing tables are what the forwarding engine actually follows;
// the oracle exists to validate connectivity at model-load time and to
// report how far a table-driven path strays from the minimum hop count.

import (
	"fmt"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"math"
	"strings"
)

// minHopCache holds the graph representation of a topology and the
// shortest-path trees computed so far
type minHopCache struct {
	gNodes    map[int]simple.Node
	connGraph graph.Graph
	spTrees   map[int]path.Shortest
}

// buildMinHopCache returns a graph.Graph data structure built from the
// topology's adjacency lists, wrapped with an empty tree cache
func buildMinHopCache(edges map[int][]int) *minHopCache {
	mhc := new(minHopCache)
	mhc.gNodes = make(map[int]simple.Node)
	mhc.spTrees = make(map[int]path.Shortest)

	connGraph := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for nodeID := range edges {
		_, present := mhc.gNodes[nodeID]
		if present {
			continue
		}
		mhc.gNodes[nodeID] = simple.Node(nodeID)
		connGraph.AddNode(mhc.gNodes[nodeID])
	}

	// transform the adjacency-list expression of edges into edges in
	// the graph module representation, every edge with weight 1
	for nodeID, edgeList := range edges {
		for _, nbrID := range edgeList {
			weightedEdge := simple.WeightedEdge{F: mhc.gNodes[nodeID], T: mhc.gNodes[nbrID], W: 1.0}
			connGraph.SetWeightedEdge(weightedEdge)
		}
	}
	mhc.connGraph = connGraph

	return mhc
}

// getSPTree returns the shortest path tree rooted in input argument 'from'.
// If the tree is found in the cache it is returned, if not it is computed,
// saved, and returned.
func (mhc *minHopCache) getSPTree(from int) path.Shortest {
	spTree, present := mhc.spTrees[from]
	if present {
		return spTree
	}

	spTree = path.DijkstraFrom(mhc.gNodes[from], mhc.connGraph)
	mhc.spTrees[from] = spTree

	return spTree
}

// convertNodeSeq extracts the topology node ids from a sequence of graph
// nodes (e.g. like a path) and returns that list
func convertNodeSeq(nsQ []graph.Node) []int {
	rtn := []int{}
	for _, node := range nsQ {
		rtn = append(rtn, int(node.ID()))
	}

	return rtn
}

// minHopRoute returns the minimum-hop path (as a sequence of node ids,
// source and destination inclusive) between the named nodes, or an empty
// list when no path exists.  If a tree rooted in the destination is
// already cached the symmetric path is used, reversed.
func (topo *Topology) minHopRoute(srcID, dstID int) []int {
	if topo.pathCache == nil {
		topo.pathCache = buildMinHopCache(topo.edges)
	}
	mhc := topo.pathCache

	spTree, present := mhc.spTrees[srcID]
	if present {
		nodeSeq, _ := spTree.To(int64(dstID))
		return convertNodeSeq(nodeSeq)
	}

	// a tree rooted in the destination serves by symmetry
	spTree, present = mhc.spTrees[dstID]
	if present {
		revNodeSeq, _ := spTree.To(int64(srcID))
		revRoute := convertNodeSeq(revNodeSeq)

		route := make([]int, 0, len(revRoute))
		for idx := len(revRoute) - 1; idx > -1; idx-- {
			route = append(route, revRoute[idx])
		}
		return route
	}

	spTree = mhc.getSPTree(srcID)
	nodeSeq, _ := spTree.To(int64(dstID))
	return convertNodeSeq(nodeSeq)
}

// MinHopCount reports the fewest hops between the named nodes, or -1
// when they are not connected.  Used by diagnostics to compare what the
// static tables actually do against the best the graph allows.
func (topo *Topology) MinHopCount(srcName, dstName string) int {
	src, presentA := topo.nodeByName[srcName]
	dst, presentB := topo.nodeByName[dstName]
	if !presentA || !presentB {
		return -1
	}
	if src.number == dst.number {
		return 0
	}

	route := topo.minHopRoute(src.number, dst.number)
	if len(route) == 0 {
		return -1
	}
	return len(route) - 1
}

// checkConnectivity verifies that the link graph connects every source
// host to every destination host.  A topology failing this check would
// silently eat every generated packet, so the failure is a model-load
// panic with a readable report rather than a run-time drop storm.
func (topo *Topology) checkConnectivity() {
	var untouched map[int][]int = make(map[int][]int)

	for _, srcID := range topo.sourceIDs {
		for _, dstID := range topo.destIDs {
			if srcID == dstID {
				continue
			}
			route := topo.minHopRoute(srcID, dstID)
			if len(route) == 0 {
				_, present := untouched[srcID]
				if !present {
					untouched[srcID] = []int{}
				}
				untouched[srcID] = append(untouched[srcID], dstID)
			}
		}
	}
	if len(untouched) == 0 {
		return
	}

	for srcID, missed := range untouched {
		srcName := topo.nodeByID[srcID].name
		mlist := []string{}
		for _, dstID := range missed {
			mlist = append(mlist, topo.nodeByID[dstID].name)
		}
		fmt.Printf("missing paths from %s to %s\n", srcName, strings.Join(mlist, ","))
	}
	panic(fmt.Errorf("missing connectivity"))
}
