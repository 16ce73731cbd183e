// Package graph maintains a directed per-address-family communication
// graph: total stats plus a sent/received breakdown per observed endpoint,
// guarded by a reader-writer lock so query access (the terminal's "ls"
// commands) never blocks the owning handler's writes for long.
package graph

import (
	"sync"
)

// Stats is a monotonically non-decreasing count/size pair.
type Stats struct {
	Count uint64
	Size  uint64
}

func (s Stats) add(size uint32) Stats {
	return Stats{Count: s.Count + 1, Size: s.Size + uint64(size)}
}

// AddrStats is one endpoint's aggregate: total sent/received plus the
// per-peer breakdown in both directions.
type AddrStats[A comparable] struct {
	Sent           Stats
	Received       Stats
	SentTo         map[A]Stats
	ReceivedFrom   map[A]Stats
}

func newAddrStats[A comparable]() *AddrStats[A] {
	return &AddrStats[A]{
		SentTo:       make(map[A]Stats),
		ReceivedFrom: make(map[A]Stats),
	}
}

// EndpointView is one side of a RouteStats pair: an address and the stats
// for traffic flowing from that address toward the other.
type EndpointView[A comparable] struct {
	Addr  A
	Stats Stats
}

// RouteStats is the delta emitted on every graph Update: a symmetric view
// of the edge between two addresses.
type RouteStats[A comparable] struct {
	A EndpointView[A]
	B EndpointView[A]
}

// Graph is a directed communication graph for one address family.
type Graph[A comparable] struct {
	mu     sync.RWMutex
	total  Stats
	addrs  map[A]*AddrStats[A]
}

// New creates an empty Graph.
func New[A comparable]() *Graph[A] {
	return &Graph[A]{addrs: make(map[A]*AddrStats[A])}
}

// Update applies one packet event (src, dst, size): it bumps the graph
// total, src's sent/sent-to-dst counters, and dst's received/received-from-
// src counters, inserting either endpoint on first sight, then returns the
// RouteStats delta for the (src, dst) edge.
func (g *Graph[A]) Update(src, dst A, size uint32) RouteStats[A] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.total = g.total.add(size)

	srcStats, ok := g.addrs[src]
	if !ok {
		srcStats = newAddrStats[A]()
		g.addrs[src] = srcStats
	}
	dstStats, ok := g.addrs[dst]
	if !ok {
		dstStats = newAddrStats[A]()
		g.addrs[dst] = dstStats
	}

	srcStats.Sent = srcStats.Sent.add(size)
	srcStats.SentTo[dst] = srcStats.SentTo[dst].add(size)

	dstStats.Received = dstStats.Received.add(size)
	dstStats.ReceivedFrom[src] = dstStats.ReceivedFrom[src].add(size)

	reverse := dstStats.SentTo[src] // zero value if dst never sent to src

	return RouteStats[A]{
		A: EndpointView[A]{Addr: src, Stats: srcStats.SentTo[dst]},
		B: EndpointView[A]{Addr: dst, Stats: reverse},
	}
}

// GetRouteStats returns the symmetric view of the edge between u and v, or
// ok=false if either endpoint has never been observed.
func (g *Graph[A]) GetRouteStats(u, v A) (RouteStats[A], bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	us, ok := g.addrs[u]
	if !ok {
		return RouteStats[A]{}, false
	}
	vs, ok := g.addrs[v]
	if !ok {
		return RouteStats[A]{}, false
	}
	return RouteStats[A]{
		A: EndpointView[A]{Addr: u, Stats: us.SentTo[v]},
		B: EndpointView[A]{Addr: v, Stats: vs.SentTo[u]},
	}, true
}

// GetAddrStats returns a copy of one endpoint's aggregate stats.
func (g *Graph[A]) GetAddrStats(a A) (AddrStats[A], bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.addrs[a]
	if !ok {
		return AddrStats[A]{}, false
	}
	sentTo := make(map[A]Stats, len(s.SentTo))
	for k, v := range s.SentTo {
		sentTo[k] = v
	}
	recvFrom := make(map[A]Stats, len(s.ReceivedFrom))
	for k, v := range s.ReceivedFrom {
		recvFrom[k] = v
	}
	return AddrStats[A]{
		Sent:         s.Sent,
		Received:     s.Received,
		SentTo:       sentTo,
		ReceivedFrom: recvFrom,
	}, true
}

// Total returns the graph-wide cumulative stats.
func (g *Graph[A]) Total() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.total
}

// Addrs returns every endpoint currently present in the graph.
func (g *Graph[A]) Addrs() []A {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]A, 0, len(g.addrs))
	for a := range g.addrs {
		out = append(out, a)
	}
	return out
}

// Len reports how many distinct endpoints the graph has observed.
func (g *Graph[A]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.addrs)
}
