// Package handler implements the per-address-family protocol handler: a
// worker goroutine owning one graph and a dedicated outbound multicast bus
// of route deltas, plus the dispatcher that fans a single multi-family
// packet channel out to the three per-family handlers.
package handler

import (
	"log/slog"

	"d3cap/internal/addr"
	"d3cap/internal/graph"
	"d3cap/internal/multicast"
	"d3cap/internal/parser"
)

// Family names double as the JSON "typ" tag and the handler's log
// component name.
type Family string

const (
	FamilyMac Family = "mac"
	FamilyIP4 Family = "ip4"
	FamilyIP6 Family = "ip6"
)

// RouteStatsMsg is the message type published on a Handler's outbound bus.
type RouteStatsMsg[A comparable] struct {
	Typ   Family
	Route graph.RouteStats[A]
}

// Handler owns one ProtocolGraph and republishes a RouteStatsMsg for every
// update it applies.
type Handler[A comparable] struct {
	typ   Family
	graph *graph.Graph[A]
	bus   *multicast.Bus[RouteStatsMsg[A]]
	in    chan pktMeta[A]
	log   *slog.Logger
}

type pktMeta[A comparable] struct {
	src, dst A
	size     uint32
}

// New creates a Handler for family typ and starts its worker goroutine.
// bufSize sizes the input channel.
func New[A comparable](typ Family, bufSize int, log *slog.Logger) *Handler[A] {
	h := &Handler[A]{
		typ:   typ,
		graph: graph.New[A](),
		bus:   multicast.New[RouteStatsMsg[A]](64),
		in:    make(chan pktMeta[A], bufSize),
		log:   log.With("component", "protocol_handler", "family", string(typ)),
	}
	go h.run()
	return h
}

// Submit enqueues one packet event for processing. The input channel is
// generously buffered to approximate non-blocking delivery; Submit blocks
// only if that buffer is exhausted.
func (h *Handler[A]) Submit(src, dst A, size uint32) {
	h.in <- pktMeta[A]{src: src, dst: dst, size: size}
}

// Graph returns the handler's graph for read-only query access.
func (h *Handler[A]) Graph() *graph.Graph[A] { return h.graph }

// Bus returns the handler's outbound multicast bus of route deltas.
func (h *Handler[A]) Bus() *multicast.Bus[RouteStatsMsg[A]] { return h.bus }

// Close stops accepting new packets and shuts the handler's bus down.
func (h *Handler[A]) Close() {
	close(h.in)
}

func (h *Handler[A]) run() {
	defer h.bus.Close()
	for m := range h.in {
		route := h.graph.Update(m.src, m.dst, m.size)
		if err := h.bus.Publish(RouteStatsMsg[A]{Typ: h.typ, Route: route}); err != nil {
			h.log.Debug("publish after bus closed", "error", err)
		}
	}
}

// Dispatcher fans parser.Pkt events from a single multi-family channel into
// the three per-family handlers by Kind. Routing every family through one
// channel into one handler goroutine preserves per-family order; order
// across families is not guaranteed.
type Dispatcher struct {
	Mac *Handler[addr.Mac]
	IP4 *Handler[addr.IP4]
	IP6 *Handler[addr.IP6]

	in  chan parser.Pkt
	log *slog.Logger
}

// NewDispatcher wires three existing family handlers together behind one
// input channel.
func NewDispatcher(mac *Handler[addr.Mac], ip4 *Handler[addr.IP4], ip6 *Handler[addr.IP6], bufSize int, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		Mac: mac,
		IP4: ip4,
		IP6: ip6,
		in:  make(chan parser.Pkt, bufSize),
		log: log.With("component", "dispatcher"),
	}
	go d.run()
	return d
}

// Submit enqueues one parsed packet event for dispatch.
func (d *Dispatcher) Submit(p parser.Pkt) {
	d.in <- p
}

// Close stops the dispatcher; in-flight handlers are not closed by this
// call (their lifetime is owned by the controller).
func (d *Dispatcher) Close() {
	close(d.in)
}

func (d *Dispatcher) run() {
	for p := range d.in {
		switch p.Kind {
		case parser.KindMac:
			d.Mac.Submit(p.MacSrc, p.MacDst, p.Size)
		case parser.KindIP4:
			d.IP4.Submit(p.IP4Src, p.IP4Dst, p.Size)
		case parser.KindIP6:
			d.IP6.Submit(p.IP6Src, p.IP6Dst, p.Size)
		default:
			d.log.Warn("dropping packet with unknown kind", "kind", p.Kind)
		}
	}
}
