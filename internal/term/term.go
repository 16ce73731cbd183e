// Package term implements the interactive terminal: command dispatch for
// help/quit/ping/websocket/ls, styled with lipgloss in place of raw ANSI
// escape constants. The "watch" command listed in the help text is not
// dispatched here: cmd/d3cap parses it and runs internal/tui.
package term

import (
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"d3cap/internal/addr"
	"d3cap/internal/d3cap"
	"d3cap/internal/graph"
	"d3cap/internal/phys"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

const helpText = `commands:
  help, h                  show this message
  quit, q, exit             exit the terminal
  ping                      print pong
  websocket [port]          start the websocket server (default 7432)
  ls mac|ip4|ip6|tap        print the address-family graph or phys-data table
  watch mac|ip4|ip6|tap [interval]   live-refreshing view of the same data`

const defaultWebsocketPort = 7432

// reverseDNSCache memoizes net.LookupAddr results for "ls ip4"/"ls ip6"
// name substitution, so repeated renders of the same graph don't re-resolve
// the same addresses.
type reverseDNSCache struct {
	mu    sync.Mutex
	names map[string]string // "" means "looked up, no PTR record"
}

func newReverseDNSCache() *reverseDNSCache {
	return &reverseDNSCache{names: make(map[string]string)}
}

func (c *reverseDNSCache) lookup(ip string) string {
	c.mu.Lock()
	if name, ok := c.names[ip]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	names, err := net.LookupAddr(ip)
	name := ""
	if err == nil && len(names) > 0 {
		name = strings.TrimSuffix(names[0], ".")
	}
	c.mu.Lock()
	c.names[ip] = name
	c.mu.Unlock()
	return name
}

// Dispatch executes one command line against ctrl, writing output to w.
// Returns quit=true if the terminal loop should exit.
func Dispatch(line string, ctrl *d3cap.Controller, dns *reverseDNSCache, w io.Writer) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "help", "h":
		fmt.Fprintln(w, helpText)
	case "quit", "q", "exit":
		return true
	case "ping":
		fmt.Fprintln(w, "pong")
	case "websocket":
		port := defaultWebsocketPort
		if len(fields) > 1 {
			if p, err := strconv.Atoi(fields[1]); err == nil {
				port = p
			}
		}
		if err := ctrl.StartWebSocket(port); err != nil {
			fmt.Fprintln(w, "server already started")
		} else {
			fmt.Fprintf(w, "websocket server listening on 127.0.0.1:%d\n", port)
		}
	case "ls":
		if len(fields) < 2 {
			fmt.Fprintln(w, "usage: ls mac|ip4|ip6|tap")
			return false
		}
		renderLs(fields[1], ctrl, dns, w)
	default:
		fmt.Fprintf(w, "unknown command: %s (try \"help\")\n", fields[0])
	}
	return false
}

// NewDNSCache is exported so cmd/d3cap can share one cache across commands.
func NewDNSCache() *reverseDNSCache { return newReverseDNSCache() }

func renderLs(what string, ctrl *d3cap.Controller, dns *reverseDNSCache, w io.Writer) {
	switch what {
	case "mac":
		fmt.Fprintln(w, headerStyle.Render("mac graph"))
		renderEdges(w, ctrl.MacGraph().Graph(), func(a addr.Mac) string {
			if name, ok := ctrl.Aliases().Name(a); ok {
				return name
			}
			return a.String()
		})
	case "ip4":
		fmt.Fprintln(w, headerStyle.Render("ip4 graph"))
		renderEdges(w, ctrl.IP4Graph().Graph(), func(a addr.IP4) string {
			if name := dns.lookup(a.String()); name != "" {
				return name
			}
			return a.String()
		})
	case "ip6":
		fmt.Fprintln(w, headerStyle.Render("ip6 graph"))
		renderEdges(w, ctrl.IP6Graph().Graph(), func(a addr.IP6) string {
			if name := dns.lookup(a.String()); name != "" {
				return name
			}
			return a.String()
		})
	case "tap":
		fmt.Fprintln(w, headerStyle.Render("phys-data"))
		renderTap(w, ctrl)
	default:
		fmt.Fprintf(w, "unknown ls target: %s\n", what)
	}
}

type edgeRow[A comparable] struct {
	src, dst A
	stats    graph.Stats
}

// renderEdges prints every directed edge in g, sorted by count descending,
// in "src → dst: count: N, size: S" form.
func renderEdges[A comparable](w io.Writer, g *graph.Graph[A], name func(A) string) {
	var rows []edgeRow[A]
	for _, a := range g.Addrs() {
		as, ok := g.GetAddrStats(a)
		if !ok {
			continue
		}
		for dst, stats := range as.SentTo {
			rows = append(rows, edgeRow[A]{src: a, dst: dst, stats: stats})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].stats.Count > rows[j].stats.Count
	})
	for _, r := range rows {
		fmt.Fprintf(w, "%s → %s: count: %d, size: %d\n", name(r.src), name(r.dst), r.stats.Count, r.stats.Size)
	}
}

type tapRow struct {
	key  phys.Key
	val  phys.Val
	dist float64
}

// renderTap prints the phys-data table sorted by average distance
// ascending, so the nearest stations appear first.
func renderTap(w io.Writer, ctrl *d3cap.Controller) {
	agg := ctrl.PhysAggregator()
	var rows []tapRow
	for _, k := range agg.Keys() {
		v, ok := agg.Get(k)
		if !ok {
			continue
		}
		rows = append(rows, tapRow{key: k, val: v, dist: phys.AverageDistanceMeters(v)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].dist < rows[j].dist })
	for _, r := range rows {
		names := make([]string, 3)
		for i, a := range r.key.Addrs {
			if alias, ok := ctrl.Aliases().Name(a); ok {
				names[i] = alias
			} else {
				names[i] = a.String()
			}
		}
		fmt.Fprintf(w, "%-10s %s %s %s: count: %d, avg dist: %.2fm\n",
			r.key.FrameType, names[0], names[1], names[2], r.val.Count, r.dist)
	}
}
