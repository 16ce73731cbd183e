// Package tui implements the additive "watch" terminal command: a
// Bubble Tea program that re-renders one of the ls targets on a timer,
// grounded in the teacher's main.go (which builds a tea.Program over an
// alt screen and ticks on a configurable refresh interval) but using
// bubbles/table for the row grid instead of the teacher's raw
// fmt.Fprintf-column rendering in display.go.
package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"d3cap/internal/addr"
	"d3cap/internal/d3cap"
	"d3cap/internal/graph"
	"d3cap/internal/phys"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

// Target selects which ls-equivalent view the watch model renders.
type Target string

const (
	TargetMac Target = "mac"
	TargetIP4 Target = "ip4"
	TargetIP6 Target = "ip6"
	TargetTap Target = "tap"
)

type tickMsg time.Time

// Model is the Bubble Tea model driving `watch <target> [interval]`.
type Model struct {
	ctrl     *d3cap.Controller
	target   Target
	interval time.Duration
	table    table.Model
}

// New builds a watch Model for target, refreshing every interval.
func New(ctrl *d3cap.Controller, target Target, interval time.Duration) Model {
	t := table.New(
		table.WithColumns(columnsFor(target)),
		table.WithFocused(false),
	)
	t.SetStyles(table.Styles{
		Header: headerStyle,
		Cell:   lipgloss.NewStyle(),
	})
	return Model{ctrl: ctrl, target: target, interval: interval, table: t}
}

func columnsFor(target Target) []table.Column {
	if target == TargetTap {
		return []table.Column{
			{Title: "frame", Width: 12},
			{Title: "addr1", Width: 18},
			{Title: "addr2", Width: 18},
			{Title: "addr3", Width: 18},
			{Title: "count", Width: 8},
			{Title: "avg dist (m)", Width: 12},
		}
	}
	return []table.Column{
		{Title: "src", Width: 20},
		{Title: "dst", Width: 20},
		{Title: "count", Width: 10},
		{Title: "size", Width: 12},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick(m.interval))
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return m.rows()
	}
}

func (m Model) rows() []table.Row {
	if m.target == TargetTap {
		return tapRows(m.ctrl)
	}
	switch m.target {
	case TargetMac:
		return edgeRows(m.ctrl.MacGraph().Graph(), func(a addr.Mac) string {
			if name, ok := m.ctrl.Aliases().Name(a); ok {
				return name
			}
			return a.String()
		})
	case TargetIP4:
		return edgeRows(m.ctrl.IP4Graph().Graph(), func(a addr.IP4) string { return a.String() })
	case TargetIP6:
		return edgeRows(m.ctrl.IP6Graph().Graph(), func(a addr.IP6) string { return a.String() })
	default:
		return nil
	}
}

func edgeRows[A comparable](g *graph.Graph[A], name func(A) string) []table.Row {
	type edge struct {
		src, dst string
		stats    graph.Stats
	}
	var edges []edge
	for _, a := range g.Addrs() {
		as, ok := g.GetAddrStats(a)
		if !ok {
			continue
		}
		for dst, stats := range as.SentTo {
			edges = append(edges, edge{src: name(a), dst: name(dst), stats: stats})
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].stats.Count > edges[j].stats.Count })

	rows := make([]table.Row, len(edges))
	for i, e := range edges {
		rows[i] = table.Row{e.src, e.dst, fmt.Sprint(e.stats.Count), fmt.Sprint(e.stats.Size)}
	}
	return rows
}

func tapRows(ctrl *d3cap.Controller) []table.Row {
	agg := ctrl.PhysAggregator()
	type row struct {
		key  phys.Key
		val  phys.Val
		dist float64
	}
	var rows []row
	for _, k := range agg.Keys() {
		v, ok := agg.Get(k)
		if !ok {
			continue
		}
		rows = append(rows, row{key: k, val: v, dist: phys.AverageDistanceMeters(v)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].dist < rows[j].dist })

	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{
			r.key.FrameType.String(),
			r.key.Addrs[0].String(),
			r.key.Addrs[1].String(),
			r.key.Addrs[2].String(),
			fmt.Sprint(r.val.Count),
			fmt.Sprintf("%.2f", r.dist),
		}
	}
	return out
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.refresh(), tick(m.interval))
	case []table.Row:
		m.table.SetRows(msg)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return titleStyle.Render(fmt.Sprintf("watch %s", m.target)) + "\n" + m.table.View() + "\n(q to quit)\n"
}
