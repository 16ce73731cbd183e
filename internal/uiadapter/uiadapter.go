// Package uiadapter bridges the typed per-family route buses to the
// WebSocket server's JSON wire format: one forwarding goroutine per handler
// bus serializes each route delta and republishes it on the outgoing JSON
// multicast bus that feeds WebSocket subscribers.
package uiadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"d3cap/internal/alias"
	"d3cap/internal/graph"
	"d3cap/internal/handler"
	"d3cap/internal/multicast"
)

type endpointJSON struct {
	Addr string    `json:"addr"`
	Sent statsJSON `json:"sent"`
}

type statsJSON struct {
	Count uint64 `json:"count"`
	Size  uint64 `json:"size"`
}

type routeJSON struct {
	Typ   handler.Family `json:"typ"`
	Route struct {
		A endpointJSON `json:"a"`
		B endpointJSON `json:"b"`
	} `json:"route"`
}

// Forward starts a goroutine that subscribes to src, serializes every
// delta with fmtAddr as the family-appropriate address formatter, and
// publishes the JSON string on out. Returns the goroutine's stop function.
func Forward[A comparable](src *multicast.Bus[handler.RouteStatsMsg[A]], out *multicast.Bus[string], fmtAddr func(A) string, log *slog.Logger) (stop func(), err error) {
	sub, err := src.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("uiadapter: subscribe: %w", err)
	}
	log = log.With("component", "routes_ui")
	go func() {
		for msg := range sub.C {
			encoded, err := encodeRoute(msg, fmtAddr)
			if err != nil {
				log.Warn("encode route delta", "error", err)
				continue
			}
			if err := out.Publish(encoded); err != nil {
				return
			}
		}
	}()
	return sub.Unsubscribe, nil
}

func encodeRoute[A comparable](msg handler.RouteStatsMsg[A], fmtAddr func(A) string) (string, error) {
	var j routeJSON
	j.Typ = msg.Typ
	j.Route.A = toEndpointJSON(msg.Route.A, fmtAddr)
	j.Route.B = toEndpointJSON(msg.Route.B, fmtAddr)
	b, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toEndpointJSON[A comparable](ev graph.EndpointView[A], fmtAddr func(A) string) endpointJSON {
	return endpointJSON{
		Addr: fmtAddr(ev.Addr),
		Sent: statsJSON{Count: ev.Stats.Count, Size: ev.Stats.Size},
	}
}

// welcomeJSON is the payload of the one-time "welcome" message delivered to
// each new WebSocket subscriber before any deltas.
type welcomeJSON struct {
	Typ   string            `json:"typ"`
	Known map[string]string `json:"known_macs"`
}

// EncodeWelcome pre-encodes the known-macs alias table as the welcome JSON
// message, computed once at server startup.
func EncodeWelcome(macs alias.Map) (string, error) {
	known := make(map[string]string, macs.Len())
	for mac, name := range macs.All() {
		known[mac.String()] = name
	}
	b, err := json.Marshal(welcomeJSON{Typ: "welcome", Known: known})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
