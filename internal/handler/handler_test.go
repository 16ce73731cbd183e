package handler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"d3cap/internal/addr"
	"d3cap/internal/parser"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandlerUpdatesGraphAndPublishes(t *testing.T) {
	h := New[string](FamilyMac, 8, testLogger())
	defer h.Close()

	sub, err := h.Bus().Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	h.Submit("a", "b", 42)

	select {
	case msg := <-sub.C:
		if msg.Typ != FamilyMac {
			t.Errorf("Typ = %v, want mac", msg.Typ)
		}
		if msg.Route.A.Addr != "a" || msg.Route.A.Stats.Size != 42 {
			t.Errorf("Route = %+v", msg.Route)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for route delta")
	}

	as, ok := h.Graph().GetAddrStats("a")
	if !ok || as.Sent.Count != 1 {
		t.Fatalf("graph not updated: %+v ok=%v", as, ok)
	}
}

func TestDispatcherRoutesByKind(t *testing.T) {
	mac := New[addr.Mac](FamilyMac, 8, testLogger())
	ip4 := New[addr.IP4](FamilyIP4, 8, testLogger())
	ip6 := New[addr.IP6](FamilyIP6, 8, testLogger())
	defer mac.Close()
	defer ip4.Close()
	defer ip6.Close()

	d := NewDispatcher(mac, ip4, ip6, 8, testLogger())
	defer d.Close()

	src := addr.IP4{10, 0, 0, 1}
	dst := addr.IP4{10, 0, 0, 2}
	d.Submit(parser.Pkt{Kind: parser.KindIP4, IP4Src: src, IP4Dst: dst, Size: 64})

	deadline := time.After(time.Second)
	for {
		if as, ok := ip4.Graph().GetAddrStats(src); ok && as.Sent.Count == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for dispatch to reach the ip4 handler")
		case <-time.After(time.Millisecond):
		}
	}

	if _, ok := mac.Graph().GetAddrStats(addr.Mac{}); ok {
		t.Fatal("mac handler should not have received the ip4 packet")
	}
}
