package parser

import (
	"testing"
	"time"

	"d3cap/internal/headers"
)

func buildEthernetIP4(t *testing.T) []byte {
	t.Helper()
	b := make([]byte, headers.EthernetHeaderLen+headers.IP4HeaderLen)
	copy(b[0:6], []byte{1, 1, 1, 1, 1, 1})  // dst
	copy(b[6:12], []byte{2, 2, 2, 2, 2, 2}) // src
	b[12], b[13] = 0x08, 0x00               // IPv4
	ip := b[headers.EthernetHeaderLen:]
	ip[0] = 0x45
	ip[2], ip[3] = 0x00, 0x28 // len = 40
	copy(ip[12:16], []byte{10, 0, 0, 1})
	copy(ip[16:20], []byte{10, 0, 0, 2})
	return b
}

func TestParseEthernetIP4EmitsMacThenIP4(t *testing.T) {
	b := buildEthernetIP4(t)
	var pkts []Pkt
	ParseEthernet(b, len(b), time.Time{}, func(p Pkt) { pkts = append(pkts, p) })
	if len(pkts) != 2 {
		t.Fatalf("got %d events, want 2", len(pkts))
	}
	if pkts[0].Kind != KindMac {
		t.Errorf("first event kind = %v, want Mac", pkts[0].Kind)
	}
	if pkts[0].Size != uint32(len(b)) {
		t.Errorf("Mac event size = %d, want %d", pkts[0].Size, len(b))
	}
	if pkts[1].Kind != KindIP4 {
		t.Errorf("second event kind = %v, want IP4", pkts[1].Kind)
	}
	if pkts[1].Size != 40 {
		t.Errorf("IP4 event size = %d, want 40", pkts[1].Size)
	}
	if pkts[1].IP4Src.String() != "10.0.0.1" || pkts[1].IP4Dst.String() != "10.0.0.2" {
		t.Errorf("IP4 src/dst = %v/%v", pkts[1].IP4Src, pkts[1].IP4Dst)
	}
}

func TestParseEthernetARPIgnored(t *testing.T) {
	b := make([]byte, headers.EthernetHeaderLen)
	b[12], b[13] = 0x08, 0x06 // ARP
	var pkts []Pkt
	ParseEthernet(b, len(b), time.Time{}, func(p Pkt) { pkts = append(pkts, p) })
	if len(pkts) != 1 || pkts[0].Kind != KindMac {
		t.Fatalf("expected only the Mac event for ARP, got %v", pkts)
	}
}

func TestParseEthernetUnknownEthertypeDropped(t *testing.T) {
	b := make([]byte, headers.EthernetHeaderLen)
	b[12], b[13] = 0xBE, 0xEF
	var pkts []Pkt
	ParseEthernet(b, len(b), time.Time{}, func(p Pkt) { pkts = append(pkts, p) })
	if len(pkts) != 1 {
		t.Fatalf("expected only the Mac event, got %d events", len(pkts))
	}
}

func TestParseEthernetTooShortEmitsNothing(t *testing.T) {
	var pkts []Pkt
	ParseEthernet(make([]byte, 4), 4, time.Time{}, func(p Pkt) { pkts = append(pkts, p) })
	if len(pkts) != 0 {
		t.Fatalf("expected no events for a too-short frame, got %d", len(pkts))
	}
}

func buildRadiotapFrame(t *testing.T, fc0 byte, present uint32, body []byte) []byte {
	t.Helper()
	rtLen := headers.RadiotapHeaderLen + len(body)
	dot11Len := headers.Dot11FullHeaderLen
	buf := make([]byte, rtLen+dot11Len)

	buf[2] = byte(rtLen)
	buf[3] = byte(rtLen >> 8)
	buf[4] = byte(present)
	buf[5] = byte(present >> 8)
	buf[6] = byte(present >> 16)
	buf[7] = byte(present >> 24)
	copy(buf[headers.RadiotapHeaderLen:rtLen], body)

	base := buf[rtLen:]
	base[0] = fc0
	copy(base[4:10], []byte{0xa1, 0xa1, 0xa1, 0xa1, 0xa1, 0xa1})
	copy(base[10:16], []byte{0xa2, 0xa2, 0xa2, 0xa2, 0xa2, 0xa2})
	copy(base[16:22], []byte{0xa3, 0xa3, 0xa3, 0xa3, 0xa3, 0xa3})
	return buf
}

func buildRadiotapManagement(t *testing.T, present uint32, body []byte) []byte {
	return buildRadiotapFrame(t, 0b00000000, present, body) // management, protocol version 0
}

func buildRadiotapData(t *testing.T, present uint32, body []byte) []byte {
	return buildRadiotapFrame(t, 0b00001000, present, body) // data, protocol version 0
}

func TestParseRadiotapManagementEmitsPhysData(t *testing.T) {
	body := make([]byte, headers.CommonALen)
	signal := int8(-55)
	body[14] = byte(signal) // antenna signal
	buf := buildRadiotapManagement(t, headers.ProfileCommonA, body)

	var phys []PhysData
	ParseRadiotap(buf, time.Time{}, func(Pkt) { t.Fatal("unexpected Mac event for management frame") }, func(p PhysData) {
		phys = append(phys, p)
	})
	if len(phys) != 1 {
		t.Fatalf("got %d phys events, want 1", len(phys))
	}
	if phys[0].Addrs[0].String() != "a1:a1:a1:a1:a1:a1" {
		t.Errorf("Addrs[0] = %v", phys[0].Addrs[0])
	}
	if phys[0].AntennaSignal != -55 {
		t.Errorf("AntennaSignal = %d, want -55", phys[0].AntennaSignal)
	}
	if phys[0].FrameType != headers.FrameTypeManagement {
		t.Errorf("FrameType = %v, want Management", phys[0].FrameType)
	}
}

func TestParseRadiotapDataEmitsMacAndPhysData(t *testing.T) {
	body := make([]byte, headers.CommonALen)
	signal := int8(-40)
	body[14] = byte(signal) // antenna signal
	buf := buildRadiotapData(t, headers.ProfileCommonA, body)

	var pkts []Pkt
	var phys []PhysData
	ParseRadiotap(buf, time.Time{},
		func(p Pkt) { pkts = append(pkts, p) },
		func(p PhysData) { phys = append(phys, p) })

	if len(pkts) != 1 {
		t.Fatalf("got %d Mac events, want 1", len(pkts))
	}
	if pkts[0].Kind != KindMac {
		t.Errorf("event kind = %v, want Mac", pkts[0].Kind)
	}
	if pkts[0].MacSrc.String() != "a1:a1:a1:a1:a1:a1" || pkts[0].MacDst.String() != "a2:a2:a2:a2:a2:a2" {
		t.Errorf("MacSrc/MacDst = %v/%v", pkts[0].MacSrc, pkts[0].MacDst)
	}

	if len(phys) != 1 {
		t.Fatalf("got %d phys events, want 1", len(phys))
	}
	if phys[0].FrameType != headers.FrameTypeData {
		t.Errorf("FrameType = %v, want Data", phys[0].FrameType)
	}
	if phys[0].AntennaSignal != -40 {
		t.Errorf("AntennaSignal = %d, want -40", phys[0].AntennaSignal)
	}
}

func TestParseRadiotapUnknownProfileDropsPhysDataOnly(t *testing.T) {
	body := make([]byte, headers.CommonALen)
	buf := buildRadiotapManagement(t, 0xdeadbeef, body)
	var phys []PhysData
	ParseRadiotap(buf, time.Time{}, func(Pkt) {}, func(p PhysData) { phys = append(phys, p) })
	if len(phys) != 0 {
		t.Fatalf("expected no phys event for unrecognized profile, got %d", len(phys))
	}
}

func TestParseRadiotapBogusProtocolVersionDropped(t *testing.T) {
	buf := buildRadiotapManagement(t, headers.ProfileCommonA, make([]byte, headers.CommonALen))
	base := buf[headers.RadiotapHeaderLen+headers.CommonALen:]
	base[0] |= 0b01 // non-zero protocol version
	var called bool
	ParseRadiotap(buf, time.Time{}, func(Pkt) { called = true }, func(PhysData) { called = true })
	if called {
		t.Fatal("expected bogus-protocol-version frame to be dropped entirely")
	}
}
