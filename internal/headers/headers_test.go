package headers

import "testing"

func TestReadEthernetHeader(t *testing.T) {
	b := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, // dst
		0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, // src
		0x08, 0x00, // IPv4
	}
	h, ok := ReadEthernetHeader(b)
	if !ok {
		t.Fatal("expected ok")
	}
	if h.Dst.String() != "01:02:03:04:05:06" {
		t.Errorf("Dst = %v", h.Dst)
	}
	if h.Src.String() != "0a:0b:0c:0d:0e:0f" {
		t.Errorf("Src = %v", h.Src)
	}
	if h.EtherType != EthertypeIP4 {
		t.Errorf("EtherType = %#04x, want %#04x", h.EtherType, EthertypeIP4)
	}
}

func TestReadEthernetHeaderTooShort(t *testing.T) {
	if _, ok := ReadEthernetHeader(make([]byte, 10)); ok {
		t.Fatal("expected ok=false on short buffer")
	}
}

func TestReadIP4Header(t *testing.T) {
	b := make([]byte, IP4HeaderLen)
	b[0] = 0x45
	b[2], b[3] = 0x00, 0x3c // len = 60
	copy(b[12:16], []byte{192, 168, 1, 1})
	copy(b[16:20], []byte{192, 168, 1, 2})
	h, ok := ReadIP4Header(b)
	if !ok {
		t.Fatal("expected ok")
	}
	if h.Len() != 60 {
		t.Errorf("Len() = %d, want 60", h.Len())
	}
	if h.Src.String() != "192.168.1.1" || h.Dst.String() != "192.168.1.2" {
		t.Errorf("Src=%v Dst=%v", h.Src, h.Dst)
	}
}

func TestReadIP6Header(t *testing.T) {
	b := make([]byte, IP6HeaderLen)
	b[4], b[5] = 0x00, 0x20 // payload len = 32
	b[8+15] = 0x01          // src = ::1
	b[24+15] = 0x02         // dst = ::2
	h, ok := ReadIP6Header(b)
	if !ok {
		t.Fatal("expected ok")
	}
	if h.Len() != 32 {
		t.Errorf("Len() = %d, want 32", h.Len())
	}
	if h.Src.String() != "::0.0.0.1" || h.Dst.String() != "::0.0.0.2" {
		t.Errorf("Src=%v Dst=%v", h.Src, h.Dst)
	}
}

func TestReadRadiotapHeaderAndProfileA(t *testing.T) {
	radio := make([]byte, RadiotapHeaderLen+CommonALen)
	radio[0] = 0 // version
	radio[1] = 0 // pad
	totalLen := uint16(len(radio))
	radio[2] = byte(totalLen)
	radio[3] = byte(totalLen >> 8)
	present := uint32(ProfileCommonA)
	radio[4] = byte(present)
	radio[5] = byte(present >> 8)
	radio[6] = byte(present >> 16)
	radio[7] = byte(present >> 24)

	rh, ok := ReadRadiotapHeader(radio)
	if !ok {
		t.Fatal("expected ok")
	}
	if rh.ItPresent != ProfileCommonA {
		t.Fatalf("ItPresent = %#x, want %#x", rh.ItPresent, ProfileCommonA)
	}
	if !rh.HasField(PresentRate) {
		t.Fatal("expected PresentRate bit set")
	}

	body := radio[RadiotapHeaderLen:]
	body[9] = 2 // rate = 1 Mbps (2 * 500kbps)
	signal := int8(-70)
	body[14] = byte(signal)
	ca, ok := ReadCommonA(body)
	if !ok {
		t.Fatal("expected ok for CommonA")
	}
	if ca.RateIn500Kbps != 2 {
		t.Errorf("RateIn500Kbps = %d, want 2", ca.RateIn500Kbps)
	}
	if ca.AntennaSignal != -70 {
		t.Errorf("AntennaSignal = %d, want -70", ca.AntennaSignal)
	}
}

func TestFrameControlDecode(t *testing.T) {
	// protocol_version=0, frame_type=Data(2), frame_subtype=0 -> ty = 0b00001000
	fc := FrameControl{raw: 0b00001000, Flags: FlagToDS | FlagRetry}
	if fc.ProtocolVersion() != 0 {
		t.Errorf("ProtocolVersion = %d, want 0", fc.ProtocolVersion())
	}
	if fc.FrameType() != FrameTypeData {
		t.Errorf("FrameType = %v, want Data", fc.FrameType())
	}
	if !fc.ToDS() || !fc.Retry() {
		t.Error("expected ToDS and Retry flags set")
	}
	if fc.FromDS() || fc.MoreFrags() {
		t.Error("expected FromDS and MoreFrags unset")
	}
}

func TestFrameControlBogusProtocolVersion(t *testing.T) {
	fc := FrameControl{raw: 0b00000001}
	if fc.ProtocolVersion() == 0 {
		t.Fatal("expected non-zero protocol version")
	}
}

func TestReadDot11FullHeader(t *testing.T) {
	b := make([]byte, Dot11FullHeaderLen)
	b[0] = 0b00000000 // management frame
	copy(b[4:10], []byte{1, 1, 1, 1, 1, 1})
	copy(b[10:16], []byte{2, 2, 2, 2, 2, 2})
	copy(b[16:22], []byte{3, 3, 3, 3, 3, 3})
	h, ok := ReadDot11FullHeader(b)
	if !ok {
		t.Fatal("expected ok")
	}
	if h.Base.FC.FrameType() != FrameTypeManagement {
		t.Errorf("FrameType = %v, want Management", h.Base.FC.FrameType())
	}
	if h.Base.Addr1.String() != "01:01:01:01:01:01" {
		t.Errorf("Addr1 = %v", h.Base.Addr1)
	}
	if h.Addr2.String() != "02:02:02:02:02:02" || h.Addr3.String() != "03:03:03:03:03:03" {
		t.Errorf("Addr2=%v Addr3=%v", h.Addr2, h.Addr3)
	}
}

func TestReadDot11FullHeaderTooShort(t *testing.T) {
	if _, ok := ReadDot11FullHeader(make([]byte, 5)); ok {
		t.Fatal("expected ok=false on short buffer")
	}
}
