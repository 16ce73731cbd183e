// Package headers reads fixed wire-format layouts — Ethernet, IPv4, IPv6,
// Radiotap, and 802.11 — directly off byte slices with encoding/binary,
// walking explicit offsets rather than reinterpreting memory unsafely.
package headers

import (
	"encoding/binary"

	"d3cap/internal/addr"
)

// Ethertype constants are stored in wire byte order (big-endian on the
// wire, read back here as the raw 16-bit value seen in the header) so a
// direct equality check against a parsed header's EtherType field requires
// no byteswap.
const (
	EthertypeARP    uint16 = 0x0806
	EthertypeIP4    uint16 = 0x0800
	EthertypeIP6    uint16 = 0x86DD
	Ethertype8021X  uint16 = 0x888E
)

// EthernetHeaderLen is sizeof(EthernetHeader): 6 + 6 + 2 bytes.
const EthernetHeaderLen = 14

// EthernetHeader is the 14-byte Ethernet II header.
type EthernetHeader struct {
	Dst      addr.Mac
	Src      addr.Mac
	EtherType uint16 // network byte order value, compare directly to the Ethertype* constants
}

// ReadEthernetHeader parses the header at the start of b. Returns ok=false
// if b is too short.
func ReadEthernetHeader(b []byte) (EthernetHeader, bool) {
	if len(b) < EthernetHeaderLen {
		return EthernetHeader{}, false
	}
	return EthernetHeader{
		Dst:       addr.MacFromBytes(b[0:6]),
		Src:       addr.MacFromBytes(b[6:12]),
		EtherType: binary.BigEndian.Uint16(b[12:14]),
	}, true
}

// IP4HeaderLen is sizeof(IP4Header) without options.
const IP4HeaderLen = 20

// IP4Header holds the fields actually used downstream: src, dst, and the
// total-length field (decoded from its big-endian wire bytes).
type IP4Header struct {
	Src    addr.IP4
	Dst    addr.IP4
	LenRaw uint16 // already decoded from big-endian wire bytes; Len() returns the same value
}

// Len returns the IPv4 total-length field in host byte order.
func (h IP4Header) Len() uint16 { return binary.BigEndian.Uint16([]byte{byte(h.LenRaw >> 8), byte(h.LenRaw)}) }

// ReadIP4Header parses the header at the start of b.
func ReadIP4Header(b []byte) (IP4Header, bool) {
	if len(b) < IP4HeaderLen {
		return IP4Header{}, false
	}
	return IP4Header{
		LenRaw: binary.BigEndian.Uint16(b[2:4]),
		Src:    addr.IP4FromBytes(b[12:16]),
		Dst:    addr.IP4FromBytes(b[16:20]),
	}, true
}

// IP6HeaderLen is sizeof(IP6Header).
const IP6HeaderLen = 40

// IP6Header holds the fields actually used downstream.
type IP6Header struct {
	Src    addr.IP6
	Dst    addr.IP6
	LenRaw uint16 // payload length, already decoded from big-endian wire bytes
}

// Len returns the IPv6 payload-length field in host byte order.
func (h IP6Header) Len() uint16 { return h.LenRaw }

// ReadIP6Header parses the header at the start of b.
func ReadIP6Header(b []byte) (IP6Header, bool) {
	if len(b) < IP6HeaderLen {
		return IP6Header{}, false
	}
	return IP6Header{
		LenRaw: binary.BigEndian.Uint16(b[4:6]),
		Src:    addr.IP6FromBytes(b[8:24]),
		Dst:    addr.IP6FromBytes(b[24:40]),
	}, true
}

// RadiotapHeaderLen is sizeof(RadiotapHeader): version(1) + pad(1) + len(2) + present(4).
const RadiotapHeaderLen = 8

// RadiotapHeader is the fixed prefix of every radiotap capture; ItLen gives
// the true length of the full (possibly larger, namespace-extended) header,
// which callers must use to locate the 802.11 base header rather than
// assuming RadiotapHeaderLen.
type RadiotapHeader struct {
	ItVersion uint8
	ItPad     uint8
	ItLen     uint16 // little-endian on the wire
	ItPresent uint32 // little-endian on the wire; bitmask, see Present* constants
}

// Present bitmask positions, named after radiotap's field-presence bits.
const (
	PresentTSFT           = 1 << 0
	PresentFlags          = 1 << 1
	PresentRate           = 1 << 2
	PresentChannel        = 1 << 3
	PresentFHSS           = 1 << 4
	PresentAntennaSignal  = 1 << 5
	PresentAntennaNoise   = 1 << 6
	PresentLockQuality    = 1 << 7
	PresentTxAttenuation  = 1 << 8
	PresentDBTxAtten      = 1 << 9
	PresentDBMTxPower     = 1 << 10
	PresentAntenna        = 1 << 11
	PresentDBAntennaSig   = 1 << 12
	PresentDBAntennaNoise = 1 << 13
	PresentRxFlags        = 1 << 14
	PresentMCS            = 1 << 19
	PresentAMPDUStatus    = 1 << 20
	PresentVHT            = 1 << 21
	PresentMoreItPresent  = 1 << 31

	// ProfileCommonA is the "has rate" profile from the original capture
	// tool's fixed set of recognized it_present values.
	ProfileCommonA = PresentTSFT | PresentFlags | PresentRate | PresentChannel |
		PresentAntennaSignal | PresentAntennaNoise | PresentAntenna

	// ProfileCommonB is the "has MCS, no rate" profile.
	ProfileCommonB = PresentTSFT | PresentFlags | PresentChannel |
		PresentAntennaSignal | PresentAntennaNoise | PresentAntenna | PresentMCS
)

// HasField reports whether bit is set in the header's present bitmask.
func (h RadiotapHeader) HasField(bit uint32) bool {
	return h.ItPresent&bit != 0
}

// ReadRadiotapHeader parses the fixed 8-byte radiotap prefix at the start of b.
func ReadRadiotapHeader(b []byte) (RadiotapHeader, bool) {
	if len(b) < RadiotapHeaderLen {
		return RadiotapHeader{}, false
	}
	return RadiotapHeader{
		ItVersion: b[0],
		ItPad:     b[1],
		ItLen:     binary.LittleEndian.Uint16(b[2:4]),
		ItPresent: binary.LittleEndian.Uint32(b[4:8]),
	}, true
}

// CommonALen is sizeof(CommonA): tsft(8)+flags(1)+rate(1)+channel(4)+signal(1)+noise(1)+antenna(1) = 17.
const CommonALen = 17

// CommonA is the radiotap field block for the ProfileCommonA present mask.
type CommonA struct {
	TSFTMicros    uint64
	Flags         uint8
	RateIn500Kbps uint8
	ChannelMHz    uint16
	ChannelFlags  uint16
	AntennaSignal int8
	AntennaNoise  int8
	Antenna       uint8
}

// ReadCommonA parses a CommonA block starting at b.
func ReadCommonA(b []byte) (CommonA, bool) {
	if len(b) < CommonALen {
		return CommonA{}, false
	}
	return CommonA{
		TSFTMicros:    binary.LittleEndian.Uint64(b[0:8]),
		Flags:         b[8],
		RateIn500Kbps: b[9],
		ChannelMHz:    binary.LittleEndian.Uint16(b[10:12]),
		ChannelFlags:  binary.LittleEndian.Uint16(b[12:14]),
		AntennaSignal: int8(b[14]),
		AntennaNoise:  int8(b[15]),
		Antenna:       b[16],
	}, true
}

// CommonBLen is sizeof(CommonB): tsft(8)+flags(1)+channel(4)+signal(1)+noise(1)+antenna(1)+mcs(3) = 19.
const CommonBLen = 19

// CommonB is the radiotap field block for the ProfileCommonB present mask.
type CommonB struct {
	TSFTMicros    uint64
	Flags         uint8
	ChannelMHz    uint16
	ChannelFlags  uint16
	AntennaSignal int8
	AntennaNoise  int8
	Antenna       uint8
	MCSKnown      uint8
	MCSFlags      uint8
	MCSIndex      uint8
}

// ReadCommonB parses a CommonB block starting at b.
func ReadCommonB(b []byte) (CommonB, bool) {
	if len(b) < CommonBLen {
		return CommonB{}, false
	}
	return CommonB{
		TSFTMicros:    binary.LittleEndian.Uint64(b[0:8]),
		Flags:         b[8],
		ChannelMHz:    binary.LittleEndian.Uint16(b[9:11]),
		ChannelFlags:  binary.LittleEndian.Uint16(b[11:13]),
		AntennaSignal: int8(b[13]),
		AntennaNoise:  int8(b[14]),
		Antenna:       b[15],
		MCSKnown:      b[16],
		MCSFlags:      b[17],
		MCSIndex:      b[18],
	}, true
}

// FrameType enumerates 802.11 frame-control frame types.
type FrameType uint8

const (
	FrameTypeManagement FrameType = 0
	FrameTypeControl    FrameType = 1
	FrameTypeData       FrameType = 2
	FrameTypeUnknown    FrameType = 3
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeManagement:
		return "management"
	case FrameTypeControl:
		return "control"
	case FrameTypeData:
		return "data"
	default:
		return "unknown"
	}
}

// FrameControl decodes the first two octets of the 802.11 MAC header.
type FrameControl struct {
	raw   uint8 // the "ty" octet: protocol version, frame type, frame subtype
	Flags uint8
}

// ProtocolVersion is bits 0-1 of the type octet. Non-zero means the frame
// uses a protocol revision this parser doesn't know and must be dropped
// without error.
func (fc FrameControl) ProtocolVersion() uint8 { return fc.raw & 0b00000011 }

// FrameType is bits 2-3 of the type octet.
func (fc FrameControl) FrameType() FrameType { return FrameType((fc.raw & 0b00001100) >> 2) }

// FrameSubtype is bits 4-7 of the type octet.
func (fc FrameControl) FrameSubtype() uint8 { return (fc.raw & 0b11110000) >> 4 }

// Flag bits of the second control octet.
const (
	FlagToDS          uint8 = 1 << 0
	FlagFromDS        uint8 = 1 << 1
	FlagMoreFrags     uint8 = 1 << 2
	FlagRetry         uint8 = 1 << 3
	FlagPowerMgmt     uint8 = 1 << 4
	FlagMoreData      uint8 = 1 << 5
	FlagProtectedFrame uint8 = 1 << 6
	FlagOrder         uint8 = 1 << 7
)

func (fc FrameControl) ToDS() bool          { return fc.Flags&FlagToDS != 0 }
func (fc FrameControl) FromDS() bool        { return fc.Flags&FlagFromDS != 0 }
func (fc FrameControl) MoreFrags() bool     { return fc.Flags&FlagMoreFrags != 0 }
func (fc FrameControl) Retry() bool         { return fc.Flags&FlagRetry != 0 }
func (fc FrameControl) PowerMgmt() bool     { return fc.Flags&FlagPowerMgmt != 0 }
func (fc FrameControl) MoreData() bool      { return fc.Flags&FlagMoreData != 0 }
func (fc FrameControl) Protected() bool     { return fc.Flags&FlagProtectedFrame != 0 }
func (fc FrameControl) Order() bool         { return fc.Flags&FlagOrder != 0 }

// Dot11BaseHeaderLen is frame-control(2) + duration/id(2) + addr1(6).
const Dot11BaseHeaderLen = 10

// Dot11BaseHeader is the common prefix of every 802.11 MAC frame.
type Dot11BaseHeader struct {
	FC     FrameControl
	DurID  uint16
	Addr1  addr.Mac
}

// ReadDot11BaseHeader parses the base header at the start of b.
func ReadDot11BaseHeader(b []byte) (Dot11BaseHeader, bool) {
	if len(b) < Dot11BaseHeaderLen {
		return Dot11BaseHeader{}, false
	}
	return Dot11BaseHeader{
		FC:    FrameControl{raw: b[0], Flags: b[1]},
		DurID: binary.LittleEndian.Uint16(b[2:4]),
		Addr1: addr.MacFromBytes(b[4:10]),
	}, true
}

// Dot11FullHeaderLen covers base(10) + addr2(6) + addr3(6) + seq_ctrl(2),
// the three-address form used by both management and data frames here;
// the optional fourth address and QoS/HT fields are not modeled since
// nothing downstream needs frame reassembly or 802.11e QoS data.
const Dot11FullHeaderLen = Dot11BaseHeaderLen + 6 + 6 + 2

// Dot11FullHeader is the three-address 802.11 MAC header shared by
// management and data frames.
type Dot11FullHeader struct {
	Base    Dot11BaseHeader
	Addr2   addr.Mac
	Addr3   addr.Mac
	SeqCtrl uint16
}

// ReadDot11FullHeader parses the full three-address header at the start of b.
func ReadDot11FullHeader(b []byte) (Dot11FullHeader, bool) {
	if len(b) < Dot11FullHeaderLen {
		return Dot11FullHeader{}, false
	}
	base, ok := ReadDot11BaseHeader(b)
	if !ok {
		return Dot11FullHeader{}, false
	}
	return Dot11FullHeader{
		Base:    base,
		Addr2:   addr.MacFromBytes(b[10:16]),
		Addr3:   addr.MacFromBytes(b[16:22]),
		SeqCtrl: binary.LittleEndian.Uint16(b[22:24]),
	}, true
}
