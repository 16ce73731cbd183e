// Package wsserver hand-rolls a minimal RFC 6455 subset: a loopback-only
// HTTP upgrade handshake and a byte-level masked frame codec.
// github.com/gorilla/websocket sits elsewhere in the reference pack but is
// deliberately not used here — the exact 404-on-bad-key handshake failure,
// the literal <=125 byte inbound payload cap, and the 100-message outbound
// drain cap all need control over framing and rejection behavior that
// gorilla's API doesn't expose; see DESIGN.md.
package wsserver

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wsGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// outboundDrainCap bounds how many queued messages one main-loop iteration
// will flush before blocking on an inbound read, so a connection that's
// only ever pinged doesn't starve the outbound multicast queue forever.
const outboundDrainCap = 100

// maxInboundPayload is the payload-size cap on inbound frames: clients only
// ever send control frames (ping/pong/close) here, so anything larger is
// certainly not a legitimate message.
const maxInboundPayload = 125

// OpCode identifies a WebSocket frame's payload interpretation.
type OpCode uint8

const (
	OpContinuation OpCode = 0x0
	OpText         OpCode = 0x1
	OpBinary       OpCode = 0x2
	OpClose        OpCode = 0x8
	OpPing         OpCode = 0x9
	OpPong         OpCode = 0xA
	// OpError is synthetic: never sent on the wire, used to report a
	// malformed inbound frame to the caller.
	OpError OpCode = 0xFF
)

// Frame is one parsed inbound frame, or a synthetic error marker.
type Frame struct {
	Op      OpCode
	Payload []byte // nil ("none") if the payload exceeded maxInboundPayload
}

// acceptKey computes Sec-WebSocket-Accept from the client's Sec-WebSocket-Key.
func acceptKey(clientKey string) string {
	h := sha1.New()
	io.WriteString(h, clientKey)
	io.WriteString(h, wsGUID)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Handshake reads the HTTP upgrade request line and headers from r and
// writes either a 101 Switching Protocols response or a 404 Not Found to w.
// Returns an error only on a non-protocol I/O failure; a malformed
// handshake is reported via the written 404 response, not an error return.
func Handshake(r *bufio.Reader, w io.Writer) (ok bool, err error) {
	headers := make(map[string]string)
	// request line
	if _, _, err := readCRLFLine(r); err != nil {
		return false, err
	}
	for {
		line, eof, err := readCRLFLine(r)
		if err != nil {
			return false, err
		}
		if eof || line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	key, ok := headers["sec-websocket-key"]
	if !ok || key == "" {
		if _, err := io.WriteString(w, "HTTP/1.1 404 Not Found\r\n\r\n"); err != nil {
			return false, err
		}
		return false, nil
	}

	resp := fmt.Sprintf(
		"HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: %s\r\n\r\n",
		acceptKey(key),
	)
	if _, err := io.WriteString(w, resp); err != nil {
		return false, err
	}
	return true, nil
}

func readCRLFLine(r *bufio.Reader) (line string, eof bool, err error) {
	raw, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && raw == "" {
			return "", true, nil
		}
		return "", false, err
	}
	return strings.TrimRight(raw, "\r\n"), false, nil
}

// WriteFrame encodes payload as a single unmasked frame with FIN=1 and the
// given opcode. Servers never mask outbound frames; only client-to-server
// frames are required to carry a mask.
func WriteFrame(w io.Writer, op OpCode, payload []byte) error {
	var header []byte
	first := byte(0x80) | byte(op) // FIN=1
	n := len(payload)
	switch {
	case n <= 125:
		header = []byte{first, byte(n)}
	case n <= 65535:
		header = make([]byte, 4)
		header[0] = first
		header[1] = 126
		binary.BigEndian.PutUint16(header[2:4], uint16(n))
	default:
		header = make([]byte, 10)
		header[0] = first
		header[1] = 127
		binary.BigEndian.PutUint64(header[2:10], uint64(n))
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ErrConnClosed is returned by ReadFrame when the peer closed the
// connection before a full frame arrived.
var ErrConnClosed = errors.New("wsserver: connection closed")

// ReadFrame reads one inbound frame. RSV bits must be zero, FIN must be
// set (fragmented frames aren't supported), MASK must be set (required of
// every client-to-server frame by the protocol), and only Text, Binary,
// Close, Ping, Pong opcodes are recognized — anything else yields OpError.
// A payload over maxInboundPayload bytes yields a Frame with Op preserved
// as the frame's own opcode but Payload nil, so the caller can still react
// to an oversized ping/close without buffering its body.
func ReadFrame(r io.Reader) (Frame, error) {
	var head [2]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Frame{}, wrapReadErr(err)
	}
	fin := head[0]&0x80 != 0
	rsv := head[0] & 0x70
	op := OpCode(head[0] & 0x0F)
	masked := head[1]&0x80 != 0
	length := int(head[1] & 0x7F)

	switch length {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, wrapReadErr(err)
		}
		length = int(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, wrapReadErr(err)
		}
		length = int(binary.BigEndian.Uint64(ext[:]))
	}

	if !masked {
		if err := discard(r, length); err != nil {
			return Frame{}, wrapReadErr(err)
		}
		return Frame{Op: OpError}, nil
	}
	var mask [4]byte
	if _, err := io.ReadFull(r, mask[:]); err != nil {
		return Frame{}, wrapReadErr(err)
	}

	if !fin || rsv != 0 || !recognizedOp(op) {
		if err := discard(r, length); err != nil {
			return Frame{}, wrapReadErr(err)
		}
		return Frame{Op: OpError}, nil
	}

	if length > maxInboundPayload {
		if err := discard(r, length); err != nil {
			return Frame{}, wrapReadErr(err)
		}
		return Frame{Op: op, Payload: nil}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, wrapReadErr(err)
	}
	for i := range payload {
		payload[i] ^= mask[i%4]
	}
	return Frame{Op: op, Payload: payload}, nil
}

func recognizedOp(op OpCode) bool {
	switch op {
	case OpText, OpBinary, OpClose, OpPing, OpPong:
		return true
	default:
		return false
	}
}

func discard(r io.Reader, n int) error {
	_, err := io.CopyN(io.Discard, r, int64(n))
	return err
}

func wrapReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrConnClosed
	}
	return err
}
