// Package nettransport implements the optional network bridges that
// mirror a local shm ring to/from a wire protocol (spec §4.6): Localhost
// (Unix socket), Direct (UDP unicast), Multicast (UDP discovery beacon),
// and Router (TCP, optionally TLS, to a central broker). Localhost and
// Router use the length-prefixed framing below; Direct sends each payload
// as one bare datagram without the length prefix, and Multicast carries
// only discovery beacons. Only RouterClient reconnects, under the
// reconnect package's backoff policy; the other bridges do not reconnect.
//
// Grounded on the teacher's transport package (stream framing discipline,
// a header/payload split, per-session reconnect) generalized from its
// HTTP-streamed object protocol down to the spec's raw-socket framing:
// `u32 length (big-endian) | payload bytes`, payload being the platform
// binary representation of T (spec §6 "Wire framing").
package nettransport

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ControlMessage is the router transport's one-shot handshake frame: a
// RouterClient sends exactly one right after connecting (and again after
// every reconnect), before any data frames, so the broker can log which
// topic/attach a freshly accepted connection belongs to before it has any
// other way to know (spec §4.6 Router; the handshake is JSON rather than
// T's binary layout since the server cannot decode a T-shaped frame until
// it knows which topic the connection is for).
type ControlMessage struct {
	Topic    string `json:"topic"`
	AttachID string `json:"attach_id"`
}

// EncodeControl marshals a ControlMessage with json-iterator, already a
// direct dependency via the teacher's cmn/cos JSON usage.
func EncodeControl(m ControlMessage) ([]byte, error) { return json.Marshal(m) }

// DecodeControl unmarshals a ControlMessage frame's payload.
func DecodeControl(b []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// ToBytes reinterprets v's in-memory representation as a byte slice. T
// must be the same trivially-copyable, pointer-free value type the ring
// itself requires (spec §4.3 "T must be a POD/trivially-copyable value").
func ToBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// FromBytes copies b into a new T. len(b) must equal sizeof(T).
func FromBytes[T any](b []byte) (T, error) {
	var v T
	size := int(unsafe.Sizeof(v))
	if len(b) != size {
		return v, fmt.Errorf("nettransport: payload is %d bytes, expected %d for this message type", len(b), size)
	}
	copy(ToBytes(&v), b)
	return v, nil
}

// WriteFrame writes the spec §6 length-prefixed frame: a big-endian u32
// byte count followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame, rejecting a declared length
// above maxFrame to bound an attacker- or corruption-induced allocation.
func ReadFrame(r io.Reader, maxFrame int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if int(n) > maxFrame {
		return nil, fmt.Errorf("nettransport: frame length %d exceeds maximum %d", n, maxFrame)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// DefaultMaxFrame bounds a single frame's payload size.
const DefaultMaxFrame = 16 << 20
