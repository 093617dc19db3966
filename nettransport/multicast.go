package nettransport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/horus-robotics/horus/endpoint"
	"github.com/horus-robotics/horus/internal/cos"
	"github.com/google/uuid"
)

// beaconMagic identifies a horus discovery beacon datagram, distinct from
// stray UDP traffic on the multicast group (spec §6 "Multicast discovery
// beacon: u32 magic | u8 version | u16 topic_len | bytes topic | u16 port").
const beaconMagic uint32 = 0x686f7275 // "horu"

const beaconVersion uint8 = 1

// Beacon is one decoded discovery advertisement.
type Beacon struct {
	Topic string
	Port  uint16
}

// EncodeBeacon serializes b per the spec's wire format.
func EncodeBeacon(b Beacon) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, beaconMagic)
	binary.Write(&buf, binary.BigEndian, beaconVersion)
	binary.Write(&buf, binary.BigEndian, uint16(len(b.Topic)))
	buf.WriteString(b.Topic)
	binary.Write(&buf, binary.BigEndian, b.Port)
	return buf.Bytes()
}

// DecodeBeacon parses a datagram, rejecting anything not bearing
// beaconMagic (stray multicast traffic on the shared group).
func DecodeBeacon(data []byte) (Beacon, error) {
	if len(data) < 4+1+2 {
		return Beacon{}, fmt.Errorf("nettransport: beacon too short")
	}
	if binary.BigEndian.Uint32(data[0:4]) != beaconMagic {
		return Beacon{}, fmt.Errorf("nettransport: not a horus beacon")
	}
	version := data[4]
	if version != beaconVersion {
		return Beacon{}, fmt.Errorf("nettransport: unsupported beacon version %d", version)
	}
	topicLen := binary.BigEndian.Uint16(data[5:7])
	if len(data) < 7+int(topicLen)+2 {
		return Beacon{}, fmt.Errorf("nettransport: truncated beacon")
	}
	topic := string(data[7 : 7+topicLen])
	port := binary.BigEndian.Uint16(data[7+topicLen : 7+topicLen+2])
	return Beacon{Topic: topic, Port: port}, nil
}

// MulticastAdvertiser periodically sends a Beacon to the discovery group
// so peers can learn which port serves topic's Direct UDP data.
type MulticastAdvertiser struct {
	conn      *net.UDPConn
	group     *net.UDPAddr
	sessionID string
}

// NewMulticastAdvertiser dials the default discovery group (spec
// "239.255.72.85:9871"). sessionID identifies this advertiser instance in
// diagnostics; it is never serialized onto the wire, since the beacon's
// framing is bit-exact per spec §6 and has no room for one.
func NewMulticastAdvertiser() (*MulticastAdvertiser, error) {
	group := &net.UDPAddr{
		IP:   net.ParseIP(endpoint.DefaultMulticastAddr),
		Port: endpoint.DefaultMulticastPort,
	}
	conn, err := net.DialUDP("udp", nil, group)
	if err != nil {
		return nil, cos.NewTransportError("multicast", "connect", err)
	}
	return &MulticastAdvertiser{conn: conn, group: group, sessionID: uuid.NewString()}, nil
}

// SessionID identifies this advertiser instance for diagnostics and log
// correlation across the discovery beacon's lifetime.
func (a *MulticastAdvertiser) SessionID() string { return a.sessionID }

// Advertise sends one beacon for topic/port.
func (a *MulticastAdvertiser) Advertise(topic string, port uint16) error {
	_, err := a.conn.Write(EncodeBeacon(Beacon{Topic: topic, Port: port}))
	return err
}

func (a *MulticastAdvertiser) Close() error { return a.conn.Close() }

// MulticastListener joins the discovery group and decodes incoming
// beacons for the caller to dispatch into its Direct-transport discovery
// table.
type MulticastListener struct {
	conn      *net.UDPConn
	sessionID string
}

// NewMulticastListener joins the default discovery group on iface (nil
// for the default interface).
func NewMulticastListener(iface *net.Interface) (*MulticastListener, error) {
	group := &net.UDPAddr{
		IP:   net.ParseIP(endpoint.DefaultMulticastAddr),
		Port: endpoint.DefaultMulticastPort,
	}
	conn, err := net.ListenMulticastUDP("udp", iface, group)
	if err != nil {
		return nil, cos.NewTransportError("multicast", "join", err)
	}
	return &MulticastListener{conn: conn, sessionID: uuid.NewString()}, nil
}

// SessionID identifies this listener instance for diagnostics and log
// correlation across the discovery beacon's lifetime.
func (l *MulticastListener) SessionID() string { return l.sessionID }

// Next blocks for the next beacon datagram and decodes it.
func (l *MulticastListener) Next() (Beacon, error) {
	buf := make([]byte, 1500)
	n, _, err := l.conn.ReadFromUDP(buf)
	if err != nil {
		return Beacon{}, cos.NewTransportError("multicast", "recv", err)
	}
	return DecodeBeacon(buf[:n])
}

func (l *MulticastListener) Close() error { return l.conn.Close() }
