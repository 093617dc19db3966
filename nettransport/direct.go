package nettransport

import (
	"context"
	"net"

	"github.com/horus-robotics/horus/internal/cos"
	"github.com/horus-robotics/horus/internal/nlog"
)

// DirectServer listens for UDP datagrams carrying one frame each and
// mirrors them into a local ring via send. Spec §4.6 "Direct UDP: same
// framing over UDP unicast; no ordering or delivery guarantees" — unlike
// Localhost's stream framing, each datagram already is one frame, so no
// length prefix is read off the wire (UDP preserves message boundaries).
type DirectServer[T any] struct {
	conn      *net.UDPConn
	send      func(T) error
	log       *nlog.Logger
	topicName string
}

// NewDirectServer binds addr ("host:port") for UDP receipt.
func NewDirectServer[T any](addr, topicName string, send func(T) error, log *nlog.Logger) (*DirectServer[T], error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, cos.NewConfigError("direct-resolve", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, cos.NewTransportError(topicName, "bind", err)
	}
	return &DirectServer[T]{conn: conn, send: send, log: log, topicName: topicName}, nil
}

// Serve reads datagrams until ctx is cancelled or Close is called.
func (s *DirectServer[T]) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()
	buf := make([]byte, DefaultMaxFrame)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return cos.NewTransportError(s.topicName, "recv", err)
			}
		}
		msg, err := FromBytes[T](buf[:n])
		if err != nil {
			if s.log != nil {
				s.log.Warnf(s.topicName, "direct datagram decode error: %v", err)
			}
			continue
		}
		if err := s.send(msg); err != nil && s.log != nil {
			s.log.Warnf(s.topicName, "direct ring send failed: %v", err)
		}
	}
}

func (s *DirectServer[T]) Close() error { return s.conn.Close() }

// DirectClient sends unicast UDP datagrams to a fixed remote address.
type DirectClient[T any] struct {
	conn *net.UDPConn
}

// DialDirect resolves and connects a UDP socket to addr.
func DialDirect[T any](addr string) (*DirectClient[T], error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, cos.NewConfigError("direct-resolve", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, cos.NewTransportError(addr, "connect", err)
	}
	return &DirectClient[T]{conn: conn}, nil
}

// Send writes msg as a single datagram (no length prefix: UDP already
// delimits messages).
func (c *DirectClient[T]) Send(msg T) error {
	_, err := c.conn.Write(ToBytes(&msg))
	return err
}

func (c *DirectClient[T]) Close() error { return c.conn.Close() }
