package nettransport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/horus-robotics/horus/internal/cos"
	"github.com/horus-robotics/horus/internal/nlog"
	"github.com/horus-robotics/horus/reconnect"
)

// RouterServer accepts TCP (optionally TLS) connections from RouterClients
// and mirrors incoming frames into a local ring, the same framing as
// LocalhostServer (spec §4.6 "Router: TCP (optionally TLS) to a central
// broker; framing as localhost").
type RouterServer[T any] struct {
	ln        net.Listener
	send      func(T) error
	log       *nlog.Logger
	topicName string
}

// NewRouterServer binds addr, wrapping the listener in tlsCfg if non-nil
// (build one with tlsmat.CertConfig.CreateAcceptor).
func NewRouterServer[T any](addr, topicName string, tlsCfg *tls.Config, send func(T) error, log *nlog.Logger) (*RouterServer[T], error) {
	var ln net.Listener
	var err error
	if tlsCfg != nil {
		ln, err = tls.Listen("tcp", addr, tlsCfg)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, cos.NewTransportError(topicName, "bind", err)
	}
	return &RouterServer[T]{ln: ln, send: send, log: log, topicName: topicName}, nil
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (s *RouterServer[T]) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return cos.NewTransportError(s.topicName, "accept", err)
			}
		}
		go s.serveConn(conn)
	}
}

func (s *RouterServer[T]) serveConn(conn net.Conn) {
	defer conn.Close()

	ctrlFrame, err := ReadFrame(conn, DefaultMaxFrame)
	if err != nil {
		if s.log != nil {
			s.log.Warnf(s.topicName, "router conn closed before handshake: %v", err)
		}
		return
	}
	ctrl, err := DecodeControl(ctrlFrame)
	if err != nil {
		if s.log != nil {
			s.log.Warnf(s.topicName, "router handshake decode error: %v", err)
		}
		return
	}
	if s.log != nil {
		s.log.Infof(s.topicName, "router accepted attach=%s topic=%s", ctrl.AttachID, ctrl.Topic)
	}

	for {
		frame, err := ReadFrame(conn, DefaultMaxFrame)
		if err != nil {
			if s.log != nil {
				s.log.Warnf(s.topicName, "router conn closed: %v", err)
			}
			return
		}
		msg, err := FromBytes[T](frame)
		if err != nil {
			if s.log != nil {
				s.log.Warnf(s.topicName, "router frame decode error: %v", err)
			}
			continue
		}
		if err := s.send(msg); err != nil && s.log != nil {
			s.log.Warnf(s.topicName, "router ring send failed: %v", err)
		}
	}
}

func (s *RouterServer[T]) Close() error { return s.ln.Close() }

// Addr returns the listener's bound address, useful when NewRouterServer
// was given port 0 and the caller needs the one the OS assigned.
func (s *RouterServer[T]) Addr() string { return s.ln.Addr().String() }

// RouterClient dials a central broker over TCP (optionally TLS) and
// forwards samples onto the wire, reconnecting under strategy whenever
// the connection drops (spec §4.2, §4.6 "Reconnects under the
// ReconnectStrategy").
type RouterClient[T any] struct {
	addr      string
	tlsCfg    *tls.Config
	topicName string
	attachID  string
	strategy  reconnect.Strategy
	rc        *reconnect.Context
	log       *nlog.Logger

	mu   chan struct{} // 1-slot mutex guarding conn, held while dialing or writing
	conn net.Conn
}

// DialRouter performs the initial connection attempt and returns a ready
// client; tlsCfg may be nil for a plaintext connection.
func DialRouter[T any](addr, topicName string, tlsCfg *tls.Config, strategy reconnect.Strategy, log *nlog.Logger) (*RouterClient[T], error) {
	c := &RouterClient[T]{
		addr: addr, tlsCfg: tlsCfg, topicName: topicName, attachID: cos.GenAttachID(),
		strategy: strategy, rc: reconnect.NewContext(strategy), log: log,
		mu: make(chan struct{}, 1),
	}
	c.mu <- struct{}{}
	if err := c.dial(); err != nil {
		return nil, err
	}
	return c, nil
}

// AttachID identifies this client's attach across the connection's
// lifetime, re-sent in the handshake on every reconnect.
func (c *RouterClient[T]) AttachID() string { return c.attachID }

func (c *RouterClient[T]) dial() error {
	var conn net.Conn
	var err error
	if c.tlsCfg != nil {
		conn, err = tls.Dial("tcp", c.addr, c.tlsCfg)
	} else {
		conn, err = net.Dial("tcp", c.addr)
	}
	if err != nil {
		c.rc.MarkFailed()
		return cos.NewTransportError(c.topicName, "connect", err)
	}
	ctrl, err := EncodeControl(ControlMessage{Topic: c.topicName, AttachID: c.attachID})
	if err != nil {
		conn.Close()
		c.rc.MarkFailed()
		return cos.NewTransportError(c.topicName, "handshake-encode", err)
	}
	if err := WriteFrame(conn, ctrl); err != nil {
		conn.Close()
		c.rc.MarkFailed()
		return cos.NewTransportError(c.topicName, "handshake-send", err)
	}
	c.conn = conn
	c.rc.MarkConnected()
	return nil
}

// Send frames and writes msg to the broker, transparently reconnecting
// (with backoff) on a write failure before reporting a TransportError to
// the caller. A successful Send always leaves the client either connected
// or having exhausted the strategy's retry budget.
func (c *RouterClient[T]) Send(msg T) error {
	<-c.mu
	defer func() { c.mu <- struct{}{} }()

	if c.conn == nil {
		if err := c.reconnect(); err != nil {
			return err
		}
	}
	if err := WriteFrame(c.conn, ToBytes(&msg)); err != nil {
		c.conn.Close()
		c.conn = nil
		if rerr := c.reconnect(); rerr != nil {
			return rerr
		}
		return WriteFrame(c.conn, ToBytes(&msg))
	}
	return nil
}

func (c *RouterClient[T]) reconnect() error {
	for {
		c.rc.BeginReconnect()
		if !c.rc.ShouldRetry() {
			return cos.NewTransportError(c.topicName, "reconnect",
				errRetryBudgetExhausted)
		}
		c.rc.WaitBackoff()
		if err := c.dial(); err != nil {
			if c.log != nil {
				c.log.Warnf(c.topicName, "router reconnect attempt %d failed: %v", c.rc.Attempt(), err)
			}
			continue
		}
		return nil
	}
}

// Health reports the client's current reconnect health.
func (c *RouterClient[T]) Health() reconnect.Health { return c.rc.Health() }

func (c *RouterClient[T]) Close() error {
	<-c.mu
	defer func() { c.mu <- struct{}{} }()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

var errRetryBudgetExhausted = errors.New("reconnect retry budget exhausted")
