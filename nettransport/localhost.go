package nettransport

import (
	"context"
	"net"

	"github.com/horus-robotics/horus/internal/cos"
	"github.com/horus-robotics/horus/internal/nlog"
)

// LocalhostServer accepts Unix-socket connections at socketPath and
// mirrors incoming frames into a local ring via send, one goroutine per
// remote attacher (spec §4.6 "Localhost: Unix domain socket; framing is
// u32 length | payload bytes; one datagram per message").
type LocalhostServer[T any] struct {
	socketPath string
	ln         net.Listener
	send       func(T) error
	log        *nlog.Logger
	topicName  string
}

// NewLocalhostServer binds socketPath and returns a server ready to
// Serve. send is typically a *hub.Hub[T] or *link.Producer[T]'s Send
// method value, so decoded frames flow straight into the local ring.
func NewLocalhostServer[T any](socketPath, topicName string, send func(T) error, log *nlog.Logger) (*LocalhostServer[T], error) {
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, cos.NewTransportError(topicName, "bind", err)
	}
	return &LocalhostServer[T]{socketPath: socketPath, ln: ln, send: send, log: log, topicName: topicName}, nil
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (s *LocalhostServer[T]) Serve(ctx context.Context) error {
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

func (s *LocalhostServer[T]) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		frame, err := ReadFrame(conn, DefaultMaxFrame)
		if err != nil {
			if s.log != nil {
				s.log.Warnf(s.topicName, "localhost conn closed: %v", err)
			}
			return
		}
		msg, err := FromBytes[T](frame)
		if err != nil {
			if s.log != nil {
				s.log.Warnf(s.topicName, "localhost frame decode error: %v", err)
			}
			continue
		}
		if err := s.send(msg); err != nil && s.log != nil {
			s.log.Warnf(s.topicName, "localhost ring send failed: %v", err)
		}
	}
}

func (s *LocalhostServer[T]) Close() error { return s.ln.Close() }

// LocalhostClient dials socketPath and forwards samples pulled from a
// local ring (via the caller's poll loop calling Send) onto the wire.
type LocalhostClient[T any] struct {
	conn net.Conn
}

// DialLocalhost connects to a LocalhostServer's socketPath.
func DialLocalhost[T any](socketPath string) (*LocalhostClient[T], error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, cos.NewTransportError(socketPath, "connect", err)
	}
	return &LocalhostClient[T]{conn: conn}, nil
}

// Send frames and writes msg to the connected Unix socket.
func (c *LocalhostClient[T]) Send(msg T) error {
	return WriteFrame(c.conn, ToBytes(&msg))
}

func (c *LocalhostClient[T]) Close() error { return c.conn.Close() }
