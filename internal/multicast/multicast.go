package multicast

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"

	"multicast-chat/internal/logger"
	"multicast-chat/internal/netutil"

	"golang.org/x/sys/unix"
)

// MaxDatagramSize bounds both outgoing payloads and the receive buffer.
const MaxDatagramSize = 1024

var ErrPayloadTooLarge = errors.New("payload exceeds maximum datagram size")

// TransportError reports a failed socket operation: listen, join, leave, send
// or receive.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("multicast %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsClosed reports whether err comes from using a channel after Close.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// DefaultTTL keeps datagrams on the local network segment.
const DefaultTTL = 1

// Config names the group/port pair to join. The zero value of every other
// field is usable: TTL 0 means DefaultTTL and loopback stays enabled, so a
// sender also receives its own datagrams. Port 0 binds an ephemeral port and
// addresses the group on whatever port the kernel picked.
type Config struct {
	Group           string
	Port            uint16
	Interface       string
	TTL             int
	DisableLoopback bool
}

// Channel is a UDP socket bound to the group port and subscribed to the group.
// Send may be called from any goroutine; Receive is meant for a single reader.
type Channel struct {
	conn  *net.UDPConn
	group *net.UDPAddr
	mreq  unix.IPMreqn
	log   *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open binds the port on all local interfaces with address reuse enabled and
// joins the multicast group. Nothing is left open on failure.
func Open(cfg Config, log *logger.Logger) (*Channel, error) {
	if log == nil {
		log = logger.Discard()
	}
	log = log.Named("multicast")

	group, err := netutil.ParseMulticastGroup(cfg.Group)
	if err != nil {
		return nil, &TransportError{Op: "join", Err: err}
	}
	if cfg.TTL < 0 || cfg.TTL > 255 {
		return nil, &TransportError{Op: "listen", Err: fmt.Errorf("invalid ttl: %d", cfg.TTL)}
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	iface, ifaceIP, err := netutil.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, &TransportError{Op: "join", Err: err}
	}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var opErr error
			err := c.Control(func(fd uintptr) {
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if opErr != nil {
					return
				}
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, &TransportError{Op: "listen", Err: err}
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()
		return nil, &TransportError{Op: "listen", Err: fmt.Errorf("unexpected packet conn type %T", pc)}
	}

	mreq := unix.IPMreqn{Multiaddr: group}
	if iface != nil {
		mreq.Ifindex = int32(iface.Index)
	}

	if err := control(conn, func(fd int) error {
		if err := unix.SetsockoptIPMreqn(fd, unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, &mreq); err != nil {
			return fmt.Errorf("failed to join %s: %w", group, err)
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_TTL, ttl); err != nil {
			return fmt.Errorf("failed to set ttl: %w", err)
		}
		if cfg.DisableLoopback {
			if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, 0); err != nil {
				return fmt.Errorf("failed to disable loopback: %w", err)
			}
		}
		if iface != nil {
			if err := unix.SetsockoptInet4Addr(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_IF, ifaceIP); err != nil {
				return fmt.Errorf("failed to select interface %s: %w", iface.Name, err)
			}
		}
		return nil
	}); err != nil {
		_ = conn.Close()
		return nil, &TransportError{Op: "join", Err: err}
	}

	port := cfg.Port
	if port == 0 {
		port = uint16(conn.LocalAddr().(*net.UDPAddr).Port)
	}

	ch := &Channel{
		conn:  conn,
		group: &net.UDPAddr{IP: net.IP(group[:]), Port: int(port)},
		mreq:  mreq,
		log:   log,
	}
	log.Info("joined %s (ttl=%d loopback=%t)", netutil.FormatAddress(group, port), ttl, !cfg.DisableLoopback)
	return ch, nil
}

// Group returns the destination address of Send.
func (c *Channel) Group() *net.UDPAddr {
	return c.group
}

// Send transmits payload as a single datagram to the group. Oversized payloads
// are rejected rather than truncated.
func (c *Channel) Send(payload []byte) error {
	if len(payload) > MaxDatagramSize {
		return &TransportError{
			Op:  "send",
			Err: fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(payload), MaxDatagramSize),
		}
	}
	if _, err := c.conn.WriteToUDP(payload, c.group); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// Receive blocks until a datagram arrives and returns at most MaxDatagramSize
// bytes of it. It fails once the channel is closed, including when Close is
// called while Receive is blocked.
func (c *Channel) Receive() ([]byte, error) {
	buf := make([]byte, MaxDatagramSize)
	n, _, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, &TransportError{Op: "receive", Err: err}
	}
	return buf[:n], nil
}

// Close leaves the group and releases the socket. Safe to call more than once
// and from any goroutine.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		if err := control(c.conn, func(fd int) error {
			return unix.SetsockoptIPMreqn(fd, unix.IPPROTO_IP, unix.IP_DROP_MEMBERSHIP, &c.mreq)
		}); err != nil {
			c.log.Warn("failed to leave %s: %v", c.group, err)
		}
		if err := c.conn.Close(); err != nil {
			c.closeErr = &TransportError{Op: "leave", Err: err}
			return
		}
		c.log.Info("left %s", c.group)
	})
	return c.closeErr
}

func control(conn *net.UDPConn, fn func(fd int) error) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var opErr error
	if err := rc.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	}); err != nil {
		return err
	}
	return opErr
}
