package chat

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"multicast-chat/internal/logger"
	"multicast-chat/internal/metrics"
	"multicast-chat/internal/multicast"

	"github.com/google/uuid"
)

type State int32

const (
	Running State = iota
	Closed
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "closed"
}

// Handlers are invoked synchronously on the receive goroutine, OnMessage
// first, then OnNotify, once per delivered message. They must not block
// indefinitely. Once the session is closed neither runs again, even when
// Close is called from inside OnMessage.
type Handlers struct {
	OnMessage func(text string)
	OnNotify  func()
}

type Option func(*Session)

func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.rootLog = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithEchoSuppression drops incoming datagrams identical to one of the last n
// payloads this session sent. Disabled by default: own messages are echoed
// back through multicast loopback.
func WithEchoSuppression(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.echo = newEchoFilter(n)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session owns one Transport and the single goroutine reading from it.
type Session struct {
	id        uuid.UUID
	transport Transport
	handlers  Handlers
	rootLog   *logger.Logger
	log       *logger.Logger
	metrics   *metrics.Metrics
	echo      *echoFilter
	now       func() time.Time

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}

	mu  sync.Mutex
	err error
}

func newSession(opts []Option) *Session {
	s := &Session{
		id:   uuid.New(),
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rootLog == nil {
		s.rootLog = logger.Discard()
	}
	s.log = s.rootLog.Named("session")
	return s
}

// Open joins the multicast group described by cfg and starts a session on it.
// Join failures are returned before any goroutine is started.
func Open(cfg multicast.Config, h Handlers, opts ...Option) (*Session, error) {
	s := newSession(opts)
	ch, err := multicast.Open(cfg, s.rootLog)
	if err != nil {
		return nil, err
	}
	s.start(ch, h)
	return s, nil
}

// NewSession starts the receive loop on an already open transport.
func NewSession(t Transport, h Handlers, opts ...Option) *Session {
	s := newSession(opts)
	s.start(t, h)
	return s
}

func (s *Session) start(t Transport, h Handlers) {
	s.transport = t
	s.handlers = h
	s.state.Store(int32(Running))
	s.log.Info("session %s running", s.id)
	go s.receiveLoop()
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed once the receive loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the transport failure that ended the session, or nil if it is
// still running or was closed explicitly.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// PostMessage stamps, frames and sends body. Blank bodies are ignored.
func (s *Session) PostMessage(author, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	if !utf8.ValidString(body) {
		return ErrInvalidBody
	}
	if strings.TrimSpace(author) == "" || strings.ContainsRune(author, ']') || !utf8.ValidString(author) {
		return ErrInvalidAuthor
	}
	if s.State() == Closed {
		return &multicast.TransportError{Op: "send", Err: net.ErrClosed}
	}

	payload := Encode(NewMessage(author, body, s.now()))
	if s.echo != nil {
		s.echo.remember(payload)
	}

	if err := s.transport.Send(payload); err != nil {
		if s.echo != nil {
			s.echo.consume(payload)
		}
		s.metrics.SendFailed()
		return err
	}
	s.metrics.MessageSent()
	return nil
}

// Close moves the session to Closed and closes the transport, which unblocks
// the receive loop. It does not wait for the loop; use Done for that.
func (s *Session) Close() error {
	s.shutdown(nil)
	return s.closeErr
}

func (s *Session) shutdown(cause error) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closed))
		if cause != nil {
			s.mu.Lock()
			s.err = cause
			s.mu.Unlock()
			s.log.Warn("session %s closed by transport failure: %v", s.id, cause)
		} else {
			s.log.Info("session %s closed", s.id)
		}
		s.closeErr = s.transport.Close()
	})
}

func (s *Session) receiveLoop() {
	defer close(s.done)

	for {
		payload, err := s.transport.Receive()
		if err != nil {
			if s.State() == Running {
				s.shutdown(err)
			}
			return
		}
		if s.State() == Closed {
			return
		}

		if s.echo != nil && s.echo.consume(payload) {
			s.metrics.Discarded(metrics.ReasonEcho)
			continue
		}

		msg, err := Decode(payload)
		if err != nil {
			s.metrics.Discarded(metrics.ReasonDecode)
			s.log.Debug("discarding datagram: %v", err)
			continue
		}
		s.metrics.MessageReceived()

		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(msg.String())
		}
		if s.State() == Closed {
			return
		}
		if s.handlers.OnNotify != nil {
			s.handlers.OnNotify()
		}
	}
}
