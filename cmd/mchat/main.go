package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"multicast-chat/internal/chat"
	"multicast-chat/internal/config"
	"multicast-chat/internal/logger"
	"multicast-chat/internal/metrics"
	"multicast-chat/internal/notify"

	"github.com/gookit/color"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const echoMemory = 32

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mchat: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return exitConfig, err
	}

	name := flag.String("name", cfg.Name, "name shown next to your messages")
	group := flag.String("group", cfg.Group, "multicast group address")
	port := flag.Int("port", cfg.Port, "UDP port shared by all participants")
	iface := flag.String("iface", cfg.Interface, "network interface to join on (default: any)")
	flag.Parse()

	cfg.Name = strings.TrimSpace(*name)
	cfg.Group = *group
	cfg.Port = *port
	cfg.Interface = *iface

	if cfg.Name == "" {
		flag.Usage()
		return exitConfig, errors.New("a name is required (-name or MCHAT_NAME)")
	}
	if strings.ContainsRune(cfg.Name, ']') {
		return exitConfig, fmt.Errorf("name %q must not contain ']'", cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		return exitConfig, err
	}

	log := logger.New(cfg.Level())
	out := newPrinter(os.Stdout, cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var player notify.Player = notify.PlayerFunc(func() error { return nil })
	if cfg.Bell {
		player = notify.BellPlayer{W: out}
	}
	dispatcher := notify.NewDispatcher(player, notify.Options{
		QueueSize:   cfg.NotifyQueue,
		MinInterval: cfg.NotifyInterval,
	}, log)
	defer func() {
		dispatcher.Close()
		log.Debug("notifications played=%d dropped=%d", dispatcher.Played(), dispatcher.Dropped())
	}()

	opts := []chat.Option{chat.WithLogger(log)}
	if cfg.SuppressEcho {
		opts = append(opts, chat.WithEchoSuppression(echoMemory))
	}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, chat.WithMetrics(metrics.New(reg)))
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, log.Named("metrics")); err != nil {
				log.Error("metrics server stopped: %v", err)
			}
		}()
	}

	session, err := chat.Open(cfg.Channel(), chat.Handlers{
		OnMessage: out.message,
		OnNotify:  func() { dispatcher.Notify() },
	}, opts...)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		_ = session.Close()
		<-session.Done()
	}()

	out.status(fmt.Sprintf("joined %s:%d as %s (session %s), /quit to leave",
		cfg.Group, cfg.Port, cfg.Name, session.ID()))

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case <-session.Done():
			return exitRuntime, fmt.Errorf("session ended: %w", session.Err())
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return exitOK, nil
			}
			if err := session.PostMessage(cfg.Name, line); err != nil {
				out.failure(err)
			}
		}
	}
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines <- sc.Text()
	}
}

// printer serializes writes from the receive goroutine and the input loop.
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	self string
}

func newPrinter(w io.Writer, self string) *printer {
	return &printer{w: w, self: self}
}

func (p *printer) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Write(b)
}

func (p *printer) message(text string) {
	style := color.Green
	if m, err := chat.Decode([]byte(text)); err == nil && m.Author == p.self {
		style = color.Cyan
	}
	p.line(style.Sprint(text))
}

func (p *printer) status(text string) {
	p.line(color.Yellow.Sprint("* " + text))
}

func (p *printer) failure(err error) {
	p.line(color.Red.Sprint("! " + err.Error()))
}

func (p *printer) line(s string) {
	_, _ = fmt.Fprintln(p, s)
}
