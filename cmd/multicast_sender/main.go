package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"multicast-chat/internal/chat"
	"multicast-chat/internal/config"
	"multicast-chat/internal/logger"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Posts numbered chat messages at a fixed interval, for checking that peers
// on the segment can hear this host.
func main() {
	code, err := run()
	if err != nil {
		fmt.Println("Error:", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return exitConfig, err
	}

	name := flag.String("name", "probe", "author of the probe messages")
	group := flag.String("group", cfg.Group, "multicast group address")
	port := flag.Int("port", cfg.Port, "UDP port")
	count := flag.Int("count", 0, "messages to send (0 = until interrupted)")
	interval := flag.Duration("interval", 2*time.Second, "delay between messages")
	flag.Parse()

	cfg.Group = *group
	cfg.Port = *port
	if err := cfg.Validate(); err != nil {
		return exitConfig, err
	}

	session, err := chat.Open(cfg.Channel(), chat.Handlers{}, chat.WithLogger(logger.New(cfg.Level())))
	if err != nil {
		return exitRuntime, fmt.Errorf("creating session: %w", err)
	}
	defer func() {
		_ = session.Close()
		<-session.Done()
	}()

	fmt.Printf("Sending chat messages to %s:%d as %s\n", cfg.Group, cfg.Port, *name)

	for counter := 1; *count == 0 || counter <= *count; counter++ {
		body := fmt.Sprintf("probe message #%d", counter)
		if err := session.PostMessage(*name, body); err != nil {
			return exitRuntime, fmt.Errorf("sending message: %w", err)
		}

		fmt.Printf("Sent: %s\n", body)
		time.Sleep(*interval)
	}
	return exitOK, nil
}
